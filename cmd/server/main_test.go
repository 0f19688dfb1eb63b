package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"alpha-squeeze/internal/config"
	"alpha-squeeze/internal/domain"
	"alpha-squeeze/internal/job"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestMainBootstrap(t *testing.T) {
	gin.SetMode(gin.TestMode)
	restore := stubServerDeps(t)
	defer restore()

	done := make(chan struct{})
	go func() {
		main()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("main did not exit")
	}
}

func stubServerDeps(t *testing.T) func() {
	origLoadEnv := loadEnvFunc
	origLoadConfig := loadConfigFunc
	origNewLogger := newLoggerFunc
	origInitPostgres := initPostgresFunc
	origInitRedis := initRedisFunc
	origInitTracer := initTracerFunc
	origStartJob := startJobFunc
	origStartWarmer := startWarmerFunc
	origNewRouter := newRouterFunc
	origSetupSignal := setupSignalNotify
	origWait := waitForSignalFunc
	origStartHTTP := startHTTPServerFunc
	origShutdownHTTP := shutdownHTTPServerFunc

	loadEnvFunc = func(...string) error { return nil }
	loadConfigFunc = func() *config.Config {
		return &config.Config{
			HTTPPort:             8080,
			EvalCron:             "0 30 14 * * 1-5",
			EvalTimezone:         "UTC",
			CBResetOnBelow:       true,
			CBCautionFraction:    0.33,
			CBWarningFraction:    0.66,
			TopCandidateMinScore: 70,
			TopCandidateLimit:    20,
			CacheTTLSecs:         300,
			DegradedTimeoutMs:    100,
		}
	}
	newLoggerFunc = func(level, format string) *logrus.Logger {
		l := logrus.New()
		l.SetOutput(io.Discard)
		return l
	}
	initPostgresFunc = func(context.Context) error { return errors.New("DATABASE_URL not set") }
	initRedisFunc = func(context.Context) error { return errors.New("connection refused") }
	initTracerFunc = func(ctx context.Context) (*sdktrace.TracerProvider, trace.Tracer, error) {
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Tracer("test"), nil
	}
	jobStarted := false
	startJobFunc = func(*job.EvaluationJob, context.Context, *logrus.Logger) { jobStarted = true }
	startWarmerFunc = func(*job.CandidateWarmer, context.Context) {
		t.Error("warmer should not start without storage")
	}
	newRouterFunc = func(...gin.OptionFunc) *gin.Engine { return gin.New() }
	setupSignalNotify = func(c chan<- os.Signal, sig ...os.Signal) {}
	waitForSignalFunc = func(<-chan os.Signal) {}
	startHTTPServerFunc = func(*http.Server) error { return http.ErrServerClosed }
	shutdownHTTPServerFunc = func(*http.Server, context.Context) error { return nil }

	return func() {
		if !jobStarted {
			t.Error("expected evaluation job to be started")
		}
		loadEnvFunc = origLoadEnv
		loadConfigFunc = origLoadConfig
		newLoggerFunc = origNewLogger
		initPostgresFunc = origInitPostgres
		initRedisFunc = origInitRedis
		initTracerFunc = origInitTracer
		startJobFunc = origStartJob
		startWarmerFunc = origStartWarmer
		newRouterFunc = origNewRouter
		setupSignalNotify = origSetupSignal
		waitForSignalFunc = origWait
		startHTTPServerFunc = origStartHTTP
		shutdownHTTPServerFunc = origShutdownHTTP
	}
}

func TestSeedIgnored(t *testing.T) {
	fromFile := domain.DefaultWeightConfig()
	fromFile.BullishCutoff = 75

	stored := domain.DefaultWeightConfig()
	stored.Version = 4

	applied := fromFile
	applied.Version = 1

	tests := []struct {
		name   string
		path   string
		active domain.WeightConfig
		want   bool
	}{
		{"no file", "", stored, false},
		{"stored version wins", "weights.yaml", stored, true},
		{"file applied", "weights.yaml", applied, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := seedIgnored(tt.path, fromFile, tt.active); got != tt.want {
				t.Fatalf("seedIgnored = %v, want %v", got, tt.want)
			}
		})
	}
}
