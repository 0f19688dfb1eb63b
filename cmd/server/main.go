package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"alpha-squeeze/internal/advisor"
	"alpha-squeeze/internal/batch"
	"alpha-squeeze/internal/cache"
	"alpha-squeeze/internal/config"
	"alpha-squeeze/internal/db"
	"alpha-squeeze/internal/degraded"
	"alpha-squeeze/internal/domain"
	"alpha-squeeze/internal/handler"
	"alpha-squeeze/internal/job"
	"alpha-squeeze/internal/logging"
	"alpha-squeeze/internal/repository"
	"alpha-squeeze/internal/service"
	"alpha-squeeze/internal/trigger"
	"alpha-squeeze/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "alpha-squeeze/docs"
)

var (
	loadEnvFunc      = godotenv.Load
	loadConfigFunc   = config.Load
	newLoggerFunc    = logging.New
	initPostgresFunc = db.InitPostgres
	initRedisFunc    = cache.InitRedis
	initTracerFunc   = tracing.InitTracer
	migrateUpFunc    = func(ctx context.Context, pool *pgxpool.Pool) (int, error) {
		m, err := db.NewMigrator(pool, db.MigrationsFS)
		if err != nil {
			return 0, err
		}
		return m.Up(ctx)
	}
	loadWeightsFileFunc = config.LoadWeightsFile
	newLLMClientFunc    = advisor.NewOpenAIClient
	startJobFunc        = func(j *job.EvaluationJob, ctx context.Context, logger *logrus.Logger) {
		go func() {
			if err := j.Start(ctx); err != nil {
				logger.WithError(err).Error("evaluation job failed to start")
			}
		}()
	}
	startWarmerFunc        = func(w *job.CandidateWarmer, ctx context.Context) { go w.Start(ctx) }
	newRouterFunc          = gin.Default
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Alpha Squeeze API
// @version         1.0
// @description     Short-squeeze scoring and convertible bond redemption tracking.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey  ApiKeyAuth
// @in                          header
// @name                        X-API-Key
func main() {
	_ = loadEnvFunc()

	cfg := loadConfigFunc()
	logger := newLoggerFunc(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Postgres and Redis; either may be missing and the server still starts
	os.Setenv("DATABASE_URL", cfg.DatabaseURL)
	os.Setenv("REDIS_URL", cfg.RedisURL)
	if err := initPostgresFunc(ctx); err != nil {
		logger.WithError(err).Warn("postgres unavailable, evaluation endpoints will serve degraded results")
	}
	if err := initRedisFunc(ctx); err != nil {
		logger.WithError(err).Warn("redis unavailable, running without cache")
	}

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		logger.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Error("error shutting down tracer provider")
		}
	}()

	if db.Pool != nil {
		applied, err := migrateUpFunc(ctx, db.Pool)
		if err != nil {
			logger.Fatalf("failed to run migrations: %v", err)
		}
		logger.WithField("applied", applied).Info("migrations up to date")
	}

	// Storage collaborators stay nil interfaces when their backend is missing
	var (
		stores      service.Stores
		weightStore service.WeightStore
		pinger      service.Pinger
	)
	if db.Pool != nil {
		stores = service.Stores{
			Metrics:  repository.NewMetricRepository(db.Pool, tracer),
			Bonds:    repository.NewBondRepository(db.Pool, tracer),
			Signals:  repository.NewSignalRepository(db.Pool, tracer),
			Tracking: repository.NewTrackingRepository(db.Pool, tracer),
			Runs:     repository.NewRunRepository(db.Pool, tracer),
		}
		weightStore = repository.NewWeightConfigRepository(db.Pool, tracer)
		pinger = db.Pool
	}

	var (
		candidateCache service.CandidateCache
		weightCache    service.WeightCache
	)
	if cache.Client != nil {
		store := cache.NewStore(cache.Client, time.Duration(cfg.CacheTTLSecs)*time.Second)
		candidateCache, weightCache = store, store
	}

	configService := service.NewConfigService(tracer, logger, weightStore, weightCache)
	seed := domain.DefaultWeightConfig()
	if cfg.WeightsFile != "" {
		fromFile, err := loadWeightsFileFunc(cfg.WeightsFile)
		if err != nil {
			logger.Fatalf("failed to load weights file: %v", err)
		}
		seed = fromFile
	}
	active, err := configService.Load(ctx, seed)
	if err != nil {
		logger.Fatalf("failed to load weight config: %v", err)
	}
	logger.WithField("version", active.Version).Info("weight config loaded")
	if seedIgnored(cfg.WeightsFile, seed, active) {
		logger.WithFields(logrus.Fields{
			"weights_file": cfg.WeightsFile,
			"version":      active.Version,
		}).Warn("weights file not applied: a stored config version takes precedence, update it through PUT /api/config/weights")
	}

	tracker := trigger.Tracker{
		ResetOnBelow:    cfg.CBResetOnBelow,
		CautionFraction: cfg.CBCautionFraction,
		WarningFraction: cfg.CBWarningFraction,
	}
	evaluator := batch.NewEvaluator(tracker, cfg.EvalWorkers)
	evalService := service.NewEvaluationService(tracer, logger, evaluator, stores, candidateCache, configService)

	probe := service.NewEngineProbe(pinger, time.Second)
	scorer := degraded.NewAdapter(evalService, probe, time.Duration(cfg.DegradedTimeoutMs)*time.Millisecond)

	var llm advisor.LLMClient
	if cfg.OpenAIAPIKey != "" {
		llm = newLLMClientFunc(cfg.OpenAIAPIKey)
	}
	briefs := advisor.NewBriefWriter(tracer, logger, llm, evalService, evalService, cfg.OpenAIModel, cfg.TopCandidateMinScore)

	// Background jobs, stopped by ctx cancel
	var runner job.EvaluationRunner
	if db.Pool != nil {
		runner = evalService
	}
	evalJob := job.NewEvaluationJob(tracer, logger, runner, cfg.EvalCron, job.LoadLocation(cfg.EvalTimezone), cfg.EvalOnStart)
	startJobFunc(evalJob, ctx, logger)

	if db.Pool != nil && candidateCache != nil {
		warmer := job.NewCandidateWarmer(tracer, logger, evalService, cfg.TopCandidateMinScore, cfg.TopCandidateLimit,
			time.Duration(cfg.CacheTTLSecs)*time.Second/2, evalJob.TradeDate)
		startWarmerFunc(warmer, ctx)
	}

	h := handler.New(tracer, logger, handler.Deps{
		Evaluations: evalService,
		Weights:     configService,
		Scorer:      scorer,
		Briefs:      briefs,
		Engine:      probe,
	}, handler.Options{
		APIKey:          cfg.APIKey,
		RateLimitPerMin: cfg.RateLimitPerMin,
		RateLimitBurst:  cfg.RateLimitBurst,
		TopMinScore:     cfg.TopCandidateMinScore,
		TopLimit:        cfg.TopCandidateLimit,
	})

	r := newRouterFunc()
	r.Use(otelgin.Middleware(tracing.ServiceName))

	h.RegisterRoutes(r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("listen: %s", err)
		}
	}()
	logger.WithField("addr", srv.Addr).Info("http server started")

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	logger.Info("shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		logger.Fatalf("server forced to shutdown: %v", err)
	}
	if db.Pool != nil {
		db.Pool.Close()
	}

	logger.Info("server exiting")
}

// seedIgnored reports whether a configured weights file lost to an existing version.
func seedIgnored(path string, seed, active domain.WeightConfig) bool {
	return path != "" && !active.SameSettings(seed)
}
