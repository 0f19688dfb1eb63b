package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"alpha-squeeze/internal/cache"
	"alpha-squeeze/internal/config"
	"alpha-squeeze/internal/db"
	"alpha-squeeze/internal/domain"
	"alpha-squeeze/internal/job"
	"alpha-squeeze/internal/logging"
	"alpha-squeeze/internal/repository"
	"alpha-squeeze/internal/service"
	"alpha-squeeze/pkg/tracing"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/trace"
)

var (
	loadEnvFunc      = godotenv.Load
	loadConfigFunc   = config.Load
	initPostgresFunc = db.InitPostgres
	initRedisFunc    = cache.InitRedis
	runServerFunc    = func(ctx context.Context, s *mcp.Server) error { return s.Run(ctx, &mcp.StdioTransport{}) }
)

func main() {
	_ = loadEnvFunc()
	cfg := loadConfigFunc()

	// stdout carries the protocol; logs go to stderr and stay quiet
	level := cfg.LogLevel
	if level == "" || level == "info" {
		level = "warn"
	}
	logger := logging.NewWithOutput(level, cfg.LogFormat, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Setenv("DATABASE_URL", cfg.DatabaseURL)
	os.Setenv("REDIS_URL", cfg.RedisURL)
	if err := initPostgresFunc(ctx); err != nil {
		logger.WithError(err).Fatal("postgres is required for the mcp server")
	}
	defer db.Pool.Close()
	if err := initRedisFunc(ctx); err != nil {
		logger.WithError(err).Warn("redis unavailable, running without cache")
	}

	tracer := trace.NewNoopTracerProvider().Tracer(tracing.ServiceName)
	var candidateCache service.CandidateCache
	if cache.Client != nil {
		candidateCache = cache.NewStore(cache.Client, time.Duration(cfg.CacheTTLSecs)*time.Second)
	}
	evalService := service.NewEvaluationService(tracer, logger, nil, service.Stores{
		Metrics:  repository.NewMetricRepository(db.Pool, tracer),
		Bonds:    repository.NewBondRepository(db.Pool, tracer),
		Signals:  repository.NewSignalRepository(db.Pool, tracer),
		Tracking: repository.NewTrackingRepository(db.Pool, tracer),
	}, candidateCache, nil)

	loc := job.LoadLocation(cfg.EvalTimezone)
	tools := &toolset{
		candidates: evalService,
		warnings:   evalService,
		timeout:    time.Duration(cfg.MCPRequestTimeoutSecs) * time.Second,
		today:      func() time.Time { return domain.TruncateDate(time.Now().In(loc)) },
		minScore:   cfg.TopCandidateMinScore,
		limit:      cfg.TopCandidateLimit,
	}
	server := newServer(tools)

	if err := runServerFunc(ctx, server); err != nil && ctx.Err() == nil {
		logger.WithError(err).Fatal("mcp server stopped")
	}
}

func newServer(t *toolset) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: tracing.ServiceName, Version: "v1.0.0"}, nil)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "top_squeeze_candidates",
		Description: "List the highest scoring short-squeeze candidates for a trading date.",
	}, t.topCandidates)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "cb_redemption_warnings",
		Description: "List convertible bonds approaching forced redemption for a trading date.",
	}, t.redemptionWarnings)
	return server
}
