package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"alpha-squeeze/internal/db"
	"alpha-squeeze/internal/logging"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const usage = "usage: go run ./cmd/migrate [up|down|version] [steps]"

var (
	loadEnvFunc = godotenv.Load
	openPool    = func(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
		return db.NewPool(ctx, dsn, db.PoolConfigFromEnv())
	}
)

func main() {
	_ = loadEnvFunc()
	logger := logging.New(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	if len(os.Args) < 2 {
		logger.Fatal(usage)
	}
	steps, err := parseSteps(os.Args[1], os.Args[2:])
	if err != nil {
		logger.Fatal(err)
	}

	dsn := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dsn == "" {
		logger.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()
	pool, err := openPool(ctx, dsn)
	if err != nil {
		logger.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()

	migrator, err := db.NewMigrator(pool, db.MigrationsFS)
	if err != nil {
		logger.Fatalf("load migrations: %v", err)
	}

	if err := run(ctx, logger, migrator, os.Args[1], steps); err != nil {
		logger.Fatal(err)
	}
}

type migrator interface {
	Up(ctx context.Context) (int, error)
	Down(ctx context.Context, steps int) (int, error)
	Version(ctx context.Context) (int64, string, error)
}

func parseSteps(cmd string, rest []string) (int, error) {
	if cmd != "down" || len(rest) == 0 {
		return 1, nil
	}
	n, err := strconv.Atoi(rest[0])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid down steps: %q", rest[0])
	}
	return n, nil
}

func run(ctx context.Context, logger *logrus.Logger, m migrator, cmd string, steps int) error {
	switch cmd {
	case "up":
		applied, err := m.Up(ctx)
		if err != nil {
			return fmt.Errorf("apply migrations up: %w", err)
		}
		logger.WithField("applied", applied).Info("migrations up complete")
	case "down":
		rolledBack, err := m.Down(ctx, steps)
		if err != nil {
			return fmt.Errorf("apply migrations down: %w", err)
		}
		logger.WithField("rolled_back", rolledBack).Info("migrations down complete")
	case "version":
		version, name, err := m.Version(ctx)
		if err != nil {
			return fmt.Errorf("read current version: %w", err)
		}
		if version == 0 {
			logger.Info("no migrations applied")
			return nil
		}
		logger.WithFields(logrus.Fields{"version": version, "name": name}).Info("current version")
	default:
		return fmt.Errorf("unknown command %q. %s", cmd, usage)
	}
	return nil
}
