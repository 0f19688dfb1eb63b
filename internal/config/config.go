package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

type Config struct {
	DatabaseURL string
	RedisURL    string
	HTTPPort    int
	APIKey      string

	LogLevel  string
	LogFormat string

	EvalCron     string
	EvalTimezone string
	EvalOnStart  bool
	EvalWorkers  int

	WeightsFile string

	CBResetOnBelow    bool
	CBCautionFraction float64
	CBWarningFraction float64

	TopCandidateMinScore int
	TopCandidateLimit    int
	CacheTTLSecs         int

	DegradedTimeoutMs int
	RateLimitPerMin   int
	RateLimitBurst    int

	OpenAIAPIKey string
	OpenAIModel  string

	MCPRequestTimeoutSecs int
}

func Load() *Config {
	cfg := &Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		RedisURL:     os.Getenv("REDIS_URL"),
		APIKey:       strings.TrimSpace(os.Getenv("API_KEY")),
		WeightsFile:  strings.TrimSpace(os.Getenv("WEIGHTS_FILE")),
		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
	}

	if cfg.DatabaseURL == "" {
		logrus.Warn("DATABASE_URL not set")
	}
	if cfg.RedisURL == "" {
		logrus.Warn("REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}
	if cfg.APIKey == "" {
		logrus.Warn("API_KEY not set, mutating routes are open")
	}

	cfg.HTTPPort = positiveInt("PORT", 8080)

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT")))
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		cfg.LogFormat = "text"
	}

	// seconds field first: 14:30 on weekdays, after the exchange publishes lending data
	cfg.EvalCron = strings.TrimSpace(os.Getenv("EVAL_CRON"))
	if cfg.EvalCron == "" {
		cfg.EvalCron = "0 30 14 * * 1-5"
	}
	cfg.EvalTimezone = strings.TrimSpace(os.Getenv("EVAL_TIMEZONE"))
	if cfg.EvalTimezone == "" {
		cfg.EvalTimezone = "Asia/Taipei"
	}
	cfg.EvalOnStart = strings.EqualFold(strings.TrimSpace(os.Getenv("EVAL_ON_START")), "true")

	cfg.EvalWorkers = 0
	if v := strings.TrimSpace(os.Getenv("EVAL_WORKERS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EvalWorkers = n
		}
	}

	cfg.CBResetOnBelow = true
	if v := strings.TrimSpace(os.Getenv("CB_RESET_ON_BELOW")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.CBResetOnBelow = b
		}
	}
	cfg.CBCautionFraction = fraction("CB_CAUTION_FRACTION", 0.33)
	cfg.CBWarningFraction = fraction("CB_WARNING_FRACTION", 0.66)
	if cfg.CBCautionFraction >= cfg.CBWarningFraction {
		logrus.Warnf("CB_CAUTION_FRACTION %.2f must be below CB_WARNING_FRACTION %.2f, using defaults",
			cfg.CBCautionFraction, cfg.CBWarningFraction)
		cfg.CBCautionFraction, cfg.CBWarningFraction = 0.33, 0.66
	}

	cfg.TopCandidateMinScore = 70
	if v := strings.TrimSpace(os.Getenv("TOP_MIN_SCORE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= 100 {
			cfg.TopCandidateMinScore = n
		}
	}
	cfg.TopCandidateLimit = positiveInt("TOP_LIMIT", 20)
	cfg.CacheTTLSecs = positiveInt("CACHE_TTL_SECS", 300)

	cfg.DegradedTimeoutMs = positiveInt("DEGRADED_TIMEOUT_MS", 2000)
	cfg.RateLimitPerMin = positiveInt("RATE_LIMIT_PER_MIN", 30)
	cfg.RateLimitBurst = positiveInt("RATE_LIMIT_BURST", 5)

	if cfg.OpenAIAPIKey == "" {
		logrus.Warn("OPENAI_API_KEY not set, briefs use the heuristic writer")
	}
	cfg.OpenAIModel = strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-4o-mini"
	}

	cfg.MCPRequestTimeoutSecs = positiveInt("MCP_REQUEST_TIMEOUT_SECS", 5)

	return cfg
}

func positiveInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func fraction(key string, def float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 && f < 1 {
			return f
		}
	}
	return def
}
