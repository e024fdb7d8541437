package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Postgres    PostgresConfig
	CompsAPI    CompsAPIConfig
	Scheduler   SchedulerConfig
	Valuation   ValuationConfig
	Negotiation NegotiationConfig
	DBPath      string
	RubricsDir  string
	MetricsAddr string
	LogLevel    string
}

type PostgresConfig struct {
	DBURL string
}

// CompsAPIConfig points at an external market-data service for
// comparables. When URL is empty, comparables come from recorded sales in
// Postgres instead.
type CompsAPIConfig struct {
	URL     string
	Timeout time.Duration
}

type SchedulerConfig struct {
	Interval time.Duration
	Cron     string
}

type ValuationConfig struct {
	MaxBandAge time.Duration
	BatchSize  int
}

type NegotiationConfig struct {
	MaxIdle          time.Duration
	ExpiryBatchSize  int
	DefaultMaxRounds int
	DefaultMarginPct float64
	DefaultUrgency   string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Postgres: PostgresConfig{
			DBURL: os.Getenv("DATABASE_URL"),
		},
		CompsAPI: CompsAPIConfig{
			URL:     os.Getenv("COMPS_API_URL"),
			Timeout: getEnvDuration("COMPS_API_TIMEOUT", 30*time.Second),
		},
		Scheduler: SchedulerConfig{
			Cron: os.Getenv("REVALUE_CRON"),
		},
		Valuation: ValuationConfig{
			MaxBandAge: getEnvDuration("BAND_MAX_AGE", 24*time.Hour),
			BatchSize:  getEnvInt("VALUATION_BATCH_SIZE", 20),
		},
		Negotiation: NegotiationConfig{
			MaxIdle:          getEnvDuration("DEAL_MAX_IDLE", 72*time.Hour),
			ExpiryBatchSize:  getEnvInt("EXPIRY_BATCH_SIZE", 50),
			DefaultMaxRounds: getEnvInt("DEFAULT_MAX_ROUNDS", 10),
			DefaultMarginPct: getEnvFloat("DEFAULT_MARGIN_PCT", 10),
			DefaultUrgency:   getEnv("DEFAULT_URGENCY", "normal"),
		},
		DBPath:      getEnv("DB_PATH", "dealdesk.db"),
		RubricsDir:  getEnv("RUBRICS_DIR", "config/rubrics"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9187"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}

	if interval := os.Getenv("REVALUE_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err == nil {
			cfg.Scheduler.Interval = d
		}
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
