// Package config loads the two layers of configuration this system needs:
// infrastructure settings from the process environment (adapted from the
// teacher's config/config.go getEnv idiom), and the nested
// threshold/position/exit-strategy tree from a YAML file (see strategy.go).
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds infrastructure configuration loaded from environment
// variables, with an optional .env bootstrap file (grounded on
// ChoSanghyuk-blackholedex's configs/config.go godotenv usage).
type Config struct {
	StreamSourceURL string
	RedisAddr       string
	RedisPassword   string
	SQLitePath      string
	MetricsAddr     string
	DashboardWSAddr string

	MissedOpportunityDir string

	DefaultSolUSDRate float64

	RecoveryMonitorInterval time.Duration
	CleanupInterval         time.Duration
	InactivityThreshold     time.Duration

	StrategyConfigPath string
}

// Load reads configuration from environment variables with sensible
// defaults. If a .env file is present in the working directory it is loaded
// first (and never overrides variables already set in the environment).
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[config] .env load skipped: %v", err)
	}

	return &Config{
		StreamSourceURL: getEnv("STREAM_SOURCE_URL", "wss://pumpportal.fun/api/data"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		SQLitePath:      getEnv("SQLITE_PATH", "data/journal.db"),
		MetricsAddr:     getEnv("METRICS_ADDR", ":9090"),
		DashboardWSAddr: getEnv("DASHBOARD_WS_ADDR", ":9091"),

		MissedOpportunityDir: getEnv("MISSED_OPPORTUNITY_DIR", "logs/missed_opportunities"),

		DefaultSolUSDRate: getFloat("DEFAULT_SOL_USD_RATE", 225),

		RecoveryMonitorInterval: getDurationMs("RECOVERY_MONITOR_INTERVAL_MS", 30000),
		CleanupInterval:         getDurationMs("CLEANUP_INTERVAL_MS", 300000),
		InactivityThreshold:     getDurationMs("INACTIVITY_THRESHOLD_MS", 1800000),

		StrategyConfigPath: getEnv("STRATEGY_CONFIG_PATH", "config/strategy.yaml"),
	}
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using default %v", key, v, fallback)
		return fallback
	}
	return n
}

func getDurationMs(key string, fallbackMs int64) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return time.Duration(fallbackMs) * time.Millisecond
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using default %dms", key, v, fallbackMs)
		return time.Duration(fallbackMs) * time.Millisecond
	}
	return time.Duration(n) * time.Millisecond
}
