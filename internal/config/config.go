package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the runtime configuration, derived from environment variables.
type Config struct {
	Server   ServerConfig
	Monitor  MonitorConfig
	Logging  LoggingConfig
	Analysis AnalysisConfig
}

// ServerConfig holds the parameters of the small HTTP surface (metrics,
// export).
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// MonitorConfig controls the tick loop and job defaults.
type MonitorConfig struct {
	// TickInterval is how often the tick source invokes the scheduler.
	// Due-ness is derived from wall-clock time, so a slow tick only delays
	// collections, it never multiplies them.
	TickInterval time.Duration

	// DefaultJobInterval is the per-entity collection interval used when a
	// job is created without an explicit one.
	DefaultJobInterval time.Duration

	// ChatWindow bounds chat sub-collection per run.
	ChatWindow time.Duration
}

// LoggingConfig represents structured logging configuration.
type LoggingConfig struct {
	Level  slog.Level
	Format string
}

// AnalysisConfig configures the sentiment analyzer.
type AnalysisConfig struct {
	Model       string
	Temperature float32
}

const (
	defaultPort            = "8080"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultShutdownTimeout = 5 * time.Second

	defaultTickInterval = 30 * time.Second
	defaultJobInterval  = 15 * time.Minute
	defaultChatWindow   = 60 * time.Second

	defaultLogFormat = "json"

	defaultAnalysisModel = "gpt-4o-mini"
)

// Load reads configuration from environment variables, applying defaults
// when values are not provided.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", defaultPort),
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Monitor: MonitorConfig{
			TickInterval:       defaultTickInterval,
			DefaultJobInterval: defaultJobInterval,
			ChatWindow:         defaultChatWindow,
		},
		Logging: LoggingConfig{
			Level:  slog.LevelInfo,
			Format: defaultLogFormat,
		},
		Analysis: AnalysisConfig{
			Model:       getEnv("ANALYSIS_MODEL", defaultAnalysisModel),
			Temperature: 0.2,
		},
	}

	if v := os.Getenv("TICK_INTERVAL_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TICK_INTERVAL_SECONDS: %w", err)
		}
		cfg.Monitor.TickInterval = d
	}

	if v := os.Getenv("JOB_INTERVAL_MINUTES"); v != "" {
		mins, err := strconv.Atoi(v)
		if err != nil || mins <= 0 {
			return Config{}, fmt.Errorf("invalid JOB_INTERVAL_MINUTES: must be a positive integer")
		}
		cfg.Monitor.DefaultJobInterval = time.Duration(mins) * time.Minute
	}

	if v := os.Getenv("CHAT_WINDOW_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CHAT_WINDOW_SECONDS: %w", err)
		}
		cfg.Monitor.ChatWindow = d
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.Logging.Level = level
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		switch v {
		case "json", "text":
			cfg.Logging.Format = v
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'text'")
		}
	}

	return cfg, nil
}

func parseSeconds(raw string) (time.Duration, error) {
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return 0, fmt.Errorf("must be a positive integer")
	}
	return time.Duration(seconds) * time.Second, nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown level %q", raw)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
