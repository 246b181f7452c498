// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes bot credentials,
// pacing delays, ephemeral-delivery timing, and observability settings.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the application.
type Config struct {
	// Bot
	BotToken      string // BOT_TOKEN (required)
	OwnerID       int64  // OWNER_ID (required) — the operator identity
	UpdateTimeout int    // long-poll timeout in seconds

	// Ingestion
	SourceChannelID int64         // fallback source channel when settings hold none
	CopyDelay       time.Duration // pacing between range-walk positions

	// Delivery
	ItemDelay     time.Duration // pacing between batch items
	EphemeralTTL  time.Duration // lifetime of delivered content in ephemeral mode
	NoticeTTL     time.Duration // lifetime of short status notices
	MenuTTL       time.Duration // lifetime of the welcome menu message
	JoinPromptTTL time.Duration // lifetime of the join prompt

	// Broadcast
	BroadcastDelay time.Duration // pacing between fan-out forwards

	// Ops server
	Port string // just the number

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	// App
	DBPath string // SQLite path

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Bot
		BotToken:      getenv("BOT_TOKEN", ""),
		OwnerID:       getint64("OWNER_ID", 0),
		UpdateTimeout: getint("UPDATE_TIMEOUT", 30),

		// Ingestion
		SourceChannelID: getint64("SOURCE_CHANNEL_ID", 0),
		CopyDelay:       getdur("COPY_DELAY", 600*time.Millisecond),

		// Delivery
		ItemDelay:     getdur("ITEM_DELAY", 700*time.Millisecond),
		EphemeralTTL:  getdur("EPHEMERAL_TTL", 10*time.Minute),
		NoticeTTL:     getdur("NOTICE_TTL", 8*time.Second),
		MenuTTL:       getdur("MENU_TTL", 20*time.Second),
		JoinPromptTTL: getdur("JOIN_PROMPT_TTL", 25*time.Second),

		// Broadcast
		BroadcastDelay: getdur("BROADCAST_DELAY", 100*time.Millisecond),

		// Ops server
		Port: getenv("PORT", "3000"),

		// Logging
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		// App
		DBPath: getenv("DB_PATH", "filestore.db"),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "tg-filestore"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}

	// --- validation ---
	if strings.TrimSpace(cfg.BotToken) == "" {
		return cfg, errors.New("BOT_TOKEN must not be empty")
	}
	if cfg.OwnerID == 0 {
		return cfg, errors.New("OWNER_ID must be set")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.UpdateTimeout <= 0 {
		return cfg, errors.New("UPDATE_TIMEOUT must be > 0")
	}
	if cfg.CopyDelay <= 0 || cfg.ItemDelay <= 0 || cfg.BroadcastDelay <= 0 {
		return cfg, errors.New("pacing delays must be positive durations")
	}
	if cfg.EphemeralTTL <= 0 || cfg.NoticeTTL <= 0 || cfg.MenuTTL <= 0 || cfg.JoinPromptTTL <= 0 {
		return cfg, errors.New("TTLs must be positive durations")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getint64(k string, def int64) int64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
