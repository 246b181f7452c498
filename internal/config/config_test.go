package config

import (
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("OWNER_ID", "42")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BotToken != "123:abc" || cfg.OwnerID != 42 {
		t.Fatalf("required fields not picked up: %+v", cfg)
	}
	if cfg.UpdateTimeout != 30 {
		t.Errorf("UpdateTimeout = %d; want 30", cfg.UpdateTimeout)
	}
	if cfg.CopyDelay != 600*time.Millisecond {
		t.Errorf("CopyDelay = %v; want 600ms", cfg.CopyDelay)
	}
	if cfg.ItemDelay != 700*time.Millisecond {
		t.Errorf("ItemDelay = %v; want 700ms", cfg.ItemDelay)
	}
	if cfg.BroadcastDelay != 100*time.Millisecond {
		t.Errorf("BroadcastDelay = %v; want 100ms", cfg.BroadcastDelay)
	}
	if cfg.EphemeralTTL != 10*time.Minute || cfg.NoticeTTL != 8*time.Second {
		t.Errorf("TTLs = %v/%v; want 10m/8s", cfg.EphemeralTTL, cfg.NoticeTTL)
	}
	if cfg.Port != "3000" || cfg.DBPath != "filestore.db" || cfg.LogLevel != "info" {
		t.Errorf("unexpected defaults: port=%q db=%q level=%q", cfg.Port, cfg.DBPath, cfg.LogLevel)
	}
	if cfg.OTEL.Enabled || cfg.OTEL.ServiceName != "tg-filestore" || cfg.OTEL.SampleRatio != 1.0 {
		t.Errorf("unexpected OTEL defaults: %+v", cfg.OTEL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("COPY_DELAY", "250ms")
	t.Setenv("EPHEMERAL_TTL", "5m")
	t.Setenv("SOURCE_CHANNEL_ID", "-100500")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_PRETTY", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CopyDelay != 250*time.Millisecond {
		t.Errorf("CopyDelay = %v; want 250ms", cfg.CopyDelay)
	}
	if cfg.EphemeralTTL != 5*time.Minute {
		t.Errorf("EphemeralTTL = %v; want 5m", cfg.EphemeralTTL)
	}
	if cfg.SourceChannelID != -100500 {
		t.Errorf("SourceChannelID = %d; want -100500", cfg.SourceChannelID)
	}
	if cfg.LogLevel != "debug" || !cfg.LogPretty {
		t.Errorf("log config = %q/%v; want debug/true", cfg.LogLevel, cfg.LogPretty)
	}
}

func TestLoad_NormalizesWarning(t *testing.T) {
	setRequired(t)
	t.Setenv("LOG_LEVEL", "warning")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("LogLevel = %q; want warn", cfg.LogLevel)
	}
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing token", map[string]string{"OWNER_ID": "42"}, "BOT_TOKEN"},
		{"missing owner", map[string]string{"BOT_TOKEN": "x"}, "OWNER_ID"},
		{"bad level", map[string]string{"BOT_TOKEN": "x", "OWNER_ID": "42", "LOG_LEVEL": "loud"}, "LOG_LEVEL"},
		{"zero delay", map[string]string{"BOT_TOKEN": "x", "OWNER_ID": "42", "COPY_DELAY": "0s"}, "pacing"},
		{"zero ttl", map[string]string{"BOT_TOKEN": "x", "OWNER_ID": "42", "NOTICE_TTL": "0s"}, "TTL"},
		{"bad ratio", map[string]string{"BOT_TOKEN": "x", "OWNER_ID": "42", "OTEL_TRACES_SAMPLER_ARG": "2"}, "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v; want mention of %q", err, tc.want)
			}
		})
	}
}

func TestHelpers_IgnoreMalformedValues(t *testing.T) {
	t.Setenv("SOME_INT", "not-a-number")
	if got := getint("SOME_INT", 9); got != 9 {
		t.Errorf("getint fallback = %d; want 9", got)
	}
	t.Setenv("SOME_DUR", "soon")
	if got := getdur("SOME_DUR", time.Second); got != time.Second {
		t.Errorf("getdur fallback = %v; want 1s", got)
	}
	t.Setenv("SOME_BOOL", "maybe")
	if got := getbool("SOME_BOOL", true); got != true {
		t.Errorf("getbool fallback = %v; want true", got)
	}
}
