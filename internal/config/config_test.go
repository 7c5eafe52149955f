package config

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// TestLoad_Defaults fills every unset value.
func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != DefaultAddr || cfg.Endpoint != DefaultEndpoint || cfg.DB.Path != DefaultDBPath {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Env != "development" || cfg.IsProduction() {
		t.Errorf("Env = %q, want development", cfg.Env)
	}
	if cfg.HTTP.RatePerMinute != DefaultRateLimit || cfg.ShutdownTimeout().Seconds() != DefaultShutdownSecs {
		t.Errorf("http = %+v", cfg.HTTP)
	}
	loc, err := cfg.Location()
	if err != nil || loc.String() != DefaultTimezone {
		t.Errorf("Location = %v, %v", loc, err)
	}
	if key, err := cfg.CSRFKey(); key != nil || err != nil {
		t.Errorf("CSRFKey = %v, %v; want disabled", key, err)
	}
	if cfg.Notify.RetryInterval().Seconds() != DefaultRetrySecs || cfg.Notify.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("notify = %+v", cfg.Notify)
	}
}

// TestLoad_FileThenEnv lets environment variables override the file.
func TestLoad_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `
env = "production"
addr = ":9000"
timezone = "UTC"

[db]
path = "/var/lib/crm/leads.db"

[http]
allowed_origins = ["https://crm.example.com"]

[log]
level = "debug"
format = "json"
add_source = true

[notify]
recipients = ["a@example.com"]
`)
	t.Setenv("CRM_ADDR", ":7000")
	t.Setenv("CRM_NOTIFY_RECIPIENTS", "b@example.com,c@example.com")
	t.Setenv("CRM_HTTP_RATE_PER_MINUTE", "30")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":7000" {
		t.Errorf("Addr = %q, want env override", cfg.Addr)
	}
	if !cfg.IsProduction() || cfg.DB.Path != "/var/lib/crm/leads.db" || cfg.Timezone != "UTC" {
		t.Errorf("file values lost: %+v", cfg)
	}
	if !slices.Equal(cfg.HTTP.AllowedOrigins, []string{"https://crm.example.com"}) {
		t.Errorf("AllowedOrigins = %v", cfg.HTTP.AllowedOrigins)
	}
	if !slices.Equal(cfg.Notify.Recipients, []string{"b@example.com", "c@example.com"}) {
		t.Errorf("Recipients = %v", cfg.Notify.Recipients)
	}
	if cfg.HTTP.RatePerMinute != 30 {
		t.Errorf("RatePerMinute = %d, want 30", cfg.HTTP.RatePerMinute)
	}
	if cfg.Log.Level != slog.LevelDebug || cfg.Log.Format != "json" || !cfg.Log.AddSource {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

// TestLoad_Invalid rejects values that cannot be defaulted.
func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr error
	}{
		{"env", "CRM_ENV", "staging", ErrInvalidEnv},
		{"endpoint", "CRM_ENDPOINT", "exec", ErrInvalidEndpoint},
		{"csrf not hex", "CRM_HTTP_CSRF_KEY", "not-a-key", ErrInvalidCSRFKey},
		{"csrf short", "CRM_HTTP_CSRF_KEY", "abcd", ErrInvalidCSRFKey},
		{"log format", "CRM_LOG_FORMAT", "xml", ErrInvalidLogFormat},
		{"resend without from", "CRM_NOTIFY_RESEND_API_KEY", "re_test", ErrMissingFrom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(""); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestLoad_BadTimezone reports the zone name.
func TestLoad_BadTimezone(t *testing.T) {
	t.Setenv("CRM_TIMEZONE", "Mars/Olympus")
	_, err := Load("")
	if err == nil || !strings.Contains(err.Error(), "Mars/Olympus") {
		t.Errorf("error = %v, want timezone error", err)
	}
}

// TestLoad_MissingFile fails instead of silently using defaults.
func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}

// TestCSRFKey decodes a 32-byte hex key.
func TestCSRFKey(t *testing.T) {
	cfg := Config{HTTP: HTTPConfig{CSRFKey: strings.Repeat("ab", 32)}}
	key, err := cfg.CSRFKey()
	if err != nil || len(key) != 32 || key[0] != 0xab {
		t.Errorf("CSRFKey = %x, %v", key, err)
	}
}

// TestNewLogger honours format and level.
func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: slog.LevelWarn, Format: "json"}, &buf)

	logger.Info("lead_added")
	logger.Warn("slow_query", "label", "query SELECT lead")

	out := buf.String()
	if strings.Contains(out, "lead_added") {
		t.Errorf("info record written below warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"slow_query"`) {
		t.Errorf("json record missing: %s", out)
	}
}
