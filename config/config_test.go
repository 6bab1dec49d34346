package config

import (
	"log/slog"
	"reflect"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    map[ServiceMode]bool
		expectError bool
	}{
		{
			name:  "single service - worker",
			input: "worker",
			expected: map[ServiceMode]bool{
				ServiceModeWorker: true,
			},
		},
		{
			name:  "single service - reaper",
			input: "reaper",
			expected: map[ServiceMode]bool{
				ServiceModeReaper: true,
			},
		},
		{
			name:  "services with spaces",
			input: " worker , reaper ",
			expected: map[ServiceMode]bool{
				ServiceModeWorker: true,
				ServiceModeReaper: true,
			},
		},
		{
			name:  "duplicate services",
			input: "worker,worker",
			expected: map[ServiceMode]bool{
				ServiceModeWorker: true,
			},
		},
		{
			name:        "empty string",
			input:       "",
			expectError: true,
		},
		{
			name:        "only spaces and commas",
			input:       " , , ",
			expectError: true,
		},
		{
			name:        "invalid service name",
			input:       "worker,http",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseServices(tt.input)

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestConfig_ServiceEnabledMethods(t *testing.T) {
	cfg := AppConfig{Services: "worker"}
	if !cfg.IsWorkerEnabled() || cfg.IsReaperEnabled() {
		t.Fatalf("expected worker only, got worker=%v reaper=%v", cfg.IsWorkerEnabled(), cfg.IsReaperEnabled())
	}

	cfg = AppConfig{Services: "invalid-service"}
	if cfg.IsWorkerEnabled() || cfg.IsReaperEnabled() {
		t.Fatal("expected all services disabled with invalid configuration")
	}
}

func TestValidServiceModes(t *testing.T) {
	modes := ValidServiceModes()
	expected := []ServiceMode{ServiceModeWorker, ServiceModeReaper}
	if !reflect.DeepEqual(modes, expected) {
		t.Fatalf("expected %v, got %v", expected, modes)
	}
}

func TestAppConfig_ParseDefaults(t *testing.T) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	if cfg.Worker.IdleInterval != 2*time.Second {
		t.Errorf("expected idle interval 2s, got %v", cfg.Worker.IdleInterval)
	}
	if cfg.Worker.ErrorBackoff != 5*time.Second {
		t.Errorf("expected error backoff 5s, got %v", cfg.Worker.ErrorBackoff)
	}
	if cfg.Processing.CommandTimeout != 2*time.Minute {
		t.Errorf("expected command timeout 2m, got %v", cfg.Processing.CommandTimeout)
	}
	if cfg.Scanner.Mode != ScannerModeNoop {
		t.Errorf("expected noop scanner, got %q", cfg.Scanner.Mode)
	}
	if cfg.Storage.PreviewsBucket != "previews" {
		t.Errorf("expected previews bucket, got %q", cfg.Storage.PreviewsBucket)
	}
	if cfg.Processing.WorkDir == "" {
		t.Error("expected work dir to default to the system temp dir")
	}
}

func TestAppConfig_ParseScannerEnv(t *testing.T) {
	t.Setenv("SCANNER_MODE", "HTTP")
	t.Setenv("SCANNER_ENDPOINT", " https://scan.example.com/v1/scan ")
	t.Setenv("SCANNER_RISK_SCORE_EXPR", "result.score")
	t.Setenv("SCANNER_FLAGS_EXPR", "result.labels[].name")
	t.Setenv("SCANNER_OAUTH_TOKEN_URL", "https://auth.example.com/token")
	t.Setenv("SCANNER_OAUTH_CLIENT_ID", "worker")
	t.Setenv("SCANNER_OAUTH_CLIENT_SECRET", "s3cret")
	t.Setenv("SCANNER_OAUTH_SCOPES", "scan.read,scan.write")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	if cfg.Scanner.Mode != ScannerModeHTTP {
		t.Fatalf("expected http mode, got %q", cfg.Scanner.Mode)
	}
	if cfg.Scanner.Endpoint != "https://scan.example.com/v1/scan" {
		t.Fatalf("expected trimmed endpoint, got %q", cfg.Scanner.Endpoint)
	}
	if !cfg.Scanner.OAuthEnabled() {
		t.Fatal("expected oauth to be enabled")
	}
	if !reflect.DeepEqual(cfg.Scanner.OAuthScopes, []string{"scan.read", "scan.write"}) {
		t.Fatalf("unexpected scopes: %v", cfg.Scanner.OAuthScopes)
	}
}

func TestAppConfig_RejectsUnknownScannerMode(t *testing.T) {
	t.Setenv("SCANNER_MODE", "clamav")

	var cfg AppConfig
	if err := env.Parse(&cfg); err == nil {
		t.Fatal("expected parse error for unknown scanner mode")
	}
}

func TestAppConfig_SlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for input, want := range tests {
		cfg := AppConfig{LogLevel: input}
		if got := cfg.SlogLevel(); got != want {
			t.Errorf("SlogLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestStorageConfig_Sanitize(t *testing.T) {
	cfg := StorageConfig{Endpoint: " https://s3.example.com/ ", PreviewsBucket: " "}
	cfg.Sanitize()

	if cfg.Endpoint != "s3.example.com" {
		t.Fatalf("expected scheme stripped, got %q", cfg.Endpoint)
	}
	if !cfg.UseSSL {
		t.Fatal("expected https endpoint to enable SSL")
	}
	if cfg.PreviewsBucket != "previews" || cfg.OriginalsBucket != "resources" {
		t.Fatalf("expected bucket defaults, got %q / %q", cfg.OriginalsBucket, cfg.PreviewsBucket)
	}
}

func TestWorkerConfig_Sanitize(t *testing.T) {
	cfg := WorkerConfig{IdleInterval: 0, ErrorBackoff: 0, JobTimeout: time.Second, MaxAttempts: 0}
	cfg.Sanitize()

	if cfg.IdleInterval != 100*time.Millisecond {
		t.Errorf("expected idle interval floor, got %v", cfg.IdleInterval)
	}
	if cfg.ErrorBackoff < cfg.IdleInterval {
		t.Errorf("expected error backoff >= idle interval, got %v", cfg.ErrorBackoff)
	}
	if cfg.JobTimeout != 30*time.Second {
		t.Errorf("expected job timeout floor, got %v", cfg.JobTimeout)
	}
	if cfg.MaxAttempts != 1 {
		t.Errorf("expected max attempts floor, got %d", cfg.MaxAttempts)
	}
}

func TestReaperConfig_Sanitize(t *testing.T) {
	cfg := ReaperConfig{BatchSize: 50000}
	cfg.Sanitize()

	if cfg.Interval != time.Minute {
		t.Errorf("expected interval floor, got %v", cfg.Interval)
	}
	if cfg.ProcessingMaxAge != 5*time.Minute {
		t.Errorf("expected processing max age floor, got %v", cfg.ProcessingMaxAge)
	}
	if cfg.BatchSize != 10000 {
		t.Errorf("expected batch size ceiling, got %d", cfg.BatchSize)
	}
}

func TestObservabilityMetricsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityMetricsConfig{
		Enabled:       true,
		StatsdAddress: " ",
	}

	cfg.Sanitize()

	if cfg.Enabled {
		t.Fatalf("expected enabled to be false when address is empty")
	}

	cfg = ObservabilityMetricsConfig{
		Enabled:       true,
		StatsdAddress: " statsd:1234 ",
		Prefix:        ".preview.",
	}

	cfg.Sanitize()

	if !cfg.IsEnabled() {
		t.Fatalf("expected metrics to remain enabled")
	}
	if cfg.StatsdAddress != "statsd:1234" {
		t.Fatalf("expected address to be trimmed, got %q", cfg.StatsdAddress)
	}
	if cfg.Prefix != "preview" {
		t.Fatalf("expected prefix dots trimmed, got %q", cfg.Prefix)
	}
}

func TestObservabilityNotificationsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityNotificationsConfig{
		Enabled:    true,
		Timeout:    0,
		RetryLimit: -1,
		Slack: SlackNotificationConfig{
			Enabled:    true,
			WebhookURL: " ",
		},
	}

	cfg.Sanitize()

	if cfg.Timeout <= 0 {
		t.Fatalf("expected timeout to fall back to default, got %v", cfg.Timeout)
	}
	if cfg.RetryLimit < 0 {
		t.Fatalf("expected retry limit to be clamped to >= 0, got %d", cfg.RetryLimit)
	}
	if cfg.Slack.Enabled {
		t.Fatal("expected slack to be disabled without a webhook url")
	}
	if cfg.Slack.Username != "preview-worker" {
		t.Fatalf("expected slack username default, got %q", cfg.Slack.Username)
	}

	// Disabled top-level should disable child sinks.
	cfg = ObservabilityNotificationsConfig{
		Enabled: false,
		Slack: SlackNotificationConfig{
			Enabled:    true,
			WebhookURL: "https://hooks.slack.com/services/test",
		},
	}
	cfg.Sanitize()

	if cfg.Slack.Enabled {
		t.Fatal("expected slack to be disabled when top-level notifications disabled")
	}
}
