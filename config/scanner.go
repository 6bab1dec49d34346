package config

import (
	"fmt"
	"strings"
	"time"
)

// ScannerMode selects the content scanner backend.
type ScannerMode string

const (
	// ScannerModeNoop returns a zero score without scanning. Intended for development.
	ScannerModeNoop ScannerMode = "noop"
	// ScannerModeCommand runs a local scanner executable that prints JSON to stdout.
	ScannerModeCommand ScannerMode = "command"
	// ScannerModeHTTP posts file contents to a remote scanning endpoint.
	ScannerModeHTTP ScannerMode = "http"
)

// UnmarshalText implements encoding.TextUnmarshaler so env parsing rejects unknown modes.
func (m *ScannerMode) UnmarshalText(text []byte) error {
	v := ScannerMode(strings.ToLower(strings.TrimSpace(string(text))))
	switch v {
	case ScannerModeNoop, ScannerModeCommand, ScannerModeHTTP:
		*m = v
		return nil
	case "":
		*m = ScannerModeNoop
		return nil
	default:
		return fmt.Errorf("invalid scanner mode: %q (valid options: noop, command, http)", v)
	}
}

// ScannerConfig contains content scanner configuration.
type ScannerConfig struct {
	Mode ScannerMode `env:"MODE" envDefault:"noop"`

	// Timeout bounds a single scan call regardless of backend.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"60s"`

	// CommandPath and CommandArgs configure the command backend.
	// The file path is appended as the final argument.
	CommandPath string   `env:"COMMAND_PATH" envDefault:""`
	CommandArgs []string `env:"COMMAND_ARGS" envDefault:""`

	// HTTP backend.
	Endpoint string `env:"ENDPOINT" envDefault:""`
	// RiskScoreExpr and FlagsExpr are JMESPath expressions evaluated against the JSON response.
	RiskScoreExpr string `env:"RISK_SCORE_EXPR" envDefault:"risk_score"`
	FlagsExpr     string `env:"FLAGS_EXPR"      envDefault:"flags"`

	// Optional OAuth2 client-credentials auth for the HTTP backend.
	OAuthTokenURL     string   `env:"OAUTH_TOKEN_URL"     envDefault:""`
	OAuthClientID     string   `env:"OAUTH_CLIENT_ID"     envDefault:""`
	OAuthClientSecret string   `env:"OAUTH_CLIENT_SECRET" envDefault:""`
	OAuthScopes       []string `env:"OAUTH_SCOPES"        envDefault:""`

	// CacheTTL controls how long scan results are cached by content hash. Zero disables caching.
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"24h"`
}

// Sanitize applies guardrails to scanner configuration values.
func (s *ScannerConfig) Sanitize() {
	if s.Mode == "" {
		s.Mode = ScannerModeNoop
	}
	if s.Timeout <= 0 {
		s.Timeout = 60 * time.Second
	}
	s.CommandPath = strings.TrimSpace(s.CommandPath)
	s.Endpoint = strings.TrimSpace(s.Endpoint)
	s.RiskScoreExpr = fallback(s.RiskScoreExpr, "risk_score")
	s.FlagsExpr = fallback(s.FlagsExpr, "flags")
	if s.CacheTTL < 0 {
		s.CacheTTL = 0
	}
}

// OAuthEnabled reports whether client-credentials auth is fully configured.
func (s *ScannerConfig) OAuthEnabled() bool {
	return s.OAuthTokenURL != "" && s.OAuthClientID != "" && s.OAuthClientSecret != ""
}
