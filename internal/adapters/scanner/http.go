package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/coachmart/preview-worker/internal/core"
	"github.com/coachmart/preview-worker/internal/domain/model"
)

const maxVerdictBytes = 1 << 20

// OAuthConfig enables client-credentials auth against the scanning endpoint.
type OAuthConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// HTTPConfig configures an HTTP scanner.
type HTTPConfig struct {
	Endpoint  string
	Timeout   time.Duration
	Extractor Extractor
	// OAuth is optional; nil sends unauthenticated requests.
	OAuth *OAuthConfig
	// Client is the base transport. Defaults to a client with Timeout.
	Client *http.Client
}

// HTTP posts the file bytes to a remote scanning service.
type HTTP struct {
	endpoint  string
	extractor Extractor
	client    *http.Client
}

var _ core.ContentScanner = (*HTTP)(nil)

// NewHTTP validates cfg and returns an HTTP scanner.
func NewHTTP(cfg HTTPConfig) (*HTTP, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("scanner endpoint is required")
	}
	if cfg.Extractor == (Extractor{}) {
		cfg.Extractor = DefaultExtractor()
	}
	if err := cfg.Extractor.Validate(); err != nil {
		return nil, err
	}

	base := cfg.Client
	if base == nil {
		base = &http.Client{Timeout: cfg.Timeout}
	}
	client := base
	if cfg.OAuth != nil {
		cc := clientcredentials.Config{
			ClientID:     cfg.OAuth.ClientID,
			ClientSecret: cfg.OAuth.ClientSecret,
			TokenURL:     cfg.OAuth.TokenURL,
			Scopes:       cfg.OAuth.Scopes,
		}
		// Token fetches reuse the base client; the token source caches until expiry.
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		client = cc.Client(ctx)
		client.Timeout = base.Timeout
	}

	return &HTTP{endpoint: cfg.Endpoint, extractor: cfg.Extractor, client: client}, nil
}

// Identity names the endpoint and the result mapping.
func (h *HTTP) Identity() string {
	return "http " + h.endpoint + " " + h.extractor.identity()
}

// Scan uploads req.LocalPath and maps the JSON response.
func (h *HTTP) Scan(ctx context.Context, req model.ScanRequest) (model.ScanResult, error) {
	f, err := os.Open(req.LocalPath)
	if err != nil {
		return model.ScanResult{}, fmt.Errorf("open scan input: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return model.ScanResult{}, fmt.Errorf("stat scan input: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, f)
	if err != nil {
		return model.ScanResult{}, fmt.Errorf("build scan request: %w", err)
	}
	httpReq.ContentLength = st.Size()
	httpReq.Header.Set("Content-Type", "application/octet-stream")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Content-Mime-Type", req.MimeType)
	httpReq.Header.Set("X-Original-Path", req.OriginalPath)

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return model.ScanResult{}, fmt.Errorf("scan request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxVerdictBytes))
	if err != nil {
		return model.ScanResult{}, fmt.Errorf("read scan response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.ScanResult{}, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 256)}
	}
	return h.extractor.Extract(body)
}

// StatusError is returned for non-2xx scanner responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("scanner returned status %d: %s", e.StatusCode, e.Body)
}

// ErrorClass implements the metrics error classifier.
func (e *StatusError) ErrorClass() string { return "scanner_http_status" }

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}
