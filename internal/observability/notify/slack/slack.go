// Package slack delivers preview failure notifications to a Slack incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/coachmart/preview-worker/internal/observability/notify"
)

// Config captures the subset of Slack webhook behaviour we need.
type Config struct {
	WebhookURL        string
	Channel           string
	Username          string
	Timeout           time.Duration
	RetryLimit        int
	Client            *http.Client
	ResourceURLPrefix string
}

// Client delivers preview failure notifications to a Slack webhook.
type Client struct {
	webhookURL        string
	channel           string
	username          string
	retryLimit        int
	resourceURLPrefix string
	client            *http.Client
}

var _ notify.Sink = (*Client)(nil)

// NewClient builds a Slack webhook client.
func NewClient(cfg Config) (*Client, error) {
	webhookURL := strings.TrimSpace(cfg.WebhookURL)
	if webhookURL == "" {
		return nil, errors.New("slack webhook url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		webhookURL:        webhookURL,
		channel:           strings.TrimSpace(cfg.Channel),
		username:          fallbackString(strings.TrimSpace(cfg.Username), "preview-worker"),
		retryLimit:        max(cfg.RetryLimit, 0),
		resourceURLPrefix: strings.TrimSpace(cfg.ResourceURLPrefix),
		client:            hc,
	}, nil
}

// SendPreviewFailure posts a formatted message to Slack, retrying with linear backoff.
func (c *Client) SendPreviewFailure(ctx context.Context, payload notify.PreviewFailurePayload) error {
	body, err := json.Marshal(c.formatMessage(payload))
	if err != nil {
		return fmt.Errorf("encode slack payload: %w", err)
	}

	attempts := c.retryLimit + 1
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if lastErr = c.post(ctx, body); lastErr == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}
		timer := time.NewTimer(time.Duration(attempt+1) * 200 * time.Millisecond)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

func (c *Client) formatMessage(payload notify.PreviewFailurePayload) map[string]any {
	timestamp := payload.OccurredAt
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	var text strings.Builder
	text.WriteString("*Preview generation failed*")
	if payload.JobID != "" {
		text.WriteString(" `")
		text.WriteString(payload.JobID)
		text.WriteByte('`')
	}
	if payload.Kind != "" {
		text.WriteString(" (")
		text.WriteString(payload.Kind)
		text.WriteByte(')')
	}
	text.WriteByte('\n')

	attempts := ""
	if payload.Attempts > 0 {
		attempts = strconv.Itoa(payload.Attempts)
	}
	fields := []struct {
		label string
		value string
	}{
		{"Severity", fallbackString(payload.Severity, notify.SeverityWarning)},
		{"Resource", c.formatResourceValue(payload.ResourceID)},
		{"MIME type", escapeSlackText(payload.MimeType)},
		{"Attempts", attempts},
		{"Stage", payload.Stage},
		{"Error class", payload.ErrorClass},
		{"Error", escapeSlackText(payload.Error)},
	}
	for _, field := range fields {
		appendSlackField(&text, field.label, field.value)
	}
	text.WriteString("• Timestamp: ")
	text.WriteString(timestamp.UTC().Format(time.RFC3339))

	msg := map[string]any{
		"text":     text.String(),
		"username": c.username,
	}
	if c.channel != "" {
		msg["channel"] = c.channel
	}
	return msg
}

func (c *Client) formatResourceValue(resourceID string) string {
	raw := strings.TrimSpace(resourceID)
	if raw == "" {
		return ""
	}
	id := escapeSlackText(raw)
	if link := c.buildResourceLink(raw); link != "" {
		return fmt.Sprintf("<%s|%s>", link, id)
	}
	return id
}

func (c *Client) buildResourceLink(resourceID string) string {
	if c.resourceURLPrefix == "" {
		return ""
	}
	u, err := url.Parse(c.resourceURLPrefix)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	link, err := url.JoinPath(u.String(), resourceID)
	if err != nil {
		return ""
	}
	return link
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if readErr != nil {
			return fmt.Errorf("read slack error response: %w", readErr)
		}
		return fmt.Errorf("slack webhook %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}

	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return fmt.Errorf("drain slack response body: %w", err)
	}
	return nil
}

func escapeSlackText(value string) string {
	if value == "" {
		return ""
	}
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(value)
}

func appendSlackField(text *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	text.WriteString("• ")
	text.WriteString(label)
	text.WriteString(": ")
	text.WriteString(value)
	text.WriteByte('\n')
}

func fallbackString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
