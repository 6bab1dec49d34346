package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coachmart/preview-worker/internal/observability/notify"
)

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error when webhook url missing")
	}
}

func TestFormatMessageIncludesFields(t *testing.T) {
	client, err := NewClient(Config{
		WebhookURL: "https://hooks.slack.com/services/test",
		Channel:    "#previews",
		Username:   "bot",
		Timeout:    time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg := client.formatMessage(notify.PreviewFailurePayload{
		JobID:      "job-123",
		ResourceID: "res-9",
		Kind:       "video",
		MimeType:   "video/mp4",
		Attempts:   2,
		Stage:      "process",
		Error:      "ffmpeg exited with status 1: <moov atom not found>",
		ErrorClass: "subprocess_exit",
	})

	if msg["username"] != "bot" {
		t.Fatalf("expected username to be preserved, got %v", msg["username"])
	}
	if msg["channel"] != "#previews" {
		t.Fatalf("expected channel to be set, got %v", msg["channel"])
	}

	text, ok := msg["text"].(string)
	if !ok {
		t.Fatalf("expected text field")
	}
	for _, want := range []string{
		"Preview generation failed", "job-123", "(video)", "res-9", "video/mp4",
		"Attempts: 2", "Stage: process", "subprocess_exit", "&lt;moov atom not found&gt;",
		"Severity: warning",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("message text missing %q: %s", want, text)
		}
	}
}

func TestFormatResourceValue(t *testing.T) {
	tcs := []struct {
		name   string
		id     string
		prefix string
		want   string
	}{
		{name: "with link", id: "res-1", prefix: "https://admin.example/resources", want: "<https://admin.example/resources/res-1|res-1>"},
		{name: "invalid prefix", id: "res-2", prefix: "not a url", want: "res-2"},
		{name: "no prefix", id: "res-3", want: "res-3"},
		{name: "empty id", prefix: "https://admin.example/resources", want: ""},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			client, err := NewClient(Config{
				WebhookURL:        "https://hooks.slack.com/services/test",
				ResourceURLPrefix: tc.prefix,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := client.formatResourceValue(tc.id); got != tc.want {
				t.Fatalf("formatResourceValue(%q) = %q, want %q", tc.id, got, tc.want)
			}
		})
	}
}

func TestSendPreviewFailureRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if n == 1 {
			http.Error(w, "rate_limited", http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := NewClient(Config{WebhookURL: srv.URL, RetryLimit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := client.SendPreviewFailure(context.Background(), notify.PreviewFailurePayload{JobID: "j"}); err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 webhook calls, got %d", got)
	}
}

func TestSendPreviewFailureReturnsLastError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid_token", http.StatusForbidden)
	}))
	defer srv.Close()

	client, err := NewClient(Config{WebhookURL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = client.SendPreviewFailure(context.Background(), notify.PreviewFailurePayload{})
	if err == nil || !strings.Contains(err.Error(), "invalid_token") {
		t.Fatalf("expected webhook error, got %v", err)
	}
}
