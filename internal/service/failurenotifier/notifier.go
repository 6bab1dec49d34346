// Package failurenotifier fans preview failure events out to the configured notification sinks.
package failurenotifier

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coachmart/preview-worker/internal/observability/notify"
)

// SinkRegistration pairs a sink implementation with a human-readable name for logging.
type SinkRegistration struct {
	Name string
	Sink notify.Sink
}

// Options configures the failure notifier service.
type Options struct {
	Logger *slog.Logger
	Sinks  []SinkRegistration
	// MaxAttempts escalates severity to critical once a job has used its attempt budget.
	MaxAttempts int
	// Timeout bounds delivery independently of the caller's context.
	Timeout time.Duration
}

// Service dispatches failure events to all registered sinks.
type Service struct {
	logger      *slog.Logger
	sinks       []SinkRegistration
	maxAttempts int
	timeout     time.Duration
}

// NewService constructs a failure notifier.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var sinks []SinkRegistration
	for _, entry := range opts.Sinks {
		if entry.Sink == nil {
			continue
		}
		if entry.Name == "" {
			entry.Name = "sink"
		}
		sinks = append(sinks, entry)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Service{
		logger:      logger.With("component", "failure_notifier"),
		sinks:       sinks,
		maxAttempts: opts.MaxAttempts,
		timeout:     timeout,
	}
}

// NotifyPreviewFailure fans the payload out to every sink and waits for delivery.
// Delivery runs on a context detached from ctx's cancellation so a job that failed
// because its deadline expired can still be reported.
func (s *Service) NotifyPreviewFailure(ctx context.Context, payload notify.PreviewFailurePayload) {
	if s == nil || len(s.sinks) == 0 {
		return
	}

	if payload.Severity == "" {
		payload.Severity = notify.SeverityWarning
		if s.maxAttempts > 0 && payload.Attempts >= s.maxAttempts {
			payload.Severity = notify.SeverityCritical
		}
	}
	if payload.OccurredAt.IsZero() {
		payload.OccurredAt = time.Now().UTC()
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	var wg sync.WaitGroup
	for _, entry := range s.sinks {
		entry := entry
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := entry.Sink.SendPreviewFailure(sendCtx, payload); err != nil {
				s.logger.ErrorContext(sendCtx, "failure notifier delivery error",
					"sink", entry.Name,
					"job_id", payload.JobID,
					"resource_id", payload.ResourceID,
					"error", err,
				)
			}
		}()
	}
	wg.Wait()
}

// Enabled reports whether the notifier has any active sinks.
func (s *Service) Enabled() bool {
	return s != nil && len(s.sinks) > 0
}
