// Package notify defines the payload and sink contract for preview failure notifications.
package notify

import (
	"context"
	"time"
)

// Severity constants recognised by downstream sinks.
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// PreviewFailurePayload captures what operators need to triage a failed preview job.
type PreviewFailurePayload struct {
	JobID      string
	ResourceID string
	Kind       string
	MimeType   string
	Attempts   int
	// Stage is the pipeline stage that failed (download, scan, process, publish).
	Stage      string
	Error      string
	ErrorClass string
	Severity   string
	OccurredAt time.Time
}

// Sink describes a destination capable of consuming preview failure notifications.
type Sink interface {
	SendPreviewFailure(ctx context.Context, payload PreviewFailurePayload) error
}

// SinkFunc adapts a function to the Sink interface (useful for tests).
type SinkFunc func(ctx context.Context, payload PreviewFailurePayload) error

// SendPreviewFailure implements the Sink interface.
func (f SinkFunc) SendPreviewFailure(ctx context.Context, payload PreviewFailurePayload) error {
	if f == nil {
		return nil
	}
	return f(ctx, payload)
}
