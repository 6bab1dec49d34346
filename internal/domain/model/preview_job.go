// Package model defines the core data types shared by the preview pipeline.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PreviewJobStatus represents the lifecycle state of a preview job.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type PreviewJobStatus string

const (
	// PreviewJobStatusQueued indicates a job is waiting to be claimed.
	PreviewJobStatusQueued PreviewJobStatus = "queued"
	// PreviewJobStatusProcessing indicates a worker has claimed the job.
	PreviewJobStatusProcessing PreviewJobStatus = "processing"
	// PreviewJobStatusDone indicates previews were generated and published.
	PreviewJobStatusDone PreviewJobStatus = "done"
	// PreviewJobStatusFailed indicates the job failed; it is never re-queued automatically.
	PreviewJobStatusFailed PreviewJobStatus = "failed"
)

// ErrNoJobsAvailable is returned when no queued job could be claimed.
var ErrNoJobsAvailable = errors.New("no jobs available")

// ErrJobNotFound is returned when a preview job id does not exist.
var ErrJobNotFound = errors.New("preview job not found")

// Valid returns true if the status is one of the known states.
func (s PreviewJobStatus) Valid() bool {
	switch s {
	case PreviewJobStatusQueued, PreviewJobStatusProcessing, PreviewJobStatusDone, PreviewJobStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status ends a processing cycle.
func (s PreviewJobStatus) Terminal() bool {
	return s == PreviewJobStatusDone || s == PreviewJobStatusFailed
}

// UnmarshalText implements encoding.TextUnmarshaler for CLI and env parsing.
func (s *PreviewJobStatus) UnmarshalText(text []byte) error {
	v := PreviewJobStatus(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid preview job status: %q", v)
	}
	*s = v
	return nil
}

// PreviewJob is one unit of preview-generation work tied to an uploaded resource.
type PreviewJob struct {
	ID           string           `json:"id"                     db:"id"`
	ResourceID   string           `json:"resource_id"            db:"resource_id"`
	OriginalPath string           `json:"original_path"          db:"original_path"`
	MimeType     string           `json:"mime_type"              db:"mime_type"`
	Attempts     int              `json:"attempts"               db:"attempts"`
	Status       PreviewJobStatus `json:"status"                 db:"status"`
	LastError    *string          `json:"last_error,omitempty"   db:"last_error"`
	StartedAt    *time.Time       `json:"started_at,omitempty"   db:"started_at"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt    time.Time        `json:"created_at"             db:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"             db:"updated_at"`
}

// EnqueuePreviewJobRequest describes a new preview job. The upload flow normally
// inserts jobs directly; this request backs the admin CLI and tests.
type EnqueuePreviewJobRequest struct {
	ResourceID   string `json:"resource_id"`
	OriginalPath string `json:"original_path"`
	MimeType     string `json:"mime_type"`
}

// Validate validates the EnqueuePreviewJobRequest fields.
func (r *EnqueuePreviewJobRequest) Validate() error {
	if _, err := uuid.Parse(strings.TrimSpace(r.ResourceID)); err != nil {
		return fmt.Errorf("resource_id must be a valid UUID: %w", err)
	}
	if strings.TrimSpace(r.OriginalPath) == "" {
		return errors.New("original_path is required")
	}
	if strings.Contains(r.OriginalPath, "..") {
		return errors.New("original_path must not contain '..'")
	}
	if strings.TrimSpace(r.MimeType) == "" {
		return errors.New("mime_type is required")
	}
	return nil
}

// RequeueRequest asks for a failed job to be returned to the queue.
type RequeueRequest struct {
	JobID string
	// MaxAttempts refuses the requeue when the job has already been claimed this many times.
	// Zero disables the check.
	MaxAttempts int
}

// PreviewJobStats counts preview jobs per status.
type PreviewJobStats struct {
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Done       int `json:"done"`
	Failed     int `json:"failed"`
}
