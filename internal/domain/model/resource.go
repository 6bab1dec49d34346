package model

import "errors"

// ProcessingStatus is the preview processing state stored on a resource.
type ProcessingStatus string

const (
	ProcessingStatusQueued     ProcessingStatus = "queued"
	ProcessingStatusProcessing ProcessingStatus = "processing"
	ProcessingStatusReady      ProcessingStatus = "ready"
	ProcessingStatusFailed     ProcessingStatus = "failed"
)

// ErrResourceNotFound is returned when a resource row does not exist.
var ErrResourceNotFound = errors.New("resource not found")

// ResourcePreviewState is the subset of a resource the pipeline reads and writes.
type ResourcePreviewState struct {
	ID               string           `json:"id"                   db:"id"`
	ProcessingStatus ProcessingStatus `json:"processing_status"    db:"processing_status"`
	IsPreviewReady   bool             `json:"is_preview_ready"     db:"is_preview_ready"`
	PreviewPath      *string          `json:"preview_path"         db:"preview_path"`
	PreviewPaths     []string         `json:"preview_paths"        db:"preview_paths"`
	PreviewCount     int              `json:"preview_count"        db:"preview_count"`
	LastError        *string          `json:"last_error,omitempty" db:"last_error"`
	ScannerFlags     []string         `json:"scanner_flags"        db:"scanner_flags"`
	RiskScore        *float64         `json:"risk_score,omitempty" db:"risk_score"`
}

// ScanRequest is the input handed to a content scanner.
type ScanRequest struct {
	LocalPath    string
	MimeType     string
	OriginalPath string
}

// ScanResult is the verdict returned by a content scanner.
type ScanResult struct {
	RiskScore float64  `json:"risk_score"`
	Flags     []string `json:"flags"`
}

// RecordScanParams groups the fields persisted after a scan.
type RecordScanParams struct {
	ResourceID string
	JobID      string
	Result     ScanResult
}

// Artifact is one derived preview file waiting to be uploaded.
type Artifact struct {
	// Key is the object key inside the previews bucket, e.g. "<resource_id>/page_1.png".
	Key         string
	ContentType string
	LocalPath   string
}

// MarkReadyParams groups the fields written when previews were published.
type MarkReadyParams struct {
	ResourceID   string
	PreviewPaths []string
}

// Validate checks that at least one preview path is present.
func (p MarkReadyParams) Validate() error {
	if p.ResourceID == "" {
		return errors.New("resource id is required")
	}
	if len(p.PreviewPaths) == 0 {
		return errors.New("at least one preview path is required")
	}
	return nil
}
