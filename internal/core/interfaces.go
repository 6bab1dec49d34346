// Package core declares the ports between the preview pipeline and its infrastructure.
package core

import (
	"context"
	"io"
	"time"

	"github.com/coachmart/preview-worker/internal/domain/model"
)

// This file contains the ports the preview pipeline depends on.
// Data and adapter packages provide the implementations.

// PreviewJobRepository defines the job queue operations.
type PreviewJobRepository interface {
	// ClaimNext atomically moves the oldest queued job to processing and returns it.
	// Returns model.ErrNoJobsAvailable when the queue is empty or every candidate is locked.
	ClaimNext(ctx context.Context) (*model.PreviewJob, error)
	// Complete moves a processing job to done. It is a no-op error if the job is no longer processing.
	Complete(ctx context.Context, id string) error
	// Fail moves a processing job to failed and records the message.
	Fail(ctx context.Context, id, message string) error

	Enqueue(ctx context.Context, req *model.EnqueuePreviewJobRequest) (*model.PreviewJob, error)
	Requeue(ctx context.Context, req model.RequeueRequest) (*model.PreviewJob, error)
	GetByID(ctx context.Context, id string) (*model.PreviewJob, error)
	Stats(ctx context.Context) (*model.PreviewJobStats, error)
}

// ResourceRepository defines the resource columns owned by the pipeline.
type ResourceRepository interface {
	MarkReady(ctx context.Context, params model.MarkReadyParams) error
	MarkFailed(ctx context.Context, resourceID, message string) error
	// RecordScan persists scan results on the resource and upserts its moderation record.
	RecordScan(ctx context.Context, params model.RecordScanParams) error
	GetPreviewState(ctx context.Context, resourceID string) (*model.ResourcePreviewState, error)
}

// ObjectStorage abstracts the blob store holding originals and previews.
type ObjectStorage interface {
	// Download writes the object to localPath.
	Download(ctx context.Context, bucket, key, localPath string) error
	// Upload stores the object, replacing any existing one under the same key.
	Upload(ctx context.Context, obj UploadObject) error
}

// UploadObject groups the parameters of ObjectStorage.Upload.
type UploadObject struct {
	Bucket      string
	Key         string
	Body        io.Reader
	Size        int64
	ContentType string
}

// ContentScanner produces a moderation verdict for a downloaded file.
type ContentScanner interface {
	Scan(ctx context.Context, req model.ScanRequest) (model.ScanResult, error)
}

// ScanCache stores scan verdicts keyed by content digest.
type ScanCache interface {
	Get(ctx context.Context, digest string) (*model.ScanResult, error)
	Set(ctx context.Context, digest string, result model.ScanResult, ttl time.Duration) error
}

// DeleteOldJobsParams groups parameters for DeleteOldJobs.
type DeleteOldJobsParams struct {
	Status    model.PreviewJobStatus
	MaxAge    time.Duration
	BatchSize int
}

// ReaperRepository defines the interface for preview job cleanup.
type ReaperRepository interface {
	// FailStaleProcessingJobs marks jobs stuck in processing longer than maxAge as failed,
	// along with their resources. Processes up to batchSize jobs per call.
	FailStaleProcessingJobs(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error)

	// DeleteOldJobs deletes terminal jobs with the given status older than maxAge.
	DeleteOldJobs(ctx context.Context, params DeleteOldJobsParams) (int64, error)
}
