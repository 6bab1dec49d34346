// Package testutil provides testing utilities and helpers for the preview pipeline.
package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/coachmart/preview-worker/internal/domain/model"
)

// PreviewJobBuilder provides a fluent interface for building PreviewJob values in unit tests.
type PreviewJobBuilder struct {
	job *model.PreviewJob
}

// NewPreviewJob creates a processing PDF job with one claim recorded.
func NewPreviewJob() *PreviewJobBuilder {
	now := TestTime()
	resourceID := uuid.NewString()
	return &PreviewJobBuilder{
		job: &model.PreviewJob{
			ID:           uuid.NewString(),
			ResourceID:   resourceID,
			OriginalPath: "uploads/" + resourceID + "/original.pdf",
			MimeType:     "application/pdf",
			Attempts:     1,
			Status:       model.PreviewJobStatusProcessing,
			StartedAt:    &now,
			CreatedAt:    now.Add(-time.Minute),
			UpdatedAt:    now,
		},
	}
}

// WithMimeType sets the MIME type and a matching original path extension.
func (b *PreviewJobBuilder) WithMimeType(mimeType, ext string) *PreviewJobBuilder {
	b.job.MimeType = mimeType
	b.job.OriginalPath = "uploads/" + b.job.ResourceID + "/original" + ext
	return b
}

// WithResourceID sets the resource id.
func (b *PreviewJobBuilder) WithResourceID(id string) *PreviewJobBuilder {
	b.job.ResourceID = id
	return b
}

// WithAttempts sets the attempt counter.
func (b *PreviewJobBuilder) WithAttempts(n int) *PreviewJobBuilder {
	b.job.Attempts = n
	return b
}

// Build returns a copy of the built job.
func (b *PreviewJobBuilder) Build() *model.PreviewJob {
	job := *b.job
	return &job
}

// EnqueueRequestFor returns an enqueue request for the given resource.
func EnqueueRequestFor(resourceID, mimeType string) *model.EnqueuePreviewJobRequest {
	return &model.EnqueuePreviewJobRequest{
		ResourceID:   resourceID,
		OriginalPath: "uploads/" + resourceID + "/original",
		MimeType:     mimeType,
	}
}
