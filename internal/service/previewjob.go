package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/coachmart/preview-worker/internal/core"
	"github.com/coachmart/preview-worker/internal/data"
	"github.com/coachmart/preview-worker/internal/domain/model"
	apperrors "github.com/coachmart/preview-worker/internal/errors"
)

// PreviewJobServiceOptions groups dependencies for PreviewJobService.
type PreviewJobServiceOptions struct {
	Jobs      core.PreviewJobRepository // Required: preview job repository
	Resources core.ResourceRepository   // Optional: enables Show to include resource state
	// MaxAttempts bounds manual requeues unless forced. Zero disables the bound.
	MaxAttempts int
	Logger      *slog.Logger // Optional: structured logger
}

// PreviewJobService backs the operator commands of the admin CLI.
type PreviewJobService struct {
	jobs        core.PreviewJobRepository
	resources   core.ResourceRepository
	maxAttempts int
	logger      *slog.Logger
}

// NewPreviewJobService constructs a new PreviewJobService.
func NewPreviewJobService(opts PreviewJobServiceOptions) (*PreviewJobService, error) {
	if opts.Jobs == nil {
		return nil, errors.New("PreviewJobRepository is required")
	}
	if opts.MaxAttempts < 0 {
		return nil, errors.New("MaxAttempts must not be negative")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "preview_job_service")
		logger.Debug("PreviewJobService initialized", "max_attempts", opts.MaxAttempts)
	}

	return &PreviewJobService{
		jobs:        opts.Jobs,
		resources:   opts.Resources,
		maxAttempts: opts.MaxAttempts,
		logger:      logger,
	}, nil
}

// Enqueue validates the request and inserts a queued job.
func (s *PreviewJobService) Enqueue(
	ctx context.Context,
	req *model.EnqueuePreviewJobRequest,
) (*model.PreviewJob, error) {
	if req == nil {
		return nil, apperrors.Validation("enqueue request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid enqueue request")
	}

	job, err := s.jobs.Enqueue(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("enqueue preview job: %w", apperrors.MapDBError(err))
	}

	if s.logger != nil {
		s.logger.DebugContext(ctx, "preview job enqueued",
			"id", job.ID,
			"resource_id", job.ResourceID,
			"mime_type", job.MimeType,
		)
	}
	return job, nil
}

// Requeue returns a failed job to the queue. Unless force is set the job must
// have fewer attempts than MaxAttempts.
func (s *PreviewJobService) Requeue(ctx context.Context, id string, force bool) (*model.PreviewJob, error) {
	if id == "" {
		return nil, apperrors.ValidationField("job_id", "job id is required")
	}

	req := model.RequeueRequest{JobID: id}
	if !force {
		req.MaxAttempts = s.maxAttempts
	}

	job, err := s.jobs.Requeue(ctx, req)
	if err != nil {
		return nil, mapJobError(err, "requeue preview job "+id)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "preview job requeued",
			"id", job.ID,
			"resource_id", job.ResourceID,
			"attempts", job.Attempts,
			"forced", force,
		)
	}
	return job, nil
}

// Stats counts jobs per status.
func (s *PreviewJobService) Stats(ctx context.Context) (*model.PreviewJobStats, error) {
	stats, err := s.jobs.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("preview job stats: %w", apperrors.MapDBError(err))
	}
	return stats, nil
}

// JobDetails pairs a job with the pipeline-owned state of its resource.
type JobDetails struct {
	Job      *model.PreviewJob           `json:"job"`
	Resource *model.ResourcePreviewState `json:"resource,omitempty"`
}

// Show loads a job and, when a resource repository is configured, its resource state.
// A missing resource is not an error; Resource is left nil.
func (s *PreviewJobService) Show(ctx context.Context, id string) (*JobDetails, error) {
	if id == "" {
		return nil, apperrors.ValidationField("job_id", "job id is required")
	}

	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, mapJobError(err, "get preview job "+id)
	}

	details := &JobDetails{Job: job}
	if s.resources == nil {
		return details, nil
	}

	state, err := s.resources.GetPreviewState(ctx, job.ResourceID)
	switch {
	case err == nil:
		details.Resource = state
	case errors.Is(err, model.ErrResourceNotFound):
		if s.logger != nil {
			s.logger.WarnContext(ctx, "resource missing for preview job", "id", job.ID, "resource_id", job.ResourceID)
		}
	default:
		return nil, fmt.Errorf("get resource %s: %w", job.ResourceID, apperrors.MapDBError(err))
	}
	return details, nil
}

func mapJobError(err error, msg string) error {
	switch {
	case errors.Is(err, model.ErrJobNotFound):
		return apperrors.Wrap(err, apperrors.ErrCodeNotFound, msg)
	case errors.Is(err, data.ErrJobNotRequeueable), errors.Is(err, data.ErrMaxAttemptsReached):
		return apperrors.Wrap(err, apperrors.ErrCodeConflict, msg)
	default:
		return fmt.Errorf("%s: %w", msg, apperrors.MapDBError(err))
	}
}
