package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/coachmart/preview-worker/internal/core"
	"github.com/coachmart/preview-worker/internal/domain/model"
	obserrors "github.com/coachmart/preview-worker/internal/observability/errors"
	"github.com/coachmart/preview-worker/internal/observability/notify"
)

const defaultUploadConcurrency = 3

// FailureNotifier receives failed-job events. *failurenotifier.Service satisfies it.
type FailureNotifier interface {
	NotifyPreviewFailure(ctx context.Context, payload notify.PreviewFailurePayload)
}

// PublisherOptions configures NewPublisher.
type PublisherOptions struct {
	Storage   core.ObjectStorage
	Jobs      core.PreviewJobRepository
	Resources core.ResourceRepository
	Bucket    string
	Notifier  FailureNotifier
	Logger    *slog.Logger
	Clock     Clock
	// UploadConcurrency bounds parallel artifact uploads.
	UploadConcurrency int
}

// Publisher uploads artifacts and writes the terminal job and resource state.
type Publisher struct {
	storage     core.ObjectStorage
	jobs        core.PreviewJobRepository
	resources   core.ResourceRepository
	bucket      string
	notifier    FailureNotifier
	logger      *slog.Logger
	clock       Clock
	concurrency int
}

// NewPublisher validates dependencies.
func NewPublisher(opts PublisherOptions) (*Publisher, error) {
	if opts.Storage == nil || opts.Jobs == nil || opts.Resources == nil {
		return nil, errors.New("storage, job and resource repositories are required")
	}
	if opts.Bucket == "" {
		return nil, errors.New("preview bucket is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = RealClock()
	}
	return &Publisher{
		storage:     opts.Storage,
		jobs:        opts.Jobs,
		resources:   opts.Resources,
		bucket:      opts.Bucket,
		notifier:    opts.Notifier,
		logger:      logger.With("component", "preview_publisher"),
		clock:       clock,
		concurrency: positiveOr(opts.UploadConcurrency, defaultUploadConcurrency),
	}, nil
}

// Publish uploads every artifact, then marks the resource ready and the job done.
// Nothing is written to the database unless all uploads succeed.
func (p *Publisher) Publish(ctx context.Context, job *model.PreviewJob, artifacts []model.Artifact) error {
	if len(artifacts) == 0 {
		return errors.New("no artifacts to publish")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for _, a := range artifacts {
		a := a
		g.Go(func() error { return p.upload(gctx, a) })
	}
	if err := g.Wait(); err != nil {
		return err
	}

	paths := make([]string, len(artifacts))
	for i, a := range artifacts {
		paths[i] = a.Key
	}
	if err := p.resources.MarkReady(ctx, model.MarkReadyParams{ResourceID: job.ResourceID, PreviewPaths: paths}); err != nil {
		return fmt.Errorf("mark resource ready: %w", err)
	}
	if err := p.jobs.Complete(ctx, job.ID); err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return nil
}

func (p *Publisher) upload(ctx context.Context, a model.Artifact) error {
	f, err := os.Open(a.LocalPath)
	if err != nil {
		return fmt.Errorf("open artifact %s: %w", a.Key, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat artifact %s: %w", a.Key, err)
	}
	return p.storage.Upload(ctx, core.UploadObject{
		Bucket:      p.bucket,
		Key:         a.Key,
		Body:        f,
		Size:        st.Size(),
		ContentType: a.ContentType,
	})
}

// FailureInput describes a job that could not be published.
type FailureInput struct {
	Job   *model.PreviewJob
	Kind  Kind
	Stage string
	Err   error
}

// RecordFailure marks the job and its resource failed and notifies operators.
// Both writes are attempted even if the first one fails.
func (p *Publisher) RecordFailure(ctx context.Context, in FailureInput) error {
	msg := in.Err.Error()

	var errs []error
	if err := p.jobs.Fail(ctx, in.Job.ID, msg); err != nil {
		errs = append(errs, fmt.Errorf("fail job: %w", err))
	}
	if err := p.resources.MarkFailed(ctx, in.Job.ResourceID, msg); err != nil {
		errs = append(errs, fmt.Errorf("mark resource failed: %w", err))
	}

	if p.notifier != nil {
		p.notifier.NotifyPreviewFailure(ctx, notify.PreviewFailurePayload{
			JobID:      in.Job.ID,
			ResourceID: in.Job.ResourceID,
			Kind:       in.Kind.String(),
			MimeType:   in.Job.MimeType,
			Attempts:   in.Job.Attempts,
			Stage:      in.Stage,
			Error:      msg,
			ErrorClass: obserrors.Classify(in.Err),
			OccurredAt: p.clock.Now().UTC(),
		})
	}
	return errors.Join(errs...)
}

// Cleanup removes a job's scratch directory.
func (p *Publisher) Cleanup(ctx context.Context, workDir string) {
	if workDir == "" {
		return
	}
	start := time.Now()
	if err := os.RemoveAll(workDir); err != nil {
		p.logger.WarnContext(ctx, "remove work dir failed", "dir", workDir, "error", err)
		return
	}
	p.logger.DebugContext(ctx, "removed work dir", "dir", workDir, "duration_ms", time.Since(start).Milliseconds())
}
