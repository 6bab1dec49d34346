package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/coachmart/preview-worker/internal/core"
	"github.com/coachmart/preview-worker/internal/domain/model"
	"github.com/coachmart/preview-worker/internal/observability/metrics"
	"github.com/coachmart/preview-worker/internal/observability/statsd"
)

// ErrShuttingDown marks a claimed job failed because the worker stopped before starting it.
var ErrShuttingDown = errors.New("worker shutting down")

// State is a poller state.
type State string

const (
	StateClaiming   State = "claiming"
	StateProcessing State = "processing"
	StateIdle       State = "idle"
	StateBackoff    State = "backoff"
)

const (
	defaultIdleInterval = 2 * time.Second
	defaultErrorBackoff = 5 * time.Second
	defaultJobTimeout   = 15 * time.Minute
	// failureWriteTimeout bounds the failure bookkeeping that runs after a job's own deadline.
	failureWriteTimeout = 30 * time.Second
)

// StepResult reports one state transition.
type StepResult struct {
	From State
	To   State
	// Wait is how long the caller should pause before the next Step.
	Wait time.Duration
	// Job is set on the Claiming→Processing and Processing→Claiming transitions.
	Job *model.PreviewJob
	// Err carries a claim error or the job's processing error. It is never fatal.
	Err error
}

// PollerOptions configures NewPoller.
type PollerOptions struct {
	Jobs      core.PreviewJobRepository
	Storage   core.ObjectStorage
	Scan      *ScanStage
	Processor *Processor
	Publisher *Publisher
	Clock     Clock
	Logger    *slog.Logger
	Metrics   statsd.Sink

	// OriginalsBucket holds the uploaded originals referenced by job.OriginalPath.
	OriginalsBucket string
	// WorkDir is the parent of per-job scratch directories.
	WorkDir string

	IdleInterval time.Duration
	ErrorBackoff time.Duration
	JobTimeout   time.Duration
}

// Poller is the single-threaded claim/process loop of a worker.
type Poller struct {
	jobs      core.PreviewJobRepository
	storage   core.ObjectStorage
	scan      *ScanStage
	processor *Processor
	publisher *Publisher
	clock     Clock
	logger    *slog.Logger
	metrics   statsd.Sink

	originalsBucket string
	workDir         string
	idleInterval    time.Duration
	errorBackoff    time.Duration
	jobTimeout      time.Duration

	state   State
	current *model.PreviewJob
}

// NewPoller validates dependencies and starts in StateClaiming.
func NewPoller(opts PollerOptions) (*Poller, error) {
	if opts.Jobs == nil || opts.Storage == nil {
		return nil, errors.New("job repository and object storage are required")
	}
	if opts.Scan == nil || opts.Processor == nil || opts.Publisher == nil {
		return nil, errors.New("scan stage, processor and publisher are required")
	}
	if opts.OriginalsBucket == "" {
		return nil, errors.New("originals bucket is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = RealClock()
	}
	workDir := opts.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}

	return &Poller{
		jobs:            opts.Jobs,
		storage:         opts.Storage,
		scan:            opts.Scan,
		processor:       opts.Processor,
		publisher:       opts.Publisher,
		clock:           clock,
		logger:          logger.With("component", "preview_poller"),
		metrics:         opts.Metrics,
		originalsBucket: opts.OriginalsBucket,
		workDir:         workDir,
		idleInterval:    durationOr(opts.IdleInterval, defaultIdleInterval),
		errorBackoff:    durationOr(opts.ErrorBackoff, defaultErrorBackoff),
		jobTimeout:      durationOr(opts.JobTimeout, defaultJobTimeout),
		state:           StateClaiming,
	}, nil
}

// State returns the state the next Step starts from.
func (p *Poller) State() State { return p.state }

// Run drives Step until ctx is cancelled. It returns nil on cancellation and an
// error only when the state machine reaches an invalid state.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.InfoContext(ctx, "starting preview poller",
		"idle_interval", p.idleInterval,
		"error_backoff", p.errorBackoff,
		"job_timeout", p.jobTimeout,
	)
	for {
		// A claimed job is always driven to a terminal state before stopping.
		if ctx.Err() != nil && p.state != StateProcessing {
			p.logger.InfoContext(ctx, "preview poller stopped")
			return nil
		}
		res, err := p.Step(ctx)
		if err != nil {
			return err
		}
		if res.Wait <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			p.logger.InfoContext(ctx, "preview poller stopped")
			return nil
		case <-p.clock.After(res.Wait):
		}
	}
}

// Step performs exactly one transition.
func (p *Poller) Step(ctx context.Context) (StepResult, error) {
	from := p.state
	switch from {
	case StateIdle, StateBackoff:
		p.state = StateClaiming
		return StepResult{From: from, To: StateClaiming}, nil
	case StateClaiming:
		return p.claim(ctx), nil
	case StateProcessing:
		job := p.current
		p.current = nil
		p.state = StateClaiming
		err := p.handle(ctx, job)
		return StepResult{From: from, To: StateClaiming, Job: job, Err: err}, nil
	default:
		return StepResult{}, fmt.Errorf("poller in invalid state %q", from)
	}
}

func (p *Poller) claim(ctx context.Context) StepResult {
	job, err := p.jobs.ClaimNext(ctx)
	switch {
	case err == nil:
		metrics.EmitJobLifecycle(p.metrics, metrics.JobMetric{
			Kind:       ResolveKind(job.MimeType).String(),
			Transition: metrics.TransitionClaim,
			Result:     metrics.ResultSuccess,
		})
		p.current = job
		p.state = StateProcessing
		return StepResult{From: StateClaiming, To: StateProcessing, Job: job}
	case errors.Is(err, model.ErrNoJobsAvailable):
		p.state = StateIdle
		return StepResult{From: StateClaiming, To: StateIdle, Wait: p.idleInterval}
	default:
		if ctx.Err() == nil {
			p.logger.ErrorContext(ctx, "claim next job failed", "error", err)
			metrics.EmitJobLifecycle(p.metrics, metrics.JobMetric{
				Transition: metrics.TransitionClaim,
				Result:     metrics.ResultError,
				Err:        err,
			})
		}
		p.state = StateBackoff
		return StepResult{From: StateClaiming, To: StateBackoff, Wait: p.errorBackoff, Err: err}
	}
}

// handle runs one claimed job to a terminal state and returns the job's error, if any.
func (p *Poller) handle(ctx context.Context, job *model.PreviewJob) error {
	kind := ResolveKind(job.MimeType)
	logger := p.logger.With("job_id", job.ID, "resource_id", job.ResourceID, "kind", kind.String())
	start := p.clock.Now()

	if ctx.Err() != nil {
		return p.fail(ctx, logger, job, kind, start,
			stageErr(StageDownload, fmt.Errorf("%w: %w", ErrShuttingDown, context.Cause(ctx))))
	}

	jobCtx, cancel := context.WithTimeout(ctx, p.jobTimeout)
	defer cancel()

	workDir, err := os.MkdirTemp(p.workDir, "preview-"+job.ID+"-")
	if err != nil {
		return p.fail(ctx, logger, job, kind, start, stageErr(StageDownload, fmt.Errorf("create work dir: %w", err)))
	}
	defer p.publisher.Cleanup(ctx, workDir)

	artifacts, err := p.produce(jobCtx, logger, job, kind, workDir)
	if err == nil {
		err = p.timeStage(logger, StagePublish, kind, func() error {
			return p.publisher.Publish(jobCtx, job, artifacts)
		})
	}
	if err != nil {
		return p.fail(ctx, logger, job, kind, start, err)
	}

	elapsed := p.clock.Now().Sub(start)
	metrics.EmitJobLifecycle(p.metrics, metrics.JobMetric{
		Kind:       kind.String(),
		Transition: metrics.TransitionComplete,
		Result:     metrics.ResultSuccess,
		Duration:   elapsed,
	})
	logger.InfoContext(ctx, "preview job done",
		"artifacts", len(artifacts),
		"attempts", job.Attempts,
		"duration_ms", elapsed.Milliseconds(),
	)
	return nil
}

// produce downloads, scans and processes the original.
func (p *Poller) produce(
	ctx context.Context,
	logger *slog.Logger,
	job *model.PreviewJob,
	kind Kind,
	workDir string,
) ([]model.Artifact, error) {
	source := filepath.Join(workDir, "original"+filepath.Ext(job.OriginalPath))
	if err := p.timeStage(logger, StageDownload, kind, func() error {
		return p.storage.Download(ctx, p.originalsBucket, job.OriginalPath, source)
	}); err != nil {
		return nil, err
	}

	if err := p.timeStage(logger, StageScan, kind, func() error {
		res, err := p.scan.Run(ctx, job, source)
		if err == nil {
			logger.DebugContext(ctx, "scan recorded", "risk_score", res.RiskScore, "flags", res.Flags)
		}
		return err
	}); err != nil {
		return nil, err
	}

	var artifacts []model.Artifact
	err := p.timeStage(logger, StageProcess, kind, func() error {
		var procErr error
		artifacts, procErr = p.processor.Process(ctx, ProcessInput{
			ResourceID: job.ResourceID,
			Kind:       kind,
			SourcePath: source,
			WorkDir:    workDir,
		})
		return procErr
	})
	return artifacts, err
}

func (p *Poller) timeStage(logger *slog.Logger, stage string, kind Kind, fn func() error) error {
	start := p.clock.Now()
	err := fn()
	elapsed := p.clock.Now().Sub(start)
	metrics.EmitStage(p.metrics, metrics.StageMetric{Stage: stage, Kind: kind.String(), Duration: elapsed, Err: err})
	logger.Debug("stage finished", "stage", stage, "duration_ms", elapsed.Milliseconds(), "error", err)
	return stageErr(stage, err)
}

func (p *Poller) fail(
	ctx context.Context,
	logger *slog.Logger,
	job *model.PreviewJob,
	kind Kind,
	start time.Time,
	err error,
) error {
	stage := StageProcess
	var se *StageError
	if errors.As(err, &se) {
		stage = se.Stage
	}

	// The job context may already be expired; failure bookkeeping still has to land.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureWriteTimeout)
	defer cancel()

	if recErr := p.publisher.RecordFailure(writeCtx, FailureInput{Job: job, Kind: kind, Stage: stage, Err: err}); recErr != nil {
		logger.ErrorContext(ctx, "record job failure", "error", recErr, "original_error", err)
	}

	metrics.EmitJobLifecycle(p.metrics, metrics.JobMetric{
		Kind:       kind.String(),
		Transition: metrics.TransitionFail,
		Result:     metrics.ResultError,
		Duration:   p.clock.Now().Sub(start),
		Err:        err,
	})
	logger.WarnContext(ctx, "preview job failed", "stage", stage, "attempts", job.Attempts, "error", err)
	return err
}

func durationOr(v, def time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return def
}
