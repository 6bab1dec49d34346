package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/coachmart/preview-worker/config"
	"github.com/coachmart/preview-worker/internal/core"
	"github.com/coachmart/preview-worker/internal/domain/model"
	obserrors "github.com/coachmart/preview-worker/internal/observability/errors"
	"github.com/coachmart/preview-worker/internal/observability/metrics"
	"github.com/coachmart/preview-worker/internal/observability/statsd"
)

// ReaperServiceOptions groups dependencies for ReaperService.
type ReaperServiceOptions struct {
	Repo    core.ReaperRepository // Required: reaper repository
	Config  config.ReaperConfig   // Required: reaper configuration
	Logger  *slog.Logger          // Optional: structured logger
	Metrics statsd.Sink           // Optional: metrics sink (StatsD-compatible)
}

// ReaperService provides preview job cleanup operations.
//
// This service manages:
// - Failing jobs stuck in processing after a worker crash. They are never re-queued.
// - Deleting old done and failed jobs to prevent table bloat.
type ReaperService struct {
	repo    core.ReaperRepository
	config  config.ReaperConfig
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewReaperService constructs a new ReaperService.
func NewReaperService(opts ReaperServiceOptions) (*ReaperService, error) {
	if opts.Repo == nil {
		return nil, errors.New("ReaperRepository is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "reaper_service")
		logger.Debug("ReaperService initialized",
			"interval", opts.Config.Interval,
			"processing_max_age", opts.Config.ProcessingMaxAge,
			"done_max_age", opts.Config.DoneMaxAge,
			"failed_max_age", opts.Config.FailedMaxAge,
		)
	}

	return &ReaperService{
		repo:    opts.Repo,
		config:  opts.Config,
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// Run starts the reaper loop and runs until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *ReaperService) Run(ctx context.Context) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting reaper service", "interval", s.config.Interval)
	}

	// Jitter keeps several instances started together from reaping in lockstep.
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if err := s.RunOnce(ctx); err != nil {
		s.logCleanupError(err, "initial cleanup")
	}

	return s.runLoop(ctx, ticker)
}

// waitWithJitter adds a random delay up to 10% of the interval.
func (s *ReaperService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		}
		return
	}

	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	select {
	case <-time.After(jitter):
	case <-ctx.Done():
	}
}

func (s *ReaperService) runLoop(ctx context.Context, ticker *time.Ticker) error {
	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.InfoContext(ctx, "reaper service stopping", "reason", ctx.Err())
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logCleanupError(err, "cleanup")
			}
		}
	}
}

// RunOnce performs every cleanup step once. A failing step does not stop the others.
func (s *ReaperService) RunOnce(ctx context.Context) error {
	start := time.Now()
	var (
		errs               []error
		allContextCanceled = true
		m                  = cleanupMetrics{}
	)

	steps := []cleanupStep{
		{
			fn:        s.failStaleProcessingJobs,
			label:     "fail stale processing jobs",
			count:     &m.ProcessingCount,
			metricErr: &m.ProcessingErr,
		},
		{
			fn:        s.deleteOldJobs(model.PreviewJobStatusDone, s.config.DoneMaxAge),
			label:     "delete old done jobs",
			count:     &m.DoneCount,
			metricErr: &m.DoneErr,
		},
		{
			fn:        s.deleteOldJobs(model.PreviewJobStatusFailed, s.config.FailedMaxAge),
			label:     "delete old failed jobs",
			count:     &m.FailedCount,
			metricErr: &m.FailedErr,
		},
	}

	for _, step := range steps {
		outcome := s.executeCleanupStep(ctx, step.fn, step.label)
		*step.count = outcome.count
		*step.metricErr = outcome.metricErr
		if outcome.aggregateErr != nil {
			errs = append(errs, outcome.aggregateErr)
			allContextCanceled = allContextCanceled && outcome.canceled
		}
	}

	m.Elapsed = time.Since(start)
	s.emitCleanupMetrics(m)

	if len(errs) > 0 {
		joined := errors.Join(errs...)
		if allContextCanceled && isContextCancellation(joined) {
			return context.Canceled
		}
		return fmt.Errorf("cleanup failed: %w", joined)
	}

	return nil
}

type cleanupFunc func(context.Context) (int64, error)

type cleanupStep struct {
	fn        cleanupFunc
	label     string
	count     *int64
	metricErr *error
}

type cleanupStepOutcome struct {
	count        int64
	metricErr    error
	aggregateErr error
	canceled     bool
}

func (s *ReaperService) executeCleanupStep(ctx context.Context, fn cleanupFunc, label string) cleanupStepOutcome {
	count, err := fn(ctx)
	outcome := cleanupStepOutcome{
		count:     count,
		metricErr: suppressContextCancellation(err),
		canceled:  isContextCancellation(err),
	}
	if err != nil {
		outcome.aggregateErr = fmt.Errorf("%s: %w", label, err)
	}
	return outcome
}

// drainBatches calls batch until it affects no rows, checking ctx between batches.
func drainBatches(ctx context.Context, batch cleanupFunc) (int64, error) {
	var total int64
	for {
		count, err := batch(ctx)
		if err != nil {
			return total, err
		}
		total += count
		if count == 0 {
			return total, nil
		}
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
	}
}

// failStaleProcessingJobs fails jobs whose worker stopped reporting for longer than
// ProcessingMaxAge, along with their resources.
func (s *ReaperService) failStaleProcessingJobs(ctx context.Context) (int64, error) {
	total, err := drainBatches(ctx, func(ctx context.Context) (int64, error) {
		return s.repo.FailStaleProcessingJobs(ctx, s.config.ProcessingMaxAge, s.config.BatchSize)
	})
	if total > 0 && s.logger != nil {
		s.logger.WarnContext(ctx, "failed stale processing jobs",
			"count", total,
			"max_age", s.config.ProcessingMaxAge,
		)
	}
	return total, err
}

func (s *ReaperService) deleteOldJobs(status model.PreviewJobStatus, maxAge time.Duration) cleanupFunc {
	return func(ctx context.Context) (int64, error) {
		total, err := drainBatches(ctx, func(ctx context.Context) (int64, error) {
			return s.repo.DeleteOldJobs(ctx, core.DeleteOldJobsParams{
				Status:    status,
				MaxAge:    maxAge,
				BatchSize: s.config.BatchSize,
			})
		})
		if total > 0 && s.logger != nil {
			s.logger.InfoContext(ctx, "deleted old jobs",
				"status", status,
				"count", total,
				"max_age", maxAge,
			)
		}
		return total, err
	}
}

type cleanupMetrics struct {
	ProcessingCount int64
	ProcessingErr   error
	DoneCount       int64
	DoneErr         error
	FailedCount     int64
	FailedErr       error
	Elapsed         time.Duration
}

func (s *ReaperService) emitCleanupMetrics(m cleanupMetrics) {
	if s.metrics == nil {
		return
	}

	totalCount := m.ProcessingCount + m.DoneCount + m.FailedCount
	firstErr := firstError(m.ProcessingErr, m.DoneErr, m.FailedErr)

	result := metrics.ResultSuccess
	if firstErr != nil {
		result = metrics.ResultError
	} else if totalCount == 0 {
		result = metrics.ResultNoop
	}

	tags := map[string]string{"result": result}
	if firstErr != nil {
		if class := obserrors.Classify(firstErr); class != "" {
			tags["error_class"] = class
		}
	}

	s.metrics.Count("reaper.cleanup", 1, tags)
	if m.Elapsed > 0 {
		s.metrics.Timing("reaper.cleanup_duration", m.Elapsed, metrics.CloneTags(tags))
	}

	s.emitCleanupOperationMetric("fail_processing", m.ProcessingCount, m.ProcessingErr)
	s.emitCleanupOperationMetric("delete_done", m.DoneCount, m.DoneErr)
	s.emitCleanupOperationMetric("delete_failed", m.FailedCount, m.FailedErr)

	if firstErr == nil {
		s.metrics.Gauge("reaper.last_success_epoch", float64(time.Now().Unix()), nil)
	}
}

func (s *ReaperService) emitCleanupOperationMetric(operation string, count int64, err error) {
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	} else if count == 0 {
		result = metrics.ResultNoop
	}

	tags := map[string]string{
		"operation": operation,
		"result":    result,
	}
	if err != nil {
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}

	s.metrics.Count("reaper.cleanup_operation", 1, tags)
	if err == nil && count > 0 {
		s.metrics.Count("reaper.jobs_processed", count, metrics.CloneTags(tags))
	}
}

func (s *ReaperService) logCleanupError(err error, label string) {
	if err == nil || s.logger == nil {
		return
	}
	if isContextCancellation(err) {
		s.logger.Debug(label+" cancelled by context", "error", err)
		return
	}
	s.logger.Error(label+" failed", "error", err)
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func isContextCancellation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func suppressContextCancellation(err error) error {
	if isContextCancellation(err) {
		return nil
	}
	return err
}
