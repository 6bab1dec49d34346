package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coachmart/preview-worker/config"
	"github.com/coachmart/preview-worker/internal/core"
	"github.com/coachmart/preview-worker/internal/domain/model"
	"github.com/coachmart/preview-worker/internal/observability/statsd"
)

// mockReaperRepo returns each configured count once, then 0 to simulate batch exhaustion.
type mockReaperRepo struct {
	failStaleCalled int
	failStaleCount  int64
	failStaleError  error
	failStaleMaxAge time.Duration

	deleteCalls  map[model.PreviewJobStatus]int
	deleteCounts map[model.PreviewJobStatus]int64
	deleteMaxAge map[model.PreviewJobStatus]time.Duration
	deleteError  error
}

func (m *mockReaperRepo) FailStaleProcessingJobs(_ context.Context, maxAge time.Duration, _ int) (int64, error) {
	m.failStaleCalled++
	m.failStaleMaxAge = maxAge
	if m.failStaleError != nil {
		return 0, m.failStaleError
	}
	if m.failStaleCalled == 1 {
		return m.failStaleCount, nil
	}
	return 0, nil
}

func (m *mockReaperRepo) DeleteOldJobs(_ context.Context, params core.DeleteOldJobsParams) (int64, error) {
	if m.deleteCalls == nil {
		m.deleteCalls = make(map[model.PreviewJobStatus]int)
	}
	if m.deleteMaxAge == nil {
		m.deleteMaxAge = make(map[model.PreviewJobStatus]time.Duration)
	}
	m.deleteCalls[params.Status]++
	m.deleteMaxAge[params.Status] = params.MaxAge
	if m.deleteError != nil {
		return 0, m.deleteError
	}
	if m.deleteCalls[params.Status] == 1 {
		return m.deleteCounts[params.Status], nil
	}
	return 0, nil
}

func testReaperConfig() config.ReaperConfig {
	return config.ReaperConfig{
		Interval:         5 * time.Minute,
		ProcessingMaxAge: time.Hour,
		DoneMaxAge:       7 * 24 * time.Hour,
		FailedMaxAge:     30 * 24 * time.Hour,
		BatchSize:        1000,
	}
}

func TestNewReaperService(t *testing.T) {
	t.Run("creates service with valid options", func(t *testing.T) {
		svc, err := NewReaperService(ReaperServiceOptions{
			Repo:   &mockReaperRepo{},
			Config: testReaperConfig(),
			Logger: slog.Default(),
		})
		require.NoError(t, err)
		assert.NotNil(t, svc)
	})

	t.Run("returns error when repo is nil", func(t *testing.T) {
		_, err := NewReaperService(ReaperServiceOptions{Config: testReaperConfig()})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ReaperRepository is required")
	})
}

func TestReaperService_RunOnce(t *testing.T) {
	t.Run("runs all cleanup operations", func(t *testing.T) {
		repo := &mockReaperRepo{
			failStaleCount: 5,
			deleteCounts: map[model.PreviewJobStatus]int64{
				model.PreviewJobStatusDone:   10,
				model.PreviewJobStatusFailed: 3,
			},
		}
		rec := &statsd.Recorder{}
		svc, err := NewReaperService(ReaperServiceOptions{Repo: repo, Config: testReaperConfig(), Metrics: rec})
		require.NoError(t, err)

		require.NoError(t, svc.RunOnce(context.Background()))

		assert.Equal(t, 2, repo.failStaleCalled)
		assert.Equal(t, time.Hour, repo.failStaleMaxAge)
		assert.Equal(t, 2, repo.deleteCalls[model.PreviewJobStatusDone])
		assert.Equal(t, 2, repo.deleteCalls[model.PreviewJobStatusFailed])
		assert.Equal(t, 7*24*time.Hour, repo.deleteMaxAge[model.PreviewJobStatusDone])
		assert.Equal(t, 30*24*time.Hour, repo.deleteMaxAge[model.PreviewJobStatusFailed])
		assert.NotContains(t, repo.deleteCalls, model.PreviewJobStatusQueued)

		cleanup := rec.Named("reaper.cleanup")
		require.Len(t, cleanup, 1)
		assert.Equal(t, "success", cleanup[0].Tags["result"])

		processed := rec.Named("reaper.jobs_processed")
		require.Len(t, processed, 3)
		var total float64
		for _, m := range processed {
			total += m.Value
		}
		assert.InDelta(t, 18, total, 0)
		assert.Len(t, rec.Named("reaper.last_success_epoch"), 1)
	})

	t.Run("noop when nothing to clean", func(t *testing.T) {
		rec := &statsd.Recorder{}
		svc, err := NewReaperService(ReaperServiceOptions{Repo: &mockReaperRepo{}, Config: testReaperConfig(), Metrics: rec})
		require.NoError(t, err)

		require.NoError(t, svc.RunOnce(context.Background()))
		cleanup := rec.Named("reaper.cleanup")
		require.Len(t, cleanup, 1)
		assert.Equal(t, "noop", cleanup[0].Tags["result"])
	})

	t.Run("continues after a failing step", func(t *testing.T) {
		repo := &mockReaperRepo{
			failStaleError: errors.New("database error"),
			deleteCounts:   map[model.PreviewJobStatus]int64{model.PreviewJobStatusDone: 2},
		}
		rec := &statsd.Recorder{}
		svc, err := NewReaperService(ReaperServiceOptions{Repo: repo, Config: testReaperConfig(), Metrics: rec})
		require.NoError(t, err)

		err = svc.RunOnce(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "fail stale processing jobs")
		assert.Equal(t, 2, repo.deleteCalls[model.PreviewJobStatusDone])

		cleanup := rec.Named("reaper.cleanup")
		require.Len(t, cleanup, 1)
		assert.Equal(t, "error", cleanup[0].Tags["result"])
		assert.Empty(t, rec.Named("reaper.last_success_epoch"))
	})

	t.Run("cancelled context reports cancellation", func(t *testing.T) {
		repo := &mockReaperRepo{failStaleError: context.Canceled, deleteError: context.Canceled}
		svc, err := NewReaperService(ReaperServiceOptions{Repo: repo, Config: testReaperConfig()})
		require.NoError(t, err)

		err = svc.RunOnce(context.Background())
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestReaperService_RunStopsOnCancel(t *testing.T) {
	cfg := testReaperConfig()
	cfg.Interval = time.Hour
	repo := &mockReaperRepo{}
	svc, err := NewReaperService(ReaperServiceOptions{Repo: repo, Config: cfg})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, svc.Run(ctx))
}

func TestDrainBatches(t *testing.T) {
	calls := 0
	total, err := drainBatches(context.Background(), func(context.Context) (int64, error) {
		calls++
		if calls <= 3 {
			return 100, nil
		}
		return 0, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(300), total)
	assert.Equal(t, 4, calls)
}
