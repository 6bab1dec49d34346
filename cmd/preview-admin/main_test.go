package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coachmart/preview-worker/internal/domain/model"
	apperrors "github.com/coachmart/preview-worker/internal/errors"
	"github.com/coachmart/preview-worker/internal/service"
)

type fakeJobs struct {
	enqueued   *model.EnqueuePreviewJobRequest
	requeueID  string
	forced     bool
	requeueErr error
	stats      *model.PreviewJobStats
	details    *service.JobDetails
	showErr    error
}

func (f *fakeJobs) Enqueue(_ context.Context, req *model.EnqueuePreviewJobRequest) (*model.PreviewJob, error) {
	f.enqueued = req
	return &model.PreviewJob{
		ID:           "job-1",
		ResourceID:   req.ResourceID,
		OriginalPath: req.OriginalPath,
		MimeType:     req.MimeType,
		Status:       model.PreviewJobStatusQueued,
	}, nil
}

func (f *fakeJobs) Requeue(_ context.Context, id string, force bool) (*model.PreviewJob, error) {
	f.requeueID, f.forced = id, force
	if f.requeueErr != nil {
		return nil, f.requeueErr
	}
	return &model.PreviewJob{ID: id, Status: model.PreviewJobStatusQueued, Attempts: 2}, nil
}

func (f *fakeJobs) Stats(context.Context) (*model.PreviewJobStats, error) {
	return f.stats, nil
}

func (f *fakeJobs) Show(context.Context, string) (*service.JobDetails, error) {
	return f.details, f.showErr
}

func newTestContext(jobs *fakeJobs) (*commandContext, *bytes.Buffer, *bool) {
	out := &bytes.Buffer{}
	released := false
	return &commandContext{
		Ctx:    context.Background(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Out:    out,
		openJobs: func(context.Context) (jobAdmin, func(), error) {
			return jobs, func() { released = true }, nil
		},
	}, out, &released
}

func TestRunEnqueue(t *testing.T) {
	jobs := &fakeJobs{}
	cmdCtx, out, released := newTestContext(jobs)

	err := runEnqueue(cmdCtx, []string{
		"-resource-id", "5b7f3c0e-8a43-4b8e-9d55-0f8f8f1a2b3c",
		"-original-path", "originals/deck.pdf",
		"-mime-type", "application/pdf",
		"-json",
	})
	require.NoError(t, err)
	assert.True(t, *released)
	require.NotNil(t, jobs.enqueued)
	assert.Equal(t, "originals/deck.pdf", jobs.enqueued.OriginalPath)

	var job model.PreviewJob
	require.NoError(t, json.Unmarshal(out.Bytes(), &job))
	assert.Equal(t, "job-1", job.ID)
	assert.Equal(t, model.PreviewJobStatusQueued, job.Status)
}

func TestRunRequeue(t *testing.T) {
	t.Run("force flag is passed through", func(t *testing.T) {
		jobs := &fakeJobs{}
		cmdCtx, out, _ := newTestContext(jobs)

		require.NoError(t, runRequeue(cmdCtx, []string{"-force", "job-9"}))
		assert.Equal(t, "job-9", jobs.requeueID)
		assert.True(t, jobs.forced)
		assert.Contains(t, out.String(), "requeued job-9")
	})

	t.Run("missing job id exits 2", func(t *testing.T) {
		cmdCtx, _, _ := newTestContext(&fakeJobs{})
		err := runRequeue(cmdCtx, nil)
		require.Error(t, err)
		assert.Equal(t, 2, apperrors.ExitCode(err))
	})

	t.Run("conflict exits 4", func(t *testing.T) {
		jobs := &fakeJobs{requeueErr: apperrors.Conflictf("preview job job-9 reached max attempts")}
		cmdCtx, _, _ := newTestContext(jobs)
		err := runRequeue(cmdCtx, []string{"job-9"})
		require.Error(t, err)
		assert.False(t, jobs.forced)
		assert.Equal(t, 4, apperrors.ExitCode(err))
	})
}

func TestRunStats(t *testing.T) {
	jobs := &fakeJobs{stats: &model.PreviewJobStats{Queued: 3, Processing: 1, Done: 12, Failed: 2}}
	cmdCtx, out, _ := newTestContext(jobs)

	require.NoError(t, runStats(cmdCtx, nil))
	text := out.String()
	assert.Contains(t, text, "Status")
	assert.Regexp(t, `queued\s+3`, text)
	assert.Regexp(t, `done\s+12`, text)
	assert.Regexp(t, `failed\s+2`, text)
}

func TestRunShow(t *testing.T) {
	msg := "process: no pages rendered"
	score := 95.0
	jobs := &fakeJobs{details: &service.JobDetails{
		Job: &model.PreviewJob{ID: "job-1", Status: model.PreviewJobStatusFailed, Attempts: 1, LastError: &msg},
		Resource: &model.ResourcePreviewState{
			ProcessingStatus: model.ProcessingStatusFailed,
			ScannerFlags:     []string{"malware"},
			RiskScore:        &score,
		},
	}}
	cmdCtx, out, _ := newTestContext(jobs)

	require.NoError(t, runShow(cmdCtx, []string{"job-1"}))
	text := out.String()
	assert.Contains(t, text, "no pages rendered")
	assert.Contains(t, text, "malware")
	assert.Contains(t, text, "95.0")

	t.Run("not found exits 3", func(t *testing.T) {
		missing := &fakeJobs{showErr: apperrors.Wrap(errors.New("preview job not found"), apperrors.ErrCodeNotFound, "get preview job x")}
		cmdCtx, _, _ := newTestContext(missing)
		err := runShow(cmdCtx, []string{"x"})
		assert.Equal(t, 3, apperrors.ExitCode(err))
	})
}

func TestParseMigrateFlags(t *testing.T) {
	opts, err := parseMigrateFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, defaultMigrationTimeout, opts.Timeout)

	_, err = parseMigrateFlags([]string{"-timeout", "0s"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestPrintUsageListsCommands(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printUsage(&buf))
	for name := range commands() {
		assert.Contains(t, buf.String(), name)
	}
}
