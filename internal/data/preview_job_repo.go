package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/coachmart/preview-worker/internal/data/pgxutil"
	"github.com/coachmart/preview-worker/internal/domain/model"
)

var (
	// ErrJobNotProcessing is returned when Complete or Fail targets a job another actor already finished.
	ErrJobNotProcessing = errors.New("preview job is not processing")
	// ErrJobNotRequeueable is returned when Requeue targets a job that is not failed.
	ErrJobNotRequeueable = errors.New("only failed preview jobs can be requeued")
	// ErrMaxAttemptsReached is returned when Requeue would exceed the attempt budget.
	ErrMaxAttemptsReached = errors.New("preview job reached max attempts")
)

// maxErrorMessageBytes bounds last_error on jobs and resources.
const maxErrorMessageBytes = 1024

// RepoConfig holds configuration options for the preview job repository.
type RepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// PreviewJobRepo provides database operations for the preview job queue.
type PreviewJobRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewPreviewJobRepo creates a new PreviewJobRepo with the given database connection and configuration.
func NewPreviewJobRepo(db *sql.DB, cfg RepoConfig) *PreviewJobRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &PreviewJobRepo{
		DB:           db,
		timeProvider: tp,
		logger:       logger.With("component", "preview_job_repo"),
	}
}

const previewJobColumns = `
  id,
  resource_id,
  original_path,
  mime_type,
  attempts,
  status,
  last_error,
  started_at,
  completed_at,
  created_at,
  updated_at
`

// claimNextSQL locks the oldest queued row and flips it to processing in one statement.
// Rows locked by another worker are skipped, so a lost race returns no rows.
const claimNextSQL = `
  WITH cte AS (
    SELECT id FROM preview_jobs
    WHERE status = 'queued'
    ORDER BY created_at ASC, id ASC
    LIMIT 1
    FOR UPDATE SKIP LOCKED
  )
  UPDATE preview_jobs j
  SET
    status = 'processing',
    attempts = j.attempts + 1,
    started_at = $1,
    completed_at = NULL,
    updated_at = $1
  FROM cte
  WHERE j.id = cte.id AND j.status = 'queued'
  RETURNING j.id, j.resource_id, j.original_path, j.mime_type, j.attempts, j.status,
            j.last_error, j.started_at, j.completed_at, j.created_at, j.updated_at`

// ClaimNext claims the oldest queued job and marks its resource as processing.
func (r *PreviewJobRepo) ClaimNext(ctx context.Context) (*model.PreviewJob, error) {
	var job *model.PreviewJob
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			now := r.timeProvider.Now().UTC()
			rows, err := tx.Query(ctx, claimNextSQL, now)
			if err != nil {
				return fmt.Errorf("claim next preview job: %w", err)
			}
			claimed, collectErr := collectPreviewJobFromRows(rows)
			rows.Close()
			if collectErr != nil {
				if errors.Is(collectErr, pgx.ErrNoRows) {
					return model.ErrNoJobsAvailable
				}
				return fmt.Errorf("collect claimed job: %w", collectErr)
			}

			if _, err := tx.Exec(ctx, `
				UPDATE resources
				SET processing_status = 'processing',
				    is_preview_ready = FALSE,
				    updated_at = $2
				WHERE id = $1
			`, claimed.ResourceID, now); err != nil {
				return fmt.Errorf("mark resource processing: %w", err)
			}

			job = claimed
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// Complete marks a processing job as done.
func (r *PreviewJobRepo) Complete(ctx context.Context, id string) error {
	now := r.timeProvider.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE preview_jobs
		SET status = 'done',
		    last_error = NULL,
		    completed_at = $2,
		    updated_at = $2
		WHERE id = $1 AND status = 'processing'
	`, id, now)
	if err != nil {
		return fmt.Errorf("complete preview job: %w", err)
	}
	return requireOneRow(res, id)
}

// Fail marks a processing job as failed with the given message.
func (r *PreviewJobRepo) Fail(ctx context.Context, id, message string) error {
	now := r.timeProvider.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE preview_jobs
		SET status = 'failed',
		    last_error = $2,
		    completed_at = $3,
		    updated_at = $3
		WHERE id = $1 AND status = 'processing'
	`, id, TruncateErrorMessage(message), now)
	if err != nil {
		return fmt.Errorf("fail preview job: %w", err)
	}
	return requireOneRow(res, id)
}

func requireOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("preview job %s: %w", id, ErrJobNotProcessing)
	}
	return nil
}

// Enqueue inserts a new queued job and resets the resource's preview fields.
func (r *PreviewJobRepo) Enqueue(ctx context.Context, req *model.EnqueuePreviewJobRequest) (*model.PreviewJob, error) {
	if req == nil {
		return nil, errors.New("enqueue request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var job *model.PreviewJob
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			now := r.timeProvider.Now().UTC()
			rows, err := tx.Query(ctx, `
				INSERT INTO preview_jobs (resource_id, original_path, mime_type, status, created_at, updated_at)
				VALUES ($1, $2, $3, 'queued', $4, $4)
				RETURNING `+previewJobColumns,
				strings.TrimSpace(req.ResourceID), req.OriginalPath, req.MimeType, now)
			if err != nil {
				return fmt.Errorf("insert preview job: %w", err)
			}
			inserted, collectErr := collectPreviewJobFromRows(rows)
			rows.Close()
			if collectErr != nil {
				return fmt.Errorf("insert preview job: %w", collectErr)
			}

			if _, err := tx.Exec(ctx, `
				UPDATE resources
				SET processing_status = 'queued',
				    is_preview_ready = FALSE,
				    updated_at = $2
				WHERE id = $1
			`, inserted.ResourceID, now); err != nil {
				return fmt.Errorf("mark resource queued: %w", err)
			}
			job = inserted
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// Requeue moves a failed job back to queued. It never touches jobs in other states.
func (r *PreviewJobRepo) Requeue(ctx context.Context, req model.RequeueRequest) (*model.PreviewJob, error) {
	current, err := r.GetByID(ctx, req.JobID)
	if err != nil {
		return nil, err
	}
	if current.Status != model.PreviewJobStatusFailed {
		return nil, fmt.Errorf("preview job %s is %s: %w", current.ID, current.Status, ErrJobNotRequeueable)
	}
	if req.MaxAttempts > 0 && current.Attempts >= req.MaxAttempts {
		return nil, fmt.Errorf("preview job %s has %d attempts: %w", current.ID, current.Attempts, ErrMaxAttemptsReached)
	}

	var job *model.PreviewJob
	err = pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			now := r.timeProvider.Now().UTC()
			rows, qErr := tx.Query(ctx, `
				UPDATE preview_jobs
				SET status = 'queued',
				    started_at = NULL,
				    completed_at = NULL,
				    updated_at = $2
				WHERE id = $1 AND status = 'failed'
				RETURNING `+previewJobColumns, current.ID, now)
			if qErr != nil {
				return fmt.Errorf("requeue preview job: %w", qErr)
			}
			updated, collectErr := collectPreviewJobFromRows(rows)
			rows.Close()
			if collectErr != nil {
				if errors.Is(collectErr, pgx.ErrNoRows) {
					return fmt.Errorf("preview job %s: %w", current.ID, ErrJobNotRequeueable)
				}
				return fmt.Errorf("requeue preview job: %w", collectErr)
			}

			if _, execErr := tx.Exec(ctx, `
				UPDATE resources
				SET processing_status = 'queued',
				    is_preview_ready = FALSE,
				    updated_at = $2
				WHERE id = $1
			`, updated.ResourceID, now); execErr != nil {
				return fmt.Errorf("mark resource queued: %w", execErr)
			}
			job = updated
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// GetByID returns a single preview job.
func (r *PreviewJobRepo) GetByID(ctx context.Context, id string) (*model.PreviewJob, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+previewJobColumns+` FROM preview_jobs WHERE id = $1`, id)
	job, err := scanPreviewJobFromRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrJobNotFound
		}
		return nil, fmt.Errorf("get preview job: %w", err)
	}
	return job, nil
}

// Stats counts jobs per status.
func (r *PreviewJobRepo) Stats(ctx context.Context) (*model.PreviewJobStats, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status, COUNT(*) FROM preview_jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("preview job stats: %w", err)
	}
	defer rows.Close()

	stats := &model.PreviewJobStats{}
	for rows.Next() {
		var status model.PreviewJobStatus
		var count int
		if scanErr := rows.Scan(&status, &count); scanErr != nil {
			return nil, fmt.Errorf("scan preview job stats: %w", scanErr)
		}
		switch status {
		case model.PreviewJobStatusQueued:
			stats.Queued = count
		case model.PreviewJobStatusProcessing:
			stats.Processing = count
		case model.PreviewJobStatusDone:
			stats.Done = count
		case model.PreviewJobStatusFailed:
			stats.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate preview job stats: %w", err)
	}
	return stats, nil
}

// TruncateErrorMessage caps a failure message at 1 KiB without splitting a UTF-8 sequence.
func TruncateErrorMessage(msg string) string {
	if len(msg) <= maxErrorMessageBytes {
		return msg
	}
	cut := maxErrorMessageBytes
	for cut > 0 && !isRuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
