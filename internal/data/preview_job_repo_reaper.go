package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/coachmart/preview-worker/internal/core"
	"github.com/coachmart/preview-worker/internal/data/pgxutil"
)

// Advisory lock namespace for reaper operations.
// Using two-arg pg_try_advisory_xact_lock(major, minor) for proper namespacing.
const (
	advisoryLockReaperMajor          = 2000
	advisoryLockReaperFailProcessing = 1
	advisoryLockReaperDelete         = 2
)

const staleProcessingMessage = "preview job exceeded processing time limit; worker likely crashed"

// FailStaleProcessingJobs marks jobs stuck in processing longer than maxAge as failed
// and moves their resources to failed. Jobs are never put back on the queue.
// Returns the number of jobs marked as failed.
func (r *PreviewJobRepo) FailStaleProcessingJobs(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	if batchSize <= 0 {
		return 0, errors.New("batch size must be greater than zero")
	}

	var rowsAffected int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			locked, err := tryReaperLock(ctx, tx, advisoryLockReaperFailProcessing)
			if err != nil || !locked {
				return err
			}

			currentTime := r.timeProvider.Now().UTC()
			cutoffTime := currentTime.Add(-maxAge)

			res, err := tx.ExecContext(ctx, `
				WITH stale AS (
					UPDATE preview_jobs
					SET status = 'failed',
						last_error = $4,
						completed_at = $1,
						updated_at = $1
					WHERE id IN (
						SELECT id FROM preview_jobs
						WHERE status = 'processing'
						  AND COALESCE(started_at, updated_at) < $2
						ORDER BY COALESCE(started_at, updated_at)
						LIMIT $3
						FOR UPDATE SKIP LOCKED
					)
					RETURNING resource_id
				)
				UPDATE resources
				SET processing_status = 'failed',
					is_preview_ready = FALSE,
					last_error = $4,
					updated_at = $1
				FROM stale
				WHERE resources.id = stale.resource_id
			`, currentTime, cutoffTime, batchSize, staleProcessingMessage)
			if err != nil {
				return fmt.Errorf("fail stale processing jobs: %w", err)
			}

			ra, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			rowsAffected = ra
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return rowsAffected, nil
}

// DeleteOldJobs deletes terminal jobs with the given status older than maxAge.
// Returns the number of jobs deleted.
func (r *PreviewJobRepo) DeleteOldJobs(ctx context.Context, params core.DeleteOldJobsParams) (int64, error) {
	if !params.Status.Terminal() {
		return 0, fmt.Errorf("refusing to delete %q preview jobs", params.Status)
	}
	if params.BatchSize <= 0 {
		return 0, errors.New("batch size must be greater than zero")
	}

	var rowsAffected int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			locked, err := tryReaperLock(ctx, tx, advisoryLockReaperDelete)
			if err != nil || !locked {
				return err
			}

			cutoffTime := r.timeProvider.Now().Add(-params.MaxAge).UTC()

			res, err := tx.ExecContext(ctx, `
				DELETE FROM preview_jobs
				WHERE id IN (
					SELECT id FROM preview_jobs
					WHERE status = $1
					  AND (completed_at < $2 OR (completed_at IS NULL AND updated_at < $2))
					ORDER BY COALESCE(completed_at, updated_at)
					LIMIT $3
				)
			`, params.Status, cutoffTime, params.BatchSize)
			if err != nil {
				return fmt.Errorf("delete old preview jobs: %w", err)
			}

			ra, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			rowsAffected = ra
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return rowsAffected, nil
}

func tryReaperLock(ctx context.Context, tx *sql.Tx, minor int) (bool, error) {
	var locked bool
	if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1, $2)", advisoryLockReaperMajor, minor).Scan(&locked); err != nil {
		return false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	return locked, nil
}
