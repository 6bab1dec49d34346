package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/coachmart/preview-worker/internal/data/pgxutil"
	"github.com/coachmart/preview-worker/internal/domain/model"
)

// ResourceRepo updates the preview columns of the resources table.
// Array columns go through the pgx connection so text[] maps onto []string.
type ResourceRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewResourceRepo creates a ResourceRepo.
func NewResourceRepo(db *sql.DB, tp TimeProvider) *ResourceRepo {
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &ResourceRepo{DB: db, timeProvider: tp}
}

// MarkReady publishes preview paths and flips the resource to ready.
// The first path becomes the primary preview.
func (r *ResourceRepo) MarkReady(ctx context.Context, params model.MarkReadyParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	now := r.timeProvider.Now().UTC()
	return pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, err := conn.Exec(ctx, `
			UPDATE resources
			SET processing_status = 'ready',
			    is_preview_ready = TRUE,
			    preview_path = $2,
			    preview_paths = $3,
			    preview_count = $4,
			    last_error = NULL,
			    updated_at = $5
			WHERE id = $1
		`, params.ResourceID, params.PreviewPaths[0], params.PreviewPaths, len(params.PreviewPaths), now)
		if err != nil {
			return fmt.Errorf("mark resource ready: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("resource %s: %w", params.ResourceID, model.ErrResourceNotFound)
		}
		return nil
	})
}

// MarkFailed records a failure message on the resource. Previously published
// paths are left in place but the resource is no longer advertised as ready.
func (r *ResourceRepo) MarkFailed(ctx context.Context, resourceID, message string) error {
	now := r.timeProvider.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE resources
		SET processing_status = 'failed',
		    is_preview_ready = FALSE,
		    last_error = $2,
		    updated_at = $3
		WHERE id = $1
	`, resourceID, TruncateErrorMessage(message), now)
	if err != nil {
		return fmt.Errorf("mark resource failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("resource %s: %w", resourceID, model.ErrResourceNotFound)
	}
	return nil
}

// RecordScan stores the scanner verdict on the resource and upserts its moderation record.
func (r *ResourceRepo) RecordScan(ctx context.Context, params model.RecordScanParams) error {
	flags := params.Result.Flags
	if flags == nil {
		flags = []string{}
	}
	now := r.timeProvider.Now().UTC()

	return pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			tag, err := tx.Exec(ctx, `
				UPDATE resources
				SET risk_score = $2,
				    scanner_flags = $3,
				    updated_at = $4
				WHERE id = $1
			`, params.ResourceID, params.Result.RiskScore, flags, now)
			if err != nil {
				return fmt.Errorf("record scan on resource: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("resource %s: %w", params.ResourceID, model.ErrResourceNotFound)
			}

			var jobID any
			if params.JobID != "" {
				jobID = params.JobID
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO moderation_records (resource_id, job_id, risk_score, flags, scanned_at)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (resource_id) DO UPDATE
				SET job_id = EXCLUDED.job_id,
				    risk_score = EXCLUDED.risk_score,
				    flags = EXCLUDED.flags,
				    scanned_at = EXCLUDED.scanned_at
			`, params.ResourceID, jobID, params.Result.RiskScore, flags, now); err != nil {
				return fmt.Errorf("upsert moderation record: %w", err)
			}
			return nil
		},
	})
}

// GetPreviewState loads the pipeline-owned columns of a resource.
func (r *ResourceRepo) GetPreviewState(ctx context.Context, resourceID string) (*model.ResourcePreviewState, error) {
	state := &model.ResourcePreviewState{}
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var status string
		scanErr := conn.QueryRow(ctx, `
			SELECT id, processing_status, is_preview_ready, preview_path, preview_paths,
			       preview_count, last_error, scanner_flags, risk_score
			FROM resources WHERE id = $1
		`, resourceID).Scan(
			&state.ID,
			&status,
			&state.IsPreviewReady,
			&state.PreviewPath,
			&state.PreviewPaths,
			&state.PreviewCount,
			&state.LastError,
			&state.ScannerFlags,
			&state.RiskScore,
		)
		if scanErr != nil {
			return scanErr
		}
		state.ProcessingStatus = model.ProcessingStatus(status)
		return nil
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrResourceNotFound
		}
		return nil, fmt.Errorf("get resource preview state: %w", err)
	}
	return state, nil
}
