package data

import (
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/coachmart/preview-worker/internal/domain/model"
)

// collectPreviewJobFromRows collects a single job from pgx rows.
func collectPreviewJobFromRows(rows pgx.Rows) (*model.PreviewJob, error) {
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}

	job, err := scanPreviewJobFromRow(rows)
	if err != nil {
		return nil, err
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, rowsErr
	}

	return job, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

type previewJobRowData struct {
	lastError              sql.NullString
	startedAt, completedAt sql.NullTime
}

func (d *previewJobRowData) scanInto(scanner rowScanner, job *model.PreviewJob) error {
	return scanner.Scan(
		&job.ID,
		&job.ResourceID,
		&job.OriginalPath,
		&job.MimeType,
		&job.Attempts,
		&job.Status,
		&d.lastError,
		&d.startedAt,
		&d.completedAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
}

func (d *previewJobRowData) apply(job *model.PreviewJob) {
	job.LastError = cloneNullableString(d.lastError)
	job.StartedAt = cloneNullableTime(d.startedAt)
	job.CompletedAt = cloneNullableTime(d.completedAt)
	job.CreatedAt = job.CreatedAt.UTC()
	job.UpdatedAt = job.UpdatedAt.UTC()
}

func scanPreviewJobFromRow(scanner rowScanner) (*model.PreviewJob, error) {
	job := &model.PreviewJob{}
	var data previewJobRowData
	if err := data.scanInto(scanner, job); err != nil {
		return nil, err
	}

	data.apply(job)
	return job, nil
}

func cloneNullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func cloneNullableTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
