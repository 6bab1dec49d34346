package preview

import (
	"context"
	"fmt"

	"github.com/coachmart/preview-worker/internal/core"
	"github.com/coachmart/preview-worker/internal/domain/model"
)

// ScanStage runs the content scanner and persists its verdict before processing,
// so scan results survive a later transcoding failure.
type ScanStage struct {
	Scanner   core.ContentScanner
	Resources core.ResourceRepository
}

// Run scans localPath and records the result on the job's resource.
func (s *ScanStage) Run(ctx context.Context, job *model.PreviewJob, localPath string) (model.ScanResult, error) {
	res, err := s.Scanner.Scan(ctx, model.ScanRequest{
		LocalPath:    localPath,
		MimeType:     job.MimeType,
		OriginalPath: job.OriginalPath,
	})
	if err != nil {
		return model.ScanResult{}, fmt.Errorf("run scanner: %w", err)
	}
	if res.Flags == nil {
		res.Flags = []string{}
	}

	if err := s.Resources.RecordScan(ctx, model.RecordScanParams{
		ResourceID: job.ResourceID,
		JobID:      job.ID,
		Result:     res,
	}); err != nil {
		return model.ScanResult{}, fmt.Errorf("record scan: %w", err)
	}
	return res, nil
}
