// Package mocks provides gomock implementations of the preview pipeline ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	jobs := mocks.NewMockPreviewJobRepository(ctrl)
//	jobs.EXPECT().ClaimNext(gomock.Any()).Return(job, nil)
package mocks

// PreviewJobRepository: ClaimNext, Complete, Fail, Enqueue, Requeue, GetByID, Stats
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=preview_job_repository_mock.go github.com/coachmart/preview-worker/internal/core PreviewJobRepository

// ResourceRepository: MarkReady, MarkFailed, RecordScan, GetPreviewState
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=resource_repository_mock.go github.com/coachmart/preview-worker/internal/core ResourceRepository

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=object_storage_mock.go github.com/coachmart/preview-worker/internal/core ObjectStorage
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=content_scanner_mock.go github.com/coachmart/preview-worker/internal/core ContentScanner
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=scan_cache_mock.go github.com/coachmart/preview-worker/internal/core ScanCache

// ReaperRepository: FailStaleProcessingJobs, DeleteOldJobs
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=reaper_repository_mock.go github.com/coachmart/preview-worker/internal/core ReaperRepository
