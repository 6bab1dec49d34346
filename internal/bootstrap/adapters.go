package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/coachmart/preview-worker/config"
	"github.com/coachmart/preview-worker/internal/adapters/objectstore"
	"github.com/coachmart/preview-worker/internal/adapters/reaper"
	"github.com/coachmart/preview-worker/internal/adapters/scanner"
	"github.com/coachmart/preview-worker/internal/adapters/transcode"
	"github.com/coachmart/preview-worker/internal/core"
	"github.com/coachmart/preview-worker/internal/data"
	"github.com/coachmart/preview-worker/internal/observability/statsd"
	"github.com/coachmart/preview-worker/internal/service/preview"
)

// WorkerConfig contains the dependencies of the preview worker.
type WorkerConfig struct {
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
	Config      *config.AppConfig
	Metrics     statsd.Sink
	Notifier    preview.FailureNotifier
}

// RunWorker builds the preview pipeline and runs its poller until ctx is cancelled.
func RunWorker(ctx context.Context, cfg WorkerConfig) error {
	if cfg.Config == nil {
		return errors.New("worker config missing AppConfig")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store, err := objectstore.NewMinioStore(objectstore.Config{
		Endpoint:  cfg.Config.Storage.Endpoint,
		AccessKey: cfg.Config.Storage.AccessKey,
		SecretKey: cfg.Config.Storage.SecretKey,
		Region:    cfg.Config.Storage.Region,
		UseSSL:    cfg.Config.Storage.UseSSL,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("create object store: %w", err)
	}
	if err := store.EnsureBuckets(ctx, cfg.Config.Storage.OriginalsBucket, cfg.Config.Storage.PreviewsBucket); err != nil {
		return fmt.Errorf("ensure buckets: %w", err)
	}

	var cache core.ScanCache
	if cfg.RedisClient != nil {
		cache = data.NewScanCacheRepo(cfg.RedisClient)
	}

	poller, err := BuildPoller(PipelineDeps{
		Jobs:      data.NewPreviewJobRepo(cfg.DB, data.RepoConfig{Logger: logger}),
		Resources: data.NewResourceRepo(cfg.DB, nil),
		Storage:   store,
		ScanCache: cache,
		Config:    cfg.Config,
		Logger:    logger,
		Metrics:   cfg.Metrics,
		Notifier:  cfg.Notifier,
	})
	if err != nil {
		return fmt.Errorf("create preview poller: %w", err)
	}

	return poller.Run(ctx)
}

// PipelineDeps groups the ports and configuration a poller is assembled from.
type PipelineDeps struct {
	Jobs      core.PreviewJobRepository
	Resources core.ResourceRepository
	Storage   core.ObjectStorage
	// ScanCache is optional; nil disables verdict caching.
	ScanCache core.ScanCache
	Config    *config.AppConfig
	Logger    *slog.Logger
	Metrics   statsd.Sink
	Notifier  preview.FailureNotifier
	// Runner overrides the subprocess runner, mainly for tests.
	Runner transcode.Runner
	Clock  preview.Clock
}

// BuildPoller assembles the scanner, processor and publisher behind a poller.
func BuildPoller(deps PipelineDeps) (*preview.Poller, error) {
	if deps.Config == nil {
		return nil, errors.New("pipeline config is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	runner := deps.Runner
	if runner == nil {
		runner = transcode.NewExecRunner(transcode.ExecRunnerOptions{
			DefaultTimeout:  cfg.Processing.CommandTimeout,
			StderrTailBytes: cfg.Processing.StderrTailBytes,
			Logger:          logger,
		})
	}

	contentScanner, err := buildScanner(cfg.Scanner, runner, logger)
	if err != nil {
		return nil, err
	}
	contentScanner = scanner.NewCached(contentScanner, deps.ScanCache, cfg.Scanner.CacheTTL, logger)

	watermark, err := preview.NewWatermark(cfg.Watermark.ProductName)
	if err != nil {
		return nil, fmt.Errorf("create watermark: %w", err)
	}

	processor, err := preview.NewProcessor(preview.ProcessorOptions{
		PDF: &transcode.Poppler{
			Runner:  runner,
			Path:    cfg.Processing.PdftoppmPath,
			Timeout: cfg.Processing.CommandTimeout,
		},
		Video: &transcode.FFmpeg{
			Runner:      runner,
			FFmpegPath:  cfg.Processing.FFmpegPath,
			FFprobePath: cfg.Processing.FFprobePath,
			Timeout:     cfg.Processing.CommandTimeout,
		},
		Documents: &transcode.LibreOffice{
			Runner:  runner,
			Path:    cfg.Processing.SofficePath,
			Timeout: cfg.Processing.CommandTimeout,
		},
		Watermark:   watermark,
		Logger:      logger,
		ProductName: cfg.Watermark.ProductName,
	})
	if err != nil {
		return nil, fmt.Errorf("create processor: %w", err)
	}

	publisher, err := preview.NewPublisher(preview.PublisherOptions{
		Storage:   deps.Storage,
		Jobs:      deps.Jobs,
		Resources: deps.Resources,
		Bucket:    cfg.Storage.PreviewsBucket,
		Notifier:  deps.Notifier,
		Logger:    logger,
		Clock:     deps.Clock,
	})
	if err != nil {
		return nil, fmt.Errorf("create publisher: %w", err)
	}

	return preview.NewPoller(preview.PollerOptions{
		Jobs:            deps.Jobs,
		Storage:         deps.Storage,
		Scan:            &preview.ScanStage{Scanner: contentScanner, Resources: deps.Resources},
		Processor:       processor,
		Publisher:       publisher,
		Clock:           deps.Clock,
		Logger:          logger,
		Metrics:         deps.Metrics,
		OriginalsBucket: cfg.Storage.OriginalsBucket,
		WorkDir:         cfg.Processing.WorkDir,
		IdleInterval:    cfg.Worker.IdleInterval,
		ErrorBackoff:    cfg.Worker.ErrorBackoff,
		JobTimeout:      cfg.Worker.JobTimeout,
	})
}

// buildScanner selects the scanner backend named by SCANNER_MODE.
//
//nolint:ireturn // the backend is chosen at runtime.
func buildScanner(cfg config.ScannerConfig, runner transcode.Runner, logger *slog.Logger) (core.ContentScanner, error) {
	extractor := scanner.Extractor{RiskScoreExpr: cfg.RiskScoreExpr, FlagsExpr: cfg.FlagsExpr}

	switch cfg.Mode {
	case config.ScannerModeNoop, "":
		logger.Warn("content scanner disabled; every file scores 0")
		return scanner.Noop{}, nil
	case config.ScannerModeCommand:
		s, err := scanner.NewCommand(scanner.CommandConfig{
			Runner:    runner,
			Path:      cfg.CommandPath,
			Args:      cfg.CommandArgs,
			Timeout:   cfg.Timeout,
			Extractor: extractor,
		})
		if err != nil {
			return nil, fmt.Errorf("create command scanner: %w", err)
		}
		return s, nil
	case config.ScannerModeHTTP:
		httpCfg := scanner.HTTPConfig{
			Endpoint:  cfg.Endpoint,
			Timeout:   cfg.Timeout,
			Extractor: extractor,
		}
		if cfg.OAuthEnabled() {
			httpCfg.OAuth = &scanner.OAuthConfig{
				TokenURL:     cfg.OAuthTokenURL,
				ClientID:     cfg.OAuthClientID,
				ClientSecret: cfg.OAuthClientSecret,
				Scopes:       cfg.OAuthScopes,
			}
		}
		s, err := scanner.NewHTTP(httpCfg)
		if err != nil {
			return nil, fmt.Errorf("create http scanner: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported scanner mode %q", cfg.Mode)
	}
}

// ReaperConfig contains configuration for reaper.
type ReaperConfig struct {
	DB      *sql.DB
	Logger  *slog.Logger
	Config  config.ReaperConfig
	Metrics statsd.Sink
}

// RunReaper starts the reaper service.
func RunReaper(ctx context.Context, cfg ReaperConfig) error {
	runner, err := reaper.NewRunner(reaper.RunnerOptions{
		DB:      cfg.DB,
		Config:  cfg.Config,
		Logger:  cfg.Logger,
		Metrics: cfg.Metrics,
	})
	if err != nil {
		return fmt.Errorf("create reaper runner: %w", err)
	}

	return runner.Run(ctx)
}
