package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/coachmart/preview-worker/config"
	"github.com/coachmart/preview-worker/internal/data"
	"github.com/coachmart/preview-worker/internal/observability/notify/slack"
	"github.com/coachmart/preview-worker/internal/observability/statsd"
	"github.com/coachmart/preview-worker/internal/service"
	"github.com/coachmart/preview-worker/internal/service/failurenotifier"
)

// ServiceContainer holds the services shared by the worker and the admin CLI.
type ServiceContainer struct {
	Jobs          *service.PreviewJobService
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink     *statsd.Client
	MetricsConfig   config.ObservabilityMetricsConfig
	FailureNotifier *failurenotifier.Service
	NotifierConfig  config.ObservabilityNotificationsConfig
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// NewServices wires observability adapters and the operator-facing job service.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil {
		return ServiceContainer{}, errors.New("service deps are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := deps.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	observability := buildObservability(logger, appCfg.Observability, appCfg.Worker.MaxAttempts)

	jobs, err := service.NewPreviewJobService(service.PreviewJobServiceOptions{
		Jobs:        data.NewPreviewJobRepo(deps.DB, data.RepoConfig{Logger: logger}),
		Resources:   data.NewResourceRepo(deps.DB, nil),
		MaxAttempts: appCfg.Worker.MaxAttempts,
		Logger:      logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create preview job service: %w", err)
	}

	return ServiceContainer{
		Jobs:          jobs,
		Observability: observability,
	}, nil
}

// buildObservability configures metrics and notification adapters.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig, maxAttempts int) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var metricsSink *statsd.Client
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  cfg.Metrics.Prefix,
			Logger:  obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsSink = client
		}
	}

	return ObservabilityContainer{
		MetricsSink:     metricsSink,
		MetricsConfig:   cfg.Metrics,
		FailureNotifier: buildFailureNotifier(obsLogger, cfg.Notifications, maxAttempts),
		NotifierConfig:  cfg.Notifications,
	}
}

func buildFailureNotifier(
	logger *slog.Logger,
	cfg config.ObservabilityNotificationsConfig,
	maxAttempts int,
) *failurenotifier.Service {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = slog.Default()
	}

	if !cfg.Enabled {
		return failurenotifier.NewService(failurenotifier.Options{Logger: baseLogger})
	}

	sinks := make([]failurenotifier.SinkRegistration, 0, 1)
	if cfg.Slack.Enabled {
		client, err := slack.NewClient(slack.Config{
			WebhookURL:        cfg.Slack.WebhookURL,
			Channel:           cfg.Slack.Channel,
			Username:          cfg.Slack.Username,
			Timeout:           cfg.Timeout,
			RetryLimit:        cfg.RetryLimit,
			ResourceURLPrefix: cfg.Slack.ResourceURLPrefix,
		})
		if err != nil {
			baseLogger.Error("failed to initialise slack notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{
				Name: "slack",
				Sink: client,
			})
		}
	}

	return failurenotifier.NewService(failurenotifier.Options{
		Logger:      baseLogger,
		Sinks:       sinks,
		MaxAttempts: maxAttempts,
		Timeout:     cfg.Timeout,
	})
}

// ServiceOrchestrationConfig groups everything RunServicesWithShutdown needs.
type ServiceOrchestrationConfig struct {
	Config      *config.AppConfig
	Services    ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// backgroundService describes a startable background component.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

func buildBackgroundServices(cfg *ServiceOrchestrationConfig, logger *slog.Logger) []backgroundService {
	obs := cfg.Services.Observability
	return []backgroundService{
		{
			mode: config.ServiceModeWorker,
			name: "preview worker",
			start: func(ctx context.Context) error {
				return RunWorker(ctx, WorkerConfig{
					DB:          cfg.DB,
					RedisClient: cfg.RedisClient,
					Logger:      logger,
					Config:      cfg.Config,
					Metrics:     obs.MetricsSink,
					Notifier:    obs.FailureNotifier,
				})
			},
		},
		{
			mode: config.ServiceModeReaper,
			name: "reaper",
			start: func(ctx context.Context) error {
				return RunReaper(ctx, ReaperConfig{
					DB:      cfg.DB,
					Logger:  logger,
					Config:  cfg.Config.Reaper,
					Metrics: obs.MetricsSink,
				})
			},
		},
	}
}

// RunServicesWithShutdown starts all enabled services and blocks until SIGINT or
// SIGTERM arrives or one of them fails. The first failure cancels the rest.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return RunServices(ctx, cfg)
}

// RunServices runs every enabled background service until ctx is cancelled.
func RunServices(ctx context.Context, cfg *ServiceOrchestrationConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabledServices, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	started := 0
	for _, svc := range buildBackgroundServices(cfg, logger) {
		if !enabledServices[svc.mode] {
			continue
		}
		started++
		svc := svc
		g.Go(func() error {
			logger.InfoContext(gctx, "background service started", "service", svc.name, "mode", svc.mode)
			if runErr := svc.start(gctx); runErr != nil {
				return fmt.Errorf("%s failed: %w", svc.name, runErr)
			}
			logger.InfoContext(gctx, svc.name+" stopped")
			return nil
		})
	}
	if started == 0 {
		return errors.New("no services enabled")
	}

	if err := g.Wait(); err != nil {
		logger.Error("service error", "error", err)
		return err
	}
	logger.Info("all services stopped")
	return nil
}
