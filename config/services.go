package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeWorker runs the preview job queue poller.
	ServiceModeWorker ServiceMode = "worker"
	// ServiceModeReaper runs the preview job reaper for cleanup.
	ServiceModeReaper ServiceMode = "reaper"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeWorker,
		ServiceModeReaper,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	parts := strings.Split(servicesStr, ",")
	for _, part := range parts {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeWorker, ServiceModeReaper:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: worker, reaper)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// WorkerConfig contains preview worker (poller) configuration.
type WorkerConfig struct {
	// IdleInterval is how long the poller sleeps when no queued job exists.
	IdleInterval time.Duration `env:"IDLE_INTERVAL" envDefault:"2s"`

	// ErrorBackoff is how long the poller sleeps after a claim or dependency error.
	ErrorBackoff time.Duration `env:"ERROR_BACKOFF" envDefault:"5s"`

	// JobTimeout bounds the wall-clock time of one job (download, scan, transcode, publish).
	JobTimeout time.Duration `env:"JOB_TIMEOUT" envDefault:"15m"`

	// MaxAttempts caps manual requeues issued through preview-admin unless forced.
	MaxAttempts int `env:"MAX_ATTEMPTS" envDefault:"3"`
}

// Sanitize applies guardrails to worker configuration values.
func (w *WorkerConfig) Sanitize() {
	if w.IdleInterval < 100*time.Millisecond {
		w.IdleInterval = 100 * time.Millisecond
	}
	if w.ErrorBackoff < w.IdleInterval {
		w.ErrorBackoff = w.IdleInterval
	}
	if w.JobTimeout < 30*time.Second {
		w.JobTimeout = 30 * time.Second
	}
	if w.MaxAttempts < 1 {
		w.MaxAttempts = 1
	}
}

// ReaperConfig contains job reaper service configuration.
type ReaperConfig struct {
	// Interval is the reaper tick interval.
	Interval time.Duration `env:"REAPER_INTERVAL" envDefault:"5m"`

	// ProcessingMaxAge is the maximum time a job may stay in processing before it is failed.
	// It must exceed WORKER_JOB_TIMEOUT or live jobs could be reaped.
	ProcessingMaxAge time.Duration `env:"REAPER_PROCESSING_MAX_AGE" envDefault:"1h"`

	// DoneMaxAge is the maximum age for done jobs before deletion.
	DoneMaxAge time.Duration `env:"REAPER_DONE_MAX_AGE" envDefault:"168h"` // 7 days

	// FailedMaxAge is the maximum age for failed jobs before deletion.
	FailedMaxAge time.Duration `env:"REAPER_FAILED_MAX_AGE" envDefault:"720h"` // 30 days

	// BatchSize is the maximum number of rows to process per operation.
	// Batching prevents long locks and I/O spikes on large tables.
	BatchSize int `env:"REAPER_BATCH_SIZE" envDefault:"1000"`
}

// Sanitize applies guardrails to reaper configuration values.
func (r *ReaperConfig) Sanitize() {
	// Enforce minimum intervals to prevent excessive database load
	if r.Interval < 1*time.Minute {
		r.Interval = 1 * time.Minute
	}
	if r.ProcessingMaxAge < 5*time.Minute {
		r.ProcessingMaxAge = 5 * time.Minute
	}
	if r.DoneMaxAge < 1*time.Hour {
		r.DoneMaxAge = 1 * time.Hour
	}
	if r.FailedMaxAge < 1*time.Hour {
		r.FailedMaxAge = 1 * time.Hour
	}

	if r.BatchSize < 1 {
		r.BatchSize = 1
	}
	if r.BatchSize > 10000 {
		r.BatchSize = 10000
	}
}
