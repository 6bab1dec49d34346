package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/coachmart/preview-worker/config"
	"github.com/coachmart/preview-worker/internal/bootstrap"
	"github.com/coachmart/preview-worker/internal/data"
	"github.com/coachmart/preview-worker/internal/domain/model"
	apperrors "github.com/coachmart/preview-worker/internal/errors"
	"github.com/coachmart/preview-worker/internal/service"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

// jobAdmin is the subset of service.PreviewJobService the CLI drives.
type jobAdmin interface {
	Enqueue(ctx context.Context, req *model.EnqueuePreviewJobRequest) (*model.PreviewJob, error)
	Requeue(ctx context.Context, id string, force bool) (*model.PreviewJob, error)
	Stats(ctx context.Context) (*model.PreviewJobStats, error)
	Show(ctx context.Context, id string) (*service.JobDetails, error)
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
	Out    io.Writer
	// openJobs connects to the database and returns the job service plus a release func.
	openJobs func(ctx context.Context) (jobAdmin, func(), error)
}

const (
	defaultMigrationTimeout = 5 * time.Minute
	defaultCommandTimeout   = 30 * time.Second
)

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		if err := printUsage(os.Stdout); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(os.Stderr); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}
	logger = bootstrap.InitLoggerWithLevel(cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmdCtx := &commandContext{
		Ctx:      ctx,
		Logger:   logger,
		Config:   cfg,
		Out:      os.Stdout,
		openJobs: openJobService(cfg, logger),
	}
	runErr := cmd.run(cmdCtx, os.Args[2:])
	stop()
	if runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(apperrors.ExitCode(runErr)) //nolint:forbidigo // CLI maps error classes onto exit codes for scripts
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Run database migrations",
			run:         runMigrations,
		},
		"enqueue": {
			name:        "enqueue",
			description: "Queue a preview job for a resource",
			run:         runEnqueue,
		},
		"requeue": {
			name:        "requeue",
			description: "Return a failed job to the queue (bounded by WORKER_MAX_ATTEMPTS unless -force)",
			run:         runRequeue,
		},
		"stats": {
			name:        "stats",
			description: "Count preview jobs per status",
			run:         runStats,
		},
		"show": {
			name:        "show",
			description: "Show a preview job and its resource preview state",
			run:         runShow,
		},
	}
}

func printUsage(w io.Writer) error {
	if err := writef(w, "Usage: preview-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(w, "Available commands:\n"); err != nil {
		return err
	}
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writef(w, "  %-10s %s\n", name, cmds[name].description); err != nil {
			return err
		}
	}
	return nil
}

func openJobService(cfg config.AppConfig, logger *slog.Logger) func(context.Context) (jobAdmin, func(), error) {
	return func(_ context.Context) (jobAdmin, func(), error) {
		db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{
			DBConfig: cfg.Postgres,
			Logger:   logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect db: %w", err)
		}
		release := func() {
			if closeErr := db.Close(); closeErr != nil {
				logger.Warn("db close failed", "error", closeErr)
			}
		}

		svc, err := service.NewPreviewJobService(service.PreviewJobServiceOptions{
			Jobs:        data.NewPreviewJobRepo(db, data.RepoConfig{Logger: logger}),
			Resources:   data.NewResourceRepo(db, nil),
			MaxAttempts: cfg.Worker.MaxAttempts,
			Logger:      logger,
		})
		if err != nil {
			release()
			return nil, nil, err
		}
		return svc, release, nil
	}
}

type migrateOptions struct {
	Timeout time.Duration
}

func parseMigrateFlags(args []string) (migrateOptions, error) {
	fs := newFlagSet("migrate")

	opts := migrateOptions{}
	fs.DurationVar(
		&opts.Timeout,
		"timeout",
		defaultMigrationTimeout,
		"Maximum duration to wait for migrations to complete",
	)

	if err := fs.Parse(args); err != nil {
		return migrateOptions{}, usageError(err)
	}

	if opts.Timeout <= 0 {
		return migrateOptions{}, apperrors.ValidationField("timeout", "-timeout must be greater than zero")
	}

	return opts, nil
}

func runMigrations(cmdCtx *commandContext, args []string) error {
	opts, err := parseMigrateFlags(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, opts.Timeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig: cmdCtx.Config.Postgres,
		Logger:   cmdCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", closeErr)
		}
	}()

	cmdCtx.Logger.Info("running database migrations")

	if migrateErr := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); migrateErr != nil {
		return fmt.Errorf("run migrations: %w", migrateErr)
	}

	cmdCtx.Logger.Info("migrations completed successfully")
	return nil
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

// usageError turns a flag parse failure into a validation error so the CLI exits 2.
func usageError(err error) error {
	if errors.Is(err, flag.ErrHelp) {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, "help requested")
	}
	return apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid flags")
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	_, err := fmt.Fprintln(w, args...)
	return err
}
