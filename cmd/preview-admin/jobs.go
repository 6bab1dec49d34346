package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/coachmart/preview-worker/internal/domain/model"
	apperrors "github.com/coachmart/preview-worker/internal/errors"
	"github.com/coachmart/preview-worker/internal/service"
)

type enqueueOptions struct {
	ResourceID   string
	OriginalPath string
	MimeType     string
	JSON         bool
}

func parseEnqueueFlags(args []string) (enqueueOptions, error) {
	fs := newFlagSet("enqueue")
	var opts enqueueOptions
	fs.StringVar(&opts.ResourceID, "resource-id", "", "Resource UUID (required)")
	fs.StringVar(&opts.OriginalPath, "original-path", "", "Object key of the original in the originals bucket (required)")
	fs.StringVar(&opts.MimeType, "mime-type", "", "MIME type of the original (required)")
	fs.BoolVar(&opts.JSON, "json", false, "Print the job as JSON")
	if err := fs.Parse(args); err != nil {
		return enqueueOptions{}, usageError(err)
	}
	return opts, nil
}

func runEnqueue(cmdCtx *commandContext, args []string) error {
	opts, err := parseEnqueueFlags(args)
	if err != nil {
		return err
	}

	return withJobs(cmdCtx, func(ctx context.Context, jobs jobAdmin) error {
		job, enqueueErr := jobs.Enqueue(ctx, &model.EnqueuePreviewJobRequest{
			ResourceID:   opts.ResourceID,
			OriginalPath: opts.OriginalPath,
			MimeType:     opts.MimeType,
		})
		if enqueueErr != nil {
			return enqueueErr
		}
		if opts.JSON {
			return printJSON(cmdCtx.Out, job)
		}
		return printJob(cmdCtx.Out, job)
	})
}

type requeueOptions struct {
	JobID string
	Force bool
}

func parseRequeueFlags(args []string) (requeueOptions, error) {
	fs := newFlagSet("requeue")
	var opts requeueOptions
	fs.BoolVar(&opts.Force, "force", false, "Requeue even when the job has used its attempt budget")
	if err := fs.Parse(args); err != nil {
		return requeueOptions{}, usageError(err)
	}
	if fs.NArg() != 1 {
		return requeueOptions{}, apperrors.ValidationField("job_id", "usage: preview-admin requeue [-force] <job-id>")
	}
	opts.JobID = strings.TrimSpace(fs.Arg(0))
	return opts, nil
}

func runRequeue(cmdCtx *commandContext, args []string) error {
	opts, err := parseRequeueFlags(args)
	if err != nil {
		return err
	}

	return withJobs(cmdCtx, func(ctx context.Context, jobs jobAdmin) error {
		job, requeueErr := jobs.Requeue(ctx, opts.JobID, opts.Force)
		if requeueErr != nil {
			return requeueErr
		}
		return writef(cmdCtx.Out, "requeued %s (attempts so far: %d)\n", job.ID, job.Attempts)
	})
}

func runStats(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet("stats")
	asJSON := fs.Bool("json", false, "Print counts as JSON")
	if err := fs.Parse(args); err != nil {
		return usageError(err)
	}

	return withJobs(cmdCtx, func(ctx context.Context, jobs jobAdmin) error {
		stats, statsErr := jobs.Stats(ctx)
		if statsErr != nil {
			return statsErr
		}
		if *asJSON {
			return printJSON(cmdCtx.Out, stats)
		}

		w := tabwriter.NewWriter(cmdCtx.Out, 0, 4, 2, ' ', 0)
		rows := []struct {
			status model.PreviewJobStatus
			count  int
		}{
			{model.PreviewJobStatusQueued, stats.Queued},
			{model.PreviewJobStatusProcessing, stats.Processing},
			{model.PreviewJobStatusDone, stats.Done},
			{model.PreviewJobStatusFailed, stats.Failed},
		}
		if err := writeln(w, "Status\tCount"); err != nil {
			return fmt.Errorf("write stats header: %w", err)
		}
		for _, r := range rows {
			if err := writef(w, "%s\t%d\n", r.status, r.count); err != nil {
				return fmt.Errorf("write stats row: %w", err)
			}
		}
		return w.Flush()
	})
}

func runShow(cmdCtx *commandContext, args []string) error {
	fs := newFlagSet("show")
	asJSON := fs.Bool("json", false, "Print job and resource state as JSON")
	if err := fs.Parse(args); err != nil {
		return usageError(err)
	}
	if fs.NArg() != 1 {
		return apperrors.ValidationField("job_id", "usage: preview-admin show [-json] <job-id>")
	}
	id := strings.TrimSpace(fs.Arg(0))

	return withJobs(cmdCtx, func(ctx context.Context, jobs jobAdmin) error {
		details, showErr := jobs.Show(ctx, id)
		if showErr != nil {
			return showErr
		}
		if *asJSON {
			return printJSON(cmdCtx.Out, details)
		}
		return printDetails(cmdCtx.Out, details)
	})
}

func withJobs(cmdCtx *commandContext, fn func(context.Context, jobAdmin) error) error {
	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	jobs, release, err := cmdCtx.openJobs(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx, jobs)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func printJob(w io.Writer, job *model.PreviewJob) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	lines := [][2]string{
		{"Job", job.ID},
		{"Resource", job.ResourceID},
		{"Status", string(job.Status)},
		{"MIME type", job.MimeType},
		{"Original", job.OriginalPath},
		{"Attempts", fmt.Sprint(job.Attempts)},
		{"Created", formatTime(&job.CreatedAt)},
		{"Started", formatTime(job.StartedAt)},
		{"Completed", formatTime(job.CompletedAt)},
	}
	if job.LastError != nil {
		lines = append(lines, [2]string{"Last error", *job.LastError})
	}
	for _, l := range lines {
		if err := writef(tw, "%s\t%s\n", l[0], l[1]); err != nil {
			return fmt.Errorf("write job: %w", err)
		}
	}
	return tw.Flush()
}

func printDetails(w io.Writer, d *service.JobDetails) error {
	if err := printJob(w, d.Job); err != nil {
		return err
	}
	if d.Resource == nil {
		return writeln(w, "\nResource state unavailable")
	}

	r := d.Resource
	if err := writeln(w); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	lines := [][2]string{
		{"Processing", string(r.ProcessingStatus)},
		{"Preview ready", fmt.Sprint(r.IsPreviewReady)},
		{"Previews", fmt.Sprint(r.PreviewCount)},
		{"Scanner flags", strings.Join(r.ScannerFlags, ", ")},
	}
	if r.RiskScore != nil {
		lines = append(lines, [2]string{"Risk score", fmt.Sprintf("%.1f", *r.RiskScore)})
	}
	for _, p := range r.PreviewPaths {
		lines = append(lines, [2]string{"Preview path", p})
	}
	if r.LastError != nil {
		lines = append(lines, [2]string{"Resource error", *r.LastError})
	}
	for _, l := range lines {
		if err := writef(tw, "%s\t%s\n", l[0], l[1]); err != nil {
			return fmt.Errorf("write resource state: %w", err)
		}
	}
	return tw.Flush()
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
