// Package metrics standardises the metric names and tags the preview pipeline emits.
package metrics

import (
	"time"

	obserrors "github.com/coachmart/preview-worker/internal/observability/errors"
	"github.com/coachmart/preview-worker/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// Transition names for job lifecycle metrics.
const (
	TransitionClaim    = "claim"
	TransitionComplete = "complete"
	TransitionFail     = "fail"
)

// JobMetric captures details about a preview job lifecycle event for metric emission.
type JobMetric struct {
	Kind       string
	Transition string
	Result     string
	Duration   time.Duration
	Err        error
}

// EmitJobLifecycle emits job.transition and, when a duration is known, job.duration.
func EmitJobLifecycle(sink statsd.Sink, in JobMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"transition": in.Transition,
		"result":     in.Result,
	}
	if in.Kind != "" {
		tags["kind"] = in.Kind
	}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("job.transition", 1, tags)

	if in.Duration > 0 {
		sink.Timing("job.duration", in.Duration, CloneTags(tags))
	}
}

// StageMetric describes one pipeline stage (download, scan, process, publish).
type StageMetric struct {
	Stage    string
	Kind     string
	Duration time.Duration
	Err      error
}

// EmitStage emits stage.duration tagged with the stage outcome.
func EmitStage(sink statsd.Sink, in StageMetric) {
	if sink == nil {
		return
	}
	result := ResultSuccess
	if in.Err != nil {
		result = ResultError
	}
	tags := map[string]string{
		"stage":  in.Stage,
		"result": result,
	}
	if in.Kind != "" {
		tags["kind"] = in.Kind
	}
	sink.Timing("stage.duration", in.Duration, tags)
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
