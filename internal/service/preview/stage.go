package preview

import "fmt"

// Pipeline stages, used in failure records and metric tags.
const (
	StageDownload = "download"
	StageScan     = "scan"
	StageProcess  = "process"
	StagePublish  = "publish"
)

// StageError attributes a job failure to the stage that produced it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}
