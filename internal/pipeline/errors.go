package pipeline

import (
	"context"
	"errors"
	"fmt"

	"video-analyzer/internal/domain"
)

type Stage string

const (
	StageMetadata   Stage = "metadata"
	StageAcquire    Stage = "acquire"
	StageAudio      Stage = "audio"
	StageTranscribe Stage = "transcribe"
	StageFrames     Stage = "frames"
	StageOCR        Stage = "ocr"
	StageDescribe   Stage = "describe"
	StageSummarize  Stage = "summarize"
)

// errDegraded marks a best-effort stage that finished with partial or
// placeholder output. It never reaches the job.
var errDegraded = errors.New("stage degraded")

// StageError tags a failure with the stage that produced it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// wrapStage returns nil for nil errors and maps deadline expiry to ErrStageTimeout.
func wrapStage(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrStageTimeout) {
		err = fmt.Errorf("%w: %v", domain.ErrStageTimeout, err)
	}
	return &StageError{Stage: stage, Err: err}
}

// isPermanent reports whether a download error should stop the retry loop.
func isPermanent(err error) bool {
	if errors.Is(err, domain.ErrCorruptMedia) || errors.Is(err, domain.ErrNoPlayableMedia) {
		return true
	}
	var p interface{ Permanent() bool }
	if errors.As(err, &p) {
		return p.Permanent()
	}
	return false
}
