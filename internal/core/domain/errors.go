package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrMissingCredentials = errors.New("missing AWS credentials or account ID in environment variables")
	ErrDaemonUnavailable  = errors.New("docker daemon not running")
	ErrCloneFailed        = errors.New("git clone failed")
	ErrCloneTimeout       = errors.New("clone operation timed out")
	ErrVersionConflict    = errors.New("record was modified concurrently")
	ErrUnparseable        = errors.New("unparseable model output")
)

// Pipeline stage names reported in StageError and persisted in RepoRecord.ErrorIn.
const (
	StageLocate     = "locate"
	StageDaemon     = "daemon"
	StageSynthesize = "synthesize"
	StageRunCommand = "run-command"
	StageValidate   = "validate"
	StageBuild      = "build"
	StageRun        = "run"
	StagePush       = "push"
	StageCompose    = "compose"
	StageS2I        = "s2i"

	StageEnsureRepository = "ensure-repository"
	StageAuthorize        = "authorize"
	StageLogin            = "login"
	StageTag              = "tag"
)

// StageError tags a failure with the pipeline stage that produced it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Stage wraps err with a stage name. A nil err stays nil.
func Stage(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}

// StageOf returns the stage of the outermost StageError in err, if any.
func StageOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
