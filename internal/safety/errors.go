package safety

import (
	"errors"
	"fmt"

	"github.com/ragcon/safety-assistant/internal/dataset"
	"github.com/ragcon/safety-assistant/internal/fetch"
)

// ErrorKind classifies a failed generation.
type ErrorKind int

const (
	// KindRemoteFailure means the service answered with a non-2xx status.
	KindRemoteFailure ErrorKind = iota + 1
	// KindRequestFailed covers transport failures and malformed responses.
	KindRequestFailed
	// KindDatasetLoadFailed means the accident dataset could not be read.
	KindDatasetLoadFailed
)

func (k ErrorKind) String() string {
	switch k {
	case KindRemoteFailure:
		return "remote_failure"
	case KindRequestFailed:
		return "request_failed"
	case KindDatasetLoadFailed:
		return "dataset_load_failed"
	default:
		return "unknown"
	}
}

// UserMessage is the generic message shown next to a failed workflow.
const UserMessage = "요청 처리 중 오류가 발생했습니다. 다시 시도해주세요."

// Sentinel errors returned by the orchestrator's synchronous operations.
var (
	ErrBusy           = errors.New("a generation is already running")
	ErrIndexRange     = errors.New("hazard index out of range")
	ErrStillLoading   = errors.New("generation still in progress")
	ErrNotReviewed    = errors.New("risk assessment and accident cases must be reviewed first")
	ErrUnknownReview  = errors.New("unknown review item")
	ErrInvalidRecord  = errors.New("invalid hazard record")
	ErrUnknownSection = errors.New("unknown TBM section")
)

// GenerationError is the failure stored on a workflow.
type GenerationError struct {
	Workflow   Workflow
	Kind       ErrorKind
	StatusCode int // set for KindRemoteFailure
	Message    string
	Cause      error
}

func (e *GenerationError) Error() string {
	if e.Kind == KindRemoteFailure {
		return fmt.Sprintf("%s generation failed: API Error: %d", e.Workflow, e.StatusCode)
	}
	return fmt.Sprintf("%s generation failed: %s", e.Workflow, e.Message)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

func (e *GenerationError) clone() *GenerationError {
	if e == nil {
		return nil
	}
	out := *e
	return &out
}

// classify maps a workflow failure onto the error taxonomy.
func classify(w Workflow, err error) *GenerationError {
	var remote *fetch.RemoteFailure
	var load *dataset.LoadError
	switch {
	case errors.As(err, &remote):
		return &GenerationError{
			Workflow:   w,
			Kind:       KindRemoteFailure,
			StatusCode: remote.StatusCode,
			Message:    remote.Error(),
			Cause:      err,
		}
	case errors.As(err, &load):
		return &GenerationError{
			Workflow: w,
			Kind:     KindDatasetLoadFailed,
			Message:  load.Error(),
			Cause:    err,
		}
	default:
		return &GenerationError{
			Workflow: w,
			Kind:     KindRequestFailed,
			Message:  err.Error(),
			Cause:    err,
		}
	}
}
