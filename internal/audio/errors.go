package audio

import (
	"errors"
	"fmt"
)

// Sentinel results for the lifecycle operations.
var (
	// ErrInvalidArgument flags a nil session or a missing required handle
	// or callback.
	ErrInvalidArgument = errors.New("audio: invalid argument")

	// ErrInvalidState flags an operation requested in an incompatible
	// lifecycle state, such as Stop before any Start.
	ErrInvalidState = errors.New("audio: invalid state")
)

// Activation stages, used to tell apart where device bring-up failed.
const (
	StageRequest    = "request"
	StageActivate   = "activate"
	StageInitialize = "initialize"
	StageBindEvent  = "bind-event"
)

// ActivationError reports a failed device activation. It is returned from
// session construction only; a session whose activation failed is never
// created. Code carries the backend's native status code, zero when the
// backend has none.
type ActivationError struct {
	Backend string
	Stage   string
	Code    int
	Err     error
}

func (e *ActivationError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("audio: %s activation failed at %s (code %d): %v", e.Backend, e.Stage, e.Code, e.Err)
	}
	return fmt.Sprintf("audio: %s activation failed at %s: %v", e.Backend, e.Stage, e.Err)
}

func (e *ActivationError) Unwrap() error { return e.Err }
