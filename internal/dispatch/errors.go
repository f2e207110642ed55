package dispatch

import (
	"errors"
	"fmt"
)

// Sentinel causes wrapped by DispatchError.
var (
	ErrClosed    = errors.New("dispatcher is closed")
	ErrNilAction = errors.New("action is nil")
)

// DispatchError reports a rejected action.
type DispatchError struct {
	// DispatcherID identifies the dispatcher that rejected the action.
	DispatcherID string

	// ActionType is the type of the rejected action, if known.
	ActionType string

	// Err is ErrClosed or ErrNilAction.
	Err error
}

func (e *DispatchError) Error() string {
	if e.ActionType != "" {
		return fmt.Sprintf("dispatch %s (dispatcher=%s): %v", e.ActionType, e.DispatcherID, e.Err)
	}
	return fmt.Sprintf("dispatch (dispatcher=%s): %v", e.DispatcherID, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// IsClosedError reports whether err was caused by dispatching to a closed
// dispatcher. Uses errors.Is to handle wrapped errors.
func IsClosedError(err error) bool {
	return errors.Is(err, ErrClosed)
}
