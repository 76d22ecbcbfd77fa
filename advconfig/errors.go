package advconfig

import (
	"errors"
	"fmt"
)

var (
	// ErrTypeMismatch is returned when a loaded value cannot be assigned to its binding.
	ErrTypeMismatch = errors.New("value type does not match field type")
	// ErrWatcherClosed is returned when a closed watcher is used.
	ErrWatcherClosed = errors.New("config watcher already closed")
)

// FieldError reports the binding that aborted a load pass.
type FieldError struct {
	Group string
	Path  string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("config field %q in group %q: %v", e.Path, e.Group, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
