package document

import "errors"

var (
	// ErrInvalidPath is returned for empty paths or paths with empty segments.
	ErrInvalidPath = errors.New("invalid config path")
	// ErrNotSection is returned when a path resolves to a value that is not a mapping.
	ErrNotSection = errors.New("value is not a section")
)
