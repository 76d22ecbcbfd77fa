package document

import (
	"fmt"
	"strings"
)

// Separator splits path segments.
const Separator = "."

// LegacyCommentMarker is the suffix older versions appended to a key to store
// its comment as a sibling entry.
const LegacyCommentMarker = "_COMMENT_"

func splitPath(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	parts := strings.Split(path, Separator)
	for _, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return parts, nil
}

// ValidatePath reports an error wrapping ErrInvalidPath when path is empty or
// has an empty segment.
func ValidatePath(path string) error {
	_, err := splitPath(path)
	return err
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + Separator + key
}

// IsLegacyCommentKey reports whether key is a synthetic comment entry.
func IsLegacyCommentKey(key string) bool {
	return strings.Contains(key, LegacyCommentMarker)
}
