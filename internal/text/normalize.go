// Package text prepares raw user input for analysis.
package text

import (
	"errors"
	"strings"
)

// ErrEmptyText is returned when the input text is empty or whitespace-only.
var ErrEmptyText = errors.New("text is empty")

// Normalize trims surrounding whitespace (including the ideographic space),
// drops a leading byte-order mark, normalizes line endings to \n, and
// rejects empty input. Offsets produced by analysis refer to the returned
// string.
func Normalize(s string) (string, error) {
	s = strings.TrimPrefix(s, "\uFEFF")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	s = strings.TrimSpace(s)

	if s == "" {
		return "", ErrEmptyText
	}

	return s, nil
}
