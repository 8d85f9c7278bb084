// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrFileAccess matches every error caused by reading the input or
	// writing the output.
	ErrFileAccess = errors.New("file access error")

	// ErrParse matches every error caused by a line that is not a bar.
	ErrParse = errors.New("parse error")
)

// FileAccessError reports an input that cannot be read or an output that
// cannot be written. Path is the file the operation was on.
type FileAccessError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() []error {
	return []error{ErrFileAccess, e.Err}
}

// ParseError reports a line whose date or time does not match
// MM/DD/YYYY,HH:MM. Line is 1-based; Content is the raw line without its
// terminator.
type ParseError struct {
	Line    int
	Content string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Content)
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}

// ErrorKind classifies err for the conversion history.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, ErrFileAccess):
		return "file_access"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.Is(err, ErrInvalidConfig):
		return "config"
	default:
		return "other"
	}
}
