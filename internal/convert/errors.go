// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"errors"
	"fmt"

	"github.com/pdiddy/knowledge-importer/pkg/types"
)

var (
	// ErrNoRecords is returned when a tabular source has a header but no data rows.
	ErrNoRecords = errors.New("no records found")

	// ErrUnsupportedFormat is matched by errors.Is for every UnsupportedFormatError.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrTooDeep is returned when nested input exceeds the configured depth.
	ErrTooDeep = errors.New("nesting too deep")

	// ErrTooLarge is returned when alias expansion grows a document far
	// beyond its parsed size.
	ErrTooLarge = errors.New("document expands too large")
)

// FormatError reports malformed or empty source content. It is fatal for the
// file it names and is never retried.
type FormatError struct {
	Format types.SourceType
	Path   string
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Format, e.Path, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

func formatErr(format types.SourceType, path string, err error) error {
	return &FormatError{Format: format, Path: path, Err: err}
}

// UnsupportedFormatError reports a file extension with no registered extractor.
type UnsupportedFormatError struct {
	Path string
	Ext  string
}

func (e *UnsupportedFormatError) Error() string {
	ext := e.Ext
	if ext == "" {
		ext = "(none)"
	}
	return fmt.Sprintf("%s: unsupported format: %s", e.Path, ext)
}

func (e *UnsupportedFormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}
