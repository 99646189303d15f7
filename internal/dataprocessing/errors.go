package dataprocessing

import (
	"errors"
	"fmt"
)

// Pipeline errors
var (
	// Row-level, recovered by the loader
	ErrMalformedRow  = errors.New("malformed row")
	ErrInvalidNumber = errors.New("invalid number")

	// Load-level, abort the load
	ErrSchemaMismatch    = errors.New("schema mismatch")
	ErrSourceUnavailable = errors.New("source unavailable")

	// API misuse
	ErrPipelineSequence = errors.New("pipeline sequence error")
)

// RowError describes why a single row was rejected.
type RowError struct {
	Line   int
	Column int
	Value  string
	Err    error
}

func (e *RowError) Error() string {
	switch {
	case e.Line > 0 && e.Column >= 0:
		return fmt.Sprintf("line %d, column %d (%q): %v", e.Line, e.Column, e.Value, e.Err)
	case e.Column >= 0:
		return fmt.Sprintf("column %d (%q): %v", e.Column, e.Value, e.Err)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	default:
		return e.Err.Error()
	}
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Reason returns a short label for rejection counters.
func (e *RowError) Reason() string {
	return RejectReason(e)
}

// RejectReason maps a row error to the label used in LoadStats and metrics.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, ErrMalformedRow):
		return "malformed_row"
	case errors.Is(err, ErrInvalidNumber):
		return "invalid_number"
	default:
		return "other"
	}
}

// SourceError reports a source that could not be opened or read.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrSourceUnavailable, e.Source, e.Err)
}

func (e *SourceError) Unwrap() []error {
	return []error{ErrSourceUnavailable, e.Err}
}

// IsRowError reports whether err only invalidates the current row.
func IsRowError(err error) bool {
	return errors.Is(err, ErrMalformedRow) || errors.Is(err, ErrInvalidNumber)
}
