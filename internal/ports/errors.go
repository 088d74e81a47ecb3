package ports

import (
	"errors"
	"fmt"
)

// Common infrastructure errors that can occur while loading session inputs.
var (
	// ErrConfigNotFound indicates that a session file could not be located.
	ErrConfigNotFound = errors.New("configuration not found")

	// ErrMalformedTable indicates that a response table could not be parsed.
	ErrMalformedTable = errors.New("malformed response table")
)

// TableError represents a failure to read one cell of a response table.
type TableError struct {
	// Source names the table, usually a file path.
	Source string

	// Row is the 1-based data row, or 0 for the header.
	Row int

	// Column is the 1-based column, or 0 when the whole row is at fault.
	Column int

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for TableError.
func (e *TableError) Error() string {
	return fmt.Sprintf("table error: source=%s, row=%d, column=%d, err=%v", e.Source, e.Row, e.Column, e.Err)
}

// Unwrap returns the underlying error.
func (e *TableError) Unwrap() error { return e.Err }

// NewTableError creates a new TableError with the given details.
func NewTableError(source string, row, column int, err error) *TableError {
	return &TableError{
		Source: source,
		Row:    row,
		Column: column,
		Err:    err,
	}
}
