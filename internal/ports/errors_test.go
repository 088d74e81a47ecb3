package ports

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestTableError tests creation, message formatting and unwrapping of
// TableError.
func TestTableError(t *testing.T) {
	tests := []struct {
		name     string
		err      *TableError
		expected string
	}{
		{
			name:     "cell error",
			err:      NewTableError("responses.csv", 3, 2, ErrMalformedTable),
			expected: "table error: source=responses.csv, row=3, column=2, err=malformed response table",
		},
		{
			name:     "header error",
			err:      NewTableError("stdin", 0, 0, errors.New("empty header")),
			expected: "table error: source=stdin, row=0, column=0, err=empty header",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
			assert.Equal(t, tt.err.Err, errors.Unwrap(tt.err))
		})
	}
}

func TestCommonInfrastructureErrors(t *testing.T) {
	tests := []struct {
		err     error
		message string
	}{
		{ErrConfigNotFound, "configuration not found"},
		{ErrMalformedTable, "malformed response table"},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.message, tt.err.Error())
		})
	}
}

func TestErrorUnwrapping(t *testing.T) {
	inner := NewTableError("r.csv", 1, 1, ErrMalformedTable)
	wrapped := fmt.Errorf("read responses: %w", inner)

	var tableErr *TableError
	assert.True(t, errors.As(wrapped, &tableErr))
	assert.Equal(t, 1, tableErr.Row)
	assert.True(t, errors.Is(wrapped, ErrMalformedTable))
}
