package domain

import (
	"errors"
	"fmt"
)

// Common domain errors that can occur while scoring a respondent.
var (
	// ErrInvalidConfiguration indicates that configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrNumericalDomain indicates that a response probability or an optimizer
	// iterate is undefined for the current theta.
	ErrNumericalDomain = errors.New("numerical domain error")

	// ErrAllExtreme indicates that every recorded answer sits at the same end
	// of its response scale, so the likelihood has no interior maximum.
	ErrAllExtreme = errors.New("all answers are extreme")

	// ErrNoUnansweredItems indicates that every item has already been answered.
	ErrNoUnansweredItems = errors.New("all items have been answered")

	// ErrNoAnsweredItems indicates that no item has been answered yet.
	ErrNoAnsweredItems = errors.New("no items have been answered")

	// ErrItemAnswered indicates that an operation requires an unanswered item.
	ErrItemAnswered = errors.New("item has already been answered")

	// ErrItemNotAnswered indicates that an operation requires an answered item.
	ErrItemNotAnswered = errors.New("item has not been answered")

	// ErrItemOutOfRange indicates an item index outside the question set.
	ErrItemOutOfRange = errors.New("item index out of range")

	// ErrInvalidResponse indicates a response code outside the item's scale.
	ErrInvalidResponse = errors.New("invalid response code")

	// ErrShapeMismatch indicates a response table whose columns do not match
	// the question set.
	ErrShapeMismatch = errors.New("response table shape mismatch")

	// ErrMissingResponse indicates that a simulated respondent has no
	// response recorded for the item the selector asked for.
	ErrMissingResponse = errors.New("missing response for selected item")

	// ErrNoStoppingRule indicates that a full session simulation was requested
	// without any stopping threshold configured.
	ErrNoStoppingRule = errors.New("no stopping rule configured")

	// ErrUnsupportedPrior indicates that an operation needs the normal prior.
	ErrUnsupportedPrior = errors.New("operation requires a normal prior")

	// ErrOutOfSupport indicates evaluation of a prior outside its support.
	ErrOutOfSupport = errors.New("value outside prior support")

	// ErrNoBracket indicates that the bounded root finder found no sign change
	// over its interval.
	ErrNoBracket = errors.New("root is not bracketed by the search interval")

	// ErrInvalidScore indicates that a selection criterion produced NaN.
	ErrInvalidScore = errors.New("selection criterion is not a number")
)

// PreconditionError reports an operation called outside its documented domain.
// Precondition errors are never retried internally.
type PreconditionError struct {
	// Operation is the name of the operation that refused to run.
	Operation string

	// Err is the sentinel describing the violated precondition.
	Err error
}

// Error implements the error interface for PreconditionError.
func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed: operation=%s, err=%v", e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *PreconditionError) Unwrap() error { return e.Err }

// NewPreconditionError creates a new PreconditionError for the operation.
func NewPreconditionError(operation string, err error) *PreconditionError {
	return &PreconditionError{
		Operation: operation,
		Err:       err,
	}
}

// ConfigError reports a configuration value that cannot be used to build a
// session. It always unwraps to ErrInvalidConfiguration as well as to the
// specific cause.
type ConfigError struct {
	// Key is the configuration key holding the bad value.
	Key string

	// Value is the offending value as supplied.
	Value string

	// Hint is an optional suggestion, such as the closest valid name.
	Hint string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface for ConfigError.
func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config error: key=%s, value=%q, err=%v", e.Key, e.Value, e.Err)
	if e.Hint != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Hint)
	}
	return msg
}

// Unwrap returns both the configuration sentinel and the specific cause.
func (e *ConfigError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidConfiguration}
	}
	return []error{ErrInvalidConfiguration, e.Err}
}

// NewConfigError creates a new ConfigError with the given details.
func NewConfigError(key, value string, err error) *ConfigError {
	return &ConfigError{
		Key:   key,
		Value: value,
		Err:   err,
	}
}

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// Unwrap lets callers match any validation failure as a configuration error.
func (e *ValidationError) Unwrap() error { return ErrInvalidConfiguration }

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// AddErrorf adds a formatted error message to the validation error.
func (e *ValidationError) AddErrorf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}
