package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration covers missing required columns, unreadable input and
	// invalid settings. It is reported before any stage runs.
	ErrConfiguration = errors.New("configuration error")

	// ErrModelUnavailable means the embedding, reduction or clustering
	// capability failed to initialize or crashed mid-run.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrEmptyInput is never returned from a run; it tags warnings for columns
	// with no usable text or runs that produced only outliers.
	ErrEmptyInput = errors.New("empty input")
)

// ConfigurationError names the column or file that made the input unusable.
type ConfigurationError struct {
	Column string
	Path   string
	Err    error
}

func (e *ConfigurationError) Error() string {
	switch {
	case e.Column != "" && e.Err != nil:
		return fmt.Sprintf("%s: column %q: %v", ErrConfiguration, e.Column, e.Err)
	case e.Column != "":
		return fmt.Sprintf("%s: required column %q not found", ErrConfiguration, e.Column)
	case e.Path != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", ErrConfiguration, e.Path, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", ErrConfiguration, e.Err)
	default:
		return ErrConfiguration.Error()
	}
}

func (e *ConfigurationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrConfiguration}
	}
	return []error{ErrConfiguration, e.Err}
}

// NewMissingColumnError reports a required column absent from the input header.
func NewMissingColumnError(column string) *ConfigurationError {
	return &ConfigurationError{Column: column}
}

// StageError wraps a capability failure with the stage and column it hit.
type StageError struct {
	Stage  string
	Column string
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed for %q: %v", e.Stage, e.Column, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// ModelUnavailable wraps err so that errors.Is(err, ErrModelUnavailable) holds.
func ModelUnavailable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrModelUnavailable, fmt.Sprintf(format, args...))
}
