package errs

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"metargb/transfusion-service/pkg/jalali"
)

var (
	// ErrValidation indicates malformed or out-of-constraint numeric input.
	ErrValidation = errors.New("validation failed")
	// ErrParse indicates an unparseable Jalali date string.
	ErrParse = jalali.ErrParse
	// ErrInvalidDate indicates a well-formed but calendrically impossible Jalali date.
	ErrInvalidDate = jalali.ErrInvalidDate
	// ErrScheduling indicates the eligibility skip exceeded its iteration cap.
	ErrScheduling = errors.New("no eligible date within skip limit")
	// ErrUnknownPreset indicates a protocol preset name that does not exist.
	ErrUnknownPreset = errors.New("unknown protocol preset")
)

// ValidationError carries a message per offending field.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError creates a validation error for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}

	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// FetchError reports a holiday source that failed to load.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("holiday source %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
