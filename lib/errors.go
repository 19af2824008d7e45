package lib

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrInvalidPattern is returned when a glob or exclude pattern cannot be compiled.
	ErrInvalidPattern = errors.New("invalid glob pattern")

	// ErrUnknownAlgorithm is returned for a hash algorithm name that is not supported.
	ErrUnknownAlgorithm = errors.New("unknown hash algorithm")
)

// PatternError reports the pattern that failed to compile and the underlying cause.
// It matches ErrInvalidPattern under errors.Is.
type PatternError struct {
	Pattern string
	Cause   error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid glob pattern %q: %v", e.Pattern, e.Cause)
}

func (e *PatternError) Unwrap() error { return ErrInvalidPattern }
