package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrExternalTool marks failures of subprocess-backed collaborators
	// (subtitle extraction, document writers).
	ErrExternalTool = errors.New("external tool error")
	// ErrValidation marks malformed or unusable input.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks fatal credential or configuration problems;
	// these are never retried.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks absent resources (missing binaries, unknown models).
	ErrNotFound = errors.New("not found")
	// ErrTimeout marks deadline expiry on an outer synchronous wrapper.
	ErrTimeout = errors.New("timeout")
	// ErrTransient marks conditions worth retrying (rate limits, 5xx).
	ErrTransient = errors.New("transient failure")
	// ErrRetriesExhausted marks a transient condition that outlived its
	// retry budget. Distinct from ErrTransient so callers can surface it.
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether an error should abort immediately with no retry.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConfiguration) || errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound)
}

// IsRecoverable reports whether an error represents a transient condition
// that a caller with remaining retry budget may attempt again.
func IsRecoverable(err error) bool {
	if errors.Is(err, ErrRetriesExhausted) {
		return false
	}
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrTimeout)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
