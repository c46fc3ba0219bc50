package llm

import (
	"errors"
	"fmt"
)

// TransportError wraps network-level failures (connection refused, timeout).
// These are the only errors eligible for in-place retry.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport error: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProviderError represents a non-2xx response from an LLM backend.
// It triggers fallback to the next provider, never retry-in-place.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: provider error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}

// AllProvidersExhaustedError is returned when every configured provider failed.
// LastErr is the error from the last provider attempted.
type AllProvidersExhaustedError struct {
	Attempts []string
	LastErr  error
}

func (e *AllProvidersExhaustedError) Error() string {
	return fmt.Sprintf("all %d providers exhausted, last error: %v", len(e.Attempts), e.LastErr)
}

func (e *AllProvidersExhaustedError) Unwrap() error { return e.LastErr }

// ParseError indicates LLM output did not match the expected JSON schema.
// Callers recover by falling back to rule-based analysis.
type ParseError struct {
	Content string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse LLM output as JSON: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// MissingVariableError indicates a prompt template placeholder had no supplied
// value. This is a programming error, not user-recoverable.
type MissingVariableError struct {
	Task     string
	Variable string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("prompt %q: missing template variable %q", e.Task, e.Variable)
}

// IsRetryable reports whether an error may be retried against the same provider.
func IsRetryable(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
