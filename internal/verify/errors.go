package verify

import "fmt"

// EmbeddingUnavailableError signals that the embedding stage exhausted
// every eligible provider. Distinct from SynthesisUnavailableError so
// callers can tell which stage ran out of backends.
type EmbeddingUnavailableError struct {
	Err error
}

func (e *EmbeddingUnavailableError) Error() string {
	return fmt.Sprintf("embedding unavailable: %v", e.Err)
}

func (e *EmbeddingUnavailableError) Unwrap() error {
	return e.Err
}

// SynthesisUnavailableError signals that the generation stage exhausted
// every eligible provider
type SynthesisUnavailableError struct {
	Err error
}

func (e *SynthesisUnavailableError) Error() string {
	return fmt.Sprintf("verdict synthesis unavailable: %v", e.Err)
}

func (e *SynthesisUnavailableError) Unwrap() error {
	return e.Err
}

// ValidationError signals that a generation response could not be parsed
// into a valid verdict shape. Reject-and-surface, never best-effort
// coercion: a silently accepted malformed verdict would undermine the
// whole verification guarantee.
type ValidationError struct {
	Reason string
	Raw    string // Offending response, truncated, for diagnostics
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("verdict validation failed: %s", e.Reason)
}
