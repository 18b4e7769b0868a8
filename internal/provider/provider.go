package provider

import (
	"context"
	"encoding/json"
	"fmt"
)

// ErrorKind classifies a provider failure so the dispatcher can make
// failover decisions without parsing error strings.
type ErrorKind string

const (
	KindRateLimited     ErrorKind = "rate_limited"
	KindAuthFailed      ErrorKind = "auth_failed"
	KindTimeout         ErrorKind = "timeout"
	KindInvalidResponse ErrorKind = "invalid_response"
	KindUnknown         ErrorKind = "unknown"
)

// Error is the structured failure every provider must return.
// Unstructured errors never cross the provider boundary.
type Error struct {
	Provider string
	Kind     ErrorKind
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with a provider name and kind
func NewError(name string, kind ErrorKind, err error) *Error {
	return &Error{Provider: name, Kind: kind, Err: err}
}

// Options tunes a single generation call
type Options struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// Generator is the text-generation capability contract
type Generator interface {
	// Name returns the provider name
	Name() string

	// GenerateText produces a free-text completion for the prompt
	GenerateText(ctx context.Context, prompt string, opts Options) (string, error)

	// GenerateStructured produces a JSON object for the prompt. The schema
	// hint describes the expected shape; the raw message is returned so the
	// caller owns validation.
	GenerateStructured(ctx context.Context, prompt, schemaHint string, opts Options) (json.RawMessage, error)
}

// Embedder is the embedding capability contract
type Embedder interface {
	// Name returns the provider name
	Name() string

	// Embed produces a dense vector for the text, in the provider's
	// native dimensionality
	Embed(ctx context.Context, text string) ([]float32, error)

	// NativeDimensions returns the vector length this provider produces
	NativeDimensions() int
}

// CostTier is informational only - dispatch order is driven by priority rank
type CostTier string

const (
	TierFree     CostTier = "free"
	TierFreemium CostTier = "freemium"
	TierPaid     CostTier = "paid"
)

// Descriptor bundles a provider's identity, capabilities and dispatch
// metadata. Immutable after registry construction.
type Descriptor struct {
	Name       string
	CostTier   CostTier
	Priority   int // Lower = tried first
	Dimensions int // Native embedding dimensionality, 0 if not an embedder

	Generator Generator // nil if the provider cannot generate
	Embedder  Embedder  // nil if the provider cannot embed
}

// Generates reports whether the provider has the generation capability
func (d Descriptor) Generates() bool { return d.Generator != nil }

// Embeds reports whether the provider has the embedding capability
func (d Descriptor) Embeds() bool { return d.Embedder != nil }
