package provider

import (
	"fmt"
	"strings"

	"github.com/pomboid/kill-fake-news/internal/model"
)

// NewDescriptor builds a provider from configuration. Each built-in
// provider implements both capability contracts explicitly; there is no
// runtime capability probing.
func NewDescriptor(cfg model.ProviderConfig) (Descriptor, error) {
	switch strings.ToLower(cfg.Name) {
	case "openai":
		p, err := NewOpenAIProvider(cfg)
		if err != nil {
			return Descriptor{}, err
		}
		return Descriptor{
			Name:       p.Name(),
			CostTier:   TierFreemium,
			Priority:   cfg.Priority,
			Dimensions: p.NativeDimensions(),
			Generator:  p,
			Embedder:   p,
		}, nil

	case "gemini":
		p, err := NewGeminiProvider(cfg)
		if err != nil {
			return Descriptor{}, err
		}
		return Descriptor{
			Name:       p.Name(),
			CostTier:   TierFree,
			Priority:   cfg.Priority,
			Dimensions: p.NativeDimensions(),
			Generator:  p,
			Embedder:   p,
		}, nil

	case "ollama":
		p, err := NewOllamaProvider(cfg)
		if err != nil {
			return Descriptor{}, err
		}
		return Descriptor{
			Name:       p.Name(),
			CostTier:   TierFree,
			Priority:   cfg.Priority,
			Dimensions: p.NativeDimensions(),
			Generator:  p,
			Embedder:   p,
		}, nil

	default:
		return Descriptor{}, fmt.Errorf("unknown provider: %s (supported: openai, gemini, ollama)", cfg.Name)
	}
}

// BuildDescriptors constructs descriptors for every enabled provider entry.
// Entries that fail to construct are skipped with the error reported to the
// caller via the warnings slice, so a single bad entry cannot take down the
// whole registry.
func BuildDescriptors(cfgs []model.ProviderConfig) (descs []Descriptor, warnings []error) {
	for _, cfg := range cfgs {
		if !cfg.Enabled {
			continue
		}
		d, err := NewDescriptor(cfg)
		if err != nil {
			warnings = append(warnings, fmt.Errorf("provider %s: %w", cfg.Name, err))
			continue
		}
		descs = append(descs, d)
	}
	return descs, warnings
}
