// Package dispatch executes capability requests against the provider
// registry with ordered failover. A single provider outage never surfaces
// to the caller unless every eligible provider fails in the same call.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pomboid/kill-fake-news/internal/provider"
	"github.com/pomboid/kill-fake-news/internal/registry"
	"github.com/pomboid/kill-fake-news/internal/worker"
)

// Attempt records one failed provider call within a dispatch
type Attempt struct {
	Provider string
	Err      error
}

// ExhaustedError is returned when every eligible provider for a capability
// failed. It carries the ordered attempt list; a partial or nil result is
// never returned silently.
type ExhaustedError struct {
	Capability string
	Attempts   []Attempt
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Provider, a.Err))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("no eligible %s providers", e.Capability)
	}
	return fmt.Sprintf("all %s providers exhausted: %s", e.Capability, strings.Join(parts, "; "))
}

// Options tunes the orchestrator
type Options struct {
	// Timeout bounds each individual provider call
	Timeout time.Duration

	// TargetDimensions is the corpus-wide embedding dimensionality D;
	// every returned embedding is adapted to this length
	TargetDimensions int

	// LoadBalance selects round-robin among active providers instead of
	// strict priority order
	LoadBalance bool
}

// Orchestrator dispatches capability requests with failover
type Orchestrator struct {
	reg     *registry.Registry
	limiter *worker.Limiter // nil = no rate limiting
	opts    Options
	rr      atomic.Uint64
}

// New creates an orchestrator over the registry
func New(reg *registry.Registry, limiter *worker.Limiter, opts Options) *Orchestrator {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Orchestrator{reg: reg, limiter: limiter, opts: opts}
}

// GenerateText dispatches a free-text generation request
func (o *Orchestrator) GenerateText(ctx context.Context, prompt string, opts provider.Options) (string, error) {
	return invoke(o, ctx, registry.CapGenerate, func(ctx context.Context, e *registry.Entry) (string, error) {
		return e.Descriptor.Generator.GenerateText(ctx, prompt, opts)
	})
}

// StructuredResult carries a structured generation alongside the provider
// that produced it, for verdict provenance
type StructuredResult struct {
	Data     json.RawMessage
	Provider string
}

// GenerateStructured dispatches a structured-output generation request
func (o *Orchestrator) GenerateStructured(ctx context.Context, prompt, schemaHint string, opts provider.Options) (StructuredResult, error) {
	return invoke(o, ctx, registry.CapGenerate, func(ctx context.Context, e *registry.Entry) (StructuredResult, error) {
		raw, err := e.Descriptor.Generator.GenerateStructured(ctx, prompt, schemaHint, opts)
		if err != nil {
			return StructuredResult{}, err
		}
		return StructuredResult{Data: raw, Provider: e.Descriptor.Name}, nil
	})
}

// Embed dispatches an embedding request. The result is always adapted to
// the corpus-wide target dimensionality before being returned.
func (o *Orchestrator) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := invoke(o, ctx, registry.CapEmbed, func(ctx context.Context, e *registry.Entry) ([]float32, error) {
		return e.Descriptor.Embedder.Embed(ctx, text)
	})
	if err != nil {
		return nil, err
	}
	return registry.Adapt(vec, o.opts.TargetDimensions), nil
}

// Status returns the registry's observability snapshot
func (o *Orchestrator) Status() []registry.ProviderStatus {
	return o.reg.Snapshot()
}

// Reset re-activates a disabled provider by name
func (o *Orchestrator) Reset(name string) bool {
	return o.reg.Reset(name)
}

// candidates returns the providers to try, in attempt order. Failover mode
// is strict priority order; load-balanced mode rotates the active subset by
// a shared counter, with degraded providers kept last as fallback.
func (o *Orchestrator) candidates(cap registry.Capability) []*registry.Entry {
	eligible := o.reg.Eligible(cap)
	if !o.opts.LoadBalance || len(eligible) <= 1 {
		return eligible
	}

	var active, degraded []*registry.Entry
	for _, e := range eligible {
		if e.Status() == registry.StatusActive {
			active = append(active, e)
		} else {
			degraded = append(degraded, e)
		}
	}
	if len(active) > 1 {
		start := int(o.rr.Add(1)-1) % len(active)
		rotated := make([]*registry.Entry, 0, len(active))
		rotated = append(rotated, active[start:]...)
		rotated = append(rotated, active[:start]...)
		active = rotated
	}
	return append(active, degraded...)
}

// invoke runs the failover loop for one capability request. Sequential by
// design: one provider at a time keeps cost and rate-limit consumption
// bounded and deterministic.
func invoke[T any](o *Orchestrator, ctx context.Context, cap registry.Capability, call func(context.Context, *registry.Entry) (T, error)) (T, error) {
	var zero T
	var attempts []Attempt

	for _, e := range o.candidates(cap) {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		name := e.Descriptor.Name
		if o.limiter != nil {
			if err := o.limiter.Wait(ctx, name); err != nil {
				return zero, err
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, o.opts.Timeout)
		result, err := call(callCtx, e)
		cancel()

		if err == nil {
			e.MarkSuccess()
			return result, nil
		}

		// Caller cancellation is not a provider failure and must not
		// corrupt health state
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		perr := normalize(name, err)
		e.MarkFailure(perr)
		attempts = append(attempts, Attempt{Provider: name, Err: perr})
	}

	return zero, &ExhaustedError{Capability: cap.String(), Attempts: attempts}
}

// normalize guarantees the taxonomy at the dispatch boundary even if a
// provider leaked an unstructured error
func normalize(name string, err error) *provider.Error {
	var perr *provider.Error
	if errors.As(err, &perr) {
		return perr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return provider.NewError(name, provider.KindTimeout, err)
	}
	return provider.NewError(name, provider.KindUnknown, err)
}
