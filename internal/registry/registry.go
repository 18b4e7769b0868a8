// Package registry holds the prioritized provider collection and the
// per-provider health state machine that gates dispatch eligibility.
package registry

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/pomboid/kill-fake-news/internal/provider"
)

// Status is the dispatch eligibility state of a provider
type Status string

const (
	StatusActive   Status = "active"
	StatusDegraded Status = "degraded"
	StatusDisabled Status = "disabled"
)

// Capability selects which contract a dispatch request needs
type Capability int

const (
	CapGenerate Capability = iota
	CapEmbed
)

func (c Capability) String() string {
	if c == CapEmbed {
		return "embed"
	}
	return "generate"
}

// Entry pairs an immutable descriptor with its mutable health state.
// Health is guarded by the entry's own mutex so concurrent verifications
// updating the same provider never race.
type Entry struct {
	Descriptor provider.Descriptor

	maxFailures int
	cooldown    time.Duration
	nowFunc     func() time.Time // Injectable for tests

	mu          sync.Mutex
	status      Status
	consecutive int // Consecutive failures since the last success
	successes   int
	failures    int
	lastError   string
	disabledAt  time.Time
}

// ProviderStatus is the observability snapshot for one provider
type ProviderStatus struct {
	Name         string            `json:"name"`
	Status       Status            `json:"status"`
	CostTier     provider.CostTier `json:"cost_tier"`
	Priority     int               `json:"priority"`
	SuccessCount int               `json:"success_count"`
	FailureCount int               `json:"failure_count"`
	LastError    string            `json:"last_error,omitempty"`
}

// Registry is the prioritized, health-annotated provider collection.
// Descriptors are immutable after construction; only health mutates.
type Registry struct {
	entries []*Entry
}

// Options tunes registry behavior
type Options struct {
	// MaxFailures disables a provider after this many consecutive failures
	MaxFailures int

	// Cooldown re-activates a disabled provider after this interval.
	// Zero keeps it disabled until an explicit Reset.
	Cooldown time.Duration
}

// New builds a registry from descriptors, sorted by priority rank
// (ties broken by name for determinism).
func New(descs []provider.Descriptor, opts Options) *Registry {
	if opts.MaxFailures <= 0 {
		opts.MaxFailures = 3
	}

	entries := make([]*Entry, 0, len(descs))
	for _, d := range descs {
		entries = append(entries, &Entry{
			Descriptor:  d,
			maxFailures: opts.MaxFailures,
			cooldown:    opts.Cooldown,
			nowFunc:     time.Now,
			status:      StatusActive,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Descriptor.Priority != entries[j].Descriptor.Priority {
			return entries[i].Descriptor.Priority < entries[j].Descriptor.Priority
		}
		return entries[i].Descriptor.Name < entries[j].Descriptor.Name
	})

	return &Registry{entries: entries}
}

// Len returns the number of registered providers
func (r *Registry) Len() int {
	return len(r.entries)
}

// Eligible returns providers with the capability that are not disabled,
// in priority order. The status read is a point-in-time snapshot; a
// provider disabled concurrently may still be attempted once, which is
// acceptable (cost, not correctness).
func (r *Registry) Eligible(cap Capability) []*Entry {
	var out []*Entry
	for _, e := range r.entries {
		switch cap {
		case CapGenerate:
			if !e.Descriptor.Generates() {
				continue
			}
		case CapEmbed:
			if !e.Descriptor.Embeds() {
				continue
			}
		}
		if e.Status() != StatusDisabled {
			out = append(out, e)
		}
	}
	return out
}

// Status returns the provider's current eligibility state, applying the
// time-boxed cooldown if one is configured.
func (e *Entry) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status == StatusDisabled && e.cooldown > 0 && e.nowFunc().Sub(e.disabledAt) >= e.cooldown {
		// Cooldown elapsed: the one sanctioned path back to active
		e.status = StatusActive
		e.consecutive = 0
	}
	return e.status
}

// MarkSuccess records a successful call. A success clears the consecutive
// failure count and recovers a degraded provider, but never re-activates a
// disabled one - that requires Reset or cooldown expiry.
func (e *Entry) MarkSuccess() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.successes++
	e.consecutive = 0
	if e.status == StatusDegraded {
		e.status = StatusActive
	}
}

// MarkFailure records a failed call and advances the state machine:
// active -> degraded on the first failure, degraded -> disabled once the
// consecutive count reaches the limit. AuthFailed disables immediately
// since retrying with the same credentials is pointless.
func (e *Entry) MarkFailure(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.failures++
	e.consecutive++
	if err != nil {
		e.lastError = err.Error()
	}

	var perr *provider.Error
	if errors.As(err, &perr) && perr.Kind == provider.KindAuthFailed {
		e.status = StatusDisabled
		e.disabledAt = e.nowFunc()
		return
	}

	if e.consecutive >= e.maxFailures {
		e.status = StatusDisabled
		e.disabledAt = e.nowFunc()
		return
	}
	e.status = StatusDegraded
}

// Reset explicitly re-activates a provider and clears its failure streak.
// Operator action; cumulative counts are preserved for observability.
func (e *Entry) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.status = StatusActive
	e.consecutive = 0
	e.lastError = ""
}

// Reset re-activates the named provider. Returns false if unknown.
func (r *Registry) Reset(name string) bool {
	for _, e := range r.entries {
		if e.Descriptor.Name == name {
			e.Reset()
			return true
		}
	}
	return false
}

// Snapshot returns the observability view of every provider
func (r *Registry) Snapshot() []ProviderStatus {
	out := make([]ProviderStatus, 0, len(r.entries))
	for _, e := range r.entries {
		status := e.Status()
		e.mu.Lock()
		out = append(out, ProviderStatus{
			Name:         e.Descriptor.Name,
			Status:       status,
			CostTier:     e.Descriptor.CostTier,
			Priority:     e.Descriptor.Priority,
			SuccessCount: e.successes,
			FailureCount: e.failures,
			LastError:    e.lastError,
		})
		e.mu.Unlock()
	}
	return out
}
