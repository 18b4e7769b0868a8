// Package verify runs the end-to-end verification pipeline:
// embed claim -> retrieve evidence -> synthesize verdict -> validate.
// Stages are strictly sequential; a failure at any stage aborts the call
// with a typed error and nothing is retried internally.
package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pomboid/kill-fake-news/internal/cache"
	"github.com/pomboid/kill-fake-news/internal/dispatch"
	"github.com/pomboid/kill-fake-news/internal/model"
	"github.com/pomboid/kill-fake-news/internal/provider"
	"github.com/pomboid/kill-fake-news/internal/registry"
	"github.com/pomboid/kill-fake-news/internal/retrieve"
	"github.com/pomboid/kill-fake-news/internal/store"
)

// Dispatcher is the slice of the dispatch orchestrator the engine needs.
// Satisfied by *dispatch.Orchestrator; narrowed for testability.
type Dispatcher interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	GenerateStructured(ctx context.Context, prompt, schemaHint string, opts provider.Options) (dispatch.StructuredResult, error)
	Status() []registry.ProviderStatus
}

// Options tunes the engine
type Options struct {
	Retriever   retrieve.Retriever
	MaxTokens   int
	Temperature float32
	CacheTTL    time.Duration // 0 disables the verdict cache
	LogWriter   io.Writer     // Data-quality diagnostics, defaults to stderr
}

// Result is the outcome of one verification call: the validated verdict
// plus the evidence set it was judged against, for the caller to persist
// or display.
type Result struct {
	Claim    string                  `json:"claim"`
	Verdict  model.Verdict           `json:"verdict"`
	Evidence []model.RetrievalResult `json:"evidence,omitempty"`
	Cached   bool                    `json:"cached,omitempty"`
}

// Engine is the verification orchestrator
type Engine struct {
	dispatcher Dispatcher
	store      store.Store
	cache      cache.Cache // nil = caching disabled
	opts       Options
}

// NewEngine creates a verification engine. The cache may be nil.
func NewEngine(dispatcher Dispatcher, st store.Store, verdictCache cache.Cache, opts Options) *Engine {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1000
	}
	if opts.LogWriter == nil {
		opts.LogWriter = os.Stderr
	}
	return &Engine{
		dispatcher: dispatcher,
		store:      st,
		cache:      verdictCache,
		opts:       opts,
	}
}

// Verify checks a claim against the evidence corpus and returns a
// structured, confidence-scored verdict.
func (e *Engine) Verify(ctx context.Context, claim string) (*Result, error) {
	claim = strings.TrimSpace(claim)
	if claim == "" {
		return nil, fmt.Errorf("empty claim")
	}

	// Cost control: a recent verdict for the same claim short-circuits
	// the whole pipeline
	key := cache.ClaimKey(claim)
	if e.cache != nil && e.opts.CacheTTL > 0 {
		if data, ok := e.cache.Get(key); ok {
			var v model.Verdict
			if err := json.Unmarshal(data, &v); err == nil {
				return &Result{Claim: claim, Verdict: v, Cached: true}, nil
			}
		}
	}

	// Stage 1: embed
	vec, err := e.dispatcher.Embed(ctx, claim)
	if err != nil {
		if ctxDone(ctx, err) {
			return nil, err
		}
		return nil, &EmbeddingUnavailableError{Err: err}
	}

	// Stage 2: retrieve
	items, err := e.store.Evidence(ctx)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	evidence, err := e.opts.Retriever.Search(ctx, items, vec, claim)
	if err != nil {
		return nil, fmt.Errorf("retrieve evidence: %w", err)
	}

	// Zero matches is a valid outcome, not an error: route straight to
	// INCONCLUSIVE without spending a generation call
	if len(evidence) == 0 {
		verdict := model.Verdict{
			Label:      model.LabelInconclusive,
			Confidence: 0,
			Rationale:  "No supporting or refuting evidence found in the corpus.",
			Evidence:   []string{},
		}
		e.finish(ctx, key, claim, verdict)
		return &Result{Claim: claim, Verdict: verdict, Evidence: evidence}, nil
	}

	// Stage 3: synthesize
	prompt := BuildPrompt(claim, evidence)
	gen, err := e.dispatcher.GenerateStructured(ctx, prompt, VerdictSchemaHint, provider.Options{
		Temperature: e.opts.Temperature,
		MaxTokens:   e.opts.MaxTokens,
	})
	if err != nil {
		if ctxDone(ctx, err) {
			return nil, err
		}
		return nil, &SynthesisUnavailableError{Err: err}
	}

	// Stage 4: validate
	ids := make([]string, 0, len(evidence))
	for _, res := range evidence {
		ids = append(ids, res.Item.ID)
	}
	verdict, dropped, err := ParseVerdict(gen.Data, ids)
	if err != nil {
		return nil, err
	}
	if len(dropped) > 0 {
		// Data-quality signal: the model cited identifiers it was never given
		fmt.Fprintf(e.opts.LogWriter, "warning: dropped unknown evidence refs from %s: %v\n", gen.Provider, dropped)
	}
	verdict.Provider = gen.Provider

	e.finish(ctx, key, claim, *verdict)
	return &Result{Claim: claim, Verdict: *verdict, Evidence: evidence}, nil
}

// finish persists the verdict to history and the cache. Both are
// best-effort: the verdict itself is already valid.
func (e *Engine) finish(ctx context.Context, key, claim string, verdict model.Verdict) {
	rec := model.VerdictRecord{Claim: claim, Verdict: verdict, Timestamp: time.Now()}
	if err := e.store.AppendVerdict(ctx, rec); err != nil {
		fmt.Fprintf(e.opts.LogWriter, "warning: failed to record verdict: %v\n", err)
	}

	if e.cache != nil && e.opts.CacheTTL > 0 {
		if data, err := json.Marshal(verdict); err == nil {
			_ = e.cache.Set(key, data, e.opts.CacheTTL)
		}
	}
}

// ProviderStatus exposes the registry snapshot for observability
func (e *Engine) ProviderStatus() []registry.ProviderStatus {
	return e.dispatcher.Status()
}

// History returns recent verification records
func (e *Engine) History(ctx context.Context, limit int) ([]model.VerdictRecord, error) {
	return e.store.History(ctx, limit)
}

// ctxDone reports whether err is the caller's own cancellation rather
// than a provider failure
func ctxDone(ctx context.Context, err error) bool {
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}
