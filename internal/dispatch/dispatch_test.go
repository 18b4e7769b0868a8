package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/pomboid/kill-fake-news/internal/provider"
	"github.com/pomboid/kill-fake-news/internal/registry"
)

// fakeProvider implements both capability contracts with injectable behavior
type fakeProvider struct {
	name      string
	genCalls  int
	embCalls  int
	genErr    error
	embErr    error
	genResult string
	embResult []float32
	genBlock  bool // Block until the context ends
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) GenerateText(ctx context.Context, prompt string, opts provider.Options) (string, error) {
	f.genCalls++
	if f.genBlock {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.genErr != nil {
		return "", f.genErr
	}
	return f.genResult, nil
}

func (f *fakeProvider) GenerateStructured(ctx context.Context, prompt, schemaHint string, opts provider.Options) (json.RawMessage, error) {
	text, err := f.GenerateText(ctx, prompt, opts)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(text), nil
}

func (f *fakeProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	f.embCalls++
	if f.embErr != nil {
		return nil, f.embErr
	}
	return f.embResult, nil
}

func (f *fakeProvider) NativeDimensions() int { return len(f.embResult) }

func descriptorFor(f *fakeProvider, priority int) provider.Descriptor {
	return provider.Descriptor{
		Name:       f.name,
		Priority:   priority,
		Dimensions: len(f.embResult),
		Generator:  f,
		Embedder:   f,
	}
}

func newOrchestrator(opts Options, fakes ...*fakeProvider) (*Orchestrator, *registry.Registry) {
	descs := make([]provider.Descriptor, 0, len(fakes))
	for i, f := range fakes {
		descs = append(descs, descriptorFor(f, i+1))
	}
	reg := registry.New(descs, registry.Options{MaxFailures: 3})
	return New(reg, nil, opts), reg
}

func TestOrchestrator_FirstProviderServes(t *testing.T) {
	first := &fakeProvider{name: "first", genResult: "ok"}
	second := &fakeProvider{name: "second", genResult: "fallback"}
	o, _ := newOrchestrator(Options{}, first, second)

	got, err := o.GenerateText(context.Background(), "prompt", provider.Options{})
	if err != nil {
		t.Fatalf("GenerateText failed: %v", err)
	}
	if got != "ok" {
		t.Errorf("Expected result from first provider, got %q", got)
	}
	if second.genCalls != 0 {
		t.Errorf("Second provider was called %d times", second.genCalls)
	}
}

func TestOrchestrator_FailoverToNext(t *testing.T) {
	first := &fakeProvider{
		name:   "first",
		genErr: provider.NewError("first", provider.KindRateLimited, errors.New("429")),
	}
	second := &fakeProvider{name: "second", genResult: "fallback"}
	o, _ := newOrchestrator(Options{}, first, second)

	got, err := o.GenerateText(context.Background(), "prompt", provider.Options{})
	if err != nil {
		t.Fatalf("GenerateText failed: %v", err)
	}
	if got != "fallback" {
		t.Errorf("Expected fallback result, got %q", got)
	}
	if first.genCalls != 1 {
		t.Errorf("Expected exactly 1 attempt on first provider, got %d", first.genCalls)
	}

	// The failure must be recorded against the first provider only
	for _, ps := range o.Status() {
		switch ps.Name {
		case "first":
			if ps.FailureCount != 1 {
				t.Errorf("first: expected 1 failure, got %d", ps.FailureCount)
			}
		case "second":
			if ps.FailureCount != 0 || ps.SuccessCount != 1 {
				t.Errorf("second: expected ok=1 fail=0, got ok=%d fail=%d", ps.SuccessCount, ps.FailureCount)
			}
		}
	}
}

func TestOrchestrator_AllProvidersExhausted(t *testing.T) {
	first := &fakeProvider{
		name:   "first",
		genErr: provider.NewError("first", provider.KindTimeout, errors.New("deadline")),
	}
	second := &fakeProvider{
		name:   "second",
		genErr: provider.NewError("second", provider.KindRateLimited, errors.New("429")),
	}
	o, _ := newOrchestrator(Options{}, first, second)

	_, err := o.GenerateText(context.Background(), "prompt", provider.Options{})
	if err == nil {
		t.Fatal("Expected error when every provider fails")
	}

	var exhErr *ExhaustedError
	if !errors.As(err, &exhErr) {
		t.Fatalf("Expected ExhaustedError, got %T: %v", err, err)
	}
	if exhErr.Capability != "generate" {
		t.Errorf("Expected capability generate, got %s", exhErr.Capability)
	}
	if len(exhErr.Attempts) != 2 {
		t.Fatalf("Expected 2 attempts, got %d", len(exhErr.Attempts))
	}
	if exhErr.Attempts[0].Provider != "first" || exhErr.Attempts[1].Provider != "second" {
		t.Errorf("Attempts out of order: %v", exhErr.Attempts)
	}
}

func TestOrchestrator_DisabledProviderSkipped(t *testing.T) {
	failing := &fakeProvider{
		name:   "failing",
		genErr: provider.NewError("failing", provider.KindUnknown, errors.New("boom")),
	}
	healthy := &fakeProvider{name: "healthy", genResult: "ok"}
	o, _ := newOrchestrator(Options{}, failing, healthy)

	// Three failed dispatches disable the first provider
	for i := 0; i < 3; i++ {
		if _, err := o.GenerateText(context.Background(), "prompt", provider.Options{}); err != nil {
			t.Fatalf("Dispatch %d failed: %v", i, err)
		}
	}
	if failing.genCalls != 3 {
		t.Fatalf("Expected 3 attempts before disable, got %d", failing.genCalls)
	}

	// The fourth dispatch must not touch the disabled provider
	if _, err := o.GenerateText(context.Background(), "prompt", provider.Options{}); err != nil {
		t.Fatalf("Dispatch after disable failed: %v", err)
	}
	if failing.genCalls != 3 {
		t.Errorf("Disabled provider was attempted again: %d calls", failing.genCalls)
	}
}

func TestOrchestrator_CancellationIsNotAFailure(t *testing.T) {
	blocking := &fakeProvider{name: "blocking", genBlock: true}
	o, _ := newOrchestrator(Options{Timeout: time.Minute}, blocking)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := o.GenerateText(ctx, "prompt", provider.Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}

	// Caller cancellation must leave health state untouched
	for _, ps := range o.Status() {
		if ps.FailureCount != 0 {
			t.Errorf("Cancellation was recorded as a failure: %d", ps.FailureCount)
		}
		if ps.Status != registry.StatusActive {
			t.Errorf("Expected active after cancellation, got %s", ps.Status)
		}
	}
}

func TestOrchestrator_EmbedAdaptsDimensions(t *testing.T) {
	emb := &fakeProvider{name: "emb", embResult: []float32{1, 2, 3}}
	o, _ := newOrchestrator(Options{TargetDimensions: 6}, emb)

	vec, err := o.Embed(context.Background(), "text")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vec) != 6 {
		t.Fatalf("Expected adapted length 6, got %d", len(vec))
	}
	if vec[0] != 1 || vec[2] != 3 || vec[5] != 0 {
		t.Errorf("Unexpected adapted vector: %v", vec)
	}
}

func TestOrchestrator_RoundRobinRotates(t *testing.T) {
	a := &fakeProvider{name: "a", genResult: "a"}
	b := &fakeProvider{name: "b", genResult: "b"}
	o, _ := newOrchestrator(Options{LoadBalance: true}, a, b)

	seen := make(map[string]bool)
	for i := 0; i < 4; i++ {
		got, err := o.GenerateText(context.Background(), "prompt", provider.Options{})
		if err != nil {
			t.Fatalf("Dispatch %d failed: %v", i, err)
		}
		seen[got] = true
	}
	if !seen["a"] || !seen["b"] {
		t.Errorf("Round-robin never rotated: served by %v", seen)
	}
}

func TestOrchestrator_NoEligibleProviders(t *testing.T) {
	failing := &fakeProvider{
		name:   "failing",
		embErr: provider.NewError("failing", provider.KindAuthFailed, errors.New("401")),
	}
	desc := provider.Descriptor{
		Name:       "failing",
		Priority:   1,
		Dimensions: 4,
		Embedder:   failing,
	}
	reg := registry.New([]provider.Descriptor{desc}, registry.Options{MaxFailures: 3})
	o := New(reg, nil, Options{})

	// Auth failure disables immediately
	if _, err := o.Embed(context.Background(), "text"); err == nil {
		t.Fatal("Expected error from failing embedder")
	}

	_, err := o.Embed(context.Background(), "text")
	var exhErr *ExhaustedError
	if !errors.As(err, &exhErr) {
		t.Fatalf("Expected ExhaustedError, got %T: %v", err, err)
	}
	if len(exhErr.Attempts) != 0 {
		t.Errorf("Expected no attempts with all providers disabled, got %d", len(exhErr.Attempts))
	}
}

func TestNormalize_WrapsUnstructuredErrors(t *testing.T) {
	perr := normalize("p", errors.New("plain failure"))
	if perr.Kind != provider.KindUnknown {
		t.Errorf("Expected unknown kind, got %s", perr.Kind)
	}
	if perr.Provider != "p" {
		t.Errorf("Expected provider p, got %s", perr.Provider)
	}

	perr = normalize("p", context.DeadlineExceeded)
	if perr.Kind != provider.KindTimeout {
		t.Errorf("Expected timeout kind, got %s", perr.Kind)
	}

	structured := provider.NewError("q", provider.KindRateLimited, errors.New("429"))
	perr = normalize("p", structured)
	if perr != structured {
		t.Error("Structured error was re-wrapped")
	}
}
