package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pomboid/kill-fake-news/internal/cache"
	"github.com/pomboid/kill-fake-news/internal/dispatch"
	"github.com/pomboid/kill-fake-news/internal/model"
	"github.com/pomboid/kill-fake-news/internal/provider"
	"github.com/pomboid/kill-fake-news/internal/registry"
	"github.com/pomboid/kill-fake-news/internal/retrieve"
	"github.com/pomboid/kill-fake-news/internal/store"
)

// fakeDispatcher satisfies the Dispatcher interface with canned behavior
// and call counters
type fakeDispatcher struct {
	embedVec   []float32
	embedErr   error
	genData    string
	genErr     error
	embedCalls int
	genCalls   int
}

func (f *fakeDispatcher) Embed(ctx context.Context, text string) ([]float32, error) {
	f.embedCalls++
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	return f.embedVec, nil
}

func (f *fakeDispatcher) GenerateStructured(ctx context.Context, prompt, schemaHint string, opts provider.Options) (dispatch.StructuredResult, error) {
	f.genCalls++
	if f.genErr != nil {
		return dispatch.StructuredResult{}, f.genErr
	}
	return dispatch.StructuredResult{Data: json.RawMessage(f.genData), Provider: "fake"}, nil
}

func (f *fakeDispatcher) Status() []registry.ProviderStatus {
	return nil
}

func seededStore(t *testing.T) store.Store {
	t.Helper()
	st := store.NewMemoryStore()
	err := st.AddEvidence(context.Background(), []model.EvidenceItem{
		{
			ID:     "rates-2025",
			Title:  "Central bank holds base rate",
			Body:   "The central bank kept the base rate unchanged at its last meeting.",
			Vector: []float32{1, 0, 0},
		},
		{
			ID:     "weather",
			Title:  "Storm expected this weekend",
			Body:   "Heavy rain is forecast for the coastal region.",
			Vector: []float32{0, 0, 1},
		},
	})
	if err != nil {
		t.Fatalf("Seeding store failed: %v", err)
	}
	return st
}

func testOptions() Options {
	return Options{
		Retriever: retrieve.Retriever{TopK: 5, DenseWeight: 0.5, MinSimilarity: 0.2},
		LogWriter: &bytes.Buffer{},
	}
}

func TestEngine_VerifyFalseClaim(t *testing.T) {
	disp := &fakeDispatcher{
		embedVec: []float32{1, 0, 0},
		genData: `{
			"label": "FALSE",
			"confidence": 0.9,
			"rationale": "The evidence says rates were held, not tripled.",
			"evidence_refs": ["rates-2025"]
		}`,
	}
	engine := NewEngine(disp, seededStore(t), nil, testOptions())

	result, err := engine.Verify(context.Background(), "The central bank tripled interest rates last week")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	if result.Verdict.Label != model.LabelFalse {
		t.Errorf("Expected FALSE, got %s", result.Verdict.Label)
	}
	if result.Verdict.Confidence != 0.9 {
		t.Errorf("Expected confidence 0.9, got %f", result.Verdict.Confidence)
	}
	if result.Verdict.Provider != "fake" {
		t.Errorf("Expected provider fake, got %s", result.Verdict.Provider)
	}
	if len(result.Evidence) == 0 {
		t.Error("Expected retrieved evidence in the result")
	}
	if len(result.Verdict.Evidence) != 1 || result.Verdict.Evidence[0] != "rates-2025" {
		t.Errorf("Expected refs [rates-2025], got %v", result.Verdict.Evidence)
	}
}

func TestEngine_EmptyCorpusIsInconclusive(t *testing.T) {
	disp := &fakeDispatcher{embedVec: []float32{1, 0, 0}}
	engine := NewEngine(disp, store.NewMemoryStore(), nil, testOptions())

	result, err := engine.Verify(context.Background(), "anything at all")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	if result.Verdict.Label != model.LabelInconclusive {
		t.Errorf("Expected INCONCLUSIVE, got %s", result.Verdict.Label)
	}
	if result.Verdict.Confidence != 0 {
		t.Errorf("Expected confidence 0, got %f", result.Verdict.Confidence)
	}
	// No evidence means no generation spend
	if disp.genCalls != 0 {
		t.Errorf("Expected 0 generation calls, got %d", disp.genCalls)
	}
}

func TestEngine_NoRelevantEvidenceIsInconclusive(t *testing.T) {
	// Claim embeds orthogonally to everything in the corpus
	disp := &fakeDispatcher{embedVec: []float32{0, 1, 0}}
	engine := NewEngine(disp, seededStore(t), nil, testOptions())

	result, err := engine.Verify(context.Background(), "xylophone exports doubled")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if result.Verdict.Label != model.LabelInconclusive {
		t.Errorf("Expected INCONCLUSIVE, got %s", result.Verdict.Label)
	}
	if disp.genCalls != 0 {
		t.Errorf("Expected 0 generation calls, got %d", disp.genCalls)
	}
}

func TestEngine_EmbeddingFailure(t *testing.T) {
	disp := &fakeDispatcher{
		embedErr: &dispatch.ExhaustedError{Capability: "embed"},
	}
	engine := NewEngine(disp, seededStore(t), nil, testOptions())

	_, err := engine.Verify(context.Background(), "some claim")

	var embErr *EmbeddingUnavailableError
	if !errors.As(err, &embErr) {
		t.Fatalf("Expected EmbeddingUnavailableError, got %T: %v", err, err)
	}
}

func TestEngine_SynthesisFailure(t *testing.T) {
	disp := &fakeDispatcher{
		embedVec: []float32{1, 0, 0},
		genErr:   &dispatch.ExhaustedError{Capability: "generate"},
	}
	engine := NewEngine(disp, seededStore(t), nil, testOptions())

	_, err := engine.Verify(context.Background(), "central bank base rate claim")

	var synErr *SynthesisUnavailableError
	if !errors.As(err, &synErr) {
		t.Fatalf("Expected SynthesisUnavailableError, got %T: %v", err, err)
	}
}

func TestEngine_MalformedVerdictRejected(t *testing.T) {
	disp := &fakeDispatcher{
		embedVec: []float32{1, 0, 0},
		genData:  `{"label": "MAYBE", "confidence": 0.5, "rationale": "r", "evidence_refs": []}`,
	}
	engine := NewEngine(disp, seededStore(t), nil, testOptions())

	_, err := engine.Verify(context.Background(), "central bank base rate claim")

	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("Expected ValidationError, got %T: %v", err, err)
	}
}

func TestEngine_UnknownRefsDroppedAndLogged(t *testing.T) {
	var log bytes.Buffer
	opts := testOptions()
	opts.LogWriter = &log

	disp := &fakeDispatcher{
		embedVec: []float32{1, 0, 0},
		genData:  `{"label": "TRUE", "confidence": 0.7, "rationale": "r", "evidence_refs": ["rates-2025", "invented-id"]}`,
	}
	engine := NewEngine(disp, seededStore(t), nil, opts)

	result, err := engine.Verify(context.Background(), "central bank base rate claim")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if len(result.Verdict.Evidence) != 1 {
		t.Errorf("Expected 1 surviving ref, got %v", result.Verdict.Evidence)
	}
	if !strings.Contains(log.String(), "invented-id") {
		t.Errorf("Expected dropped ref in the log, got %q", log.String())
	}
}

func TestEngine_CacheHitSkipsPipeline(t *testing.T) {
	opts := testOptions()
	opts.CacheTTL = time.Minute

	disp := &fakeDispatcher{
		embedVec: []float32{1, 0, 0},
		genData:  `{"label": "TRUE", "confidence": 0.8, "rationale": "r", "evidence_refs": ["rates-2025"]}`,
	}
	engine := NewEngine(disp, seededStore(t), cache.NewMemoryCache(time.Minute, time.Minute), opts)

	first, err := engine.Verify(context.Background(), "Central bank held rates")
	if err != nil {
		t.Fatalf("First verify failed: %v", err)
	}
	if first.Cached {
		t.Error("First call must not be a cache hit")
	}

	second, err := engine.Verify(context.Background(), "central bank held rates")
	if err != nil {
		t.Fatalf("Second verify failed: %v", err)
	}
	if !second.Cached {
		t.Error("Second call with the same normalized claim must hit the cache")
	}
	if second.Verdict.Label != first.Verdict.Label {
		t.Errorf("Cached verdict differs: %s vs %s", second.Verdict.Label, first.Verdict.Label)
	}
	if disp.embedCalls != 1 || disp.genCalls != 1 {
		t.Errorf("Cache hit re-ran the pipeline: embed=%d gen=%d", disp.embedCalls, disp.genCalls)
	}
}

func TestEngine_VerdictsRecordedInHistory(t *testing.T) {
	disp := &fakeDispatcher{
		embedVec: []float32{1, 0, 0},
		genData:  `{"label": "TRUE", "confidence": 0.8, "rationale": "r", "evidence_refs": []}`,
	}
	engine := NewEngine(disp, seededStore(t), nil, testOptions())

	if _, err := engine.Verify(context.Background(), "central bank base rate claim"); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	records, err := engine.History(context.Background(), 10)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 history record, got %d", len(records))
	}
	if records[0].Claim != "central bank base rate claim" {
		t.Errorf("Unexpected recorded claim: %q", records[0].Claim)
	}
}

func TestEngine_EmptyClaimRejected(t *testing.T) {
	engine := NewEngine(&fakeDispatcher{}, store.NewMemoryStore(), nil, testOptions())

	if _, err := engine.Verify(context.Background(), "   "); err == nil {
		t.Fatal("Expected error for empty claim")
	}
}
