package verify

import (
	"errors"
	"testing"

	"github.com/pomboid/kill-fake-news/internal/model"
)

var allowedIDs = []string{"a1", "b2", "c3"}

func TestParseVerdict_Valid(t *testing.T) {
	raw := []byte(`{
		"label": "FALSE",
		"confidence": 0.92,
		"rationale": "The evidence states the opposite.",
		"evidence_refs": ["a1", "b2"]
	}`)

	verdict, dropped, err := ParseVerdict(raw, allowedIDs)
	if err != nil {
		t.Fatalf("ParseVerdict failed: %v", err)
	}
	if verdict.Label != model.LabelFalse {
		t.Errorf("Expected FALSE, got %s", verdict.Label)
	}
	if verdict.Confidence != 0.92 {
		t.Errorf("Expected confidence 0.92, got %f", verdict.Confidence)
	}
	if len(verdict.Evidence) != 2 {
		t.Errorf("Expected 2 refs, got %v", verdict.Evidence)
	}
	if len(dropped) != 0 {
		t.Errorf("Expected no dropped refs, got %v", dropped)
	}
}

func TestParseVerdict_LabelVariants(t *testing.T) {
	tests := []struct {
		in   string
		want model.VerdictLabel
	}{
		{"TRUE", model.LabelTrue},
		{"false", model.LabelFalse},
		{"Partially True", model.LabelPartiallyTrue},
		{"[PARTIALLY-TRUE]", model.LabelPartiallyTrue},
		{"inconclusive", model.LabelInconclusive},
	}

	for _, tt := range tests {
		raw := []byte(`{"label": "` + tt.in + `", "confidence": 0.5, "rationale": "r", "evidence_refs": []}`)
		verdict, _, err := ParseVerdict(raw, allowedIDs)
		if err != nil {
			t.Errorf("Label %q: unexpected error %v", tt.in, err)
			continue
		}
		if verdict.Label != tt.want {
			t.Errorf("Label %q: expected %s, got %s", tt.in, tt.want, verdict.Label)
		}
	}
}

func TestParseVerdict_FreeTextLabelRejected(t *testing.T) {
	raw := []byte(`{"label": "probably made up", "confidence": 0.5, "rationale": "r", "evidence_refs": []}`)
	_, _, err := ParseVerdict(raw, allowedIDs)

	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("Expected ValidationError, got %T: %v", err, err)
	}
}

func TestParseVerdict_ConfidenceBounds(t *testing.T) {
	tests := []struct {
		name       string
		confidence string
		want       float64
		wantErr    bool
	}{
		{name: "in range", confidence: "0.7", want: 0.7},
		{name: "slightly above one clamps", confidence: "1.03", want: 1},
		{name: "slightly below zero clamps", confidence: "-0.02", want: 0},
		{name: "far above one rejected", confidence: "1.2", wantErr: true},
		{name: "far below zero rejected", confidence: "-0.5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := []byte(`{"label": "TRUE", "confidence": ` + tt.confidence + `, "rationale": "r", "evidence_refs": []}`)
			verdict, _, err := ParseVerdict(raw, allowedIDs)
			if tt.wantErr {
				var valErr *ValidationError
				if !errors.As(err, &valErr) {
					t.Fatalf("Expected ValidationError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseVerdict failed: %v", err)
			}
			if verdict.Confidence != tt.want {
				t.Errorf("Expected confidence %f, got %f", tt.want, verdict.Confidence)
			}
		})
	}
}

func TestParseVerdict_MissingConfidence(t *testing.T) {
	raw := []byte(`{"label": "TRUE", "rationale": "r", "evidence_refs": []}`)
	_, _, err := ParseVerdict(raw, allowedIDs)

	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("Expected ValidationError for missing confidence, got %v", err)
	}
}

func TestParseVerdict_UnknownRefsDropped(t *testing.T) {
	raw := []byte(`{"label": "TRUE", "confidence": 0.8, "rationale": "r", "evidence_refs": ["a1", "ghost", "b2", "a1"]}`)

	verdict, dropped, err := ParseVerdict(raw, allowedIDs)
	if err != nil {
		t.Fatalf("ParseVerdict failed: %v", err)
	}
	if len(verdict.Evidence) != 2 {
		t.Errorf("Expected refs [a1 b2], got %v", verdict.Evidence)
	}
	if len(dropped) != 1 || dropped[0] != "ghost" {
		t.Errorf("Expected dropped [ghost], got %v", dropped)
	}
}

func TestParseVerdict_SurroundingProse(t *testing.T) {
	raw := []byte("Here is my assessment:\n```json\n{\"label\": \"TRUE\", \"confidence\": 0.6, \"rationale\": \"r\", \"evidence_refs\": []}\n```\nHope that helps.")

	verdict, _, err := ParseVerdict(raw, allowedIDs)
	if err != nil {
		t.Fatalf("ParseVerdict failed on fenced JSON: %v", err)
	}
	if verdict.Label != model.LabelTrue {
		t.Errorf("Expected TRUE, got %s", verdict.Label)
	}
}

func TestParseVerdict_NoObject(t *testing.T) {
	_, _, err := ParseVerdict([]byte("I cannot answer that."), allowedIDs)

	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("Expected ValidationError for missing object, got %v", err)
	}
	if valErr.Raw == "" {
		t.Error("Expected offending response in the error")
	}
}
