package model

import (
	"fmt"
	"strings"
	"time"
)

// VerdictLabel is the closed set of verification outcomes
type VerdictLabel string

const (
	LabelTrue          VerdictLabel = "TRUE"
	LabelFalse         VerdictLabel = "FALSE"
	LabelPartiallyTrue VerdictLabel = "PARTIALLY_TRUE"
	LabelInconclusive  VerdictLabel = "INCONCLUSIVE"
)

// ParseVerdictLabel matches a label case-insensitively. Brackets, spaces and
// hyphens are normalized (models frequently emit "[Partially True]"), but
// free text is rejected.
func ParseVerdictLabel(s string) (VerdictLabel, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.Trim(norm, "[]")
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)

	switch VerdictLabel(norm) {
	case LabelTrue, LabelFalse, LabelPartiallyTrue, LabelInconclusive:
		return VerdictLabel(norm), nil
	default:
		return "", fmt.Errorf("invalid verdict label: %q", s)
	}
}

// Verdict is the structured outcome of one verification call
type Verdict struct {
	Label      VerdictLabel `json:"label"`
	Confidence float64      `json:"confidence"`         // Always in [0,1]
	Rationale  string       `json:"rationale"`
	Evidence   []string     `json:"evidence_refs"`      // Subset of retrieved EvidenceItem IDs
	Provider   string       `json:"provider,omitempty"` // Provider that synthesized it
}

// VerdictRecord is a persisted history entry
type VerdictRecord struct {
	Claim     string    `json:"claim"`
	Verdict   Verdict   `json:"verdict"`
	Timestamp time.Time `json:"timestamp"`
}
