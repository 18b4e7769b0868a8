package verify

import (
	"encoding/json"
	"strings"

	"github.com/pomboid/kill-fake-news/internal/model"
)

// Confidence values this far outside [0,1] are treated as provider
// floating-point noise and clamped; anything further out is rejected
const confidenceSlack = 0.05

// rawVerdict is the wire shape returned by generation providers.
// Confidence is a pointer so a missing field is distinguishable from 0.
type rawVerdict struct {
	Label      string   `json:"label"`
	Confidence *float64 `json:"confidence"`
	Rationale  string   `json:"rationale"`
	Evidence   []string `json:"evidence_refs"`
}

// ParseVerdict validates a structured generation response against the
// verdict shape. Unknown evidence references are dropped (returned for
// data-quality logging), everything else malformed is fatal.
func ParseVerdict(raw []byte, allowedIDs []string) (*model.Verdict, []string, error) {
	payload := extractObject(raw)
	if payload == nil {
		return nil, nil, &ValidationError{Reason: "no JSON object in response", Raw: truncate(string(raw))}
	}

	var rv rawVerdict
	if err := json.Unmarshal(payload, &rv); err != nil {
		return nil, nil, &ValidationError{Reason: "malformed JSON: " + err.Error(), Raw: truncate(string(raw))}
	}

	label, err := model.ParseVerdictLabel(rv.Label)
	if err != nil {
		return nil, nil, &ValidationError{Reason: err.Error(), Raw: truncate(string(raw))}
	}

	if rv.Confidence == nil {
		return nil, nil, &ValidationError{Reason: "missing confidence", Raw: truncate(string(raw))}
	}
	confidence := *rv.Confidence
	if confidence < -confidenceSlack || confidence > 1+confidenceSlack {
		return nil, nil, &ValidationError{
			Reason: "confidence out of range",
			Raw:    truncate(string(raw)),
		}
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	allowed := make(map[string]struct{}, len(allowedIDs))
	for _, id := range allowedIDs {
		allowed[id] = struct{}{}
	}

	var refs, dropped []string
	seen := make(map[string]struct{})
	for _, id := range rv.Evidence {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := allowed[id]; ok {
			refs = append(refs, id)
		} else {
			dropped = append(dropped, id)
		}
	}

	return &model.Verdict{
		Label:      label,
		Confidence: confidence,
		Rationale:  strings.TrimSpace(rv.Rationale),
		Evidence:   refs,
	}, dropped, nil
}

// extractObject returns the outermost {...} slice of the response, which
// tolerates markdown fences and prose around the JSON
func extractObject(raw []byte) []byte {
	s := string(raw)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil
	}
	return []byte(s[start : end+1])
}

func truncate(s string) string {
	if len(s) > 300 {
		return s[:300] + "..."
	}
	return s
}
