package verify

import (
	"fmt"
	"strings"

	"github.com/pomboid/kill-fake-news/internal/model"
)

// Evidence bodies are truncated in the prompt to keep token usage bounded
const maxEvidenceChars = 1500

// VerdictSchemaHint describes the JSON shape providers must return
const VerdictSchemaHint = `{
  "label": "TRUE | FALSE | PARTIALLY_TRUE | INCONCLUSIVE",
  "confidence": 0.0,
  "rationale": "clinical description of the match or discrepancy",
  "evidence_refs": ["id of every evidence item actually relied on"]
}`

// BuildPrompt constructs the verdict-synthesis prompt from the claim and
// the retrieved evidence
func BuildPrompt(claim string, evidence []model.RetrievalResult) string {
	var b strings.Builder

	b.WriteString(`You are an information-integrity auditor. Assess the congruence between the CLAIM and the EVIDENCE below.

RULES:
1. Judge only against the evidence provided. Do not use outside knowledge.
2. "label" must be exactly one of: TRUE, FALSE, PARTIALLY_TRUE, INCONCLUSIVE.
3. If the evidence does not allow a judgement, the label is INCONCLUSIVE.
4. "confidence" is a number between 0.0 and 1.0.
5. "evidence_refs" may only contain ids from the evidence list.
6. Keep the tone clinical and impersonal.

EVIDENCE:
`)

	for _, res := range evidence {
		body := res.Item.Body
		if len(body) > maxEvidenceChars {
			body = body[:maxEvidenceChars] + "..."
		}
		fmt.Fprintf(&b, "[%s] %s\n%s\n\n---\n\n", res.Item.ID, res.Item.Title, body)
	}

	fmt.Fprintf(&b, "CLAIM:\n%s\n", claim)

	return b.String()
}
