package model

// EvidenceItem is an immutable corpus record a claim is checked against.
// It is produced once when an article is indexed and never mutated; content
// changes are handled upstream by re-indexing under a new identifier.
type EvidenceItem struct {
	ID     string    `json:"id"`               // Stable identifier
	Title  string    `json:"title"`            // Article headline
	Body   string    `json:"body"`             // Full article text
	Vector []float32 `json:"vector"`           // Dense embedding, corpus-wide dimensionality
	Tokens []string  `json:"tokens,omitempty"` // Lexical index tokens (derived from title+body)
}

// RetrievalResult is one ranked entry returned by the hybrid retriever.
// Ephemeral - constructed per query, never persisted.
type RetrievalResult struct {
	Item        *EvidenceItem `json:"item"`
	Score       float64       `json:"score"`        // Fused score in [0,1]
	DenseRank   int           `json:"dense_rank"`   // 0-based rank in the dense channel
	LexicalRank int           `json:"lexical_rank"` // 0-based rank in the lexical channel, -1 if unranked
}

// Article is the raw input record for corpus indexing, matching the JSONL
// shape the collection pipeline emits.
type Article struct {
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle,omitempty"`
	URL         string `json:"url"`
	Content     string `json:"content"`
	PublishedAt string `json:"published_at,omitempty"`
}
