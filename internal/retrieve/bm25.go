package retrieve

import (
	"math"

	"github.com/pomboid/kill-fake-news/internal/model"
)

// Okapi BM25 parameters, standard values
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// bm25Index is a term-frequency index over the corpus for the lexical
// retrieval channel. Built per query over the corpus snapshot; the corpus
// is read-only from this package's perspective.
type bm25Index struct {
	docTokens [][]string
	docFreq   map[string]int
	docLen    []int
	avgLen    float64
}

func newBM25Index(items []model.EvidenceItem) *bm25Index {
	idx := &bm25Index{
		docTokens: make([][]string, len(items)),
		docFreq:   make(map[string]int),
		docLen:    make([]int, len(items)),
	}

	var total int
	for i, item := range items {
		tokens := item.Tokens
		if len(tokens) == 0 {
			tokens = Tokenize(item.Title + " " + item.Body)
		}
		idx.docTokens[i] = tokens
		idx.docLen[i] = len(tokens)
		total += len(tokens)

		seen := make(map[string]struct{}, len(tokens))
		for _, t := range tokens {
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				idx.docFreq[t]++
			}
		}
	}
	if len(items) > 0 {
		idx.avgLen = float64(total) / float64(len(items))
	}

	return idx
}

// score computes the BM25 score of document i against the query tokens.
// Zero means no term overlap.
func (idx *bm25Index) score(i int, queryTokens []string) float64 {
	if idx.docLen[i] == 0 || idx.avgLen == 0 {
		return 0
	}

	tf := make(map[string]int, len(idx.docTokens[i]))
	for _, t := range idx.docTokens[i] {
		tf[t]++
	}

	n := float64(len(idx.docTokens))
	var score float64
	for _, q := range queryTokens {
		f := float64(tf[q])
		if f == 0 {
			continue
		}
		df := float64(idx.docFreq[q])
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))
		norm := 1 - bm25B + bm25B*float64(idx.docLen[i])/idx.avgLen
		score += idf * (f * (bm25K1 + 1)) / (f + bm25K1*norm)
	}

	return score
}
