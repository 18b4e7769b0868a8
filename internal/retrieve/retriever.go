// Package retrieve implements hybrid evidence retrieval: a dense
// cosine-similarity channel and a lexical BM25 channel, fused into one
// deterministic ranking. Neither channel alone is sufficient - lexical
// search catches exact entities and numbers, dense search catches
// paraphrase.
package retrieve

import (
	"context"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/pomboid/kill-fake-news/internal/model"
)

// Retriever ranks corpus items against a claim
type Retriever struct {
	// TopK is the number of fused results to return
	TopK int

	// DenseWeight is the dense channel's share of the fused score;
	// the lexical channel gets 1 - DenseWeight
	DenseWeight float64

	// MinSimilarity excludes items below this cosine similarity unless
	// the lexical channel matched them
	MinSimilarity float64
}

type channelScore struct {
	idx   int
	score float64
}

// Search returns the top-K most relevant items for the claim, given its
// dense vector and raw text. The two channels are independent reads and
// run concurrently; fusion happens after both complete.
func (r *Retriever) Search(ctx context.Context, items []model.EvidenceItem, queryVec []float32, queryText string) ([]model.RetrievalResult, error) {
	if len(items) == 0 {
		return nil, nil
	}

	topK := r.TopK
	if topK <= 0 {
		topK = 5
	}
	weight := r.DenseWeight
	if weight < 0 || weight > 1 {
		weight = 0.5
	}

	denseScores := make([]float64, len(items))
	lexScores := make([]float64, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for i := range items {
			if err := gctx.Err(); err != nil {
				return err
			}
			denseScores[i] = cosine(queryVec, items[i].Vector)
		}
		return nil
	})
	g.Go(func() error {
		idx := newBM25Index(items)
		queryTokens := Tokenize(queryText)
		for i := range items {
			if err := gctx.Err(); err != nil {
				return err
			}
			lexScores[i] = idx.score(i, queryTokens)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Candidate set: items the dense channel considers similar enough,
	// plus anything the lexical channel matched at all
	var candidates []int
	for i := range items {
		if denseScores[i] >= r.MinSimilarity || lexScores[i] > 0 {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	denseRank := rankOf(items, candidates, denseScores)
	lexRank := rankOf(items, candidates, lexScores)

	denseNorm := normalize(candidates, denseScores)
	lexNorm := normalize(candidates, lexScores)

	results := make([]model.RetrievalResult, 0, len(candidates))
	for _, i := range candidates {
		lr := -1
		if lexScores[i] > 0 {
			lr = lexRank[i]
		}
		results = append(results, model.RetrievalResult{
			Item:        &items[i],
			Score:       weight*denseNorm[i] + (1-weight)*lexNorm[i],
			DenseRank:   denseRank[i],
			LexicalRank: lr,
		})
	}

	// Ties break by dense rank, then item ID, so repeated calls with
	// identical inputs produce identical output
	sort.SliceStable(results, func(a, b int) bool {
		if results[a].Score != results[b].Score {
			return results[a].Score > results[b].Score
		}
		if results[a].DenseRank != results[b].DenseRank {
			return results[a].DenseRank < results[b].DenseRank
		}
		return results[a].Item.ID < results[b].Item.ID
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// rankOf assigns each candidate its 0-based rank by score descending,
// ties broken by item ID ascending
func rankOf(items []model.EvidenceItem, candidates []int, scores []float64) map[int]int {
	order := make([]channelScore, 0, len(candidates))
	for _, i := range candidates {
		order = append(order, channelScore{idx: i, score: scores[i]})
	}
	sort.SliceStable(order, func(a, b int) bool {
		if order[a].score != order[b].score {
			return order[a].score > order[b].score
		}
		return items[order[a].idx].ID < items[order[b].idx].ID
	})

	ranks := make(map[int]int, len(order))
	for rank, cs := range order {
		ranks[cs.idx] = rank
	}
	return ranks
}

// normalize min-max scales the candidates' channel scores to [0,1].
// A degenerate spread (all equal) maps everything to 1.
func normalize(candidates []int, scores []float64) map[int]float64 {
	min, max := math.Inf(1), math.Inf(-1)
	for _, i := range candidates {
		if scores[i] < min {
			min = scores[i]
		}
		if scores[i] > max {
			max = scores[i]
		}
	}

	out := make(map[int]float64, len(candidates))
	spread := max - min
	for _, i := range candidates {
		if spread < 1e-12 {
			out[i] = 1
			continue
		}
		out[i] = (scores[i] - min) / spread
	}
	return out
}

// cosine computes cosine similarity with float64 accumulation. Vectors of
// unequal length are compared over the shorter prefix; the corpus invariant
// makes that case a no-op in practice.
func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
