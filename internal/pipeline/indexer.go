// Package pipeline turns collected articles into indexed evidence items:
// embed, adapt, tokenize, store. Collection itself (RSS, scraping) happens
// upstream; this package starts from article records.
package pipeline

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pomboid/kill-fake-news/internal/model"
	"github.com/pomboid/kill-fake-news/internal/retrieve"
	"github.com/pomboid/kill-fake-news/internal/store"
	"github.com/pomboid/kill-fake-news/internal/worker"
)

// Embedder is the slice of the dispatch orchestrator the indexer needs
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Indexer embeds articles and writes them to the evidence store
type Indexer struct {
	embedder Embedder
	store    store.Store
	workers  int
	logw     io.Writer
}

// NewIndexer creates an indexer. Workers bounds concurrent embedding
// calls; provider rate limits still apply underneath via dispatch.
func NewIndexer(embedder Embedder, st store.Store, workers int, logw io.Writer) *Indexer {
	if workers <= 0 {
		workers = 2
	}
	if logw == nil {
		logw = os.Stderr
	}
	return &Indexer{embedder: embedder, store: st, workers: workers, logw: logw}
}

// embedJob embeds one article
type embedJob struct {
	article  model.Article
	embedder Embedder
}

// embedResult carries the indexed item or the per-article failure
type embedResult struct {
	item model.EvidenceItem
	err  error
}

func (r *embedResult) GetError() error { return r.err }

// Execute implements worker.Job
func (j *embedJob) Execute(ctx context.Context) worker.Result {
	text := j.article.Title + "\n" + j.article.Content
	vec, err := j.embedder.Embed(ctx, text)
	if err != nil {
		return &embedResult{err: fmt.Errorf("embed %q: %w", j.article.Title, err)}
	}

	return &embedResult{item: model.EvidenceItem{
		ID:     articleID(j.article),
		Title:  j.article.Title,
		Body:   j.article.Content,
		Vector: vec,
		Tokens: retrieve.Tokenize(j.article.Title + " " + j.article.Content),
	}}
}

// IndexArticles embeds every article with bounded parallelism and writes
// the resulting items to the store in one batch. Per-article embedding
// failures are logged and skipped; the batch fails only when nothing
// could be indexed.
func (ix *Indexer) IndexArticles(ctx context.Context, articles []model.Article) (int, error) {
	if len(articles) == 0 {
		return 0, nil
	}

	pool := worker.NewPool(ix.workers)
	pool.Start()
	for _, art := range articles {
		pool.Submit(&embedJob{article: art, embedder: ix.embedder})
	}
	results := pool.Wait()

	var items []model.EvidenceItem
	for _, res := range results {
		if err := res.GetError(); err != nil {
			fmt.Fprintf(ix.logw, "warning: %v\n", err)
			continue
		}
		items = append(items, res.(*embedResult).item)
	}
	if len(items) == 0 {
		return 0, fmt.Errorf("no articles could be indexed (%d attempted)", len(articles))
	}

	if err := ix.store.AddEvidence(ctx, items); err != nil {
		return 0, fmt.Errorf("store evidence: %w", err)
	}
	return len(items), nil
}

// ReadArticles loads article records from a JSONL file, skipping
// malformed lines with a warning
func ReadArticles(path string, logw io.Writer) ([]model.Article, error) {
	if logw == nil {
		logw = os.Stderr
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open articles file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var articles []model.Article
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var art model.Article
		if err := json.Unmarshal(line, &art); err != nil {
			fmt.Fprintf(logw, "warning: skipping malformed entry at line %d: %v\n", lineNo, err)
			continue
		}
		if art.Title == "" || art.Content == "" {
			fmt.Fprintf(logw, "warning: skipping entry at line %d: missing title or content\n", lineNo)
			continue
		}
		articles = append(articles, art)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read articles file: %w", err)
	}

	return articles, nil
}

// articleID derives a stable identifier from the article URL, falling
// back to the title for records without one
func articleID(art model.Article) string {
	src := art.URL
	if src == "" {
		src = art.Title
	}
	sum := sha256.Sum256([]byte(src))
	return hex.EncodeToString(sum[:8])
}
