// Package store is the read/write contract the verification core has with
// its persistence collaborator: an evidence corpus plus a verdict history.
package store

import (
	"context"

	"github.com/pomboid/kill-fake-news/internal/model"
)

// Store persists the evidence corpus and the verdict history
type Store interface {
	// AddEvidence writes indexed items to the corpus. Items carry vectors
	// already adapted to the corpus dimensionality.
	AddEvidence(ctx context.Context, items []model.EvidenceItem) error

	// Evidence returns the full corpus snapshot
	Evidence(ctx context.Context) ([]model.EvidenceItem, error)

	// AppendVerdict records one verification outcome
	AppendVerdict(ctx context.Context, rec model.VerdictRecord) error

	// History returns the most recent verdicts, newest last
	History(ctx context.Context, limit int) ([]model.VerdictRecord, error)

	// Close releases backing resources
	Close() error
}
