package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pomboid/kill-fake-news/internal/model"
)

// SQLiteStore persists the corpus and verdict history in a single SQLite
// file. Pure-Go driver, no cgo, so cross-compiles stay trivial.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS evidence (
	id      TEXT PRIMARY KEY,
	title   TEXT NOT NULL,
	body    TEXT NOT NULL,
	vector  TEXT NOT NULL,
	tokens  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS verdicts (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	claim      TEXT NOT NULL,
	label      TEXT NOT NULL,
	confidence REAL NOT NULL,
	rationale  TEXT NOT NULL,
	refs       TEXT NOT NULL,
	provider   TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
`

// NewSQLiteStore opens (and if needed creates) the database at path
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// AddEvidence writes items in one transaction. An existing ID is replaced;
// re-indexing under the same identifier is the upstream contract for
// content changes.
func (s *SQLiteStore) AddEvidence(ctx context.Context, items []model.EvidenceItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO evidence (id, title, body, vector, tokens) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, item := range items {
		vec, err := json.Marshal(item.Vector)
		if err != nil {
			return fmt.Errorf("marshal vector for %s: %w", item.ID, err)
		}
		tokens, err := json.Marshal(item.Tokens)
		if err != nil {
			return fmt.Errorf("marshal tokens for %s: %w", item.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, item.ID, item.Title, item.Body, string(vec), string(tokens)); err != nil {
			return fmt.Errorf("insert evidence %s: %w", item.ID, err)
		}
	}

	return tx.Commit()
}

// Evidence returns the full corpus snapshot
func (s *SQLiteStore) Evidence(ctx context.Context) ([]model.EvidenceItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, body, vector, tokens FROM evidence ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query evidence: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []model.EvidenceItem
	for rows.Next() {
		var item model.EvidenceItem
		var vec, tokens string
		if err := rows.Scan(&item.ID, &item.Title, &item.Body, &vec, &tokens); err != nil {
			return nil, fmt.Errorf("scan evidence row: %w", err)
		}
		if err := json.Unmarshal([]byte(vec), &item.Vector); err != nil {
			return nil, fmt.Errorf("unmarshal vector for %s: %w", item.ID, err)
		}
		if err := json.Unmarshal([]byte(tokens), &item.Tokens); err != nil {
			return nil, fmt.Errorf("unmarshal tokens for %s: %w", item.ID, err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// AppendVerdict records one verification outcome
func (s *SQLiteStore) AppendVerdict(ctx context.Context, rec model.VerdictRecord) error {
	refs, err := json.Marshal(rec.Verdict.Evidence)
	if err != nil {
		return fmt.Errorf("marshal evidence refs: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO verdicts (claim, label, confidence, rationale, refs, provider, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Claim, string(rec.Verdict.Label), rec.Verdict.Confidence, rec.Verdict.Rationale,
		string(refs), rec.Verdict.Provider, rec.Timestamp.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert verdict: %w", err)
	}
	return nil
}

// History returns the most recent verdicts, oldest first
func (s *SQLiteStore) History(ctx context.Context, limit int) ([]model.VerdictRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT claim, label, confidence, rationale, refs, provider, created_at
		 FROM verdicts ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var recent []model.VerdictRecord
	for rows.Next() {
		var rec model.VerdictRecord
		var label, refs, created string
		if err := rows.Scan(&rec.Claim, &label, &rec.Verdict.Confidence, &rec.Verdict.Rationale,
			&refs, &rec.Verdict.Provider, &created); err != nil {
			return nil, fmt.Errorf("scan verdict row: %w", err)
		}
		rec.Verdict.Label = model.VerdictLabel(label)
		if err := json.Unmarshal([]byte(refs), &rec.Verdict.Evidence); err != nil {
			return nil, fmt.Errorf("unmarshal evidence refs: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			rec.Timestamp = ts
		}
		recent = append(recent, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to oldest-first to match MemoryStore ordering
	for i, j := 0, len(recent)-1; i < j; i, j = i+1, j-1 {
		recent[i], recent[j] = recent[j], recent[i]
	}
	return recent, nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
