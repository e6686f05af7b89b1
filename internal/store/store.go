// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists run outputs in SQLite and exports them as YAML,
// JSON, or a text table.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/methodscan/pkg/types"
)

// ErrRunNotFound is returned by LoadRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Store manages the run database.
type Store struct {
	db *sql.DB
}

// RunSummary is one row of ListRuns.
type RunSummary struct {
	ID          string    `json:"id" yaml:"id"`
	Query       string    `json:"query" yaml:"query"`
	Records     int       `json:"records" yaml:"records"`
	Skipped     int       `json:"skipped" yaml:"skipped"`
	Interrupted bool      `json:"interrupted" yaml:"interrupted"`
	StartedAt   time.Time `json:"started_at" yaml:"started_at"`
}

// Open opens or creates the database at path, creating parent directories
// and the schema as needed.
func Open(cfg types.StoreConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("store path is empty")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			keywords TEXT NOT NULL,
			query TEXT NOT NULL,
			interrupted INTEGER NOT NULL DEFAULT 0,
			started_at TEXT,
			finished_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS records (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			article_id TEXT NOT NULL,
			metadata TEXT NOT NULL,
			schema_version TEXT NOT NULL,
			fields TEXT NOT NULL,
			filled INTEGER NOT NULL,
			diagnostic TEXT,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_article_id ON records(article_id)`,
		`CREATE TABLE IF NOT EXISTS skips (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			article_id TEXT NOT NULL,
			reason TEXT NOT NULL,
			state TEXT NOT NULL,
			detail TEXT,
			PRIMARY KEY (run_id, position)
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save writes out in one transaction. When out.ID is empty a new UUID is
// assigned; the ID used is returned.
func (s *Store) Save(ctx context.Context, out *types.RunOutput) (string, error) {
	if out.ID == "" {
		out.ID = uuid.NewString()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	keywords, err := json.Marshal(out.Keywords)
	if err != nil {
		return "", fmt.Errorf("marshaling keywords: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, keywords, query, interrupted, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		out.ID, string(keywords), out.Query, out.Interrupted,
		formatTime(out.StartedAt), formatTime(out.FinishedAt),
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	recStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (run_id, position, article_id, metadata, schema_version, fields, filled, diagnostic)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing record insert: %w", err)
	}
	defer recStmt.Close()

	for i := range out.Records {
		r := &out.Records[i]
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return "", fmt.Errorf("marshaling metadata of %s: %w", r.Metadata.ArticleID, err)
		}
		fields, err := json.Marshal(r.Fields)
		if err != nil {
			return "", fmt.Errorf("marshaling fields of %s: %w", r.Metadata.ArticleID, err)
		}
		var diag sql.NullString
		if r.Diagnostic != nil {
			b, err := json.Marshal(r.Diagnostic)
			if err != nil {
				return "", fmt.Errorf("marshaling diagnostic of %s: %w", r.Metadata.ArticleID, err)
			}
			diag = sql.NullString{String: string(b), Valid: true}
		}
		if _, err := recStmt.ExecContext(ctx,
			out.ID, i, string(r.Metadata.ArticleID), string(meta),
			r.SchemaVersion, string(fields), r.Fields.Filled(), diag,
		); err != nil {
			return "", fmt.Errorf("inserting record %s: %w", r.Metadata.ArticleID, err)
		}
	}

	for i, sk := range out.Skipped {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO skips (run_id, position, article_id, reason, state, detail)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			out.ID, i, string(sk.ArticleID), sk.Reason, string(sk.State), sk.Detail,
		)
		if err != nil {
			return "", fmt.Errorf("inserting skip %s: %w", sk.ArticleID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}
	return out.ID, nil
}

// ListRuns returns all saved runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.query, r.interrupted, r.started_at,
			(SELECT count(*) FROM records WHERE run_id = r.id),
			(SELECT count(*) FROM skips WHERE run_id = r.id)
		FROM runs r
		ORDER BY r.started_at DESC, r.id`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var rs RunSummary
		var started string
		if err := rows.Scan(&rs.ID, &rs.Query, &rs.Interrupted, &started, &rs.Records, &rs.Skipped); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		rs.StartedAt = parseTime(started)
		out = append(out, rs)
	}
	return out, rows.Err()
}

// LoadRun reads a saved run back, Records and skip entries in their
// original order.
func (s *Store) LoadRun(ctx context.Context, id string) (types.RunOutput, error) {
	out := types.RunOutput{ID: id}

	var keywords, started, finished string
	err := s.db.QueryRowContext(ctx,
		`SELECT keywords, query, interrupted, started_at, finished_at FROM runs WHERE id = ?`, id,
	).Scan(&keywords, &out.Query, &out.Interrupted, &started, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return out, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return out, fmt.Errorf("querying run %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(keywords), &out.Keywords); err != nil {
		return out, fmt.Errorf("decoding keywords: %w", err)
	}
	out.StartedAt, out.FinishedAt = parseTime(started), parseTime(finished)

	if out.Records, err = s.loadRecords(ctx, id); err != nil {
		return out, err
	}
	if out.Skipped, err = s.loadSkips(ctx, id); err != nil {
		return out, err
	}
	return out, nil
}

func (s *Store) loadRecords(ctx context.Context, runID string) ([]types.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT metadata, schema_version, fields, diagnostic FROM records WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var out []types.Record
	for rows.Next() {
		var meta, fields string
		var diag sql.NullString
		var r types.Record
		if err := rows.Scan(&meta, &r.SchemaVersion, &fields, &diag); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &r.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata: %w", err)
		}
		if err := json.Unmarshal([]byte(fields), &r.Fields); err != nil {
			return nil, fmt.Errorf("decoding fields: %w", err)
		}
		if diag.Valid {
			r.Diagnostic = &types.Diagnostic{}
			if err := json.Unmarshal([]byte(diag.String), r.Diagnostic); err != nil {
				return nil, fmt.Errorf("decoding diagnostic: %w", err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) loadSkips(ctx context.Context, runID string) ([]types.SkipEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT article_id, reason, state, detail FROM skips WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying skips: %w", err)
	}
	defer rows.Close()

	var out []types.SkipEntry
	for rows.Next() {
		var sk types.SkipEntry
		var id, state string
		if err := rows.Scan(&id, &sk.Reason, &state, &sk.Detail); err != nil {
			return nil, fmt.Errorf("scanning skip: %w", err)
		}
		sk.ArticleID, sk.State = types.ArticleID(id), types.ArticleState(state)
		out = append(out, sk)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
