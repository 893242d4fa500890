// Package history persists run outcomes to a local SQLite database.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/anneal-io/anneal/internal/engine"
)

//go:embed schema.sql
var schemaSQL string

// Store records execution reports. SQLite with WAL mode; a single writer
// connection avoids SQLITE_BUSY under concurrent access.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path, creating parent directories
// as needed. Idempotent.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect history db: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordRun writes one report: a run row plus one row per node, in a
// single transaction. Only status and error detail are persisted; output
// values never touch disk.
func (s *Store) RecordRun(ctx context.Context, report *engine.Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, duration_ms, succeeded, nodes) VALUES (?, ?, ?, ?, ?)`,
		report.RunID,
		report.Started.Format(time.RFC3339Nano),
		report.Duration.Milliseconds(),
		report.Succeeded(),
		len(report.Records()),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, rec := range report.Records() {
		var detail any
		if rec.Err != nil {
			detail = rec.Err.Error()
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_nodes (run_id, identity, status, error, duration_ms) VALUES (?, ?, ?, ?, ?)`,
			report.RunID,
			rec.Identity.String(),
			string(rec.Status),
			detail,
			rec.Duration.Milliseconds(),
		)
		if err != nil {
			return fmt.Errorf("insert node %s: %w", rec.Identity, err)
		}
	}

	return tx.Commit()
}

// Run is one persisted run summary.
type Run struct {
	ID        string
	StartedAt time.Time
	Duration  time.Duration
	Succeeded bool
	Nodes     int
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, duration_ms, succeeded, nodes
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r       Run
			started string
			ms      int64
		)
		if err := rows.Scan(&r.ID, &started, &ms, &r.Succeeded, &r.Nodes); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parse run time: %w", err)
		}
		r.Duration = time.Duration(ms) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// NodeResult is one persisted node outcome.
type NodeResult struct {
	Identity string
	Status   string
	Error    string
	Duration time.Duration
}

// RunNodes returns the per-node outcomes of one run in insertion order.
func (s *Store) RunNodes(ctx context.Context, runID string) ([]NodeResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT identity, status, COALESCE(error, ''), duration_ms
		 FROM run_nodes WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("list run nodes: %w", err)
	}
	defer rows.Close()

	var results []NodeResult
	for rows.Next() {
		var (
			n  NodeResult
			ms int64
		)
		if err := rows.Scan(&n.Identity, &n.Status, &n.Error, &ms); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		n.Duration = time.Duration(ms) * time.Millisecond
		results = append(results, n)
	}
	return results, rows.Err()
}
