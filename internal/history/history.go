// Package history keeps a per-repository ledger of gate runs in SQLite.
// Recording is best-effort: a ledger failure must never block a commit, so
// callers log and continue on error.
package history

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"commitgate/internal/logging"
)

// Record is one gate run as stored in the ledger.
type Record struct {
	RunID      string
	HeadCommit string
	BaseRef    string
	Files      int
	Outcome    string
	DurationMs int64
	Patch      []byte
	Report     []byte
	CreatedAt  time.Time
}

// Store is the run ledger, backed by .commitgate/history.db.
type Store struct {
	conn   *sql.DB
	logger *logging.Logger
	dbPath string
}

// Open opens or creates the ledger database under repoRoot.
func Open(repoRoot string, logger *logging.Logger) (*Store, error) {
	dir := filepath.Join(repoRoot, ".commitgate")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "history.db")
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &Store{conn: conn, logger: logger, dbPath: dbPath}
	if err := s.initializeSchema(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the ledger.
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *Store) initializeSchema() error {
	_, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL,
			head_commit TEXT NOT NULL DEFAULT '',
			base_ref    TEXT NOT NULL DEFAULT '',
			files       INTEGER NOT NULL DEFAULT 0,
			outcome     TEXT NOT NULL,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			patch       BLOB,
			report      BLOB,
			created_at  TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
	`)
	if err != nil {
		return fmt.Errorf("failed to initialize ledger schema: %w", err)
	}
	return nil
}

// Append records one run. Patch and report blobs are gzip-compressed; nil
// blobs stay NULL.
func (s *Store) Append(ctx context.Context, rec *Record) error {
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	patch, err := compress(rec.Patch)
	if err != nil {
		return fmt.Errorf("failed to compress patch blob: %w", err)
	}
	report, err := compress(rec.Report)
	if err != nil {
		return fmt.Errorf("failed to compress report blob: %w", err)
	}

	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO runs (run_id, head_commit, base_ref, files, outcome, duration_ms, patch, report, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.HeadCommit, rec.BaseRef, rec.Files, rec.Outcome,
		rec.DurationMs, patch, report, created.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	s.logger.Debug("run recorded", map[string]interface{}{
		"run":     rec.RunID,
		"outcome": rec.Outcome,
	})
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT run_id, head_commit, base_ref, files, outcome, duration_ms, patch, report, created_at
		FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var patch, report []byte
		var created string
		if err := rows.Scan(&rec.RunID, &rec.HeadCommit, &rec.BaseRef, &rec.Files,
			&rec.Outcome, &rec.DurationMs, &patch, &report, &created); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		if rec.Patch, err = decompress(patch); err != nil {
			return nil, fmt.Errorf("failed to decompress patch blob: %w", err)
		}
		if rec.Report, err = decompress(report); err != nil {
			return nil, fmt.Errorf("failed to decompress report blob: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
			rec.CreatedAt = t
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Prune deletes all but the newest keep runs.
func (s *Store) Prune(ctx context.Context, keep int) error {
	_, err := s.conn.ExecContext(ctx, `
		DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY id DESC LIMIT ?
		)`, keep)
	if err != nil {
		return fmt.Errorf("failed to prune ledger: %w", err)
	}
	return nil
}

func compress(data []byte) ([]byte, error) {
	if data == nil {
		return nil, nil
	}
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	if data == nil {
		return nil, nil
	}
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gz.Close()
	return io.ReadAll(gz)
}
