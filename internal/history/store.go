// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history records every convert run in a local SQLite database and
// exports the log to YAML or JSON.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/ts2mt/pkg/types"
)

const (
	dbFile = "history.db"

	defaultLimit = 20
)

// Store manages the history database at <dir>/history.db.
type Store struct {
	db  *sql.DB
	dir string
}

// NewStore opens or creates the history database in cfg.Dir and creates the
// schema if it does not exist.
func NewStore(cfg types.HistoryConfig) (*Store, error) {
	dir := cfg.Dir
	if dir == "" {
		return nil, fmt.Errorf("history directory not set")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, dbFile)+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, dir: dir}
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

// Dir returns the directory holding the database and exports.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS conversions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			input_path TEXT NOT NULL,
			output_path TEXT NOT NULL,
			status TEXT NOT NULL,
			error_kind TEXT,
			error_message TEXT,
			lines INTEGER NOT NULL DEFAULT 0,
			records INTEGER NOT NULL DEFAULT 0,
			blank INTEGER NOT NULL DEFAULT 0,
			header_kept INTEGER NOT NULL DEFAULT 0,
			offset_seconds INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			duration_ms INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversions_status ON conversions(status)`,
		`CREATE INDEX IF NOT EXISTS idx_conversions_input ON conversions(input_path)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record inserts rec and returns its ID.
func (s *Store) Record(ctx context.Context, rec types.ConversionRecord) (int64, error) {
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO conversions (input_path, output_path, status, error_kind, error_message,
			lines, records, blank, header_kept, offset_seconds, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.InputPath, rec.OutputPath, string(rec.Status), rec.ErrorKind, rec.ErrorMessage,
		rec.Lines, rec.Records, rec.Blank, rec.HeaderKept,
		int64(rec.Offset/time.Second), rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.Duration.Milliseconds(),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting conversion record: %w", err)
	}
	return res.LastInsertId()
}

// ListOptions filters List results.
type ListOptions struct {
	// Status keeps only runs with this outcome. Empty keeps all.
	Status types.ConversionStatus

	// Input keeps only runs of this input path. Empty keeps all.
	Input string

	// Limit caps the result count. Zero uses the default (20); negative means no limit.
	Limit int
}

// List returns recorded runs, newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]types.ConversionRecord, error) {
	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(
		`SELECT id, input_path, output_path, status, error_kind, error_message,
			lines, records, blank, header_kept, offset_seconds, started_at, duration_ms
		FROM conversions WHERE 1=1`)
	if opts.Status != "" {
		qb.WriteString(` AND status = ?`)
		args = append(args, string(opts.Status))
	}
	if opts.Input != "" {
		qb.WriteString(` AND input_path = ?`)
		args = append(args, opts.Input)
	}
	qb.WriteString(` ORDER BY id DESC`)

	limit := opts.Limit
	if limit == 0 {
		limit = defaultLimit
	}
	if limit > 0 {
		qb.WriteString(` LIMIT ?`)
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying conversions: %w", err)
	}
	defer rows.Close()

	var records []types.ConversionRecord
	for rows.Next() {
		var (
			rec        types.ConversionRecord
			status     string
			errKind    sql.NullString
			errMsg     sql.NullString
			offsetSecs int64
			startedAt  string
			durationMS int64
		)
		if err := rows.Scan(&rec.ID, &rec.InputPath, &rec.OutputPath, &status, &errKind, &errMsg,
			&rec.Lines, &rec.Records, &rec.Blank, &rec.HeaderKept, &offsetSecs, &startedAt, &durationMS); err != nil {
			return nil, fmt.Errorf("scanning conversion row: %w", err)
		}
		rec.Status = types.ConversionStatus(status)
		rec.ErrorKind = errKind.String
		rec.ErrorMessage = errMsg.String
		rec.Offset = time.Duration(offsetSecs) * time.Second
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		if ts, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
			rec.StartedAt = ts
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
