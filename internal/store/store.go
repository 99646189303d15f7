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
	_ "modernc.org/sqlite"

	"costcompare/internal/dataprocessing"
)

// Load statuses.
const (
	StatusSuccess   = "success"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// DefaultListLimit bounds ListLoads when no limit is given.
const DefaultListLimit = 50

// ErrClosed is returned after Close.
var ErrClosed = errors.New("store closed")

// LoadRecord is one row of load history.
type LoadRecord struct {
	ID           string         `json:"id"`
	Table        string         `json:"table"`
	Source       string         `json:"source"`
	RowsRead     int            `json:"rows_read"`
	RowsAccepted int            `json:"rows_accepted"`
	RowsRejected int            `json:"rows_rejected"`
	Rejections   map[string]int `json:"rejections,omitempty"`
	Groups       int            `json:"groups"`
	Status       string         `json:"status"`
	Error        string         `json:"error,omitempty"`
	StartedAt    time.Time      `json:"started_at"`
	FinishedAt   time.Time      `json:"finished_at"`
}

// Store keeps the history of table loads in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the history database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection serializes writers and keeps :memory: databases alive.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	PRAGMA busy_timeout = 5000;

	CREATE TABLE IF NOT EXISTS table_loads (
		id TEXT PRIMARY KEY,
		table_name TEXT NOT NULL,
		source TEXT NOT NULL,
		rows_read INTEGER NOT NULL,
		rows_accepted INTEGER NOT NULL,
		rows_rejected INTEGER NOT NULL,
		rejections_json TEXT,
		group_count INTEGER NOT NULL,
		status TEXT NOT NULL,
		error TEXT,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_table_loads_finished ON table_loads(finished_at);
	CREATE INDEX IF NOT EXISTS idx_table_loads_table ON table_loads(table_name);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// RecordLoad stores the outcome of one table load.
func (s *Store) RecordLoad(ctx context.Context, stats dataprocessing.LoadStats, loadErr error) error {
	_, err := s.Insert(ctx, NewLoadRecord(stats, loadErr, time.Now().UTC()))
	return err
}

// NewLoadRecord converts loader statistics into a history row finished at
// the given time.
func NewLoadRecord(stats dataprocessing.LoadStats, loadErr error, finished time.Time) LoadRecord {
	rec := LoadRecord{
		Table:        stats.Table,
		Source:       stats.Source,
		RowsRead:     stats.RowsRead,
		RowsAccepted: stats.RowsAccepted,
		RowsRejected: stats.RowsRejected,
		Rejections:   stats.Rejections,
		Groups:       stats.Groups,
		Status:       StatusSuccess,
		StartedAt:    finished.Add(-stats.Duration),
		FinishedAt:   finished,
	}
	switch {
	case loadErr == nil:
	case errors.Is(loadErr, context.Canceled), errors.Is(loadErr, context.DeadlineExceeded):
		rec.Status = StatusCancelled
		rec.Error = loadErr.Error()
	default:
		rec.Status = StatusFailed
		rec.Error = loadErr.Error()
	}
	return rec
}

// Insert writes rec, assigning an ID when it has none.
func (s *Store) Insert(ctx context.Context, rec LoadRecord) (LoadRecord, error) {
	if s == nil || s.db == nil {
		return rec, ErrClosed
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	var rejections sql.NullString
	if len(rec.Rejections) > 0 {
		data, err := json.Marshal(rec.Rejections)
		if err != nil {
			return rec, fmt.Errorf("failed to encode rejections: %w", err)
		}
		rejections = sql.NullString{String: string(data), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO table_loads (id, table_name, source, rows_read, rows_accepted, rows_rejected,
			rejections_json, group_count, status, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Table, rec.Source, rec.RowsRead, rec.RowsAccepted, rec.RowsRejected,
		rejections, rec.Groups, rec.Status, nullString(rec.Error),
		formatTime(rec.StartedAt), formatTime(rec.FinishedAt),
	)
	if err != nil {
		return rec, fmt.Errorf("failed to insert load %s: %w", rec.Table, err)
	}
	return rec, nil
}

// ListLoads returns the most recent loads, newest first.
func (s *Store) ListLoads(ctx context.Context, limit int) ([]LoadRecord, error) {
	if s == nil || s.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, table_name, source, rows_read, rows_accepted, rows_rejected,
			rejections_json, group_count, status, error, started_at, finished_at
		FROM table_loads
		ORDER BY finished_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query loads: %w", err)
	}
	defer rows.Close()

	var out []LoadRecord
	for rows.Next() {
		var (
			rec                 LoadRecord
			rejections, errText sql.NullString
			started, finished   string
		)
		if err := rows.Scan(&rec.ID, &rec.Table, &rec.Source, &rec.RowsRead, &rec.RowsAccepted,
			&rec.RowsRejected, &rejections, &rec.Groups, &rec.Status, &errText, &started, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan load: %w", err)
		}
		if rejections.Valid {
			if err := json.Unmarshal([]byte(rejections.String), &rec.Rejections); err != nil {
				return nil, fmt.Errorf("failed to decode rejections for %s: %w", rec.ID, err)
			}
		}
		rec.Error = errText.String
		if rec.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if rec.FinishedAt, err = parseTime(finished); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// timeLayout sorts lexically in the same order as the instants it encodes.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
