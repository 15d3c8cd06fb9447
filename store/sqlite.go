package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 1

const schemaV1 = `
CREATE TABLE IF NOT EXISTS records (
    kind TEXT NOT NULL,      -- 'state' or 'chunk'
    id TEXT NOT NULL,
    saved_at INTEGER NOT NULL, -- unix nanoseconds
    nodes INTEGER NOT NULL,
    links INTEGER NOT NULL,
    data BLOB NOT NULL,      -- JSON engine state
    PRIMARY KEY (kind, id)
);
CREATE INDEX IF NOT EXISTS idx_records_saved ON records(kind, saved_at);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);
`

// SQLiteStore keeps records in a single SQLite database.
type SQLiteStore struct {
	records

	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite store: path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("sqlite store: creating directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("sqlite store: opening database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite store: initializing schema: %w", err)
	}

	s := &SQLiteStore{db: db}
	s.records = records{b: s, now: time.Now}
	return s, nil
}

// InitSchema creates the tables on a fresh database and records the
// schema version.
func InitSchema(ctx context.Context, db *sql.DB) error {
	var version int
	err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version)
	if err == nil && version >= SchemaVersion {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO schema_version (version, applied_at) VALUES (?, datetime('now'))`,
		SchemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) put(ctx context.Context, kind Kind, m Meta, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records (kind, id, saved_at, nodes, links, data)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(kind, id) DO UPDATE SET
			saved_at = excluded.saved_at,
			nodes = excluded.nodes,
			links = excluded.links,
			data = excluded.data
	`, string(kind), m.ID, m.Timestamp.UnixNano(), m.Nodes, m.Links, data)
	return err
}

func (s *SQLiteStore) get(ctx context.Context, kind Kind, id string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM records WHERE kind = ? AND id = ?`, string(kind), id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *SQLiteStore) remove(ctx context.Context, kind Kind, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM records WHERE kind = ? AND id = ?`, string(kind), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) list(ctx context.Context, kind Kind) ([]Meta, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, saved_at, nodes, links FROM records WHERE kind = ? ORDER BY saved_at DESC`,
		string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metas []Meta
	for rows.Next() {
		var (
			m       Meta
			savedAt int64
		)
		if err := rows.Scan(&m.ID, &savedAt, &m.Nodes, &m.Links); err != nil {
			return nil, err
		}
		m.Timestamp = time.Unix(0, savedAt).UTC()
		metas = append(metas, m)
	}
	return metas, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
