// Package sqlite is the embedded single-node store.KV backend.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqlite3 "github.com/mattn/go-sqlite3"

	"restodesk/backend/internal/store"
)

var _ store.KV = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS kv_records (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	value TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (collection, id)
);
CREATE TABLE IF NOT EXISTS kv_sequences (
	name TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);
`

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path. Use ":memory:" for a
// throwaway store.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer; one connection also keeps ":memory:"
	// databases alive across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, collection string, id string) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_records WHERE collection = ? AND id = ?`, collection, id).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, classify(err)
	}
	return []byte(value), nil
}

func (s *Store) Put(ctx context.Context, collection string, id string, value []byte) error {
	// The upsert updates in place, so the rowid (and list position) survives.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_records (collection, id, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (collection, id)
		DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, collection, id, string(value))
	if err != nil {
		return classify(err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection string, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM kv_records WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return classify(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) List(ctx context.Context, collection string) ([]store.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, value FROM kv_records WHERE collection = ? ORDER BY rowid`, collection)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	records := make([]store.Record, 0, 64)
	for rows.Next() {
		var id, value string
		if err := rows.Scan(&id, &value); err != nil {
			return nil, classify(err)
		}
		records = append(records, store.Record{ID: id, Value: []byte(value)})
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return records, nil
}

func (s *Store) Next(ctx context.Context, sequence string) (int64, error) {
	var value int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO kv_sequences (name, value)
		VALUES (?, 1)
		ON CONFLICT (name)
		DO UPDATE SET value = kv_sequences.value + 1
		RETURNING value
	`, sequence).Scan(&value)
	if err != nil {
		return 0, classify(err)
	}
	return value, nil
}

func (s *Store) Reserve(ctx context.Context, sequence string, atLeast int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_sequences (name, value)
		VALUES (?, ?)
		ON CONFLICT (name)
		DO UPDATE SET value = MAX(kv_sequences.value, excluded.value)
	`, sequence, atLeast)
	if err != nil {
		return classify(err)
	}
	return nil
}

func classify(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrFull:
			return fmt.Errorf("%w: %v", store.ErrQuotaExceeded, err)
		case sqlite3.ErrCorrupt, sqlite3.ErrNotADB:
			return fmt.Errorf("%w: %v", store.ErrCorrupt, err)
		}
	}
	return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
}
