package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"restodesk/backend/internal/store"
)

var _ store.KV = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS kv_records (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	seq BIGSERIAL,
	value JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS kv_records_collection_seq_idx ON kv_records (collection, seq);
CREATE TABLE IF NOT EXISTS kv_sequences (
	name TEXT PRIMARY KEY,
	value BIGINT NOT NULL
);
`

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

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
	err := s.db.QueryRowContext(ctx, `
		SELECT value::text
		FROM kv_records
		WHERE collection = $1 AND id = $2
	`, collection, id).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, classify(err)
	}
	return []byte(value), nil
}

func (s *Store) Put(ctx context.Context, collection string, id string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_records (collection, id, value, updated_at)
		VALUES ($1, $2, $3::jsonb, now())
		ON CONFLICT (collection, id)
		DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, collection, id, string(value))
	if err != nil {
		return classify(err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection string, id string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM kv_records
		WHERE collection = $1 AND id = $2
	`, collection, id)
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
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, value::text
		FROM kv_records
		WHERE collection = $1
		ORDER BY seq
	`, collection)
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
		VALUES ($1, 1)
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
		VALUES ($1, $2)
		ON CONFLICT (name)
		DO UPDATE SET value = GREATEST(kv_sequences.value, EXCLUDED.value)
	`, sequence, atLeast)
	if err != nil {
		return classify(err)
	}
	return nil
}

// classify maps driver errors onto the store error kinds.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "22P02", "22032":
			return fmt.Errorf("%w: %v", store.ErrCorrupt, err)
		case "53100", "54000":
			return fmt.Errorf("%w: %v", store.ErrQuotaExceeded, err)
		}
	}
	return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
}
