// Package postgresstore persists rendered images in a Postgres table.
package postgresstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/uneu/ogimage/go/postgres"
)

const schema = `CREATE TABLE IF NOT EXISTS og_images (
	title TEXT PRIMARY KEY,
	png   BYTEA NOT NULL
)`

// Store is a store.Store backed by Postgres.
type Store struct {
	client *postgres.Client
}

// New returns a store on top of a started client, creating the table if it does not exist.
func New(ctx context.Context, client *postgres.Client) (*Store, error) {
	if _, err := client.Exec(ctx, schema); err != nil && !isConcurrentCreate(err) {
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{client: client}, nil
}

// Replicas starting together can race on CREATE TABLE IF NOT EXISTS, which surfaces as a
// unique violation on the pg_type catalog. The table exists either way.
func isConcurrentCreate(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgerrcode.UniqueViolation || pgErr.Code == pgerrcode.DuplicateTable
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.client.QueryRow(ctx, `SELECT png FROM og_images WHERE title = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("getting image: %w", err)
	}
	return value, true, nil
}

// Put implements store.Store.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.client.Exec(ctx,
		`INSERT INTO og_images (title, png) VALUES ($1, $2)
		 ON CONFLICT (title) DO UPDATE SET png = EXCLUDED.png`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("putting image: %w", err)
	}
	return nil
}

// Count implements store.Counter.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.client.QueryRow(ctx, `SELECT COUNT(*) FROM og_images`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting images: %w", err)
	}
	return count, nil
}

// Ping implements store.Pinger.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}
