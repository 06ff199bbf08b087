// Package sqlitestore persists rendered images in a local SQLite file.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS og_images (
	title TEXT PRIMARY KEY NOT NULL,
	png   BLOB NOT NULL
)`

// Opts configures the SQLite store.
type Opts struct {
	Path string `long:"path" env:"PATH" description:"SQLite database file" default:"./cache/ogimage.db"`
}

// Store is a store.Store backed by SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens the database at opts.Path, creating the file and table if needed.
func Open(ctx context.Context, opts *Opts) (*Store, error) {
	if strings.TrimSpace(opts.Path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(opts.Path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	dsn := cleanPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}
	if _, err := sqlDB.ExecContext(ctx, schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	row := s.sqlDB.QueryRowContext(ctx, `SELECT png FROM og_images WHERE title = ?`, key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("getting image: %w", err)
	}
	return value, true, nil
}

// Put implements store.Store.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO og_images (title, png) VALUES (?, ?)
		 ON CONFLICT(title) DO UPDATE SET png = excluded.png`,
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
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM og_images`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting images: %w", err)
	}
	return count, nil
}

// Ping implements store.Pinger.
func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}
