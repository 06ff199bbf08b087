// Package redisstore persists rendered images in Redis.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Opts configures the Redis connection.
type Opts struct {
	URL       string `long:"url" env:"URL" description:"Redis URL" default:"redis://localhost:6379/0"`
	Password  string `long:"password" env:"PASSWORD" description:"Overrides the password in the URL"`
	KeyPrefix string `long:"key-prefix" env:"KEY_PREFIX" description:"Prefix prepended to every title" default:"ogimage:"`
}

// Store is a store.Store backed by Redis. Entries are stored without expiry.
type Store struct {
	log       *slog.Logger
	client    *redis.Client
	keyPrefix string
}

// New parses opts and connects to Redis, failing if the server does not answer a ping.
func New(ctx context.Context, opts *Opts) (*Store, error) {
	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	if opts.Password != "" {
		redisOpts.Password = opts.Password
	}
	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	s := &Store{log: slog.Default(), client: client, keyPrefix: opts.KeyPrefix}
	s.log.InfoContext(ctx, "connected to redis", "addr", redisOpts.Addr, "db", redisOpts.DB)
	return s, nil
}

func (s *Store) WithLogger(logger *slog.Logger) *Store {
	s.log = logger
	return s
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("getting key: %w", err)
	}
	return value, true, nil
}

// Put implements store.Store.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.keyPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("setting key: %w", err)
	}
	return nil
}

// Count implements store.Counter by scanning the key prefix. It is O(keys) on the server.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	iter := s.client.Scan(ctx, 0, s.keyPrefix+"*", 1000).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("scanning keys: %w", err)
	}
	return count, nil
}

// Ping implements store.Pinger.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}
