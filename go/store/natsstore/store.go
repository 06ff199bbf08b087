// Package natsstore persists rendered images in a NATS JetStream object store bucket.
package natsstore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/uneu/ogimage/go/nats"
)

// Opts configures the bucket.
type Opts struct {
	Bucket string `long:"bucket" env:"BUCKET" description:"JetStream object store bucket" default:"og-images"`
}

// Store is a store.Store backed by a JetStream object store.
type Store struct {
	client      *nats.Client
	objectStore jetstream.ObjectStore
}

// New binds a store to the configured bucket on a started client.
func New(ctx context.Context, client *nats.Client, opts *Opts) (*Store, error) {
	objectStore, err := client.CreateOrUpdateObjectStore(ctx, opts.Bucket)
	if err != nil {
		return nil, err
	}
	return &Store{client: client, objectStore: objectStore}, nil
}

// Object names must be non-empty; titles may be empty.
func objectName(key string) string {
	return "t-" + base64.RawURLEncoding.EncodeToString([]byte(key))
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.objectStore.GetBytes(ctx, objectName(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrObjectNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("getting object: %w", err)
	}
	return value, true, nil
}

// Put implements store.Store.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if _, err := s.objectStore.PutBytes(ctx, objectName(key), value); err != nil {
		return fmt.Errorf("putting object: %w", err)
	}
	return nil
}

// Count implements store.Counter.
func (s *Store) Count(ctx context.Context) (int64, error) {
	objects, err := s.objectStore.List(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoObjectsFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("listing objects: %w", err)
	}
	return int64(len(objects)), nil
}

// Ping implements store.Pinger.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.objectStore.Status(ctx); err != nil {
		return fmt.Errorf("getting object store status: %w", err)
	}
	return nil
}
