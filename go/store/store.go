// Package store defines the rendered-artifact cache used by the og pipeline.
//
// Keys are raw titles; values are PNG bytes. Entries never expire and a Put always overwrites.
// Implementations must be safe for concurrent use.
package store

import "context"

// Store is a title-keyed byte cache.
type Store interface {
	// Get returns the stored bytes for key. found is false on a miss.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Put stores value under key, overwriting any previous entry.
	Put(ctx context.Context, key string, value []byte) error
}

// Counter is implemented by stores that can report how many entries they hold.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// Pinger is implemented by stores backed by a remote or on-disk resource.
type Pinger interface {
	Ping(ctx context.Context) error
}
