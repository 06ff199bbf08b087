package og

import (
	"context"
	"fmt"
	"time"

	"github.com/uneu/ogimage/go/routine"
	"github.com/uneu/ogimage/go/store"
)

// RefreshCacheEntries sets the ogimage_cache_entries gauge from counter.
func RefreshCacheEntries(ctx context.Context, counter store.Counter) error {
	count, err := counter.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting cache entries: %w", err)
	}
	getMetrics().cacheEntries.Set(float64(count))
	return nil
}

// NewCacheSizeRoutine returns an unstarted routine that refreshes ogimage_cache_entries every interval.
// Failed counts are retried with exponential backoff capped at interval.
func NewCacheSizeRoutine(counter store.Counter, interval time.Duration) *routine.Routine {
	return routine.New("cache-size", func(ctx context.Context) error {
		return RefreshCacheEntries(ctx, counter)
	}, nil).
		WithTicker(interval).
		WithTimeout(interval).
		WithExponentialBackOff(time.Second, interval)
}
