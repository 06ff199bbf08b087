// Package storetest holds behaviour tests shared by every store.Store implementation.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uneu/ogimage/go/store"
)

// Run exercises s against the store.Store contract. s must start empty.
func Run(t *testing.T, s store.Store) {
	ctx := context.Background()

	t.Run("miss", func(t *testing.T) {
		value, found, err := s.Get(ctx, "never stored")
		require.NoError(t, err)
		require.False(t, found)
		require.Nil(t, value)
	})

	t.Run("put then get", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "Hello", []byte{0x89, 'P', 'N', 'G'}))
		value, found, err := s.Get(ctx, "Hello")
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, []byte{0x89, 'P', 'N', 'G'}, value)
	})

	t.Run("put overwrites", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "overwrite", []byte("first")))
		require.NoError(t, s.Put(ctx, "overwrite", []byte("second")))
		value, found, err := s.Get(ctx, "overwrite")
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, []byte("second"), value)
	})

	t.Run("keys are exact", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "Case", []byte("upper")))
		_, found, err := s.Get(ctx, "case")
		require.NoError(t, err)
		require.False(t, found)
		_, found, err = s.Get(ctx, "Case ")
		require.NoError(t, err)
		require.False(t, found)
	})

	t.Run("arbitrary titles", func(t *testing.T) {
		for _, key := range []string{"", "日本語のタイトル", "a/b.c*>", "with\nnewline", "spaces and ? & ="} {
			value := []byte("value for " + key)
			require.NoError(t, s.Put(ctx, key, value))
			got, found, err := s.Get(ctx, key)
			require.NoError(t, err)
			require.True(t, found, "key %q", key)
			require.Equal(t, value, got)
		}
	})

	t.Run("returned bytes are not aliased", func(t *testing.T) {
		value := []byte("original")
		require.NoError(t, s.Put(ctx, "alias", value))
		value[0] = 'X'
		got, _, err := s.Get(ctx, "alias")
		require.NoError(t, err)
		require.Equal(t, []byte("original"), got)
		got[0] = 'Y'
		again, _, err := s.Get(ctx, "alias")
		require.NoError(t, err)
		require.Equal(t, []byte("original"), again)
	})

	t.Run("concurrent writers", func(t *testing.T) {
		wg := sync.WaitGroup{}
		errs := make(chan error, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				key := fmt.Sprintf("concurrent-%d", i%2)
				errs <- s.Put(ctx, key, []byte(key))
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}
		for i := 0; i < 2; i++ {
			key := fmt.Sprintf("concurrent-%d", i)
			got, found, err := s.Get(ctx, key)
			require.NoError(t, err)
			require.True(t, found)
			require.Equal(t, []byte(key), got)
		}
	})

	if counter, ok := s.(store.Counter); ok {
		t.Run("count", func(t *testing.T) {
			before, err := counter.Count(ctx)
			require.NoError(t, err)
			require.NoError(t, s.Put(ctx, "counted", []byte("x")))
			require.NoError(t, s.Put(ctx, "counted", []byte("y")))
			after, err := counter.Count(ctx)
			require.NoError(t, err)
			require.Equal(t, before+1, after)
		})
	}
}
