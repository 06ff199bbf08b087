package backend

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/stretchr/testify/require"

	"github.com/uneu/ogimage/go/nats"
	"github.com/uneu/ogimage/go/store/natsstore"
	"github.com/uneu/ogimage/go/store/sqlitestore"
)

func roundTrip(t *testing.T, cache *Cache) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, cache.Put(ctx, "Hello", []byte("png")))
	value, found, err := cache.Get(ctx, "Hello")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("png"), value)
	require.NoError(t, cache.HealthCheck()(ctx))

	counter, ok := cache.Counter()
	require.True(t, ok)
	count, err := counter.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestOpenMemory(t *testing.T) {
	cache, err := Open(context.Background(), &Opts{Backend: Memory}, slog.Default())
	require.NoError(t, err)
	require.Equal(t, Memory, cache.Name())
	roundTrip(t, cache)
	require.NoError(t, cache.Close())
}

func TestOpenSQLite(t *testing.T) {
	opts := &Opts{
		Backend: SQLite,
		SQLite:  &sqlitestore.Opts{Path: filepath.Join(t.TempDir(), "cache", "ogimage.db")},
	}
	cache, err := Open(context.Background(), opts, slog.Default())
	require.NoError(t, err)
	require.Equal(t, SQLite, cache.Name())
	roundTrip(t, cache)
	require.NoError(t, cache.Close())
}

func TestOpenNATS(t *testing.T) {
	server, err := natsserver.NewServer(&natsserver.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
		NoLog:     true,
		NoSigs:    true,
	})
	require.NoError(t, err)
	go server.Start()
	require.True(t, server.ReadyForConnections(10*time.Second))
	t.Cleanup(server.Shutdown)

	opts := &Opts{
		Backend:    NATS,
		NATS:       &nats.Opts{Url: server.ClientURL(), TotalWait: time.Second, ReconnectDelay: 100 * time.Millisecond},
		ObjectNATS: &natsstore.Opts{Bucket: "og-images-backend-test"},
	}
	cache, err := Open(context.Background(), opts, slog.Default())
	require.NoError(t, err)
	require.Equal(t, NATS, cache.Name())
	roundTrip(t, cache)
	require.NoError(t, cache.Close())
}

func TestOpenSQLiteFailure(t *testing.T) {
	_, err := Open(context.Background(), &Opts{Backend: SQLite, SQLite: &sqlitestore.Opts{Path: " "}}, slog.Default())
	require.ErrorContains(t, err, "opening sqlite cache")
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), &Opts{Backend: "memcached"}, slog.Default())
	require.EqualError(t, err, `unknown cache backend "memcached"`)
}
