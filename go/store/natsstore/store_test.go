package natsstore

import (
	"context"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/stretchr/testify/require"

	"github.com/uneu/ogimage/go/nats"
	"github.com/uneu/ogimage/go/store/storetest"
)

func startServer(t *testing.T) string {
	t.Helper()
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
	require.True(t, server.ReadyForConnections(10*time.Second), "nats server not ready")
	t.Cleanup(server.Shutdown)
	return server.ClientURL()
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	client := nats.NewClient(&nats.Opts{
		Url:            startServer(t),
		TotalWait:      time.Second,
		ReconnectDelay: 100 * time.Millisecond,
	})
	require.NoError(t, client.Start(ctx))
	t.Cleanup(client.Close)

	s, err := New(ctx, client, &Opts{Bucket: "og-images-test"})
	require.NoError(t, err)
	require.NoError(t, s.Ping(ctx))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, count)

	storetest.Run(t, s)
}

func TestObjectName(t *testing.T) {
	require.Equal(t, "t-", objectName(""))
	require.NotEqual(t, objectName("a"), objectName("A"))
	require.Equal(t, objectName("Launch"), objectName("Launch"))
}
