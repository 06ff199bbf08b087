package postgresstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/uneu/ogimage/go/postgres"
	"github.com/uneu/ogimage/go/store/storetest"
)

// Runs against a live server when OGIMAGE_TEST_POSTGRES_HOST is set.
func TestStore(t *testing.T) {
	host := os.Getenv("OGIMAGE_TEST_POSTGRES_HOST")
	if host == "" {
		t.Skip("OGIMAGE_TEST_POSTGRES_HOST not set")
	}
	port := 5432
	if raw := os.Getenv("OGIMAGE_TEST_POSTGRES_PORT"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		require.NoError(t, err)
		port = parsed
	}
	ctx := context.Background()
	client := postgres.NewClient(&postgres.Opts{
		Host:     host,
		Port:     port,
		User:     "postgres",
		Password: "postgres",
		Database: "postgres",
		MaxConns: 4,
		SSLMode:  "disable",
	})
	require.NoError(t, client.Start(ctx))
	t.Cleanup(client.Close)

	_, err := client.Exec(ctx, `DROP TABLE IF EXISTS og_images`)
	require.NoError(t, err)
	s, err := New(ctx, client)
	require.NoError(t, err)
	require.NoError(t, s.Ping(ctx))
	storetest.Run(t, s)
}

func TestIsConcurrentCreate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"catalog unique violation", &pgconn.PgError{Code: pgerrcode.UniqueViolation}, true},
		{"duplicate table", fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: pgerrcode.DuplicateTable}), true},
		{"permission denied", &pgconn.PgError{Code: pgerrcode.InsufficientPrivilege}, false},
		{"not a postgres error", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, isConcurrentCreate(tt.err))
		})
	}
}
