// Package backend opens the store.Store selected by configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/uneu/ogimage/go/health"
	"github.com/uneu/ogimage/go/nats"
	"github.com/uneu/ogimage/go/postgres"
	"github.com/uneu/ogimage/go/store"
	"github.com/uneu/ogimage/go/store/memory"
	"github.com/uneu/ogimage/go/store/natsstore"
	"github.com/uneu/ogimage/go/store/postgresstore"
	"github.com/uneu/ogimage/go/store/redisstore"
	"github.com/uneu/ogimage/go/store/sqlitestore"
)

const (
	Memory   = "memory"
	SQLite   = "sqlite"
	Postgres = "postgres"
	NATS     = "nats"
	Redis    = "redis"
)

// Opts selects a backend and carries the options of every backend. Only the selected one is used.
type Opts struct {
	Backend    string            `long:"backend" env:"BACKEND" description:"Cache backend" choice:"memory" choice:"sqlite" choice:"postgres" choice:"nats" choice:"redis" default:"sqlite"`
	SQLite     *sqlitestore.Opts `group:"SQLite" namespace:"sqlite" env-namespace:"SQLITE"`
	Postgres   *postgres.Opts    `group:"Postgres" namespace:"postgres" env-namespace:"POSTGRES"`
	NATS       *nats.Opts        `group:"NATS" namespace:"nats" env-namespace:"NATS"`
	ObjectNATS *natsstore.Opts   `group:"NATS object store" namespace:"nats" env-namespace:"NATS"`
	Redis      *redisstore.Opts  `group:"Redis" namespace:"redis" env-namespace:"REDIS"`
}

// Cache is an open store together with what it takes to release it.
type Cache struct {
	store.Store
	name  string
	close func() error
}

// Name returns the backend name.
func (c *Cache) Name() string { return c.name }

// Close releases the connections or files held by the backend.
func (c *Cache) Close() error {
	if c.close == nil {
		return nil
	}
	return c.close()
}

// Counter returns the store as a store.Counter if the backend can count its entries.
func (c *Cache) Counter() (store.Counter, bool) {
	counter, ok := c.Store.(store.Counter)
	return counter, ok
}

// HealthCheck pings the backend. Backends without a remote resource are always healthy.
func (c *Cache) HealthCheck() health.Check {
	return func(ctx context.Context) error {
		pinger, ok := c.Store.(store.Pinger)
		if !ok {
			return nil
		}
		if err := pinger.Ping(ctx); err != nil {
			return fmt.Errorf("pinging %s cache: %w", c.name, err)
		}
		return nil
	}
}

// Open connects to the configured backend.
func Open(ctx context.Context, opts *Opts, logger *slog.Logger) (*Cache, error) {
	log := logger.With("backend", opts.Backend)
	switch opts.Backend {
	case Memory:
		log.WarnContext(ctx, "using in-memory cache: rendered images are lost on restart")
		return &Cache{Store: memory.New(), name: Memory}, nil

	case SQLite:
		s, err := sqlitestore.Open(ctx, opts.SQLite)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite cache: %w", err)
		}
		log.InfoContext(ctx, "opened sqlite cache", "path", opts.SQLite.Path)
		return &Cache{Store: s, name: SQLite, close: s.Close}, nil

	case Postgres:
		client := postgres.NewClient(opts.Postgres).WithLogger(logger)
		if err := client.Start(ctx); err != nil {
			return nil, fmt.Errorf("starting postgres client: %w", err)
		}
		s, err := postgresstore.New(ctx, client)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("opening postgres cache: %w", err)
		}
		return &Cache{Store: s, name: Postgres, close: func() error { client.Close(); return nil }}, nil

	case NATS:
		client := nats.NewClient(opts.NATS).WithLogger(logger)
		if err := client.Start(ctx); err != nil {
			return nil, fmt.Errorf("starting nats client: %w", err)
		}
		s, err := natsstore.New(ctx, client, opts.ObjectNATS)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("opening nats cache: %w", err)
		}
		return &Cache{Store: s, name: NATS, close: func() error { client.Close(); return nil }}, nil

	case Redis:
		s, err := redisstore.New(ctx, opts.Redis)
		if err != nil {
			return nil, fmt.Errorf("opening redis cache: %w", err)
		}
		s.WithLogger(logger)
		return &Cache{Store: s, name: Redis, close: s.Close}, nil

	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}
