package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Opts is the Client config containing the host, port, user and password.
type Opts struct {
	Host     string `long:"host"     env:"HOST"     default:"localhost" description:"Postgres host"`
	Port     int    `long:"port"     env:"PORT"     default:"5432"      description:"Postgres port"`
	User     string `long:"user"     env:"USER"     default:"postgres"  description:"Postgres username"`
	Password string `long:"password" env:"PASSWORD" default:"postgres"  description:"Postgres password"`
	Database string `long:"database" env:"DATABASE" default:"postgres"  description:"Postgres database"`
	MaxConns int    `long:"maxconns" env:"MAXCONNS" default:"10"        description:"Max number of connections"`
	SSLMode  string `long:"sslmode"  env:"SSLMODE"  default:"disable"   description:"Postgres SSL mode"`
}

func (o *Opts) Endpoint() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s dbname=%s password=%s sslmode=%s",
		o.Host, o.Port, o.User, o.Database, o.Password, o.SSLMode,
	)
}

// Client wraps a pgx pool.
type Client struct {
	*pgxpool.Pool
	log  *slog.Logger
	opts *Opts
}

func NewClient(opts *Opts) *Client {
	return &Client{
		log:  slog.Default(),
		opts: opts,
	}
}

func (c *Client) WithLogger(logger *slog.Logger) *Client {
	c.log = logger
	return c
}

func (c *Client) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// Start connects the pool. Returns an error if the configuration is invalid or the pool cannot be created.
func (c *Client) Start(ctx context.Context) error {
	log := c.log.WithGroup("postgres").With(
		"user", c.opts.User,
		"database", c.opts.Database,
		"host", c.opts.Host,
		"port", c.opts.Port,
		"ssl", c.opts.SSLMode,
	)
	log.InfoContext(ctx, "connecting to postgres server")
	config, err := pgxpool.ParseConfig(c.opts.Endpoint())
	if err != nil {
		return fmt.Errorf("parsing configuration: %w", err)
	}
	config.MaxConns = int32(c.opts.MaxConns)
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("pinging postgres: %w", err)
	}
	c.Pool = pool
	log.InfoContext(ctx, "connected to postgres server")
	return nil
}
