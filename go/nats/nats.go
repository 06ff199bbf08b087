package nats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Opts configures the NATS connection.
type Opts struct {
	Url            string        `long:"url" env:"URL" description:"NATS server URL" default:"nats://localhost:4222"`
	Name           string        `long:"name" env:"NAME" description:"Connection name shown in server monitoring" default:"ogimage"`
	TotalWait      time.Duration `long:"total-wait" env:"TOTAL_WAIT" description:"How long to keep reconnecting before giving up" default:"10m"`
	ReconnectDelay time.Duration `long:"reconnect-delay" env:"RECONNECT_DELAY" description:"Delay between reconnect attempts" default:"1s"`
}

// Client is a NATS connection with a JetStream context.
type Client struct {
	*nats.Conn
	log       *slog.Logger
	opts      *Opts
	jetStream jetstream.JetStream
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

func (c *Client) Start(ctx context.Context) error {
	if c.opts.ReconnectDelay <= 0 {
		return fmt.Errorf("reconnect delay must be positive, got %s", c.opts.ReconnectDelay)
	}
	options := []nats.Option{
		nats.Name(c.opts.Name),
		nats.RetryOnFailedConnect(true),
		nats.ReconnectWait(c.opts.ReconnectDelay),
		nats.MaxReconnects(int(c.opts.TotalWait / c.opts.ReconnectDelay)),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			c.log.Warn("disconnected from nats, reconnecting", "error", err, "reconnect_for", c.opts.TotalWait)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			c.log.Info("reconnected to nats", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			if err := nc.LastError(); err != nil {
				c.log.Warn("nats connection closed", "error", err)
			}
		}),
	}

	conn, err := nats.Connect(c.opts.Url, options...)
	if err != nil {
		return fmt.Errorf("connecting to nats: %w", err)
	}
	c.Conn = conn

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return fmt.Errorf("connecting to jetstream: %w", err)
	}
	c.jetStream = js

	c.log.InfoContext(ctx, "connected to nats", "url", c.opts.Url)
	return nil
}

// CreateOrUpdateObjectStore returns the named object store bucket, creating it if needed.
func (c *Client) CreateOrUpdateObjectStore(ctx context.Context, bucket string) (jetstream.ObjectStore, error) {
	objectStore, err := c.jetStream.CreateOrUpdateObjectStore(ctx, jetstream.ObjectStoreConfig{
		Bucket:  bucket,
		Storage: jetstream.FileStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("creating or updating object store %q: %w", bucket, err)
	}
	c.log.InfoContext(ctx, "object store ready", "bucket", bucket)
	return objectStore, nil
}

// Close closes the connection.
func (c *Client) Close() {
	if c.Conn != nil {
		c.Conn.Close()
	}
}
