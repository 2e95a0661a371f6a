package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/jobflow/logger"
)

// Client is the connection shared by the instance store and health checks.
type Client struct {
	rdb       *goredis.Client
	cfg       Config
	log       *logger.Logger
	closeOnce sync.Once
	closeErr  error
}

// New validates cfg and creates a client. go-redis connects lazily, so
// reachability is only known after Ping.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	cfg.ApplyDefaults()
	if !cfg.Enabled {
		return nil, fmt.Errorf("redis is disabled")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("redis config: %w", err)
	}

	rdb := goredis.NewClient(options(cfg))
	log.Info("redis client created", logger.Fields("addr", cfg.Addr, "db", cfg.DB, "pool_size", cfg.PoolSize))
	return &Client{rdb: rdb, cfg: cfg, log: log}, nil
}

// NewWithClient wraps an existing go-redis client.
func NewWithClient(rdb *goredis.Client, cfg Config, log *logger.Logger) *Client {
	cfg.ApplyDefaults()
	return &Client{rdb: rdb, cfg: cfg, log: log}
}

// options maps cfg onto go-redis options. Durations were checked by Validate.
func options(cfg Config) *goredis.Options {
	dur := func(s string) time.Duration {
		d, _ := time.ParseDuration(s)
		return d
	}
	return &goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  dur(cfg.DialTimeout),
		ReadTimeout:  dur(cfg.ReadTimeout),
		WriteTimeout: dur(cfg.WriteTimeout),
	}
}

func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close is idempotent.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.closeOnce.Do(func() {
		c.log.Info("closing redis connection")
		c.closeErr = c.rdb.Close()
	})
	return c.closeErr
}

func (c *Client) Unwrap() *goredis.Client { return c.rdb }
