package redis

import (
	"context"
	"fmt"

	"github.com/kbukum/jobflow/component"
	"github.com/kbukum/jobflow/logger"
	"github.com/kbukum/jobflow/store"
)

// Component owns the Redis client and exposes the instance store.
type Component struct {
	client *Client
	store  *InstanceStore
	cfg    Config
	log    *logger.Logger
}

var _ component.Component = (*Component)(nil)
var _ component.Describable = (*Component)(nil)

func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log.WithComponent("redis")}
}

// Store returns the instance store, or nil before Start.
func (c *Component) Store() store.Store {
	if c.store == nil {
		return nil
	}
	return c.store
}

func (c *Component) Name() string { return "redis" }

func (c *Component) Start(ctx context.Context) error {
	client, err := New(c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("redis start: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		_ = client.Close()
		return fmt.Errorf("redis start ping: %w", err)
	}
	c.client = client
	c.store = NewInstanceStore(client)
	return nil
}

func (c *Component) Stop(_ context.Context) error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Component) Health(ctx context.Context) component.Health {
	if c.client == nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "redis not initialized"}
	}
	if err := c.client.Ping(ctx); err != nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: fmt.Sprintf("ping failed: %v", err)}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Redis",
		Type:    "redis",
		Details: fmt.Sprintf("%s db=%d pool=%d prefix=%s", c.cfg.Addr, c.cfg.DB, c.cfg.PoolSize, c.cfg.KeyPrefix),
	}
}
