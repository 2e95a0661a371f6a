package database

import (
	"context"
	"fmt"

	"github.com/kbukum/jobflow/component"
	"github.com/kbukum/jobflow/logger"
	"github.com/kbukum/jobflow/store"
)

// Component owns the connection pool and exposes the instance store.
type Component struct {
	db    *DB
	store *InstanceStore
	cfg   Config
	log   *logger.Logger
}

var _ component.Component = (*Component)(nil)
var _ component.Describable = (*Component)(nil)

func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log.WithComponent("database")}
}

// Store returns the instance store, or nil before Start.
func (c *Component) Store() store.Store {
	if c.store == nil {
		return nil
	}
	return c.store
}

func (c *Component) Name() string { return "database" }

func (c *Component) Start(ctx context.Context) error {
	db, err := Open(ctx, c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("database start: %w", err)
	}
	st, err := NewInstanceStore(db)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("database migrate: %w", err)
	}
	c.db, c.store = db, st
	return nil
}

func (c *Component) Stop(_ context.Context) error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *Component) Health(ctx context.Context) component.Health {
	if c.db == nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "database not initialized"}
	}
	if err := c.db.PingContext(ctx); err != nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: fmt.Sprintf("ping failed: %v", err)}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Database",
		Type:    "database",
		Details: fmt.Sprintf("driver=%s pool=%d/%d", c.cfg.Driver, c.cfg.MaxOpenConns, c.cfg.MaxIdleConns),
	}
}
