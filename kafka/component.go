package kafka

import (
	"context"
	"fmt"
	"strings"

	"github.com/kbukum/jobflow/component"
	"github.com/kbukum/jobflow/logger"
	"github.com/kbukum/jobflow/store"
)

// Component owns the snapshot publisher.
type Component struct {
	cfg       Config
	source    string
	log       *logger.Logger
	publisher *SnapshotPublisher
}

var _ component.Component = (*Component)(nil)
var _ component.Describable = (*Component)(nil)

// NewComponent creates the component; source names this process in events.
func NewComponent(cfg Config, source string, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, source: source, log: log.WithComponent("kafka")}
}

// Publisher returns the snapshot publisher, or nil before Start.
func (c *Component) Publisher() store.Publisher {
	if c.publisher == nil {
		return nil
	}
	return c.publisher
}

func (c *Component) Name() string { return "kafka" }

func (c *Component) Start(_ context.Context) error {
	if err := c.cfg.Validate(); err != nil {
		return fmt.Errorf("kafka config: %w", err)
	}
	w, err := NewWriter(c.cfg, c.log)
	if err != nil {
		return err
	}
	c.publisher = NewSnapshotPublisher(w, c.source, c.cfg.Retries, c.log)
	return nil
}

func (c *Component) Stop(_ context.Context) error {
	if c.publisher == nil {
		return nil
	}
	return c.publisher.Close()
}

// Health reports degraded when the writer has recorded errors since the
// last check; publishing is best effort so it never reports unhealthy once
// started.
func (c *Component) Health(_ context.Context) component.Health {
	if c.publisher == nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "publisher not started"}
	}
	m := c.publisher.Metrics()
	if m.Errors > 0 {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusDegraded,
			Message: fmt.Sprintf("%d write errors in %d writes", m.Errors, m.Writes),
		}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Kafka",
		Type:    "kafka",
		Details: fmt.Sprintf("%s topic=%s compression=%s", strings.Join(c.cfg.Brokers, ","), c.cfg.Topic, c.cfg.Compression),
	}
}
