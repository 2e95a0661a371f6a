package server

import (
	"context"
	"fmt"

	"github.com/kbukum/jobflow/component"
)

const componentName = "http-server"

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// Component manages a Server's lifecycle.
type Component struct {
	server  *Server
	started bool
}

func NewComponent(s *Server) *Component {
	return &Component{server: s}
}

func (c *Component) Name() string { return componentName }

func (c *Component) Start(ctx context.Context) error {
	if err := c.server.Start(ctx); err != nil {
		return err
	}
	c.started = true
	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	c.started = false
	return c.server.Stop(ctx)
}

func (c *Component) Health(_ context.Context) component.Health {
	if !c.started {
		return component.Health{Name: componentName, Status: component.StatusUnhealthy, Message: "not serving"}
	}
	return component.Health{Name: componentName, Status: component.StatusHealthy}
}

func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "HTTP Server",
		Type:    "server",
		Details: fmt.Sprintf("%s auth=%t routes=%d", c.server.Addr(), c.server.config.Auth.Enabled, len(c.server.engine.Routes())),
	}
}
