package sse

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/jobflow/component"
	"github.com/kbukum/jobflow/logger"
)

// Component runs a Hub under the component registry.
type Component struct {
	hub  *Hub
	path string
	wg   sync.WaitGroup
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates a hub; path is the stream route, for Describe.
func NewComponent(path string, log *logger.Logger) *Component {
	return &Component{hub: NewHub(log.WithComponent("sse")), path: path}
}

func (c *Component) Hub() *Hub { return c.hub }

func (c *Component) Name() string { return "sse" }

func (c *Component) Start(_ context.Context) error {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.hub.Run()
	}()
	return nil
}

func (c *Component) Stop(_ context.Context) error {
	c.hub.Stop()
	c.wg.Wait()
	return nil
}

func (c *Component) Health(_ context.Context) component.Health {
	return component.Health{
		Name:    c.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("%d streams open", c.hub.ClientCount()),
	}
}

func (c *Component) Describe() component.Description {
	return component.Description{Name: "Status stream", Type: "sse", Details: "Path: " + c.path}
}
