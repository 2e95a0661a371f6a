// Command progresssim serves simulated remote jobs for local runs of jobflow.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kbukum/jobflow/bootstrap"
	"github.com/kbukum/jobflow/config"
	"github.com/kbukum/jobflow/logger"
	"github.com/kbukum/jobflow/progresssim"
	"github.com/kbukum/jobflow/server"
)

// Config is the root configuration of the simulator.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server    server.Config      `yaml:"server" mapstructure:"server"`
	Simulator progresssim.Config `yaml:"simulator" mapstructure:"simulator"`
}

func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "progresssim"
	}
	c.ServiceConfig.ApplyDefaults()
	if c.Server.Port == 0 {
		c.Server.Port = 9090
	}
	c.Server.ApplyDefaults()
	c.Simulator.ApplyDefaults()
}

func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return c.Simulator.Validate()
}

func main() {
	cfg := &Config{}
	if err := config.LoadConfig("progresssim", cfg); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	sim := progresssim.New(cfg.Simulator)
	srv := server.New(cfg.Server, app.Logger)
	srv.ApplyMiddleware()
	srv.RegisterDefaultEndpoints(cfg.Name, app.Components.HealthAll)
	sim.Register(srv.Engine())
	if err := app.RegisterComponent(server.NewComponent(srv)); err != nil {
		app.Logger.Fatal("registering server", logger.Fields(logger.FieldError, err.Error()))
	}

	app.OnReady(func(context.Context) error {
		app.Logger.Info("simulator ready", logger.Fields("step", cfg.Simulator.Step, "fail_jobs", cfg.Simulator.FailJobs))
		return nil
	})
	if err := app.Run(context.Background()); err != nil {
		app.Logger.Fatal("progresssim exited", logger.Fields(logger.FieldError, err.Error()))
	}
}
