package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kbukum/jobflow/api"
	"github.com/kbukum/jobflow/bootstrap"
	"github.com/kbukum/jobflow/server"
	"github.com/kbukum/jobflow/sse"
)

func newCmdServe(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the orchestration API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			app, err := bootstrap.NewApp(cfg)
			if err != nil {
				return err
			}
			stream := sse.NewComponent(cfg.Orchestrator.StatusPath+"/:id/events", app.Logger)
			if err := app.RegisterComponent(stream); err != nil {
				return err
			}
			// Open streams would hold the HTTP server's shutdown.
			app.OnStop(func(context.Context) error {
				stream.Hub().Stop()
				return nil
			})
			svc, err := wireEngine(app, sse.NewPublisher(stream.Hub()))
			if err != nil {
				return err
			}

			srv := server.New(cfg.Server, app.Logger)
			srv.ApplyMiddleware()
			srv.RegisterDefaultEndpoints(cfg.Name, app.Components.HealthAll)
			api.NewHandler(svc, api.WithStream(stream.Hub())).Register(srv.API())
			if err := app.RegisterComponent(server.NewComponent(srv)); err != nil {
				return err
			}
			return app.Run(cmd.Context())
		},
	}
}
