package main

import (
	"context"
	"fmt"

	"github.com/kbukum/jobflow/bootstrap"
	"github.com/kbukum/jobflow/dag"
	"github.com/kbukum/jobflow/database"
	"github.com/kbukum/jobflow/engine"
	"github.com/kbukum/jobflow/jobproxy"
	"github.com/kbukum/jobflow/kafka"
	"github.com/kbukum/jobflow/logger"
	"github.com/kbukum/jobflow/observability"
	"github.com/kbukum/jobflow/redis"
	"github.com/kbukum/jobflow/resilience"
	"github.com/kbukum/jobflow/store"
)

// wireEngine registers the store backend, the optional Kafka publisher and
// the engine on app, in start order. Every checkpoint is also handed to
// publishers.
func wireEngine(app *bootstrap.App[*Config], publishers ...store.Publisher) (*engine.Service, error) {
	cfg := app.Cfg
	log := app.Logger

	if cfg.Tracing.Enabled {
		shutdown, err := observability.Setup(context.Background(), cfg.Tracing, cfg.Name, cfg.Version, cfg.Environment)
		if err != nil {
			return nil, fmt.Errorf("observability: %w", err)
		}
		app.OnStop(bootstrap.Hook(shutdown))
	}
	metrics, err := observability.DefaultMetrics()
	if err != nil {
		return nil, err
	}

	st, err := storeBackend(app)
	if err != nil {
		return nil, err
	}
	backend := cfg.Orchestrator.Store

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.Orchestrator.CheckpointRetries
	subOpts := []store.SubstrateOption{
		store.WithRetry(retry),
		store.WithMetrics(metrics),
		store.WithLogger(log.WithComponent("substrate")),
	}
	if cfg.Kafka.Enabled {
		kc := kafka.NewComponent(cfg.Kafka, cfg.Name, log)
		if err := app.RegisterComponent(kc); err != nil {
			return nil, err
		}
		publishers = append(publishers, store.PublisherFunc(func(ctx context.Context, snap *dag.StatusSnapshot) error {
			p := kc.Publisher()
			if p == nil {
				return store.ErrUnavailable
			}
			return p.Publish(ctx, snap)
		}))
	}
	if len(publishers) > 0 {
		subOpts = append(subOpts, store.WithPublisher(store.Publishers(publishers)))
	}
	substrate := store.NewSubstrate(st, backend, subOpts...)

	proxy, err := jobproxy.NewFromConfig(cfg.HTTPClient)
	if err != nil {
		return nil, fmt.Errorf("job proxy: %w", err)
	}
	app.OnStop(func(context.Context) error {
		proxy.Close()
		return nil
	})

	runner := engine.NewRunner(proxy, cfg.Orchestrator.PollInterval, dag.WallClock{}, metrics, log)
	svc := engine.New(cfg.Orchestrator, st, backend, substrate, runner, engine.WithLogger(log.WithComponent("engine")))
	if err := app.RegisterComponent(svc); err != nil {
		return nil, err
	}
	log.Info("engine wired", logger.Fields("store", backend, "kafka", cfg.Kafka.Enabled, "tracing", cfg.Tracing.Enabled))
	return svc, nil
}

func storeBackend(app *bootstrap.App[*Config]) (store.Store, error) {
	cfg := app.Cfg
	switch cfg.Orchestrator.Store {
	case engine.StoreRedis:
		rc := redis.NewComponent(cfg.Redis, app.Logger)
		if err := app.RegisterComponent(rc); err != nil {
			return nil, err
		}
		return store.Late(rc.Store), nil
	case engine.StoreDatabase:
		dc := database.NewComponent(cfg.Database, app.Logger)
		if err := app.RegisterComponent(dc); err != nil {
			return nil, err
		}
		return store.Late(dc.Store), nil
	default:
		return store.NewMemory(), nil
	}
}
