package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/voixagent/voixagent/auth"
	"github.com/voixagent/voixagent/bootstrap"
	"github.com/voixagent/voixagent/config"
	"github.com/voixagent/voixagent/kafka"
	"github.com/voixagent/voixagent/logger"
	"github.com/voixagent/voixagent/metrics"
	"github.com/voixagent/voixagent/observability"
	"github.com/voixagent/voixagent/plugin/builtin"
	"github.com/voixagent/voixagent/provider"
	"github.com/voixagent/voixagent/redis"
	"github.com/voixagent/voixagent/resolver"
	"github.com/voixagent/voixagent/server"
	"github.com/voixagent/voixagent/session"
	"github.com/voixagent/voixagent/sse"
	"github.com/voixagent/voixagent/storage"
	"github.com/voixagent/voixagent/version"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and session runtime",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *AppConfig) error {
	if cfg.Version == "" {
		cfg.Version = version.Get().Short()
	}
	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}
	log := app.Logger

	telemetry, err := observability.Setup(ctx, cfg.Telemetry, cfg.Name, cfg.Version, cfg.Environment)
	if err != nil {
		return err
	}
	app.OnStop(telemetry.Shutdown)

	env, err := config.FromEnv(os.LookupEnv)
	if err != nil {
		return err
	}
	agent := config.NewLayered(env)
	store := config.NewStore(cfg.AgentFile, config.WithDefaults(agent.Base()))
	if err := app.RegisterComponent(config.NewWatcher(store, agent)); err != nil {
		return err
	}

	agg, err := newAggregator(ctx, app, cfg, log)
	if err != nil {
		return err
	}

	var voice *observability.VoiceMetrics
	if cfg.Telemetry.Enabled {
		if voice, err = observability.NewVoiceMetrics(observability.Meter(serviceName)); err != nil {
			return err
		}
		agg.AddObserver(observability.NewMetricsObserver(voice))
	}

	var memory *redis.Component
	if cfg.Redis.Enabled {
		memory = redis.NewComponent(cfg.Redis, log)
		if err := app.RegisterComponent(memory); err != nil {
			return err
		}
	}

	if cfg.Kafka.Enabled {
		events, err := kafka.NewComponent(cfg.Kafka, log)
		if err != nil {
			return err
		}
		if err := app.RegisterComponent(events); err != nil {
			return err
		}
		agg.AddObserver(events.Sink())
	}

	stream := sse.NewComponent("/metrics/stream")
	if err := app.RegisterComponent(stream); err != nil {
		return err
	}
	agg.AddObserver(stream.Hub())

	prom := metrics.NewPrometheusObserver(cfg.Metrics.Namespace)
	agg.AddObserver(prom)
	if err := app.RegisterComponent(agg); err != nil {
		return err
	}

	// Sessions and the HTTP surface need the started infrastructure (redis
	// client), so they are built in the configure phase.
	app.OnConfigure(func(ctx context.Context, app *bootstrap.App[*AppConfig]) error {
		opts := builtin.Options{}
		if memory != nil {
			opts.Memory = redis.NewTypedStore[builtin.History](memory.Client(), cfg.Redis.KeyPrefix)
		}
		plugins, err := builtin.NewRegistry(opts)
		if err != nil {
			return err
		}

		catalog := resolver.DefaultCatalog()
		resOpts := []resolver.Option{resolver.WithLogger(log.WithComponent("resolver"))}
		if voice != nil {
			resOpts = append(resOpts, resolver.WithMetrics(voice))
		}
		sessions := session.NewRegistry(cfg.Session, agent, resolver.New(catalog, resOpts...), plugins,
			session.WithLogger(log.WithComponent("sessions")),
			session.WithRecorder(agg),
		)
		if err := app.RegisterComponent(sessions); err != nil {
			return err
		}

		tokens, err := auth.NewTokenService(cfg.LiveKit)
		if err != nil {
			log.Warn("LiveKit credentials not set, /token will answer 500", logger.Fields(logger.FieldError, err.Error()))
			tokens = nil
		}

		srv := server.New(cfg.Server, log)
		srv.Mount(server.NewAPI(server.Deps{
			ServiceName: cfg.Name,
			Sessions:    sessions,
			Metrics:     agg,
			Stream:      stream.Hub(),
			Prometheus:  prom.Handler(),
			Tokens:      tokens,
			Agent:       agent,
			Catalog:     catalog,
			Plugins:     plugins,
			Lookup:      os.LookupEnv,
			Health:      app.Components.HealthAll,
			RateLimit:   cfg.Server.RateLimit,
		}, log))
		if err := app.RegisterComponent(srv); err != nil {
			return err
		}

		trackAgent(app.Summary, agent.Current())
		return nil
	})

	return app.Run(ctx)
}

// newAggregator builds the metrics aggregator with its snapshot publishers:
// the local file and, when configured, object storage.
func newAggregator(ctx context.Context, app *bootstrap.App[*AppConfig], cfg *AppConfig, log *logger.Logger) (*metrics.Aggregator, error) {
	agg := metrics.NewAggregator(metrics.Config{
		Capacity:        cfg.Metrics.Capacity,
		PublishInterval: cfg.Metrics.PublishInterval,
	}, metrics.WithLogger(log.WithComponent("metrics")))
	agg.AddPublisher(metrics.NewFilePublisher(cfg.Metrics.File))

	if cfg.Storage.Enabled {
		st, err := storage.New(ctx, cfg.Storage)
		if err != nil {
			return nil, err
		}
		agg.AddPublisher(storage.NewSnapshotPublisher(st, cfg.Storage.Key))
		log.Info("publishing metrics snapshots to storage", logger.Fields("provider", cfg.Storage.Provider, "key", cfg.Storage.Key))
	}
	return agg, nil
}

func trackAgent(summary *bootstrap.Summary, agent config.AgentConfig) {
	for _, capability := range provider.Capabilities {
		spec := agent.Spec(capability)
		summary.TrackProvider(capability.ConfigKey(), spec.Provider, spec.Model)
	}
	var names []string
	for _, p := range agent.EnabledPlugins() {
		names = append(names, p.Name)
	}
	summary.TrackPlugins(names...)
}
