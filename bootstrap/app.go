package bootstrap

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/voixagent/voixagent/component"
	"github.com/voixagent/voixagent/logger"
)

const defaultGracefulTimeout = 15 * time.Second

// App owns the process lifecycle. C is the configuration type; any struct
// embedding config.ServiceConfig satisfies Config.
type App[C Config] struct {
	Name       string
	Version    string
	Cfg        C
	Components *component.Registry
	Logger     *logger.Logger
	Summary    *Summary

	gracefulTimeout time.Duration
	quiet           bool

	configurers []func(ctx context.Context, app *App[C]) error
	onStart     []Hook
	onReady     []Hook
	onStop      []Hook
}

// NewApp applies defaults to cfg, validates it and sets up logging.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	svc := cfg.GetServiceConfig()
	o := resolveOptions(opts)

	log := o.logger
	if log == nil {
		logger.Init(svc.Logging)
		log = logger.GetGlobalLogger()
	}
	summary := NewSummary(svc.Name, svc.Version)
	if o.summaryOut != nil {
		summary.SetOutput(o.summaryOut)
	}

	app := &App[C]{
		Name:            svc.Name,
		Version:         svc.Version,
		Cfg:             cfg,
		Components:      component.NewRegistry(component.WithLogger(log.WithComponent("component"))),
		Logger:          log,
		Summary:         summary,
		gracefulTimeout: defaultGracefulTimeout,
		quiet:           o.quiet,
	}
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}
	return app, nil
}

// RegisterComponent adds c to the lifecycle.
func (a *App[C]) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// OnConfigure registers a callback that runs once the components registered
// so far are started. Components it registers are started right after.
func (a *App[C]) OnConfigure(fn func(ctx context.Context, app *App[C]) error) {
	a.configurers = append(a.configurers, fn)
}

// ReadyCheck fails when any component reports something other than healthy.
func (a *App[C]) ReadyCheck(ctx context.Context) error {
	var bad []string
	for _, h := range a.Components.HealthAll(ctx) {
		if h.Status == component.StatusHealthy {
			continue
		}
		entry := h.Name + "=" + string(h.Status)
		if h.Message != "" {
			entry += "(" + h.Message + ")"
		}
		bad = append(bad, entry)
	}
	if len(bad) > 0 {
		return fmt.Errorf("unhealthy components: %s", strings.Join(bad, ", "))
	}
	return nil
}

// Run starts everything and blocks until SIGINT, SIGTERM or ctx is done,
// then shuts down.
func (a *App[C]) Run(ctx context.Context) error {
	return a.RunTask(ctx, func(ctx context.Context) error {
		a.Logger.Info("application ready, waiting for shutdown signal")
		<-ctx.Done()
		a.Logger.Info("shutting down")
		return nil
	})
}

// RunTask starts everything, runs task and shuts down when it returns. The
// task context is canceled on SIGINT or SIGTERM. A task error wins over a
// shutdown error.
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) (err error) {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	defer func() {
		if stopErr := a.shutdown(); err == nil {
			err = stopErr
		}
	}()

	if err := a.startup(ctx); err != nil {
		return err
	}
	return task(ctx)
}

func (a *App[C]) startup(ctx context.Context) error {
	began := time.Now()
	a.Logger.Info("starting application", logger.Fields("name", a.Name, "version", a.Version))

	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"initialization", a.Components.StartAll},
		{"onStart hook", func(ctx context.Context) error { return runHooks(ctx, a.onStart) }},
		{"configuration", a.configure},
		{"ready check", a.warnIfNotReady},
		{"onReady hook", func(ctx context.Context) error { return runHooks(ctx, a.onReady) }},
	}
	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			return fmt.Errorf("%s failed: %w", step.name, err)
		}
	}

	a.Summary.SetStartupDuration(time.Since(began))
	if !a.quiet {
		a.Summary.Display(ctx, a.Components)
	}
	return nil
}

func (a *App[C]) configure(ctx context.Context) error {
	if len(a.configurers) == 0 {
		return nil
	}
	for _, fn := range a.configurers {
		if err := fn(ctx, a); err != nil {
			return err
		}
	}
	return a.Components.StartAll(ctx)
}

func (a *App[C]) warnIfNotReady(ctx context.Context) error {
	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("ready check reported issues", logger.Fields(logger.FieldError, err.Error()))
	}
	return nil
}

// shutdown runs the stop hooks, then stops components in reverse order, all
// within the graceful timeout. The first error is returned.
func (a *App[C]) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	var first error
	if err := runHooks(ctx, a.onStop); err != nil {
		a.Logger.Error("onStop hook error", logger.Fields(logger.FieldError, err.Error()))
		first = err
	}
	if err := a.Components.StopAll(ctx); err != nil {
		a.Logger.Error("shutdown completed with errors", logger.Fields(logger.FieldError, err.Error()))
		if first == nil {
			first = err
		}
	}
	a.Logger.Info("application shutdown complete")
	return first
}
