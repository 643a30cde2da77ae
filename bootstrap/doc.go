// Package bootstrap runs the agent server lifecycle: typed configuration,
// component start and stop, hooks and the startup summary.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(sessions)
//	app.OnConfigure(func(ctx context.Context, a *bootstrap.App[*AppConfig]) error {
//	    return a.RegisterComponent(server.New(a.Cfg.Server, a.Logger))
//	})
//	err = app.Run(ctx)
//
// RunTask runs the same lifecycle around a finite task; Run is RunTask with
// a task that waits for SIGINT or SIGTERM.
package bootstrap
