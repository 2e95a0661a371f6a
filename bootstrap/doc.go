// Package bootstrap runs a jobflow binary: it validates the typed config,
// sets up logging, starts registered components in order, waits for a
// signal (Run) or a finite task (RunTask), then stops components in reverse.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(store)
//	app.RegisterComponent(engine)
//	app.RegisterComponent(server)
//	err = app.Run(ctx)
package bootstrap
