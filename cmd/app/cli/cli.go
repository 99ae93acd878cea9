package cli

import (
	"context"

	"go.uber.org/fx"

	"exusiai.dev/seqwindow/internal/app"
	"exusiai.dev/seqwindow/internal/app/appcontext"
)

func Start(module fx.Option) error {
	a, err := app.New(appcontext.Declare(appcontext.EnvCLI), module)
	if err != nil {
		return err
	}
	return a.Start(context.Background())
}

// DepsFn returns a function that builds the dependency graph and populates T from it.
// The graph is only built when the returned function runs, so commands that fail
// flag parsing never touch configuration.
func DepsFn[T any]() func() (T, error) {
	return func() (T, error) {
		var deps T
		err := Start(fx.Populate(&deps))
		return deps, err
	}
}
