package testentry

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"

	"exusiai.dev/seqwindow/internal/app/appconfig"
	"exusiai.dev/seqwindow/internal/app/appcontext"
	"exusiai.dev/seqwindow/internal/infra"
	"exusiai.dev/seqwindow/internal/repo"
	"exusiai.dev/seqwindow/internal/service"
)

// Populate builds the dependency graph used by the CLI and fills targets from it.
func Populate(t testing.TB, targets ...any) {
	t.Helper()

	conf, err := appconfig.Parse(appcontext.Declare(appcontext.EnvTest))
	if err != nil {
		t.Fatal(err)
	}

	// for testing, logger is too annoying. therefore, we use a NopLogger here
	opts := []fx.Option{
		fx.NopLogger,
		fx.Supply(conf),
		infra.Module(),
		repo.Module(),
		service.Module(),
		fx.Populate(targets...),
		fx.Invoke(func() {
			log.Logger = log.Logger.Output(zerolog.NewTestWriter(t))
		}),
	}

	app := fx.New(opts...)
	if err := app.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = app.Stop(context.Background())
	})
}
