package app

import (
	"time"

	"go.uber.org/fx"

	"exusiai.dev/seqwindow/internal/app/appconfig"
	"exusiai.dev/seqwindow/internal/app/appcontext"
	"exusiai.dev/seqwindow/internal/infra"
	"exusiai.dev/seqwindow/internal/pkg/logger"
	"exusiai.dev/seqwindow/internal/repo"
	"exusiai.dev/seqwindow/internal/service"
)

func Options(ctx appcontext.Ctx, additionalOpts ...fx.Option) ([]fx.Option, error) {
	conf, err := appconfig.Parse(ctx)
	if err != nil {
		return nil, err
	}

	// logger and configuration are the only two things that are not in the fx graph
	// because some other packages need them to be initialized before fx starts
	logger.Configure(conf)

	baseOpts := []fx.Option{
		// fx meta
		fx.WithLogger(logger.Fx),

		// Misc
		fx.Supply(conf),

		// Infrastructures
		infra.Module(),

		// Repositories
		repo.Module(),

		// Services
		service.Module(),

		// Global Singleton Inits
		fx.Invoke(infra.SentryInit),

		// fx Extra Options
		fx.StartTimeout(5 * time.Second),
		fx.StopTimeout(10 * time.Second),
	}

	return append(baseOpts, additionalOpts...), nil
}

func New(ctx appcontext.Ctx, additionalOpts ...fx.Option) (*fx.App, error) {
	opts, err := Options(ctx, additionalOpts...)
	if err != nil {
		return nil, err
	}
	return fx.New(opts...), nil
}
