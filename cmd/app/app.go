package app

import (
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	cliapp "exusiai.dev/seqwindow/cmd/app/cli"
	"exusiai.dev/seqwindow/cmd/app/cli/build"
	"exusiai.dev/seqwindow/cmd/app/cli/inspect"
	"exusiai.dev/seqwindow/internal/pkg/bininfo"
	builderrors "exusiai.dev/seqwindow/internal/pkg/errors"
)

func Run() {
	app := &cli.App{
		Name:        "seqwindow",
		Usage:       "turn per-second game telemetry into windowed training examples",
		Description: "Offline batch builder for sequence-model datasets. Built with Go, urfave/cli and go.uber.org/fx.",
		Version:     bininfo.Describe(),
		Commands: []*cli.Command{
			build.Command(cliapp.DepsFn[build.CommandDeps]()),
			inspect.Command(cliapp.DepsFn[inspect.CommandDeps]()),
		},
	}
	if err := app.Run(os.Args); err != nil {
		os.Exit(report(err))
	}
}

// report logs a fatal error, forwards it to Sentry and returns the process exit code.
func report(err error) int {
	code := builderrors.ExitInternal
	var be *builderrors.BuildError
	if errors.As(err, &be) {
		code = be.ExitCode
	}

	sentry.CaptureException(err)
	sentry.Flush(2 * time.Second)

	log.Error().Stack().Err(err).Int("exit_code", code).Msg("failed to run app")
	return code
}
