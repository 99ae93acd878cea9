package build

import (
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"

	"exusiai.dev/seqwindow/internal/app/appconfig"
	"exusiai.dev/seqwindow/internal/service"
)

type CommandDeps struct {
	fx.In

	Config         *appconfig.Config
	DatasetService *service.Dataset
}

func Command(depsFn func() (CommandDeps, error)) *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "build a windowed dataset archive from a ticks csv",
		Description: "Reads per-second ticks, derives features, filters short sessions, normalizes, " +
			"slides windows and writes an .npz archive. Flags override SEQWINDOW_* environment configuration.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "ticks", Usage: "ticks csv `FILE`", Required: true},
			&cli.StringFlag{Name: "out", Usage: "output .npz `FILE`", Required: true},
			&cli.StringFlag{Name: "sessions", Usage: "optional session registry csv `FILE`"},
			&cli.IntFlag{Name: "window", Usage: "window length in seconds (default: 20)"},
			&cli.IntFlag{Name: "horizon", Usage: "main label horizon in seconds (default: 10)"},
			&cli.IntFlag{Name: "minlen", Usage: "minimum session length (default: 40)"},
			&cli.BoolFlag{Name: "no-normalize", Usage: "skip feature standardization"},
			&cli.StringFlag{Name: "features", Usage: "comma separated feature order (default: built-in 21 features)"},
			&cli.StringFlag{Name: "tasks", Usage: "comma separated label families: miss,acc,mini,score (default: miss)"},
			&cli.IntFlag{Name: "acc-horizon", Usage: "horizon of the acc family (default: 5)"},
			&cli.IntFlag{Name: "mini-horizon", Usage: "horizon of the mini family (default: 10)"},
			&cli.Float64Flag{Name: "miss-threshold", Usage: "miss increase at which y_bin fires (default: 1)"},
			&cli.StringFlag{Name: "norm-scope", Usage: "rows normalization statistics are taken over: all, train (default: all)"},
			&cli.StringFlag{Name: "gap-policy", Usage: "handling of missing seconds: fill, reject, ignore (default: fill)"},
			&cli.IntFlag{Name: "min-examples", Usage: "fail when fewer windows are produced (default: 200)"},
			&cli.StringFlag{Name: "meta-out", Usage: "write metadata records as gzip JSON Lines to `FILE`"},
			&cli.StringFlag{Name: "serving-spec", Usage: "write the msgpack serving spec to `FILE`"},
			&cli.StringFlag{Name: "build-id", Usage: "fixed build id, for reproducible archives"},
			&cli.BoolFlag{Name: "upload", Usage: "upload artifacts to SEQWINDOW_ARCHIVE_S3_BUCKET"},
			&cli.BoolFlag{Name: "pprof", Usage: "serve fgprof on 127.0.0.1:6060 while building"},
		},
		Action: func(ctx *cli.Context) error {
			deps, err := depsFn()
			if err != nil {
				return err
			}
			return run(ctx, deps)
		},
	}
}
