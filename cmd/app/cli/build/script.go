package build

import (
	"net/http"
	_ "net/http/pprof"

	"github.com/felixge/fgprof"
	"github.com/pkg/errors"
	"github.com/rs/xid"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"exusiai.dev/seqwindow/internal/app/appconfig"
	builderrors "exusiai.dev/seqwindow/internal/pkg/errors"
	"exusiai.dev/seqwindow/internal/pkg/observability"
	"exusiai.dev/seqwindow/internal/service"
)

func run(ctx *cli.Context, deps CommandDeps) error {
	if ctx.Bool("pprof") {
		http.DefaultServeMux.Handle("/debug/fgprof", fgprof.Handler())
		go func() {
			log.Print(http.ListenAndServe("127.0.0.1:6060", nil))
		}()
	}

	opts := Options(ctx, deps.Config)
	log.Info().Str("build_id", opts.BuildID).Str("ticks", opts.TicksPath).Msg("running build")

	result, err := deps.DatasetService.Build(ctx.Context, opts)
	if err != nil {
		code := builderrors.CodeInternalError
		var be *builderrors.BuildError
		if errors.As(err, &be) {
			code = be.ErrorCode
		}
		observability.BuildFailures.WithLabelValues(code).Inc()
	}
	if perr := observability.Push(deps.Config.PushgatewayURL, opts.BuildID); perr != nil {
		log.Warn().Err(perr).Msg("failed to push build metrics")
	}
	if err != nil {
		return errors.Wrap(err, "failed to build dataset")
	}

	log.Info().
		Int("examples", result.Report.Examples).
		Strs("artifacts", result.Report.Artifacts).
		Msg("build finished")
	return nil
}

// Options resolves build options: environment configuration first, then every flag
// that was explicitly set.
func Options(ctx *cli.Context, conf *appconfig.Config) service.BuildOptions {
	opts := service.DefaultBuildOptions(conf)
	opts.TicksPath = ctx.String("ticks")
	opts.OutPath = ctx.String("out")
	opts.SessionsPath = ctx.String("sessions")
	opts.MetaOutPath = ctx.String("meta-out")
	opts.ServingSpecPath = ctx.String("serving-spec")
	opts.Upload = ctx.Bool("upload")

	ints := map[string]*int{
		"window":       &opts.Window,
		"horizon":      &opts.Horizon,
		"minlen":       &opts.MinSessionLength,
		"acc-horizon":  &opts.AccHorizon,
		"mini-horizon": &opts.MiniHorizon,
		"min-examples": &opts.MinExamples,
	}
	for name, dst := range ints {
		if ctx.IsSet(name) {
			*dst = ctx.Int(name)
		}
	}
	if ctx.IsSet("miss-threshold") {
		opts.MissThreshold = ctx.Float64("miss-threshold")
	}
	if ctx.Bool("no-normalize") {
		opts.Normalize = false
	}
	if ctx.IsSet("norm-scope") {
		opts.NormScope = ctx.String("norm-scope")
	}
	if ctx.IsSet("gap-policy") {
		opts.GapPolicy = ctx.String("gap-policy")
	}
	if ctx.IsSet("features") {
		// a blank list means the default feature set
		if features := appconfig.ParseList(ctx.String("features")); len(features) > 0 {
			opts.Features = features
		}
	}
	if ctx.IsSet("tasks") {
		opts.Tasks = appconfig.ParseList(ctx.String("tasks"))
	}

	opts.BuildID = ctx.String("build-id")
	if opts.BuildID == "" {
		opts.BuildID = xid.New().String()
	}
	return opts
}
