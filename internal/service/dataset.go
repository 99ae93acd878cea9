package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/rs/xid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"exusiai.dev/seqwindow/internal/core/features"
	"exusiai.dev/seqwindow/internal/core/packager"
	"exusiai.dev/seqwindow/internal/core/split"
	"exusiai.dev/seqwindow/internal/core/ticktable"
	"exusiai.dev/seqwindow/internal/core/windowing"
	"exusiai.dev/seqwindow/internal/model"
	builderrors "exusiai.dev/seqwindow/internal/pkg/errors"
	"exusiai.dev/seqwindow/internal/pkg/observability"
	"exusiai.dev/seqwindow/internal/repo"
	"exusiai.dev/seqwindow/internal/util"
)

// BuildReport summarizes what each stage of a build did.
type BuildReport struct {
	InputRows       int
	Reindex         ticktable.ReindexReport
	SanitizedCells  int
	KeptSessions    int
	DroppedSessions int
	Examples        int
	SplitCounts     map[string]int
	Artifacts       []string
}

type BuildResult struct {
	Dataset *model.Dataset
	Report  BuildReport
}

type Dataset struct {
	TickRepo       *repo.Tick
	SessionRepo    *repo.Session
	ArchiveService *Archive

	validate *validator.Validate
}

func NewDataset(tickRepo *repo.Tick, sessionRepo *repo.Session, archiveService *Archive) *Dataset {
	return &Dataset{
		TickRepo:       tickRepo,
		SessionRepo:    sessionRepo,
		ArchiveService: archiveService,
		validate:       util.NewValidator(),
	}
}

func timeStage(stage string) func() {
	start := time.Now()
	return func() {
		observability.BuildDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}

// Build runs the whole pipeline: read inputs, transform, write the archive and the
// requested sidecars, then enforce the minimum example count. The archive is
// written even when the guardrail fails.
func (s *Dataset) Build(ctx context.Context, opts BuildOptions) (*BuildResult, error) {
	if err := opts.Validate(s.validate); err != nil {
		return nil, err
	}
	if opts.BuildID == "" {
		opts.BuildID = xid.New().String()
	}
	logger := log.With().Str("build_id", opts.BuildID).Logger()

	done := timeStage("load")
	table, err := s.TickRepo.LoadFile(ctx, opts.TicksPath)
	if err != nil {
		return nil, err
	}
	var registry *model.Registry
	if opts.SessionsPath != "" {
		registry, err = s.SessionRepo.LoadFile(ctx, opts.SessionsPath)
		if err != nil {
			return nil, err
		}
	}
	done()

	ds, report, err := s.Assemble(ctx, table, registry, opts)
	if err != nil {
		return nil, err
	}

	done = timeStage("write")
	if err := packager.WriteFile(opts.OutPath, ds); err != nil {
		return nil, errors.Wrap(err, "failed to write dataset archive")
	}
	report.Artifacts = append(report.Artifacts, opts.OutPath)

	if opts.MetaOutPath != "" {
		if err := s.ArchiveService.WriteMeta(ctx, opts.MetaOutPath, ds); err != nil {
			return nil, errors.Wrap(err, "failed to write metadata sidecar")
		}
		report.Artifacts = append(report.Artifacts, opts.MetaOutPath)
	}
	if opts.ServingSpecPath != "" {
		if err := WriteServingSpec(opts.ServingSpecPath, NewServingSpec(ds)); err != nil {
			return nil, errors.Wrap(err, "failed to write serving spec")
		}
		report.Artifacts = append(report.Artifacts, opts.ServingSpecPath)
	}
	done()

	if opts.Upload {
		done = timeStage("upload")
		if err := s.ArchiveService.Upload(ctx, ds.BuildID, report.Artifacts...); err != nil {
			return nil, errors.Wrap(err, "failed to upload build artifacts")
		}
		done()
	}

	s.recordMetrics(ds, report)

	logger.Info().
		Str("evt.name", "dataset.build").
		Int("examples", report.Examples).
		Int("kept_sessions", report.KeptSessions).
		Int("dropped_sessions", report.DroppedSessions).
		Interface("splits", report.SplitCounts).
		Strs("artifacts", report.Artifacts).
		Msg("dataset built")

	result := &BuildResult{Dataset: ds, Report: report}
	if ds.Len() < opts.MinExamples {
		return result, errors.WithStack(builderrors.ErrInsufficientExamples.
			WithMessage("produced %d windows, need at least %d", ds.Len(), opts.MinExamples).
			WithExtras(builderrors.Extras{"examples": ds.Len(), "minExamples": opts.MinExamples, "out": opts.OutPath}))
	}
	return result, nil
}

// RequiredColumns lists every raw column a build reads, zero-filled when absent.
func RequiredColumns(featureKeys []string, families []model.LabelFamily) []string {
	cols := append([]string(nil), model.RequiredColumns...)
	cols = append(cols, featureKeys...)
	cols = append(cols, windowing.CounterColumns(families)...)
	return lo.Uniq(cols)
}

// Assemble runs the in-memory transform from a raw tick table to a packaged
// dataset. table is consumed.
func (s *Dataset) Assemble(ctx context.Context, table *model.TickTable, registry *model.Registry, opts BuildOptions) (*model.Dataset, BuildReport, error) {
	report := BuildReport{InputRows: table.Len()}
	observability.BuildRows.WithLabelValues("input").Set(float64(table.Len()))

	families := windowing.Families(opts.FamilyOptions())
	synth, err := windowing.NewSynthesizer(opts.Window, families)
	if err != nil {
		return nil, report, err
	}
	counters := windowing.CounterColumns(families)

	done := timeStage("prepare")
	table = ticktable.Prepare(table, RequiredColumns(opts.Features, families))
	table, report.Reindex, err = ticktable.Reindex(table, strings.ToLower(opts.GapPolicy))
	if err != nil {
		return nil, report, err
	}
	done()
	if err := ctx.Err(); err != nil {
		return nil, report, err
	}

	done = timeStage("derive")
	features.Derive(table)
	report.SanitizedCells = features.Sanitize(table, lo.Uniq(append(append([]string(nil), opts.Features...), counters...)))
	done()

	done = timeStage("filter")
	table, filtered := ticktable.FilterShortSessions(table, opts.MinSessionLength)
	report.KeptSessions = len(filtered.KeptSessions)
	report.DroppedSessions = len(filtered.DroppedSessions)
	observability.BuildRows.WithLabelValues("filtered").Set(float64(table.Len()))
	observability.BuildSessions.WithLabelValues("kept").Set(float64(report.KeptSessions))
	observability.BuildSessions.WithLabelValues("dropped").Set(float64(report.DroppedSessions))
	done()

	splits := split.Assign(opts.SplitSeed, filtered.KeptSessions, opts.Ratios())

	// labels read raw counters, so copy them before normalization rescales shared columns
	rawCounters := make(map[string][]float64, len(counters))
	for _, name := range counters {
		rawCounters[name] = append([]float64(nil), table.Column(name)...)
	}

	stats := model.NormStats{}
	if opts.Normalize {
		done = timeStage("normalize")
		var include func(row int) bool
		if strings.EqualFold(opts.NormScope, model.NormScopeTrain) {
			include = func(row int) bool {
				return splits[table.SessionIDs[row]] == model.SplitTrain
			}
			if !lo.Contains(lo.Values(splits), model.SplitTrain) {
				log.Warn().
					Str("evt.name", "dataset.normalize").
					Msg("no train session left after filtering, statistics fall back to mean 0 std 1")
			}
		}
		stats = features.Normalize(table, opts.Features, include)
		done()
	}

	done = timeStage("synthesize")
	examples := synth.Synthesize(windowing.Input{
		Table:    table,
		Counters: rawCounters,
		Features: opts.Features,
		Splits:   splits,
		Registry: registry,
	})
	done()

	normScope := model.NormScopeNone
	if opts.Normalize {
		normScope = strings.ToLower(opts.NormScope)
	}
	ds := packager.Assemble(packager.Header{
		BuildID:       opts.BuildID,
		Window:        opts.Window,
		Horizon:       opts.Horizon,
		FeatureCols:   opts.Features,
		NormStats:     stats,
		NormScope:     normScope,
		LabelFamilies: families,
	}, examples)

	report.Examples = ds.Len()
	report.SplitCounts = make(map[string]int, len(model.SplitNames))
	for _, name := range model.SplitNames {
		report.SplitCounts[name] = 0
	}
	for _, code := range ds.Splits {
		report.SplitCounts[model.SplitNames[code]]++
	}
	return ds, report, nil
}

func (s *Dataset) recordMetrics(ds *model.Dataset, report BuildReport) {
	for name, count := range report.SplitCounts {
		observability.BuildExamples.WithLabelValues(name).Set(float64(count))
	}
	for name, values := range ds.Labels {
		observability.LabelPositiveRate.WithLabelValues(name).Set(util.Mean(values))
	}
}
