package service

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"exusiai.dev/seqwindow/internal/app/appconfig"
	"exusiai.dev/seqwindow/internal/core/windowing"
	"exusiai.dev/seqwindow/internal/model"
	"exusiai.dev/seqwindow/internal/pkg/archiver"
	builderrors "exusiai.dev/seqwindow/internal/pkg/errors"
	"exusiai.dev/seqwindow/internal/pkg/npz"
	"exusiai.dev/seqwindow/internal/repo"
	"exusiai.dev/seqwindow/internal/util"
)

const testBuildID = "cn1bqgkq8kt0l0ckf1tg"

func newTestDataset() *Dataset {
	return &Dataset{
		TickRepo:       repo.NewTick(),
		SessionRepo:    repo.NewSession(),
		ArchiveService: &Archive{uploader: &archiver.Uploader{}},
		validate:       util.NewValidator(),
	}
}

func testConfig() *appconfig.Config {
	return &appconfig.Config{ConfigSpec: appconfig.ConfigSpec{
		WindowLength:     20,
		Horizon:          10,
		MinSessionLength: 40,
		Normalize:        true,
		NormScope:        "all",
		Tasks:            appconfig.FeatureList{"miss"},
		MissThreshold:    1,
		AccHorizon:       5,
		AccThreshold:     10,
		MiniHorizon:      10,
		ScoreThreshold:   1,
		GapPolicy:        "fill",
		MinExamples:      0,
		SplitSeed:        "seqwindow",
		TrainRatio:       0.8,
		ValRatio:         0.1,
	}}
}

// writeTicks writes one session per entry of lengths. Session "sN" has miss
// counting up by one every second from sec 30.
func writeTicks(t *testing.T, dir string, lengths ...int) string {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("sessionId,sec,score,miss,tLeftSec,durationPlannedSec,rt_1s,accGoodPct\n")
	for s, n := range lengths {
		for sec := 0; sec < n; sec++ {
			miss := 0
			if sec >= 30 {
				miss = sec - 29
			}
			fmt.Fprintf(&sb, "s%d,%d,%d,%d,%d,%d,%d,%d\n", s, sec, sec*10, miss, n-sec, n, 200+sec%7, 100-sec)
		}
	}
	p := filepath.Join(dir, "ticks.csv")
	require.NoError(t, os.WriteFile(p, []byte(sb.String()), 0o644))
	return p
}

func options(t *testing.T, lengths ...int) BuildOptions {
	dir := t.TempDir()
	opts := DefaultBuildOptions(testConfig())
	opts.TicksPath = writeTicks(t, dir, lengths...)
	opts.OutPath = filepath.Join(dir, "dataset.npz")
	opts.BuildID = testBuildID
	return opts
}

func TestBuildEndToEnd(t *testing.T) {
	opts := options(t, 50, 10)
	result, err := newTestDataset().Build(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Report.KeptSessions)
	assert.Equal(t, 1, result.Report.DroppedSessions)
	require.Equal(t, 21, result.Dataset.Len(), spew.Sdump(result.Report))

	bins := result.Dataset.Labels[windowing.OutputMissBinary]
	for i, v := range bins {
		expected := float32(0)
		if 19+i+10 >= 30 {
			expected = 1
		}
		assert.Equal(t, expected, v, "anchor %d", 19+i)
	}

	summary, err := NewInspect().Summarize(opts.OutPath)
	require.NoError(t, err)
	assert.Equal(t, []int{21, 20, len(model.DefaultFeatures)}, summary.Shape)
	assert.Equal(t, model.DefaultFeatures, summary.FeatureCols)
	assert.Equal(t, testBuildID, summary.BuildID)
	assert.Equal(t, model.NormScopeAll, summary.NormScope)
	assert.Equal(t, 1, summary.Sessions)
}

func TestBuildFailsBelowMinExamplesAfterWriting(t *testing.T) {
	opts := options(t, 50)
	opts.MinExamples = 200

	result, err := newTestDataset().Build(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, builderrors.ErrInsufficientExamples))
	assert.Contains(t, err.Error(), "produced 21 windows, need at least 200")

	var be *builderrors.BuildError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, builderrors.ExitInsufficient, be.ExitCode)

	require.NotNil(t, result)
	assert.FileExists(t, opts.OutPath)
}

func TestBuildIsByteIdentical(t *testing.T) {
	opts := options(t, 60, 45)
	opts.Tasks = []string{model.TaskMiss, model.TaskAcc, model.TaskScore}
	_, err := newTestDataset().Build(context.Background(), opts)
	require.NoError(t, err)
	first, err := os.ReadFile(opts.OutPath)
	require.NoError(t, err)

	_, err = newTestDataset().Build(context.Background(), opts)
	require.NoError(t, err)
	second, err := os.ReadFile(opts.OutPath)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuildEmptyInput(t *testing.T) {
	opts := options(t)
	result, err := newTestDataset().Build(context.Background(), opts)
	require.NoError(t, err)
	assert.Zero(t, result.Dataset.Len())

	r, err := npz.Open(opts.OutPath)
	require.NoError(t, err)
	x, ok := r.Array("X")
	require.True(t, ok)
	assert.Equal(t, []int{0, 20, len(model.DefaultFeatures)}, x.Shape)
	yBin, ok := r.Array(windowing.OutputMissBinary)
	require.True(t, ok)
	assert.Equal(t, []int{0}, yBin.Shape)
}

func TestBuildRejectsInvalidOptions(t *testing.T) {
	cases := map[string]func(o *BuildOptions){
		"window":      func(o *BuildOptions) { o.Window = 0 },
		"min length":  func(o *BuildOptions) { o.MinSessionLength = 0 },
		"features":    func(o *BuildOptions) { o.Features = nil },
		"duplicate":   func(o *BuildOptions) { o.Features = []string{"score", "score"} },
		"identity":    func(o *BuildOptions) { o.Features = []string{"sec"} },
		"task":        func(o *BuildOptions) { o.Tasks = []string{"miss", "combo"} },
		"norm scope":  func(o *BuildOptions) { o.NormScope = "test" },
		"gap policy":  func(o *BuildOptions) { o.GapPolicy = "interpolate" },
		"split ratio": func(o *BuildOptions) { o.TrainRatio, o.ValRatio = 0.9, 0.2 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			opts := options(t, 50)
			mutate(&opts)
			_, err := newTestDataset().Build(context.Background(), opts)
			assert.True(t, errors.Is(err, builderrors.ErrInvalidConfig), "%+v", err)
			assert.NoFileExists(t, opts.OutPath)
		})
	}
}

func TestBuildAcceptsUppercasePolicies(t *testing.T) {
	opts := options(t, 50)
	opts.GapPolicy = "FILL"
	opts.NormScope = "TRAIN"

	result, err := newTestDataset().Build(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 21, result.Dataset.Len())
	assert.Equal(t, model.NormScopeTrain, result.Dataset.NormScope)
}

func TestBuildRejectsGapsUnderRejectPolicy(t *testing.T) {
	dir := t.TempDir()
	ticks := filepath.Join(dir, "ticks.csv")
	require.NoError(t, os.WriteFile(ticks, []byte("sessionId,sec,miss\na,0,0\na,1,0\na,3,0\n"), 0o644))

	opts := DefaultBuildOptions(testConfig())
	opts.TicksPath = ticks
	opts.OutPath = filepath.Join(dir, "dataset.npz")
	opts.GapPolicy = "reject"

	_, err := newTestDataset().Build(context.Background(), opts)
	assert.True(t, errors.Is(err, builderrors.ErrMalformedInput))
	assert.Contains(t, err.Error(), `session "a" has a gap`)
}

func TestLabelsIgnoreNormalization(t *testing.T) {
	opts := options(t, 55)
	opts.Tasks = []string{model.TaskMiss, model.TaskAcc}

	normalized, err := newTestDataset().Build(context.Background(), opts)
	require.NoError(t, err)

	opts.Normalize = false
	raw, err := newTestDataset().Build(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, raw.Dataset.Labels, normalized.Dataset.Labels)
	assert.NotEqual(t, raw.Dataset.X, normalized.Dataset.X)
	assert.Empty(t, raw.Dataset.NormStats)
	assert.Equal(t, model.NormScopeNone, raw.Dataset.NormScope)
}

func TestBuildTrainScopeStatistics(t *testing.T) {
	opts := options(t, 60, 80, 45, 70, 50)
	opts.NormScope = model.NormScopeTrain

	result, err := newTestDataset().Build(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, model.NormScopeTrain, result.Dataset.NormScope)
	assert.Len(t, result.Dataset.NormStats, len(model.DefaultFeatures))

	total := 0
	for _, n := range result.Report.SplitCounts {
		total += n
	}
	assert.Equal(t, result.Dataset.Len(), total)
}

func TestBuildWritesSidecars(t *testing.T) {
	opts := options(t, 50)
	dir := filepath.Dir(opts.OutPath)
	opts.MetaOutPath = filepath.Join(dir, "meta"+archiver.FileExt)
	opts.ServingSpecPath = filepath.Join(dir, "serving.msgpack")
	opts.SessionsPath = filepath.Join(dir, "sessions.csv")
	require.NoError(t, os.WriteFile(opts.SessionsPath, []byte("sessionId,runMode,diff\ns0,study,hard\n"), 0o644))

	result, err := newTestDataset().Build(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, []string{opts.OutPath, opts.MetaOutPath, opts.ServingSpecPath}, result.Report.Artifacts)

	f, err := os.Open(opts.MetaOutPath)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	scanner := bufio.NewScanner(gz)
	lines := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		assert.Equal(t, testBuildID, gjson.GetBytes(line, "buildId").String())
		assert.Equal(t, "s0", gjson.GetBytes(line, "sessionId").String())
		assert.Equal(t, int64(19+lines), gjson.GetBytes(line, "sec_t").Int())
		assert.Equal(t, "study", gjson.GetBytes(line, "runMode").String())
		assert.Equal(t, "hard", gjson.GetBytes(line, "diff").String())
		lines++
	}
	assert.Equal(t, 21, lines)

	spec, err := ReadServingSpec(opts.ServingSpecPath)
	require.NoError(t, err)
	assert.Equal(t, testBuildID, spec.BuildID)
	assert.Equal(t, model.DefaultFeatures, spec.FeatureCols)
	assert.Equal(t, result.Dataset.NormStats, spec.NormStats)
	assert.Equal(t, 20, spec.Window)
	assert.Equal(t, model.DerivedDefinitions, spec.Derived)
}

func TestUploadRequiresBucket(t *testing.T) {
	opts := options(t, 50)
	opts.Upload = true
	_, err := newTestDataset().Build(context.Background(), opts)
	assert.True(t, errors.Is(err, builderrors.ErrInvalidConfig))
}
