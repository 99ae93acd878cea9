package packager

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"exusiai.dev/seqwindow/internal/core/windowing"
	"exusiai.dev/seqwindow/internal/model"
	"exusiai.dev/seqwindow/internal/pkg/npz"
)

func header() Header {
	return Header{
		BuildID:     "cn1bqgkq8kt0l0ckf1tg",
		Window:      2,
		Horizon:     3,
		FeatureCols: []string{"a", "b"},
		NormStats:   model.NormStats{"a": {Mean: 1, Std: 2}, "b": {Mean: 0, Std: 1}},
		NormScope:   model.NormScopeAll,
		LabelFamilies: windowing.Families(windowing.FamilyOptions{
			Tasks:         []string{model.TaskMiss},
			Horizon:       3,
			MissThreshold: 1,
		}),
	}
}

func examples() []model.Example {
	return []model.Example{
		{
			X:      []float32{1, 2, 3, 4},
			Labels: map[string]float32{windowing.OutputMissBinary: 1, windowing.OutputMissCount: 2},
			Split:  model.SplitTrain,
			Meta:   model.MetaRecord{SessionID: "s1", SecT: 1, SecTH: 4, MissT: 0, MissTH: 2, Split: "train"},
		},
		{
			X:      []float32{5, 6, 7, 8},
			Labels: map[string]float32{windowing.OutputMissBinary: 0, windowing.OutputMissCount: 0},
			Split:  model.SplitTest,
			Meta:   model.MetaRecord{SessionID: "s2", SecT: 1, SecTH: 4, Split: "test"},
		},
	}
}

func encode(t *testing.T, ds *model.Dataset) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, ds))
	return buf.Bytes()
}

func TestWriteRoundTrip(t *testing.T) {
	b := encode(t, Assemble(header(), examples()))
	r, err := npz.NewReader(bytes.NewReader(b), int64(len(b)))
	require.NoError(t, err)

	x, ok := r.Array(KeyX)
	require.True(t, ok)
	assert.Equal(t, []int{2, 2, 2}, x.Shape)
	values, err := x.Float32s()
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6, 7, 8}, values)

	yBin, ok := r.Array(windowing.OutputMissBinary)
	require.True(t, ok)
	bins, _ := yBin.Float32s()
	assert.Equal(t, []float32{1, 0}, bins)

	yCount, _ := r.Array(windowing.OutputMissCount)
	counts, _ := yCount.Float32s()
	assert.Equal(t, []float32{2, 0}, counts)

	split, _ := r.Array(KeySplit)
	codes, _ := split.Int8s()
	assert.Equal(t, []int8{0, 2}, codes)

	cols, _ := r.Array(KeyFeatureCols)
	names, _ := cols.Strings()
	assert.Equal(t, []string{"a", "b"}, names)

	metaArr, _ := r.Array(KeyMetaJSON)
	meta, _ := metaArr.Strings()
	require.Len(t, meta, 1)
	assert.Equal(t, "s2", gjson.Get(meta[0], "1.sessionId").String())
	assert.Equal(t, int64(4), gjson.Get(meta[0], "0.sec_tH").Int())

	statsArr, _ := r.Array(KeyNormStatsJSON)
	stats, _ := statsArr.Strings()
	assert.Equal(t, 2.0, gjson.Get(stats[0], "a.std").Float())

	window, _ := r.Array(KeyWindow)
	w, _ := window.Int32s()
	assert.Equal(t, []int32{2}, w)
}

func TestWriteEmptyDataset(t *testing.T) {
	b := encode(t, Assemble(header(), nil))
	r, err := npz.NewReader(bytes.NewReader(b), int64(len(b)))
	require.NoError(t, err)

	x, ok := r.Array(KeyX)
	require.True(t, ok)
	assert.Equal(t, []int{0, 2, 2}, x.Shape)

	for _, name := range []string{windowing.OutputMissBinary, windowing.OutputMissCount, KeySplit} {
		arr, ok := r.Array(name)
		require.True(t, ok, name)
		assert.Equal(t, []int{0}, arr.Shape, name)
	}

	metaArr, _ := r.Array(KeyMetaJSON)
	meta, _ := metaArr.Strings()
	assert.Equal(t, []string{"[]"}, meta)
}

func TestWriteIsByteIdentical(t *testing.T) {
	first := encode(t, Assemble(header(), examples()))
	second := encode(t, Assemble(header(), examples()))
	assert.Equal(t, first, second)
}

func TestLoadSummary(t *testing.T) {
	b := encode(t, Assemble(header(), examples()))
	r, err := npz.NewReader(bytes.NewReader(b), int64(len(b)))
	require.NoError(t, err)

	s, err := Summarize(r)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Examples)
	assert.Equal(t, 2, s.Window)
	assert.Equal(t, 3, s.Horizon)
	assert.Equal(t, []string{"a", "b"}, s.FeatureCols)
	assert.Equal(t, "cn1bqgkq8kt0l0ckf1tg", s.BuildID)
	assert.Equal(t, map[string]int{"train": 1, "val": 0, "test": 1}, s.SplitCounts)
	assert.Equal(t, 2, s.Sessions)
	require.Len(t, s.Labels, 2)
	assert.Equal(t, windowing.OutputMissBinary, s.Labels[0].Name)
	assert.InDelta(t, 0.5, s.Labels[0].Mean, 1e-9)
	assert.InDelta(t, 1.0, s.Labels[1].Mean, 1e-9)
	assert.Equal(t, model.FeatureStats{Mean: 1, Std: 2}, s.NormStats["a"])
}
