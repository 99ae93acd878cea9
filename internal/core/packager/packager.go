// Package packager concatenates synthesized windows into a Dataset and writes it
// as a NumPy .npz archive.
package packager

import (
	"bufio"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"exusiai.dev/seqwindow/internal/model"
	"exusiai.dev/seqwindow/internal/pkg/npz"
)

// Archive entry names.
const (
	KeyX                 = "X"
	KeySplit             = "split"
	KeyFeatureCols       = "feature_cols"
	KeyMetaJSON          = "meta_json"
	KeyNormStatsJSON     = "norm_stats_json"
	KeyLabelFamiliesJSON = "label_families_json"
	KeyNormScope         = "norm_scope"
	KeyBuildID           = "build_id"
	KeyWindow            = "window"
	KeyHorizon           = "horizon"
)

// Header describes the build that produced a set of examples.
type Header struct {
	BuildID       string
	Window        int
	Horizon       int
	FeatureCols   []string
	NormStats     model.NormStats
	NormScope     string
	LabelFamilies []model.LabelFamily
}

// Assemble concatenates examples, already in session-then-time order, into a Dataset.
func Assemble(h Header, examples []model.Example) *model.Dataset {
	ds := &model.Dataset{
		BuildID:       h.BuildID,
		Window:        h.Window,
		Horizon:       h.Horizon,
		FeatureCols:   h.FeatureCols,
		NormStats:     h.NormStats,
		NormScope:     h.NormScope,
		LabelFamilies: h.LabelFamilies,
		X:             make([]float32, 0, len(examples)*h.Window*len(h.FeatureCols)),
		Labels:        make(map[string][]float32),
		Splits:        make([]int8, 0, len(examples)),
		Meta:          make([]model.MetaRecord, 0, len(examples)),
	}
	outputs := ds.LabelOutputs()
	for _, name := range outputs {
		ds.Labels[name] = make([]float32, 0, len(examples))
	}

	for _, ex := range examples {
		ds.X = append(ds.X, ex.X...)
		for _, name := range outputs {
			ds.Labels[name] = append(ds.Labels[name], ex.Labels[name])
		}
		ds.Splits = append(ds.Splits, ex.Split)
		ds.Meta = append(ds.Meta, ex.Meta)
	}
	return ds
}

// Write encodes ds as an .npz archive. Identical datasets encode to identical bytes.
func Write(w io.Writer, ds *model.Dataset) error {
	n := ds.Len()
	nw := npz.NewWriter(w)

	if err := nw.WriteFloat32(KeyX, []int{n, ds.Window, len(ds.FeatureCols)}, ds.X); err != nil {
		return err
	}
	for _, name := range ds.LabelOutputs() {
		if err := nw.WriteFloat32(name, []int{n}, ds.Labels[name]); err != nil {
			return err
		}
	}
	if err := nw.WriteInt8(KeySplit, []int{n}, ds.Splits); err != nil {
		return err
	}
	if err := nw.WriteStrings(KeyFeatureCols, ds.FeatureCols); err != nil {
		return err
	}

	metaJSON, err := marshal(ds.Meta, "[]")
	if err != nil {
		return errors.Wrap(err, "failed to marshal meta records")
	}
	statsJSON, err := marshal(ds.NormStats, "{}")
	if err != nil {
		return errors.Wrap(err, "failed to marshal norm stats")
	}
	familiesJSON, err := marshal(ds.LabelFamilies, "[]")
	if err != nil {
		return errors.Wrap(err, "failed to marshal label families")
	}

	scalars := []struct {
		key   string
		value string
	}{
		{KeyMetaJSON, metaJSON},
		{KeyNormStatsJSON, statsJSON},
		{KeyLabelFamiliesJSON, familiesJSON},
		{KeyNormScope, ds.NormScope},
		{KeyBuildID, ds.BuildID},
	}
	for _, s := range scalars {
		if err := nw.WriteStrings(s.key, []string{s.value}); err != nil {
			return err
		}
	}

	if err := nw.WriteInt32(KeyWindow, []int{1}, []int32{int32(ds.Window)}); err != nil {
		return err
	}
	if err := nw.WriteInt32(KeyHorizon, []int{1}, []int32{int32(ds.Horizon)}); err != nil {
		return err
	}
	return errors.Wrap(nw.Close(), "failed to finalize npz archive")
}

// WriteFile writes ds to path, replacing any existing file.
func WriteFile(path string, ds *model.Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create dataset archive")
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if err := Write(bw, ds); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, "failed to flush dataset archive")
	}

	log.Info().
		Str("evt.name", "packager.write").
		Str("path", path).
		Int("examples", ds.Len()).
		Int("window", ds.Window).
		Int("features", len(ds.FeatureCols)).
		Msg("dataset archive written")

	return f.Close()
}

// marshal encodes v, substituting empty for a JSON null.
func marshal(v any, empty string) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return empty, nil
	}
	return string(b), nil
}
