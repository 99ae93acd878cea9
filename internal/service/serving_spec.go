package service

import (
	"bufio"
	"os"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"

	"exusiai.dev/seqwindow/internal/model"
	"exusiai.dev/seqwindow/internal/pkg/bininfo"
)

// ServingSpec is everything a serving-time feature pipeline needs to reproduce the
// training features: column order, derivations and normalization statistics.
type ServingSpec struct {
	Version       string                    `msgpack:"version"`
	BuildID       string                    `msgpack:"build_id"`
	FeatureCols   []string                  `msgpack:"feature_cols"`
	NormStats     model.NormStats           `msgpack:"norm_stats"`
	NormScope     string                    `msgpack:"norm_scope"`
	Window        int                       `msgpack:"window"`
	Horizon       int                       `msgpack:"horizon"`
	LabelFamilies []model.LabelFamily       `msgpack:"label_families"`
	Derived       []model.DerivedDefinition `msgpack:"derived"`
}

func NewServingSpec(ds *model.Dataset) *ServingSpec {
	return &ServingSpec{
		Version:       bininfo.Version,
		BuildID:       ds.BuildID,
		FeatureCols:   ds.FeatureCols,
		NormStats:     ds.NormStats,
		NormScope:     ds.NormScope,
		Window:        ds.Window,
		Horizon:       ds.Horizon,
		LabelFamilies: ds.LabelFamilies,
		Derived:       model.DerivedDefinitions,
	}
}

func WriteServingSpec(path string, spec *ServingSpec) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create serving spec")
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := msgpack.NewEncoder(w)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(spec); err != nil {
		return errors.Wrap(err, "failed to encode serving spec")
	}
	if err := w.Flush(); err != nil {
		return errors.Wrap(err, "failed to flush serving spec")
	}
	return f.Close()
}

func ReadServingSpec(path string) (*ServingSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open serving spec")
	}
	defer f.Close()

	var spec ServingSpec
	if err := msgpack.NewDecoder(bufio.NewReader(f)).Decode(&spec); err != nil {
		return nil, errors.Wrap(err, "failed to decode serving spec")
	}
	return &spec, nil
}
