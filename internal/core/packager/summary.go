package packager

import (
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"exusiai.dev/seqwindow/internal/model"
	"exusiai.dev/seqwindow/internal/pkg/npz"
)

var ErrMissingEntry = errors.New("archive entry missing")

type LabelSummary struct {
	Name  string  `json:"name"`
	Mean  float64 `json:"mean"`
	Count int     `json:"count"`
}

// Summary is what `inspect` reports about an archive.
type Summary struct {
	BuildID     string          `json:"buildId"`
	Examples    int             `json:"examples"`
	Window      int             `json:"window"`
	Horizon     int             `json:"horizon"`
	Shape       []int           `json:"shape"`
	FeatureCols []string        `json:"featureCols"`
	NormScope   string          `json:"normScope"`
	NormStats   model.NormStats `json:"normStats"`
	Labels      []LabelSummary  `json:"labels"`
	SplitCounts map[string]int  `json:"splitCounts"`
	Sessions    int             `json:"sessions"`
}

func stringEntry(r *npz.Reader, key string) (string, error) {
	arr, ok := r.Array(key)
	if !ok {
		return "", errors.Wrap(ErrMissingEntry, key)
	}
	values, err := arr.Strings()
	if err != nil {
		return "", errors.Wrapf(err, "failed to decode %s", key)
	}
	if len(values) == 0 {
		return "", nil
	}
	return values[0], nil
}

func int32Entry(r *npz.Reader, key string) (int, error) {
	arr, ok := r.Array(key)
	if !ok {
		return 0, errors.Wrap(ErrMissingEntry, key)
	}
	values, err := arr.Int32s()
	if err != nil || len(values) == 0 {
		return 0, errors.Wrapf(err, "failed to decode %s", key)
	}
	return int(values[0]), nil
}

// Summarize reads the shapes, label positive rates, split sizes and
// normalization statistics of an archive written by Write.
func Summarize(r *npz.Reader) (*Summary, error) {
	x, ok := r.Array(KeyX)
	if !ok {
		return nil, errors.Wrap(ErrMissingEntry, KeyX)
	}
	s := &Summary{Shape: x.Shape, SplitCounts: map[string]int{}}
	if len(x.Shape) > 0 {
		s.Examples = x.Shape[0]
	}

	var err error
	if s.Window, err = int32Entry(r, KeyWindow); err != nil {
		return nil, err
	}
	if s.Horizon, err = int32Entry(r, KeyHorizon); err != nil {
		return nil, err
	}
	if s.BuildID, err = stringEntry(r, KeyBuildID); err != nil {
		return nil, err
	}
	if s.NormScope, err = stringEntry(r, KeyNormScope); err != nil {
		return nil, err
	}

	cols, ok := r.Array(KeyFeatureCols)
	if !ok {
		return nil, errors.Wrap(ErrMissingEntry, KeyFeatureCols)
	}
	if s.FeatureCols, err = cols.Strings(); err != nil {
		return nil, errors.Wrap(err, "failed to decode feature_cols")
	}

	statsJSON, err := stringEntry(r, KeyNormStatsJSON)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(statsJSON), &s.NormStats); err != nil {
		return nil, errors.Wrap(err, "failed to decode norm_stats_json")
	}

	familiesJSON, err := stringEntry(r, KeyLabelFamiliesJSON)
	if err != nil {
		return nil, err
	}
	for _, f := range gjson.Parse(familiesJSON).Array() {
		for _, key := range []string{"binaryOutput", "deltaOutput", "maskOutput"} {
			name := f.Get(key).String()
			if name == "" {
				continue
			}
			label, err := summarizeLabel(r, name)
			if err != nil {
				return nil, err
			}
			s.Labels = append(s.Labels, label)
		}
	}

	split, ok := r.Array(KeySplit)
	if !ok {
		return nil, errors.Wrap(ErrMissingEntry, KeySplit)
	}
	codes, err := split.Int8s()
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode split")
	}
	for _, name := range model.SplitNames {
		s.SplitCounts[name] = 0
	}
	for _, c := range codes {
		s.SplitCounts[model.SplitNames[c]]++
	}

	metaJSON, err := stringEntry(r, KeyMetaJSON)
	if err != nil {
		return nil, err
	}
	sessions := lo.Map(gjson.Get(metaJSON, "#.sessionId").Array(), func(v gjson.Result, _ int) string {
		return v.String()
	})
	s.Sessions = len(lo.Uniq(sessions))

	return s, nil
}

func summarizeLabel(r *npz.Reader, name string) (LabelSummary, error) {
	arr, ok := r.Array(name)
	if !ok {
		return LabelSummary{}, errors.Wrap(ErrMissingEntry, name)
	}
	values, err := arr.Float32s()
	if err != nil {
		return LabelSummary{}, errors.Wrapf(err, "failed to decode %s", name)
	}
	label := LabelSummary{Name: name, Count: len(values)}
	if len(values) > 0 {
		label.Mean = float64(lo.Sum(values)) / float64(len(values))
	}
	return label, nil
}
