package model

import (
	"github.com/goccy/go-json"
)

const (
	SplitTrain int8 = iota
	SplitVal
	SplitTest
)

var SplitNames = map[int8]string{
	SplitTrain: "train",
	SplitVal:   "val",
	SplitTest:  "test",
}

// CounterPair holds the raw value of a label counter at anchor time and at anchor + horizon.
type CounterPair struct {
	AtAnchor  float64 `json:"t"`
	AtHorizon float64 `json:"tH"`
	SecH      int     `json:"secH"`
}

// MetaRecord traces one window back to the raw values that produced its labels.
// It is not consumed by training. Attrs are encoded as top-level keys.
type MetaRecord struct {
	SessionID string                 `json:"sessionId"`
	SecT      int                    `json:"sec_t"`
	SecTH     int                    `json:"sec_tH"`
	MissT     float64                `json:"miss_t"`
	MissTH    float64                `json:"miss_tH"`
	Split     string                 `json:"split"`
	Counters  map[string]CounterPair `json:"counters,omitempty"`
	Attrs     SessionAttrs           `json:"-"`
}

func (m MetaRecord) MarshalJSON() ([]byte, error) {
	type record MetaRecord
	b, err := json.Marshal(record(m))
	if err != nil {
		return nil, err
	}
	if len(m.Attrs) == 0 {
		return b, nil
	}

	out := b[:len(b)-1]
	for _, key := range SessionAttrKeys {
		v, ok := m.Attrs[key]
		if !ok {
			continue
		}
		val, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out = append(out, ',', '"')
		out = append(out, key...)
		out = append(out, '"', ':')
		out = append(out, val...)
	}
	return append(out, '}'), nil
}

// Example is one window: W*F feature values in row-major (time, feature) order and its labels.
type Example struct {
	X      []float32
	Labels map[string]float32
	Split  int8
	Meta   MetaRecord
}

// Dataset is the packaged result of a build.
type Dataset struct {
	BuildID       string
	Window        int
	Horizon       int
	FeatureCols   []string
	NormStats     NormStats
	NormScope     string
	LabelFamilies []LabelFamily

	// X is (N, Window, len(FeatureCols)) flattened in row-major order.
	X      []float32
	Labels map[string][]float32
	Splits []int8
	Meta   []MetaRecord
}

func (d *Dataset) Len() int {
	return len(d.Splits)
}

// LabelOutputs returns every label array name in family order.
func (d *Dataset) LabelOutputs() []string {
	var outputs []string
	for _, f := range d.LabelFamilies {
		outputs = append(outputs, f.Outputs()...)
	}
	return outputs
}
