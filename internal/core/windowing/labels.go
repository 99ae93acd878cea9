package windowing

import (
	"exusiai.dev/seqwindow/internal/model"
)

func boolLabel(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

// Evaluate computes the label outputs of one family for anchor row t, reading raw
// counters at t and at th = t + horizon. It writes into dst and returns the raw
// counter values that produced the labels.
func Evaluate(f model.LabelFamily, counters map[string][]float64, t, th int, dst map[string]float32) model.CounterPair {
	switch f.Kind {
	case model.LabelKindRise, model.LabelKindDrop:
		c := counters[f.Counter]
		d := c[th] - c[t]
		fired := d >= f.Threshold
		if f.Kind == model.LabelKindDrop {
			fired = -d >= f.Threshold
		}
		dst[f.BinaryOutput] = boolLabel(fired)
		if f.DeltaOutput != "" {
			dst[f.DeltaOutput] = float32(d)
		}
		return model.CounterPair{AtAnchor: c[t], AtHorizon: c[th]}

	case model.LabelKindMiniFail:
		on := counters[model.ColMiniOn][t] > 0
		now := counters[model.ColMiniNow]
		cleared := counters[model.ColMiniCleared]
		progressed := now[th] > now[t]
		completed := cleared[th] > cleared[t]
		dst[f.BinaryOutput] = boolLabel(on && progressed && !completed)
		if f.MaskOutput != "" {
			dst[f.MaskOutput] = boolLabel(on)
		}
		return model.CounterPair{AtAnchor: now[t], AtHorizon: now[th]}
	}
	return model.CounterPair{}
}
