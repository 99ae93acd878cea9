// Package split assigns whole sessions to train/val/test partitions so that no
// session contributes windows to more than one partition.
package split

import (
	"github.com/zeebo/xxh3"

	"exusiai.dev/seqwindow/internal/model"
)

type Ratios struct {
	Train float64
	Val   float64
}

var DefaultRatios = Ratios{Train: 0.8, Val: 0.1}

// Unit maps a session id to a deterministic value in [0, 1).
func Unit(seed, sessionID string) float64 {
	h := xxh3.HashString(seed + "::" + sessionID)
	return float64(h>>11) / (1 << 53)
}

// Of returns the partition of one session.
func Of(seed, sessionID string, ratios Ratios) int8 {
	u := Unit(seed, sessionID)
	switch {
	case u < ratios.Train:
		return model.SplitTrain
	case u < ratios.Train+ratios.Val:
		return model.SplitVal
	default:
		return model.SplitTest
	}
}

// Assign returns the partition of every distinct session id.
func Assign(seed string, sessionIDs []string, ratios Ratios) map[string]int8 {
	out := make(map[string]int8)
	for _, id := range sessionIDs {
		if _, ok := out[id]; ok {
			continue
		}
		out[id] = Of(seed, id, ratios)
	}
	return out
}
