package features

import (
	"github.com/rs/zerolog/log"

	"exusiai.dev/seqwindow/internal/model"
	"exusiai.dev/seqwindow/internal/util"
)

// StdEpsilon is the smallest standard deviation used as a divisor; anything at or
// below it is replaced by 1 so near-constant features are only centred.
const StdEpsilon = 1e-9

// ComputeStats returns per-feature mean and population standard deviation over
// the rows selected by include (all rows when include is nil).
func ComputeStats(table *model.TickTable, features []string, include func(row int) bool) model.NormStats {
	stats := make(model.NormStats, len(features))
	for _, name := range features {
		var acc util.Accumulator
		for i, v := range table.Column(name) {
			if include != nil && !include(i) {
				continue
			}
			acc.Add(v)
		}
		bundle := acc.Bundle()
		std := bundle.StdDev
		if std <= StdEpsilon {
			std = 1.0
		}
		stats[name] = model.FeatureStats{Mean: bundle.Avg, Std: std}
	}
	return stats
}

// Apply rescales every feature column in place with (x - mean) / std.
func Apply(table *model.TickTable, stats model.NormStats) {
	for name, s := range stats {
		col := table.Column(name)
		for i, v := range col {
			col[i] = (v - s.Mean) / s.Std
		}
	}
}

// Normalize computes statistics over the included rows and applies them to every row.
func Normalize(table *model.TickTable, features []string, include func(row int) bool) model.NormStats {
	stats := ComputeStats(table, features, include)
	Apply(table, stats)

	log.Debug().
		Str("evt.name", "features.normalize").
		Int("features", len(features)).
		Int("rows", table.Len()).
		Bool("subset", include != nil).
		Msg("normalized feature columns")

	return stats
}
