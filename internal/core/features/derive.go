// Package features derives per-session columns from raw tick counters and
// standardizes the final feature set.
package features

import (
	"math"

	"github.com/rs/zerolog/log"

	"exusiai.dev/seqwindow/internal/model"
	"exusiai.dev/seqwindow/internal/util"
)

// SafeDiv returns a/b, or def when b is zero or either operand is not a finite number.
func SafeDiv(a, b, def float64) float64 {
	if !util.IsFinite(a) || !util.IsFinite(b) || b == 0 {
		return def
	}
	q := a / b
	if !util.IsFinite(q) {
		return def
	}
	return q
}

// Derive computes every column of model.DerivedDefinitions in place. The table must
// be sorted by session and time and carry model.RequiredColumns; no computation
// crosses a session boundary.
func Derive(table *model.TickTable) {
	spans := table.Spans()
	for _, def := range model.DerivedDefinitions {
		switch def.Kind {
		case model.DerivedKindRatio:
			table.SetColumn(def.Name, ratio(table.Column(def.Sources[0]), table.Column(def.Sources[1]), def.Default))
		case model.DerivedKindDelta:
			table.SetColumn(def.Name, delta(table.Column(def.Sources[0]), spans))
		case model.DerivedKindRolling:
			source := def.Sources[0]
			if table.HasColumn(source) && !table.AllNaN(source) {
				table.SetColumn(def.Name, rollingMean(table.Column(source), spans, def.Window))
				continue
			}
			if table.AllNaN(def.Name) {
				log.Debug().
					Str("evt.name", "features.derive").
					Str("column", def.Name).
					Str("source", source).
					Msg("rolling source absent, column kept at zero")
				table.SetColumn(def.Name, make([]float64, table.Len()))
			}
		}
	}
}

// Sanitize replaces NaN and infinite values of the given columns with zero.
func Sanitize(table *model.TickTable, columns []string) int {
	replaced := 0
	for _, name := range columns {
		col := table.Column(name)
		for i, v := range col {
			if !util.IsFinite(v) {
				col[i] = 0
				replaced++
			}
		}
	}
	return replaced
}

func ratio(num, den []float64, def float64) []float64 {
	out := make([]float64, len(num))
	for i := range num {
		out[i] = SafeDiv(num[i], den[i], def)
	}
	return out
}

// delta is x[t]-x[t-1] within a session; the first row of each session is 0.
func delta(values []float64, spans []model.SessionSpan) []float64 {
	out := make([]float64, len(values))
	for _, span := range spans {
		for i := span.Start + 1; i < span.End; i++ {
			out[i] = values[i] - values[i-1]
		}
	}
	return out
}

// rollingMean averages the non-NaN values of the trailing window; the window shrinks
// at the start of a session down to a single sample.
func rollingMean(values []float64, spans []model.SessionSpan, window int) []float64 {
	out := make([]float64, len(values))
	for _, span := range spans {
		for i := span.Start; i < span.End; i++ {
			from := i - window + 1
			if from < span.Start {
				from = span.Start
			}
			sum, n := 0.0, 0
			for j := from; j <= i; j++ {
				if math.IsNaN(values[j]) {
					continue
				}
				sum += values[j]
				n++
			}
			if n == 0 {
				out[i] = math.NaN()
				continue
			}
			out[i] = sum / float64(n)
		}
	}
	return out
}
