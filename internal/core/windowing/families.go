package windowing

import (
	"github.com/samber/lo"

	"exusiai.dev/seqwindow/internal/model"
)

const (
	OutputMissBinary  = "y_bin"
	OutputMissCount   = "y_count"
	OutputAccBinary   = "y_acc"
	OutputMiniBinary  = "y_mini"
	OutputMiniMask    = "y_mini_mask"
	OutputScoreBinary = "y_score"
	OutputScoreDelta  = "y_score_delta"
)

type FamilyOptions struct {
	Tasks []string

	Horizon        int
	MissThreshold  float64
	AccHorizon     int
	AccThreshold   float64
	MiniHorizon    int
	ScoreThreshold float64
}

// Families returns the label families enabled by opts. The miss family is always
// first and always present; the others follow model.KnownTasks order.
func Families(opts FamilyOptions) []model.LabelFamily {
	families := []model.LabelFamily{{
		Name:         model.TaskMiss,
		Kind:         model.LabelKindRise,
		Counter:      model.ColMiss,
		Counters:     []string{model.ColMiss},
		Horizon:      opts.Horizon,
		Threshold:    opts.MissThreshold,
		BinaryOutput: OutputMissBinary,
		DeltaOutput:  OutputMissCount,
	}}

	if lo.Contains(opts.Tasks, model.TaskAcc) {
		families = append(families, model.LabelFamily{
			Name:         model.TaskAcc,
			Kind:         model.LabelKindDrop,
			Counter:      model.ColAccGoodPct,
			Counters:     []string{model.ColAccGoodPct},
			Horizon:      opts.AccHorizon,
			Threshold:    opts.AccThreshold,
			BinaryOutput: OutputAccBinary,
		})
	}
	if lo.Contains(opts.Tasks, model.TaskMini) {
		families = append(families, model.LabelFamily{
			Name:         model.TaskMini,
			Kind:         model.LabelKindMiniFail,
			Counter:      model.ColMiniNow,
			Counters:     []string{model.ColMiniOn, model.ColMiniNow, model.ColMiniCleared},
			Horizon:      opts.MiniHorizon,
			BinaryOutput: OutputMiniBinary,
			MaskOutput:   OutputMiniMask,
		})
	}
	if lo.Contains(opts.Tasks, model.TaskScore) {
		families = append(families, model.LabelFamily{
			Name:         model.TaskScore,
			Kind:         model.LabelKindDrop,
			Counter:      model.ColScore,
			Counters:     []string{model.ColScore},
			Horizon:      opts.Horizon,
			Threshold:    opts.ScoreThreshold,
			BinaryOutput: OutputScoreBinary,
			DeltaOutput:  OutputScoreDelta,
		})
	}
	return families
}

// CounterColumns returns every raw column read by the given families.
func CounterColumns(families []model.LabelFamily) []string {
	return lo.Uniq(lo.FlatMap(families, func(f model.LabelFamily, _ int) []string {
		return f.Counters
	}))
}

// MaxHorizon is the furthest future offset any family needs.
func MaxHorizon(families []model.LabelFamily) int {
	return lo.Max(lo.Map(families, func(f model.LabelFamily, _ int) int {
		return f.Horizon
	}))
}
