package ticktable

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"exusiai.dev/seqwindow/internal/model"
	builderrors "exusiai.dev/seqwindow/internal/pkg/errors"
)

const (
	// GapPolicyFill forward-fills missing seconds and keeps the last row of duplicated keys.
	GapPolicyFill = "fill"
	// GapPolicyReject fails the build on the first gap or duplicated key.
	GapPolicyReject = "reject"
	// GapPolicyIgnore leaves the table untouched and windows over gaps as if rows were contiguous.
	GapPolicyIgnore = "ignore"
)

type ReindexReport struct {
	FilledRows     int
	DroppedRows    int
	GappedSessions int
}

// Reindex makes every session a dense series of unit time steps according to policy.
// The table must already be sorted by Prepare. Leading seconds before a session's
// first row are not synthesized.
func Reindex(table *model.TickTable, policy string) (*model.TickTable, ReindexReport, error) {
	var report ReindexReport
	if policy == GapPolicyIgnore {
		return table, report, nil
	}

	indices := make([]int, 0, table.Len())
	times := make([]int, 0, table.Len())

	for _, span := range table.Spans() {
		gapped := false
		for i := span.Start; i < span.End; i++ {
			sec := table.Times[i]
			if i == span.Start {
				indices = append(indices, i)
				times = append(times, sec)
				continue
			}
			prev := times[len(times)-1]

			switch {
			case sec == prev:
				if policy == GapPolicyReject {
					return nil, report, errors.WithStack(builderrors.ErrMalformedInput.
						WithMessage("session %q has duplicated rows at sec %d", span.ID, sec).
						WithExtras(builderrors.Extras{"sessionId": span.ID, "sec": sec}))
				}
				// keep the last row of a duplicated key
				indices[len(indices)-1] = i
				report.DroppedRows++
				gapped = true
				continue
			case sec > prev+1:
				if policy == GapPolicyReject {
					return nil, report, errors.WithStack(builderrors.ErrMalformedInput.
						WithMessage("session %q has a gap between sec %d and sec %d", span.ID, prev, sec).
						WithExtras(builderrors.Extras{"sessionId": span.ID, "from": prev, "to": sec}))
				}
				last := indices[len(indices)-1]
				for missing := prev + 1; missing < sec; missing++ {
					indices = append(indices, last)
					times = append(times, missing)
					report.FilledRows++
				}
				gapped = true
			}
			indices = append(indices, i)
			times = append(times, sec)
		}
		if gapped {
			report.GappedSessions++
		}
	}

	if report.FilledRows == 0 && report.DroppedRows == 0 {
		return table, report, nil
	}

	out := table.Take(indices)
	copy(out.Times, times)

	log.Debug().
		Str("evt.name", "ticktable.reindex").
		Int("filled_rows", report.FilledRows).
		Int("dropped_rows", report.DroppedRows).
		Int("gapped_sessions", report.GappedSessions).
		Msg("reindexed sessions to unit time steps")

	return out, report, nil
}
