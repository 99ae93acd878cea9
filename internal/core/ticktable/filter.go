package ticktable

import (
	"github.com/ahmetb/go-linq/v3"
	"github.com/rs/zerolog/log"

	"exusiai.dev/seqwindow/internal/model"
)

type FilterReport struct {
	KeptSessions    []string
	DroppedSessions []string
}

// SessionLengths returns max(sec)+1 for every session in the table.
func SessionLengths(table *model.TickTable) map[string]int {
	var groups []linq.Group
	linq.Range(0, table.Len()).
		GroupByT(
			func(i int) string { return table.SessionIDs[i] },
			func(i int) int { return table.Times[i] },
		).
		ToSlice(&groups)

	lengths := make(map[string]int, len(groups))
	for _, group := range groups {
		lengths[group.Key.(string)] = linq.From(group.Group).Max().(int) + 1
	}
	return lengths
}

// FilterShortSessions drops every row of sessions whose length is below minLen.
// Sessions are never truncated.
func FilterShortSessions(table *model.TickTable, minLen int) (*model.TickTable, FilterReport) {
	lengths := SessionLengths(table)

	var report FilterReport
	for _, span := range table.Spans() {
		if lengths[span.ID] >= minLen {
			report.KeptSessions = append(report.KeptSessions, span.ID)
		} else {
			report.DroppedSessions = append(report.DroppedSessions, span.ID)
		}
	}

	keep := make([]int, 0, table.Len())
	for i, id := range table.SessionIDs {
		if lengths[id] >= minLen {
			keep = append(keep, i)
		}
	}

	log.Debug().
		Str("evt.name", "ticktable.filter").
		Int("min_session_len", minLen).
		Int("kept_sessions", len(report.KeptSessions)).
		Int("dropped_sessions", len(report.DroppedSessions)).
		Msg("filtered short sessions")

	return table.Take(keep), report
}
