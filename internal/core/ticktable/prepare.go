// Package ticktable puts raw tick logs into the deterministic per-session,
// per-second order the windowing pass relies on.
package ticktable

import (
	"sort"

	"github.com/rs/zerolog/log"

	"exusiai.dev/seqwindow/internal/model"
)

// Prepare zero-fills every absent required column and returns the rows sorted by
// session id, then time index. Rows sharing a (session, time) key are kept in
// input order; deduplication is left to Reindex.
func Prepare(table *model.TickTable, required []string) *model.TickTable {
	created := table.EnsureColumns(required...)
	if len(created) > 0 {
		log.Debug().
			Str("evt.name", "ticktable.prepare").
			Strs("columns", created).
			Msg("zero-filled missing columns")
	}

	indices := make([]int, table.Len())
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		ia, ib := indices[a], indices[b]
		if table.SessionIDs[ia] != table.SessionIDs[ib] {
			return table.SessionIDs[ia] < table.SessionIDs[ib]
		}
		return table.Times[ia] < table.Times[ib]
	})

	return table.Take(indices)
}
