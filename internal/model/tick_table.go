package model

import (
	"math"
)

const (
	ColSessionID = "sessionId"
	ColSec       = "sec"
)

// TickTable is a columnar, in-memory table of per-second tick rows. Every numeric
// column has exactly Len() values; NaN marks a missing or unparseable cell.
type TickTable struct {
	SessionIDs []string
	Times      []int

	columns map[string][]float64
	order   []string
}

// SessionSpan is the half-open row range [Start, End) of one session inside a sorted TickTable.
type SessionSpan struct {
	ID    string
	Start int
	End   int
}

func (s SessionSpan) Len() int {
	return s.End - s.Start
}

func NewTickTable(capacity int) *TickTable {
	return &TickTable{
		SessionIDs: make([]string, 0, capacity),
		Times:      make([]int, 0, capacity),
		columns:    make(map[string][]float64),
	}
}

func (t *TickTable) Len() int {
	return len(t.Times)
}

// ColumnNames returns numeric column names in insertion order.
func (t *TickTable) ColumnNames() []string {
	names := make([]string, len(t.order))
	copy(names, t.order)
	return names
}

func (t *TickTable) HasColumn(name string) bool {
	_, ok := t.columns[name]
	return ok
}

// Column returns the backing slice of a column, or nil if it does not exist.
// Callers mutating the returned slice mutate the table.
func (t *TickTable) Column(name string) []float64 {
	return t.columns[name]
}

// SetColumn adds or replaces a column. values must have Len() elements.
func (t *TickTable) SetColumn(name string, values []float64) {
	if _, ok := t.columns[name]; !ok {
		t.order = append(t.order, name)
	}
	t.columns[name] = values
}

// EnsureColumns creates every absent column and fills it with zeros.
// It returns the names of the columns that had to be created.
func (t *TickTable) EnsureColumns(names ...string) []string {
	var created []string
	for _, name := range names {
		if name == ColSessionID || name == ColSec || t.HasColumn(name) {
			continue
		}
		t.SetColumn(name, make([]float64, t.Len()))
		created = append(created, name)
	}
	return created
}

// AllNaN reports whether a column is absent or holds only NaN values.
func (t *TickTable) AllNaN(name string) bool {
	col, ok := t.columns[name]
	if !ok {
		return true
	}
	for _, v := range col {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}

// AppendRow appends one row. values is keyed by column name; columns not present
// in values are filled with NaN, and new columns are back-filled with NaN.
func (t *TickTable) AppendRow(sessionID string, sec int, values map[string]float64) {
	n := t.Len()
	for name := range values {
		if !t.HasColumn(name) {
			col := make([]float64, n)
			for i := range col {
				col[i] = math.NaN()
			}
			t.SetColumn(name, col)
		}
	}
	t.SessionIDs = append(t.SessionIDs, sessionID)
	t.Times = append(t.Times, sec)
	for _, name := range t.order {
		v, ok := values[name]
		if !ok {
			v = math.NaN()
		}
		t.columns[name] = append(t.columns[name], v)
	}
}

// Take returns a new table holding the given rows in the given order.
func (t *TickTable) Take(indices []int) *TickTable {
	out := &TickTable{
		SessionIDs: make([]string, len(indices)),
		Times:      make([]int, len(indices)),
		columns:    make(map[string][]float64, len(t.columns)),
		order:      t.ColumnNames(),
	}
	for i, idx := range indices {
		out.SessionIDs[i] = t.SessionIDs[idx]
		out.Times[i] = t.Times[idx]
	}
	for _, name := range t.order {
		src := t.columns[name]
		dst := make([]float64, len(indices))
		for i, idx := range indices {
			dst[i] = src[idx]
		}
		out.columns[name] = dst
	}
	return out
}

// Clone returns a deep copy of the table.
func (t *TickTable) Clone() *TickTable {
	indices := make([]int, t.Len())
	for i := range indices {
		indices[i] = i
	}
	return t.Take(indices)
}

// Spans groups adjacent rows sharing a session id, in first-seen order.
// The table is expected to be sorted by session; a session id appearing in
// two non-adjacent runs yields two spans.
func (t *TickTable) Spans() []SessionSpan {
	var spans []SessionSpan
	for i, id := range t.SessionIDs {
		if len(spans) > 0 && spans[len(spans)-1].ID == id {
			spans[len(spans)-1].End = i + 1
			continue
		}
		spans = append(spans, SessionSpan{ID: id, Start: i, End: i + 1})
	}
	return spans
}
