package ticktable

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exusiai.dev/seqwindow/internal/model"
	builderrors "exusiai.dev/seqwindow/internal/pkg/errors"
)

type row struct {
	sid  string
	sec  int
	miss float64
}

func buildTable(rows ...row) *model.TickTable {
	table := model.NewTickTable(len(rows))
	for _, r := range rows {
		table.AppendRow(r.sid, r.sec, map[string]float64{model.ColMiss: r.miss})
	}
	return table
}

func sessionOfLength(sid string, n int) []row {
	rows := make([]row, n)
	for i := range rows {
		rows[i] = row{sid, i, float64(i)}
	}
	return rows
}

func TestPrepareSortsAndZeroFills(t *testing.T) {
	table := buildTable(
		row{"b", 1, 11},
		row{"a", 2, 2},
		row{"b", 0, 10},
		row{"a", 0, 0},
		row{"a", 2, 3},
		row{"a", 1, 1},
	)

	prepared := Prepare(table, []string{model.ColMiss, model.ColScore})

	assert.Equal(t, []string{"a", "a", "a", "a", "b", "b"}, prepared.SessionIDs)
	assert.Equal(t, []int{0, 1, 2, 2, 0, 1}, prepared.Times)
	// duplicated keys survive in input order
	assert.Equal(t, []float64{0, 1, 2, 3, 10, 11}, prepared.Column(model.ColMiss))
	assert.Equal(t, make([]float64, 6), prepared.Column(model.ColScore))
}

func TestReindexFillsGapsAndKeepsLastDuplicate(t *testing.T) {
	table := Prepare(buildTable(
		row{"a", 0, 0},
		row{"a", 1, 1},
		row{"a", 4, 4},
		row{"a", 5, 5},
		row{"a", 5, 6},
		row{"b", 0, 7},
	), nil)

	out, report, err := Reindex(table, GapPolicyFill)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 0}, out.Times)
	assert.Equal(t, []float64{0, 1, 1, 1, 4, 6, 7}, out.Column(model.ColMiss))
	assert.Equal(t, ReindexReport{FilledRows: 2, DroppedRows: 1, GappedSessions: 1}, report)
}

func TestReindexRejectsGaps(t *testing.T) {
	table := Prepare(buildTable(row{"a", 0, 0}, row{"a", 2, 1}), nil)

	_, _, err := Reindex(table, GapPolicyReject)

	require.Error(t, err)
	assert.True(t, errors.Is(err, builderrors.ErrMalformedInput))
	assert.Contains(t, err.Error(), `session "a" has a gap between sec 0 and sec 2`)
}

func TestReindexRejectsDuplicates(t *testing.T) {
	table := Prepare(buildTable(row{"a", 0, 0}, row{"a", 0, 1}), nil)

	_, _, err := Reindex(table, GapPolicyReject)

	assert.True(t, errors.Is(err, builderrors.ErrMalformedInput))
}

func TestReindexIgnoreLeavesTable(t *testing.T) {
	table := Prepare(buildTable(row{"a", 0, 0}, row{"a", 3, 1}), nil)

	out, report, err := Reindex(table, GapPolicyIgnore)

	require.NoError(t, err)
	assert.Same(t, table, out)
	assert.Zero(t, report.FilledRows)
}

func TestSessionLengthsUseMaxTime(t *testing.T) {
	table := buildTable(row{"a", 0, 0}, row{"a", 9, 0}, row{"b", 3, 0})

	assert.Equal(t, map[string]int{"a": 10, "b": 4}, SessionLengths(table))
}

func TestFilterShortSessions(t *testing.T) {
	rows := append(sessionOfLength("short", 10), sessionOfLength("long", 100)...)
	table := Prepare(buildTable(rows...), nil)

	out, report := FilterShortSessions(table, 40)

	assert.Equal(t, 100, out.Len())
	assert.Equal(t, []string{"long"}, report.KeptSessions)
	assert.Equal(t, []string{"short"}, report.DroppedSessions)
	for _, sid := range out.SessionIDs {
		assert.Equal(t, "long", sid)
	}
}

func TestFilterShortSessionsEmptyTable(t *testing.T) {
	out, report := FilterShortSessions(model.NewTickTable(0), 40)

	assert.Zero(t, out.Len())
	assert.Empty(t, report.KeptSessions)
}
