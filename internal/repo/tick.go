package repo

import (
	"context"
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"exusiai.dev/seqwindow/internal/model"
	builderrors "exusiai.dev/seqwindow/internal/pkg/errors"
)

const ctxCheckInterval = 4096

// Tick reads per-second telemetry from CSV exports.
type Tick struct{}

func NewTick() *Tick {
	return &Tick{}
}

func (r *Tick) LoadFile(ctx context.Context, path string) (*model.TickTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open ticks file")
	}
	defer f.Close()

	table, err := r.Load(ctx, f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load ticks from %s", path)
	}
	return table, nil
}

// Load parses a header-first CSV. sessionId and sec are identity columns; every
// other column is numeric, with empty or unparseable cells read as NaN.
func (r *Tick) Load(ctx context.Context, src io.Reader) (*model.TickTable, error) {
	reader := newCSVReader(src)
	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.WithStack(builderrors.ErrMalformedInput.WithMessage("ticks csv has no header row"))
	}
	if err != nil {
		return nil, errors.WithStack(builderrors.ErrMalformedInput.WithMessage("ticks csv header: %v", err))
	}

	table := model.NewTickTable(1024)
	sidIdx, secIdx := -1, -1
	var numeric []indexedColumn
	for i, name := range dedupeHeader(header) {
		switch name {
		case model.ColSessionID:
			sidIdx = i
		case model.ColSec:
			secIdx = i
		default:
			if name != "" {
				numeric = append(numeric, indexedColumn{idx: i, name: name})
				// header order is column order
				table.SetColumn(name, nil)
			}
		}
	}
	if sidIdx < 0 || secIdx < 0 {
		log.Warn().
			Str("evt.name", "repo.tick.identity_missing").
			Bool("has_session_id", sidIdx >= 0).
			Bool("has_sec", secIdx >= 0).
			Msg("ticks csv lacks identity columns, defaulting to empty session and sec 0")
	}

	values := make(map[string]float64, len(numeric))
	for line := 2; ; line++ {
		if line%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.WithStack(builderrors.ErrMalformedInput.WithMessage("ticks csv line %d: %v", line, err))
		}

		for _, col := range numeric {
			values[col.name] = parseFloat(cell(record, col.idx))
		}
		table.AppendRow(cell(record, sidIdx), parseSec(cell(record, secIdx)), values)
	}

	log.Debug().
		Str("evt.name", "repo.tick.load").
		Int("rows", table.Len()).
		Int("columns", len(numeric)).
		Msg("ticks loaded")

	return table, nil
}

type indexedColumn struct {
	idx  int
	name string
}

// dedupeHeader trims header names and renames repeated ones to "name.1",
// "name.2", ... in header order, so the first occurrence keeps its name.
func dedupeHeader(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if name != "" && seen[name] {
			base := name
			for n := 1; seen[name]; n++ {
				name = base + "." + strconv.Itoa(n)
			}
			log.Warn().
				Str("evt.name", "repo.csv.duplicate_column").
				Str("column", base).
				Str("renamed", name).
				Msg("csv header repeats a column name")
		}
		seen[name] = true
		names[i] = name
	}
	return names
}

func newCSVReader(src io.Reader) *csv.Reader {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true
	reader.TrimLeadingSpace = true
	return reader
}

func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func parseFloat(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// parseSec accepts integral and float encodings ("12", "12.0"); anything else is 0.
func parseSec(s string) int {
	v := parseFloat(s)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int(v)
}
