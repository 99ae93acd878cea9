// Package windowing slides fixed-width history windows over each session and
// attaches future-looking labels to every anchor.
package windowing

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"exusiai.dev/seqwindow/internal/model"
	builderrors "exusiai.dev/seqwindow/internal/pkg/errors"
)

// Input is one synthesis pass. Table holds the (possibly normalized) feature
// columns; Counters holds raw, pre-normalization copies of every column a label
// family reads, aligned row for row with Table.
type Input struct {
	Table    *model.TickTable
	Counters map[string][]float64
	Features []string
	Splits   map[string]int8
	Registry *model.Registry
}

type Synthesizer struct {
	window     int
	families   []model.LabelFamily
	maxHorizon int
}

func NewSynthesizer(window int, families []model.LabelFamily) (*Synthesizer, error) {
	if window <= 0 {
		return nil, errors.WithStack(builderrors.ErrInvalidConfig.WithMessage("window length must be positive, got %d", window))
	}
	if len(families) == 0 {
		return nil, errors.WithStack(builderrors.ErrInvalidConfig.WithMessage("at least one label family is required"))
	}
	for _, f := range families {
		if f.Horizon <= 0 {
			return nil, errors.WithStack(builderrors.ErrInvalidConfig.WithMessage("horizon of label family %q must be positive, got %d", f.Name, f.Horizon))
		}
	}
	return &Synthesizer{
		window:     window,
		families:   families,
		maxHorizon: MaxHorizon(families),
	}, nil
}

func (s *Synthesizer) Window() int {
	return s.window
}

func (s *Synthesizer) Families() []model.LabelFamily {
	return s.families
}

// Anchors returns the anchor row offsets, relative to the session start, that a
// session of n rows yields. Every family shares one validity mask: an anchor is
// emitted only when the furthest horizon still falls inside the session.
func (s *Synthesizer) Anchors(n int) (first, last int, ok bool) {
	first = s.window - 1
	last = n - 1 - s.maxHorizon
	return first, last, last >= first
}

// Synthesize emits every window of every session, sessions in table order and
// anchors in ascending time.
func (s *Synthesizer) Synthesize(in Input) []model.Example {
	columns := make([][]float64, len(in.Features))
	for j, name := range in.Features {
		columns[j] = in.Table.Column(name)
	}

	var examples []model.Example
	skipped := 0
	for _, span := range in.Table.Spans() {
		first, last, ok := s.Anchors(span.Len())
		if !ok {
			skipped++
			continue
		}
		for t := span.Start + first; t <= span.Start+last; t++ {
			examples = append(examples, s.example(in, columns, span, t))
		}
	}

	log.Debug().
		Str("evt.name", "windowing.synthesize").
		Int("window", s.window).
		Int("max_horizon", s.maxHorizon).
		Int("examples", len(examples)).
		Int("sessions_too_short", skipped).
		Msg("synthesized windows")

	return examples
}

func (s *Synthesizer) example(in Input, columns [][]float64, span model.SessionSpan, t int) model.Example {
	nf := len(columns)
	x := make([]float32, s.window*nf)
	for w := 0; w < s.window; w++ {
		row := t - s.window + 1 + w
		for j, col := range columns {
			x[w*nf+j] = float32(col[row])
		}
	}

	splitCode := in.Splits[span.ID]
	meta := model.MetaRecord{
		SessionID: span.ID,
		SecT:      in.Table.Times[t],
		Split:     model.SplitNames[splitCode],
	}

	labels := make(map[string]float32, len(s.families)*2)
	for i, f := range s.families {
		th := t + f.Horizon
		pair := Evaluate(f, in.Counters, t, th, labels)
		pair.SecH = in.Table.Times[th]
		if i == 0 {
			meta.SecTH = pair.SecH
			meta.MissT = pair.AtAnchor
			meta.MissTH = pair.AtHorizon
			continue
		}
		if meta.Counters == nil {
			meta.Counters = make(map[string]model.CounterPair, len(s.families)-1)
		}
		meta.Counters[f.Name] = pair
	}

	if attrs, ok := in.Registry.Lookup(span.ID); ok && len(attrs) > 0 {
		meta.Attrs = attrs
	}

	return model.Example{
		X:      x,
		Labels: labels,
		Split:  splitCode,
		Meta:   meta,
	}
}
