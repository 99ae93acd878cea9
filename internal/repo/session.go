package repo

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"exusiai.dev/seqwindow/internal/model"
	builderrors "exusiai.dev/seqwindow/internal/pkg/errors"
)

// Session reads the optional session registry CSV.
type Session struct{}

func NewSession() *Session {
	return &Session{}
}

func (r *Session) LoadFile(ctx context.Context, path string) (*model.Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open sessions file")
	}
	defer f.Close()

	registry, err := r.Load(ctx, f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load sessions from %s", path)
	}
	return registry, nil
}

// Load reads one registry row per line. Only the well-known attribute columns are
// kept, and empty cells are left out.
func (r *Session) Load(ctx context.Context, src io.Reader) (*model.Registry, error) {
	reader := newCSVReader(src)
	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.WithStack(builderrors.ErrMalformedInput.WithMessage("sessions csv has no header row"))
	}
	if err != nil {
		return nil, errors.WithStack(builderrors.ErrMalformedInput.WithMessage("sessions csv header: %v", err))
	}

	sidIdx := -1
	attrIdx := make(map[string]int)
	for i, name := range dedupeHeader(header) {
		if name == model.ColSessionID {
			sidIdx = i
		} else if lo.Contains(model.SessionAttrKeys, name) {
			attrIdx[name] = i
		}
	}
	if sidIdx < 0 {
		return nil, errors.WithStack(builderrors.ErrMalformedInput.WithMessage("sessions csv lacks a %s column", model.ColSessionID))
	}

	registry := model.NewRegistry()
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
			return nil, errors.WithStack(builderrors.ErrMalformedInput.WithMessage("sessions csv line %d: %v", line, err))
		}

		attrs := make(model.SessionAttrs, len(attrIdx))
		for name, idx := range attrIdx {
			if v := cell(record, idx); v != "" {
				attrs[name] = v
			}
		}
		registry.Add(cell(record, sidIdx), attrs)
	}

	log.Debug().
		Str("evt.name", "repo.session.load").
		Int("sessions", registry.Len()).
		Msg("session registry loaded")

	return registry, nil
}
