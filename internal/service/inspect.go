package service

import (
	"github.com/rs/zerolog/log"

	"exusiai.dev/seqwindow/internal/core/packager"
	"exusiai.dev/seqwindow/internal/pkg/npz"
)

type Inspect struct{}

func NewInspect() *Inspect {
	return &Inspect{}
}

// Summarize reads an archive written by a build.
func (s *Inspect) Summarize(path string) (*packager.Summary, error) {
	r, err := npz.Open(path)
	if err != nil {
		return nil, err
	}
	summary, err := packager.Summarize(r)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("evt.name", "inspect.summarize").
		Str("path", path).
		Strs("entries", r.Names()).
		Msg("archive inspected")

	return summary, nil
}
