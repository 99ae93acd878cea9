package service

import (
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"exusiai.dev/seqwindow/internal/app/appconfig"
	"exusiai.dev/seqwindow/internal/core/split"
	"exusiai.dev/seqwindow/internal/core/windowing"
	"exusiai.dev/seqwindow/internal/model"
	builderrors "exusiai.dev/seqwindow/internal/pkg/errors"
)

// BuildOptions is one fully resolved build configuration: environment defaults
// with command line flags applied on top.
type BuildOptions struct {
	TicksPath       string `validate:"required"`
	SessionsPath    string
	OutPath         string `validate:"required"`
	MetaOutPath     string
	ServingSpecPath string
	Upload          bool

	Window           int `validate:"gt=0"`
	Horizon          int `validate:"gt=0"`
	MinSessionLength int `validate:"gt=0"`

	Normalize bool
	NormScope string `validate:"caseinsensitiveoneof=all train"`

	Features []string `validate:"min=1,unique,dive,featurekey"`
	Tasks    []string `validate:"dive,knowntask"`

	MissThreshold  float64 `validate:"gt=0"`
	AccHorizon     int     `validate:"gt=0"`
	AccThreshold   float64 `validate:"gt=0"`
	MiniHorizon    int     `validate:"gt=0"`
	ScoreThreshold float64 `validate:"gt=0"`

	GapPolicy   string `validate:"caseinsensitiveoneof=fill reject ignore"`
	MinExamples int    `validate:"gte=0"`

	SplitSeed  string
	TrainRatio float64 `validate:"gte=0,lte=1"`
	ValRatio   float64 `validate:"gte=0,lte=1"`

	// BuildID is generated when empty. Fixing it makes archives byte-identical across runs.
	BuildID string
}

// DefaultBuildOptions resolves options from the environment configuration.
func DefaultBuildOptions(conf *appconfig.Config) BuildOptions {
	features := []string(conf.Features)
	if len(features) == 0 {
		features = append([]string(nil), model.DefaultFeatures...)
	}
	return BuildOptions{
		Window:           conf.WindowLength,
		Horizon:          conf.Horizon,
		MinSessionLength: conf.MinSessionLength,
		Normalize:        conf.Normalize,
		NormScope:        conf.NormScope,
		Features:         features,
		Tasks:            []string(conf.Tasks),
		MissThreshold:    conf.MissThreshold,
		AccHorizon:       conf.AccHorizon,
		AccThreshold:     conf.AccThreshold,
		MiniHorizon:      conf.MiniHorizon,
		ScoreThreshold:   conf.ScoreThreshold,
		GapPolicy:        conf.GapPolicy,
		MinExamples:      conf.MinExamples,
		SplitSeed:        conf.SplitSeed,
		TrainRatio:       conf.TrainRatio,
		ValRatio:         conf.ValRatio,
	}
}

func (o BuildOptions) FamilyOptions() windowing.FamilyOptions {
	return windowing.FamilyOptions{
		Tasks:          o.Tasks,
		Horizon:        o.Horizon,
		MissThreshold:  o.MissThreshold,
		AccHorizon:     o.AccHorizon,
		AccThreshold:   o.AccThreshold,
		MiniHorizon:    o.MiniHorizon,
		ScoreThreshold: o.ScoreThreshold,
	}
}

func (o BuildOptions) Ratios() split.Ratios {
	return split.Ratios{Train: o.TrainRatio, Val: o.ValRatio}
}

type violation struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
	Value any    `json:"value"`
}

// Validate checks options against their tags and cross-field rules. Failures are
// INVALID_CONFIG build errors listing every violation.
func (o BuildOptions) Validate(v *validator.Validate) error {
	if err := v.Struct(o); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return errors.Wrap(err, "failed to validate build options")
		}
		violations := lo.Map(verrs, func(fe validator.FieldError, _ int) violation {
			return violation{Field: fe.Namespace(), Rule: fe.Tag(), Param: fe.Param(), Value: fe.Value()}
		})
		return errors.WithStack(builderrors.NewInvalidViolations(violations).
			WithMessage("%d invalid build option(s): %s", len(violations), verrs.Error()))
	}
	if o.TrainRatio+o.ValRatio > 1 {
		return errors.WithStack(builderrors.ErrInvalidConfig.
			WithMessage("train ratio %g and val ratio %g exceed 1", o.TrainRatio, o.ValRatio))
	}
	return nil
}
