package model

type FeatureStats struct {
	Mean float64 `json:"mean" msgpack:"mean"`
	Std  float64 `json:"std" msgpack:"std"`
}

// NormStats maps a feature key to the statistics used to standardize it.
type NormStats map[string]FeatureStats

const (
	NormScopeAll   = "all"
	NormScopeTrain = "train"

	// NormScopeNone marks an archive whose features were not normalized.
	NormScopeNone = "none"
)
