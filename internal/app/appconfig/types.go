package appconfig

import (
	"strings"

	"github.com/samber/lo"
)

// FeatureList is a comma separated list whose elements are trimmed; empty elements are dropped.
type FeatureList []string

func (l *FeatureList) Decode(value string) error {
	*l = ParseList(value)
	return nil
}

func ParseList(value string) []string {
	parts := lo.Map(strings.Split(value, ","), func(s string, _ int) string {
		return strings.TrimSpace(s)
	})
	return lo.Filter(parts, func(s string, _ int) bool {
		return s != ""
	})
}
