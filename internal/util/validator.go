package util

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"exusiai.dev/seqwindow/internal/model"
)

func NewValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterValidation("caseinsensitiveoneof", caseInsensitiveOneOf)
	validate.RegisterValidation("knowntask", knownTask)
	validate.RegisterValidation("featurekey", featureKey)

	return validate
}

func caseInsensitiveOneOf(fl validator.FieldLevel) bool {
	val := strings.ToLower(fl.Field().String())
	candidates := strings.Split(strings.ToLower(fl.Param()), " ")
	for _, v := range candidates {
		if val == v {
			return true
		}
	}
	return false
}

func knownTask(fl validator.FieldLevel) bool {
	return lo.Contains(model.KnownTasks, fl.Field().String())
}

// featureKey rejects blank keys and the two identity columns, which are never features.
func featureKey(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if strings.TrimSpace(val) == "" {
		return false
	}
	return val != model.ColSessionID && val != model.ColSec
}
