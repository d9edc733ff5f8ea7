package render

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/bazaar/internal/models"
)

func configureValidator(validate *validator.Validate) {
	_ = validate.RegisterValidation("positive", validatePositiveDecimal)
	_ = validate.RegisterValidation("money", validateMoney)
	validate.RegisterTagNameFunc(useJSONTagNames)
}

func useJSONTagNames(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	// skip if tag key says it should be ignored
	if name == "-" {
		return ""
	}
	return name
}

// validatePositiveDecimal checks money amounts
// decimal.Decimal is a struct, so builtin numeric tags can't be used on it
func validatePositiveDecimal(fl validator.FieldLevel) bool {
	switch v := fl.Field().Interface().(type) {
	case decimal.Decimal:
		return v.IsPositive()
	case *decimal.Decimal:
		return v != nil && v.IsPositive()
	default:
		return false
	}
}

// validateMoney checks amount is whole cents within stored range
func validateMoney(fl validator.FieldLevel) bool {
	switch v := fl.Field().Interface().(type) {
	case decimal.Decimal:
		return models.IsMoney(v)
	case *decimal.Decimal:
		return v == nil || models.IsMoney(*v)
	default:
		return false
	}
}
