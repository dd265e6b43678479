// Package validator holds the request validation rules shared by the HTTP handlers.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"expense-ledger/internal/models"
)

var Validate *validator.Validate

var nonBlank = regexp.MustCompile(`\S`)

func init() {
	Validate = validator.New(validator.WithRequiredStructEnabled())

	// Report JSON names rather than Go field names.
	Validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	// Let numeric rules (gt, gte, lte) apply to decimal amounts.
	Validate.RegisterCustomTypeFunc(func(v reflect.Value) any {
		d, ok := v.Interface().(decimal.Decimal)
		if !ok {
			return nil
		}
		return d.InexactFloat64()
	}, decimal.Decimal{})

	_ = Validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return nonBlank.MatchString(fl.Field().String())
	})

	_ = Validate.RegisterValidation("yearmonth", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("2006-01", fl.Field().String())
		return err == nil
	})

	_ = Validate.RegisterValidation("color", func(fl validator.FieldLevel) bool {
		return models.ValidColor(fl.Field().String())
	})
}

// Struct validates v and converts the first failure into a *models.ValidationError.
func Struct(v any) error {
	err := Validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	e := verrs[0]
	return &models.ValidationError{Field: e.Field(), Reason: reason(e)}
}

func reason(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "required"
	case "notblank":
		return "must not be blank"
	case "yearmonth":
		return "must be in YYYY-MM format"
	case "color":
		return "must be a hex colour like #4361ee"
	case "gt":
		return fmt.Sprintf("must be greater than %s", e.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "lte", "max":
		return fmt.Sprintf("must be at most %s", e.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "eqfield":
		return fmt.Sprintf("must match %s", strings.ToLower(e.Param()))
	case "email":
		return "must be a valid email address"
	default:
		return "is invalid"
	}
}
