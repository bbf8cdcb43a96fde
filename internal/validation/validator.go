package validation

import (
	"fmt"
	"reflect"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/shopspring/decimal"
)

var paymentReferencePattern = regexp.MustCompile(`^[A-Za-z0-9._=-]{6,100}$`)

// New returns a validator that understands decimal.Decimal fields, the
// "payref" tag for payment references and "notblank" for text that must
// hold more than whitespace.
func New() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("payref", func(fl validator.FieldLevel) bool {
		return ValidReference(fl.Field().String())
	})
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return v
}

// ValidReference reports whether ref is an acceptable payment reference.
func ValidReference(ref string) bool {
	return paymentReferencePattern.MatchString(ref)
}

// FieldErrors flattens a validator error into field -> message pairs.
// It returns nil when err is not a validation failure.
func FieldErrors(err error) map[string]string {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}
	errorMessages := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		errorMessages[e.Namespace()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return errorMessages
}
