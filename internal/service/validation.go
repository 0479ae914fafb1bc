package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	appErrors "github.com/noah-isme/sims-api/pkg/errors"
)

var (
	phonePattern       = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
	timeRangePattern   = regexp.MustCompile(`^([0-1][0-9]|2[0-3]):[0-5][0-9]-([0-1][0-9]|2[0-3]):[0-5][0-9]$`)
	positiveIntPattern = regexp.MustCompile(`^[1-9][0-9]*$`)
)

// NewValidator returns a validator with the phone, timerange and positiveint rules
// registered and field names reported by their json tag.
func NewValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	mustRegister(validate, "phone", phonePattern)
	mustRegister(validate, "timerange", timeRangePattern)
	mustRegister(validate, "positiveint", positiveIntPattern)
	return validate
}

func mustRegister(validate *validator.Validate, tag string, pattern *regexp.Regexp) {
	if err := validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return pattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

func ensureValidator(validate *validator.Validate) *validator.Validate {
	if validate == nil {
		return NewValidator()
	}
	return validate
}

// validationError turns validator output into a VALIDATION_ERROR listing each offending field.
func validationError(err error, subject string) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid "+subject+" payload")
	}
	details := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, describeFieldError(fe))
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status,
		fmt.Sprintf("invalid %s payload: %s", subject, strings.Join(details, "; ")))
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "phone":
		return field + " must be a valid phone number"
	case "timerange":
		return field + " must look like HH:MM-HH:MM"
	case "positiveint":
		return field + " must be a positive whole number"
	case "datetime":
		return field + " must be a date formatted YYYY-MM-DD"
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}
