// Package validation wraps go-playground/validator so that struct tag
// failures come back as pkg/errors ValidationErrors named after the field's
// json or koanf key.
package validation

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/YuminosukeSato/foodcast/pkg/errors"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// GetValidator returns the shared validator instance.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(fieldName)
	})
	return validate
}

// fieldName prefers the json tag, then the koanf tag, then the Go name.
func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "koanf"} {
		name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// Struct validates s and returns the first failure as a ValidationError.
func Struct(s interface{}) error {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return errors.Wrap(err, "validation")
	}

	fe := fieldErrs[0]
	return errors.NewValidationError(fieldPath(fe), reason(fe), fe.Value())
}

// fieldPath drops the top-level struct name from the namespace,
// e.g. "Config.data.start_date" -> "data.start_date".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "datetime":
		return fmt.Sprintf("must be a date in %s format", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
