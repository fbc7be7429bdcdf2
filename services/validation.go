package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"recipe-restful/apperrors"

	"github.com/go-playground/validator/v10"
)

const (
	msgRequired = "This field is required."
	msgBlank    = "This field may not be blank."
	msgNull     = "This field may not be null."
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldErrors collects per-field messages in the shape of apperrors.Error.Fields.
type fieldErrors map[string][]string

func (f fieldErrors) add(field, message string) {
	f[field] = append(f[field], message)
}

func (f fieldErrors) merge(prefix string, other fieldErrors) {
	for field, messages := range other {
		f[prefix+field] = append(f[prefix+field], messages...)
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return apperrors.NewValidation(f)
}

// validateStruct runs the validate tags of input and returns the failures
// keyed by JSON field name.
func validateStruct(input any) (fieldErrors, error) {
	fields := fieldErrors{}
	err := validate.Struct(input)
	if err == nil {
		return fields, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, apperrors.NewInternal("Failed to validate input", err)
	}
	for _, fe := range verrs {
		fields.add(fieldPath(fe), fieldMessage(fe))
	}
	return fields, nil
}

// fieldPath drops the root struct name from the namespace: "RecipeInput.title" becomes "title".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return msgRequired
	case "email":
		return "Enter a valid email address."
	case "min":
		return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "gte":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	default:
		return fmt.Sprintf("Failed on the %q rule.", fe.Tag())
	}
}
