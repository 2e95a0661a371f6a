package validation

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/jobflow/errors"
)

var (
	validate *validator.Validate
	once     sync.Once
)

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Report fields by their json name.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Validate checks s against its `validate` tags.
func Validate(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	violations, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Validation("validation failed").WithCause(err)
	}

	fields := make([]FieldError, 0, len(violations))
	messages := make([]string, 0, len(violations))
	for _, e := range violations {
		path := fieldPath(e.Namespace())
		msg := formatValidationError(e)
		fields = append(fields, FieldError{Field: path, Message: msg})
		messages = append(messages, path+": "+msg)
	}

	return errors.Validation(strings.Join(messages, "; ")).WithDetail("fields", fields)
}

// fieldPath drops the root type name: "DagInput.jobs[0].id" -> "jobs[0].id".
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		if e.Kind() == reflect.Slice {
			return "must have at least " + e.Param() + " item(s)"
		}
		return "must be at least " + e.Param() + " characters"
	case "url", "http_url":
		return "must be an http(s) URL"
	case "uuid":
		return "must be a valid UUID"
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "is invalid"
	}
}
