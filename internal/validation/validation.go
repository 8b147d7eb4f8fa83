// Package validation holds the shared validator instance with the custom tags used by
// request forms and signup-extra schemas.
package validation

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	global    = New()
	slugRegex = regexp.MustCompile(`^[a-z0-9-]+$`)
)

func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("slug", validateSlug)
	return v
}

func validateSlug(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s == "" || slugRegex.MatchString(s)
}

// Struct validates a request form and returns the first failure as a readable error.
func Struct(ctx context.Context, form any) error {
	return describe(global.StructCtx(ctx, form), "")
}

// Var validates a single value; name is used in the returned error.
func Var(name string, value any, tag string) error {
	return describe(global.Var(value, tag), name)
}

// FieldError is a validation failure of a single form field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Message }

func describe(err error, name string) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	if name == "" {
		name = fe.Field()
	}

	msg := ""
	switch fe.Tag() {
	case "required":
		msg = "this field is required"
	case "max":
		msg = fmt.Sprintf("at most %s characters", fe.Param())
	case "min":
		msg = fmt.Sprintf("at least %s characters", fe.Param())
	case "oneof":
		msg = "not one of the available choices"
	case "slug":
		msg = "only lowercase letters, digits and dashes are allowed"
	case "email":
		msg = "not a valid email address"
	default:
		msg = fmt.Sprintf("invalid value (%s)", fe.Tag())
	}
	return &FieldError{Field: name, Message: msg}
}
