// Package validation checks request input with go-playground/validator and
// reports failures as a domain.ValidationError keyed by JSON field name.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tendant/anon-inbox/internal/domain"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// Validator wraps a configured validator.Validate.
type Validator struct {
	validate *validator.Validate
}

// New returns a Validator with the "username" tag registered.
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return &Validator{validate: v}
}

// Struct validates s and returns a *domain.ValidationError on failure.
func (v *Validator) Struct(s any) error {
	return v.convert(v.validate.Struct(s))
}

// Username validates a bare username against the registration rules.
func (v *Validator) Username(username string) error {
	in := struct {
		Username string `json:"username" validate:"required,min=2,max=20,username"`
	}{Username: username}
	return v.Struct(in)
}

func (v *Validator) convert(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; seen {
			continue
		}
		fields[fe.Field()] = message(fe)
	}
	return &domain.ValidationError{Fields: fields}
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be no more than %s characters", field, fe.Param())
	case "email":
		return "invalid email address"
	case "username":
		return fmt.Sprintf("%s must not contain special characters", field)
	}
	return fmt.Sprintf("%s is invalid", field)
}
