package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/arjunhariram/ent-web/entity"

	"github.com/go-playground/validator/v10"
)

// tagMobileNumber marks fields holding an Indian mobile number in any accepted spelling
const tagMobileNumber = "mobile_number"

// messages renders the failed tags request structs use. Anything else falls back to "is invalid".
var messages = map[string]func(field, param string) string{
	"required": func(field, _ string) string {
		return field + " is required"
	},
	"len": func(field, param string) string {
		return fmt.Sprintf("%s must be exactly %s characters long", field, param)
	},
	"numeric": func(field, _ string) string {
		return field + " must contain only digits"
	},
	tagMobileNumber: func(field, _ string) string {
		return field + " must be a valid Indian mobile number"
	},
}

// Validator checks request bodies and reports failures by their JSON field names
type Validator struct {
	validator *validator.Validate
}

// New builds the request validator. It panics if a custom tag cannot be
// registered, which only happens on a programming error.
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)

	if err := v.RegisterValidation(tagMobileNumber, func(fl validator.FieldLevel) bool {
		return entity.IsValidMobileNumber(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("validator: register %s: %v", tagMobileNumber, err))
	}

	return &Validator{validator: v}
}

// Validate satisfies echo.Validator
func (v *Validator) Validate(i interface{}) error {
	return v.ValidateStruct(i)
}

func (v *Validator) ValidateStruct(s interface{}) error {
	if s == nil {
		return errors.New("input cannot be nil")
	}

	err := v.validator.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validation error: %w", err)
	}

	problems := make([]string, len(fieldErrs))
	for i, fe := range fieldErrs {
		problems[i] = describe(fe)
	}
	return fmt.Errorf("validation failed: %s", strings.Join(problems, "; "))
}

func describe(fe validator.FieldError) string {
	if render, ok := messages[fe.Tag()]; ok {
		return render(fe.Field(), fe.Param())
	}
	return fe.Field() + " is invalid"
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}
