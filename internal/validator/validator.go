package validator

import (
	"reflect"
	"strings"

	apperrors "github.com/dadok-care/survey-engine/internal/errors"
	"github.com/dadok-care/survey-engine/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validator wraps struct-tag validation for requests and config.
type Validator struct {
	structValidator *validator.Validate
}

// New creates a new centralized validator instance
func New() *Validator {
	structValidator := validator.New()
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator: structValidator,
	}
}

// ValidateStruct validates struct tags, converting failures to the shared
// user-facing validation error type.
func (v *Validator) ValidateStruct(s interface{}) error {
	if err := v.structValidator.Struct(s); err != nil {
		if converted := apperrors.ToValidationErrors(err); len(converted) > 0 {
			return converted
		}
		return err
	}
	return nil
}

func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("response_type", validateResponseType)

	// Use json tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateResponseType(fl validator.FieldLevel) bool {
	_, err := models.ParseResponseType(fl.Field().String())
	return err == nil
}
