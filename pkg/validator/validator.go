package validator

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

type CustomValidator struct {
	validator *validator.Validate
}

func NewValidator() *CustomValidator {
	v := validator.New()
	// chat addresses arrive trimmed of their channel prefix, e.g. "+14155551234"
	if err := v.RegisterValidation("chat_address", isChatAddress); err != nil {
		panic(err)
	}
	return &CustomValidator{validator: v}
}

// isChatAddress accepts a non-empty address with no whitespace padding and no scheme left over
func isChatAddress(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value != "" && strings.TrimSpace(value) == value && !strings.Contains(value, ":")
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// FormatValidationErrors flattens validator errors into field -> message
func (cv *CustomValidator) FormatValidationErrors(err error) map[string]string {
	errs := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return errs
	}
	for _, e := range validationErrors {
		field := e.Field()
		switch e.Tag() {
		case "required":
			errs[field] = field + " is required"
		case "e164":
			errs[field] = field + " must be an E.164 phone number"
		case "startswith":
			errs[field] = field + " must start with " + e.Param()
		case "chat_address":
			errs[field] = field + " must be a bare chat address"
		case "oneof":
			errs[field] = field + " must be one of: " + e.Param()
		case "min":
			errs[field] = field + " must be at least " + e.Param() + " characters"
		case "max":
			errs[field] = field + " must be at most " + e.Param() + " characters"
		default:
			errs[field] = field + " is invalid"
		}
	}

	return errs
}
