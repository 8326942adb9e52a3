package middleware

import (
	"reflect"
	"strings"

	"github.com/facturante/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// SetupValidator configures the validator with custom tags
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	// Use JSON tag names for field names in errors
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})

	// iso_currency accepts a 3-letter uppercase currency code
	_ = v.RegisterValidation("iso_currency", func(fl validator.FieldLevel) bool {
		code := fl.Field().String()
		if len(code) != 3 {
			return false
		}
		for _, r := range code {
			if r < 'A' || r > 'Z' {
				return false
			}
		}
		return true
	})
}

// FormatValidationErrors formats validation errors into a standard response
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			details = append(details, dto.ValidationDetail{
				Field:   e.Field(),
				Message: validationMessage(e),
			})
		}
	}

	return dto.NewValidationErrorResponse(
		"Request validation failed",
		requestID,
		details,
	)
}

// validationMessage returns a human-readable validation message
func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "gte":
		return "Must be at least " + e.Param()
	case "lte":
		return "Must be at most " + e.Param()
	case "iso_currency":
		return "Must be a 3-letter ISO 4217 currency code"
	default:
		return "Invalid value"
	}
}
