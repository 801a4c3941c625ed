// internal/utils/validator.go
package utils

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("product_slug", validateProductSlug)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

func validateProductSlug(fl validator.FieldLevel) bool {
	slug := fl.Field().String()

	// Slugs are lowercase alphanumeric with underscores, 3-100 characters
	if len(slug) < 3 || len(slug) > 100 {
		return false
	}

	matched, _ := regexp.MatchString("^[a-z0-9_]+$", slug)
	return matched
}

type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   strings.ToLower(e.Field()),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return e.Field() + " must be at least " + e.Param()
	case "max":
		return e.Field() + " must be at most " + e.Param()
	case "product_slug":
		return "Product slug must be 3-100 characters of lowercase letters, numbers, and underscores"
	default:
		return e.Field() + " is invalid"
	}
}
