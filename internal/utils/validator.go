package utils

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	validate.RegisterValidation("username", validateUsername)
	validate.RegisterValidation("phone", validatePhone)
	validate.RegisterValidation("presence_status", validatePresenceStatus)
}

// ValidationError represents validation error details
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// ValidateStruct validates a struct and returns user-friendly error messages
func ValidateStruct(s interface{}) []ValidationError {
	var errors []ValidationError

	if err := validate.Struct(s); err != nil {
		for _, fieldErr := range err.(validator.ValidationErrors) {
			errors = append(errors, ValidationError{
				Field:   strings.ToLower(fieldErr.Field()),
				Tag:     fieldErr.Tag(),
				Message: getErrorMessage(fieldErr),
			})
		}
	}

	return errors
}

// ValidationErrorsToMap converts validation errors to a field->message map
func ValidationErrorsToMap(errors []ValidationError) map[string]string {
	result := make(map[string]string, len(errors))
	for _, e := range errors {
		result[e.Field] = e.Message
	}
	return result
}

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)
	phoneRegex    = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
)

// validateUsername checks username format: letters, digits, underscore
func validateUsername(fl validator.FieldLevel) bool {
	return usernameRegex.MatchString(fl.Field().String())
}

// validatePhone checks phone number format; empty phones are allowed
func validatePhone(fl validator.FieldLevel) bool {
	phone := fl.Field().String()
	if phone == "" {
		return true
	}
	return phoneRegex.MatchString(phone)
}

// validatePresenceStatus checks the coarse presence status enum
func validatePresenceStatus(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "online", "away", "busy", "offline":
		return true
	}
	return false
}

// getErrorMessage returns a human-readable message for a field error
func getErrorMessage(err validator.FieldError) string {
	field := strings.ToLower(err.Field())
	switch err.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return field + " must be at least " + err.Param() + " characters"
	case "max":
		return field + " must be at most " + err.Param() + " characters"
	case "username":
		return field + " must be 3-30 characters of letters, digits or underscore"
	case "phone":
		return field + " must be a valid phone number"
	case "presence_status":
		return field + " must be one of online, away, busy, offline"
	default:
		return field + " is invalid"
	}
}
