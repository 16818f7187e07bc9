package utils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ValidationService struct {
	validator *validator.Validate
}

type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

var (
	phoneCharsRegex = regexp.MustCompile(`^\+?[0-9()\-\s.]+$`)
	nonDigitRegex   = regexp.MustCompile(`\D`)
	clockRegex      = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
)

func NewValidationService() *ValidationService {
	v := validator.New()

	// Register custom validators
	v.RegisterValidation("phone", validatePhone)
	v.RegisterValidation("clock", validateClock)

	return &ValidationService{
		validator: v,
	}
}

func (vs *ValidationService) ValidateStruct(s interface{}) []ValidationError {
	var validationErrors []ValidationError

	err := vs.validator.Struct(s)
	if err != nil {
		fieldErrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return []ValidationError{{Message: err.Error()}}
		}
		for _, fe := range fieldErrors {
			validationErrors = append(validationErrors, ValidationError{
				Field:   fe.Field(),
				Tag:     fe.Tag(),
				Value:   fmt.Sprintf("%v", fe.Value()),
				Message: vs.getErrorMessage(fe),
			})
		}
	}

	return validationErrors
}

// Validate runs ValidateStruct and folds the result into a single ServiceError.
func (vs *ValidationService) Validate(s interface{}) error {
	validationErrors := vs.ValidateStruct(s)
	if len(validationErrors) == 0 {
		return nil
	}

	messages := make([]string, len(validationErrors))
	for i, ve := range validationErrors {
		messages[i] = ve.Message
	}
	return NewValidationErrorWithDetails(validationErrors[0].Message, strings.Join(messages, "; "))
}

// ValidateVar checks a single value against a tag, naming it as field in the error.
func (vs *ValidationService) ValidateVar(value interface{}, field, tag string) error {
	err := vs.validator.Var(value, tag)
	if err == nil {
		return nil
	}

	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok || len(fieldErrors) == 0 {
		return NewValidationError(fmt.Sprintf("%s is invalid", field))
	}
	fe := fieldErrors[0]
	if fe.Tag() == "oneof" {
		return NewValidationError(fmt.Sprintf("%s must be one of: %s", field, fe.Param()))
	}
	return NewValidationError(fmt.Sprintf("%s is invalid", field))
}

func (vs *ValidationService) getErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "phone":
		return "Invalid phone number format"
	case "clock":
		return fmt.Sprintf("%s must be a HH:MM time", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "unique":
		return fmt.Sprintf("%s must not contain duplicate %s values", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// Custom validation functions

// validatePhone accepts domestic formats such as 090-1111-2222 as well as E.164.
func validatePhone(fl validator.FieldLevel) bool {
	phone := strings.TrimSpace(fl.Field().String())
	if !phoneCharsRegex.MatchString(phone) {
		return false
	}

	digits := nonDigitRegex.ReplaceAllString(phone, "")
	return len(digits) >= 3 && len(digits) <= 15
}

func validateClock(fl validator.FieldLevel) bool {
	return clockRegex.MatchString(fl.Field().String())
}
