// Package validation checks request DTOs before they are sent to the API.
// It wraps go-playground/validator with the domain rules of the exam-prep backend
// and reports failures by their JSON field names.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Periods accepted by the analytics endpoints.
var Periods = []string{"7d", "30d", "90d", "1y"}

// Difficulties accepted by question and simulation filters.
var Difficulties = []string{"easy", "medium", "hard"}

// Validator wraps go-playground/validator with custom validation logic.
type Validator struct {
	validate *validator.Validate
}

// New creates a Validator with the custom rules registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("period", validatePeriod)
	_ = v.RegisterValidation("difficulty", validateDifficulty)

	return &Validator{validate: v}
}

// Validate performs validation on the provided struct and returns any validation errors.
func (v *Validator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return NewValidationError(validationErrors)
		}
		// Non-struct input.
		return err
	}
	return nil
}

// ValidationError carries one FieldError per violated rule.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

// FieldError represents a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// NewValidationError creates a ValidationError from go-playground/validator errors.
func NewValidationError(errs validator.ValidationErrors) *ValidationError {
	fieldErrors := make([]FieldError, 0, len(errs))

	for _, err := range errs {
		fieldErrors = append(fieldErrors, FieldError{
			Field:   fieldPath(err),
			Message: getErrorMessage(err),
			Value:   fmt.Sprintf("%v", err.Value()),
		})
	}

	return &ValidationError{Errors: fieldErrors}
}

func (ve *ValidationError) Error() string {
	switch len(ve.Errors) {
	case 0:
		return "validation failed"
	case 1:
		return fmt.Sprintf("validation failed: %s", ve.Errors[0].Message)
	default:
		return fmt.Sprintf("validation failed: %d errors", len(ve.Errors))
	}
}

// Fields lists the offending field paths in order.
func (ve *ValidationError) Fields() []string {
	out := make([]string, len(ve.Errors))
	for i, fe := range ve.Errors {
		out[i] = fe.Field
	}
	return out
}

// fieldPath drops the root struct name: "SubmitSimulationRequest.answers[0].question_id"
// becomes "answers[0].question_id".
func fieldPath(fe validator.FieldError) string {
	if _, rest, ok := strings.Cut(fe.Namespace(), "."); ok {
		return rest
	}
	return fe.Field()
}

func getErrorMessage(fe validator.FieldError) string {
	field := fieldPath(fe)
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "uuid", "uuid4":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "period":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(Periods, ", "))
	case "difficulty":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(Difficulties, ", "))
	default:
		return fmt.Sprintf("%s failed validation", field)
	}
}

func validatePeriod(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	for _, p := range Periods {
		if value == p {
			return true
		}
	}
	return false
}

// Difficulty is stored upper case by the backend but filters accept any case.
func validateDifficulty(fl validator.FieldLevel) bool {
	value := strings.ToLower(fl.Field().String())
	for _, d := range Difficulties {
		if value == d {
			return true
		}
	}
	return false
}
