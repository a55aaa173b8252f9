package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce    sync.Once
	structValidator *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		// Report koanf keys so messages match what users put in config.yaml.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("koanf"), ",")
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
		structValidator = v
	})
	return structValidator
}

// Validate checks cfg and returns every violation as a *ConfigError joined with errors.Join.
func Validate(cfg *Config) error {
	if cfg == nil {
		return NewValidationError("config", "is nil")
	}

	err := getValidator().Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}

	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, toConfigError(fe))
	}
	return errors.Join(errs...)
}

func toConfigError(fe validator.FieldError) *ConfigError {
	// Namespace is "Config.api.rate.burst"; drop the root type name.
	_, field, _ := strings.Cut(fe.Namespace(), ".")

	switch fe.Tag() {
	case "required", "required_with", "required_if":
		return NewMissingFieldError(field, EnvVarName(field), field)
	case "oneof":
		return NewInvalidFieldError(field, fmt.Sprintf("invalid value %v", fe.Value()), strings.Fields(fe.Param()))
	case "url":
		return NewInvalidFieldError(field, fmt.Sprintf("%q is not an absolute url", fe.Value()), nil)
	case "gt":
		return NewInvalidFieldError(field, "must be greater than "+fe.Param(), nil)
	case "gte":
		return NewInvalidFieldError(field, "must be at least "+fe.Param(), nil)
	case "lte":
		return NewInvalidFieldError(field, "must be at most "+fe.Param(), nil)
	case "gtefield":
		return NewInvalidFieldError(field, "must not be lower than "+strings.ToLower(fe.Param()), nil)
	default:
		return NewValidationError(field, "failed "+fe.Tag()+" check")
	}
}
