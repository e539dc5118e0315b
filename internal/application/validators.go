package application

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-panel/internal/domain"
)

// RegisterConfigValidators registers the custom validation functions used
// by Config struct tags.
// RegisterConfigValidators adds the provider and aggregation validators.
// RegisterConfigValidators returns an error if any registration fails.
func RegisterConfigValidators(v *validator.Validate) error {
	// Provider spec validator for "provider" and "provider/model".
	if err := v.RegisterValidation("provider", validateProviderSpec); err != nil {
		return fmt.Errorf("failed to register provider validator: %w", err)
	}

	// Aggregation method validator.
	if err := v.RegisterValidation("aggregation", validateAggregation); err != nil {
		return fmt.Errorf("failed to register aggregation validator: %w", err)
	}

	return nil
}

// newConfigValidator builds a validator that reports fields by their YAML
// names.
func newConfigValidator() (*validator.Validate, error) {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	if err := RegisterConfigValidators(v); err != nil {
		return nil, err
	}
	return v, nil
}

// validateProviderSpec accepts "provider" or "provider/model". Neither half
// may be empty and the provider name is lowercase. Whether the provider is
// actually known is checked by the provider registry at startup.
func validateProviderSpec(fl validator.FieldLevel) bool {
	spec := fl.Field().String()
	if spec == "" {
		return false
	}

	provider, model, hasModel := strings.Cut(spec, "/")
	if provider == "" || provider != strings.ToLower(provider) {
		return false
	}
	if strings.ContainsAny(provider, " \t") {
		return false
	}
	if hasModel && strings.TrimSpace(model) == "" {
		return false
	}
	return true
}

// validateAggregation accepts the methods domain.NewAggregator knows.
func validateAggregation(fl validator.FieldLevel) bool {
	_, err := domain.NewAggregator(domain.AggregationMethod(fl.Field().String()))
	return err == nil
}

// describeValidationErrors flattens validator errors into one readable
// error listing every failing field.
func describeValidationErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("struct validation failed: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s failed %s (got %v)", field, fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("%s: %w", strings.Join(msgs, "; "), err)
}
