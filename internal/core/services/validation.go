package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their wire names so errors match the config surface.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateRequest checks a generation request before any model call.
func ValidateRequest(req domain.GenerationRequest) error {
	if err := validate.Struct(req); err != nil {
		return configError(err)
	}
	for _, k := range req.AllowedEvolutions {
		if !k.IsValid() {
			return domain.NewInvalidConfigError("allowed_evolution_types", fmt.Sprintf("unknown evolution kind %q", k))
		}
	}
	return nil
}

// ValidateScratch checks a scratch specification.
func ValidateScratch(spec domain.ScratchSpec) error {
	if err := validate.Struct(spec); err != nil {
		return configError(err)
	}
	if strings.TrimSpace(spec.Subject) == "" {
		return domain.NewInvalidConfigError("subject", "must not be blank")
	}
	if strings.TrimSpace(spec.Task) == "" {
		return domain.NewInvalidConfigError("task", "must not be blank")
	}
	return nil
}

// ValidateContextGroup checks one context group against the passage ceiling.
// A ceiling of zero disables the ceiling check.
func ValidateContextGroup(index int, group domain.ContextGroup, ceiling int) error {
	if len(group) == 0 {
		return &domain.InvalidContextError{Group: index, Reason: "group is empty"}
	}
	if ceiling > 0 && len(group) > ceiling {
		return &domain.InvalidContextError{
			Group:  index,
			Reason: fmt.Sprintf("%d passages exceed the ceiling of %d", len(group), ceiling),
		}
	}
	for i, p := range group {
		if strings.TrimSpace(p) == "" {
			return &domain.InvalidContextError{Group: index, Reason: fmt.Sprintf("passage %d is blank", i)}
		}
	}
	return nil
}

func configError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := fe.Field()
		if field == "" {
			field = fe.StructField()
		}
		return domain.NewInvalidConfigError(field, describeTag(fe))
	}
	return domain.NewInvalidConfigError("", err.Error())
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
