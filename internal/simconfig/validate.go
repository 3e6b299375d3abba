package simconfig

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/atvirokodosprendimai/gprcatalog/internal/domain"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(validateGPRConfig, GPRConfig{})
	return v
}

// validateGPRConfig enforces the frequency range rule: when given it holds
// exactly [min, max] with min < max.
func validateGPRConfig(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(GPRConfig)
	if n := len(cfg.FrequencyRange); n > 0 {
		if n != 2 {
			sl.ReportError(cfg.FrequencyRange, "frequency_range", "FrequencyRange", "freqlen", fmt.Sprint(n))
		} else if cfg.FrequencyRange[0] >= cfg.FrequencyRange[1] {
			sl.ReportError(cfg.FrequencyRange, "frequency_range", "FrequencyRange", "freqorder", "")
		}
	}
}

// Validate runs the structural and cross-field checks on doc. It returns a
// *domain.SchemaViolationError listing every problem found.
func Validate(doc *Document) error {
	if doc == nil {
		return domain.Violate("", "document is empty")
	}
	err := validate.Struct(doc)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.Violate("", "%v", err)
	}
	out := &domain.SchemaViolationError{Violations: make([]domain.Violation, 0, len(verrs))}
	for _, fe := range verrs {
		out.Violations = append(out.Violations, domain.Violation{
			Field:   fieldPath(fe.Namespace()),
			Message: describe(fe),
		})
	}
	return out
}

// fieldPath drops the root type name from a validator namespace.
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "min":
		if fe.Kind() == reflect.Slice {
			if fe.Field() == "soil_layers" {
				return "at least one soil layer must be specified"
			}
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", strings.Join(strings.Fields(fe.Param()), ", "))
	case "freqlen":
		return fmt.Sprintf("frequency range must have exactly 2 values [min, max], got %s", fe.Param())
	case "freqorder":
		return "minimum frequency must be less than maximum frequency"
	}
	return fmt.Sprintf("failed %q check", fe.Tag())
}
