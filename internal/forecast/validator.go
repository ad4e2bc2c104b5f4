package forecast

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// GetValidator returns the shared validator configured with JSON field names.
func GetValidator() *validator.Validate {
	return validate
}

// Violation is a single failed field constraint.
type Violation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (v Violation) String() string {
	return v.Field + ": " + v.Reason
}

// ValidationError carries every violation found in a forecast sequence.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("forecast response violates %d constraint(s)", len(e.Violations))
}

// Validate checks every forecast and collects all violations before deciding.
// Identical violations on different items are reported once.
func Validate(items []Forecast) ([]Forecast, error) {
	var set violationSet
	for i := range items {
		set.add(validate.Struct(&items[i]))
	}

	if err := set.err(); err != nil {
		return nil, err
	}
	return items, nil
}

// ValidateVar checks value against a validator tag such as "dive" and reports
// violations the same way Validate does.
func ValidateVar(value any, tag string) error {
	var set violationSet
	set.add(validate.Var(value, tag))
	return set.err()
}

type violationSet struct {
	seen       map[Violation]struct{}
	violations []Violation
}

func (s *violationSet) add(err error) {
	for _, v := range FormatValidationErrors(err) {
		if _, dup := s.seen[v]; dup {
			continue
		}
		if s.seen == nil {
			s.seen = make(map[Violation]struct{})
		}
		s.seen[v] = struct{}{}
		s.violations = append(s.violations, v)
	}
}

func (s *violationSet) err() error {
	if len(s.violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: s.violations}
}

// FormatValidationErrors converts validator errors into violations. Other errors yield nil.
func FormatValidationErrors(err error) []Violation {
	validatorErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}

	violations := make([]Violation, 0, len(validatorErrs))
	for _, fe := range validatorErrs {
		violations = append(violations, Violation{
			Field:  fe.Field(),
			Reason: getErrorMessage(fe),
		})
	}
	return violations
}

func getErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "must not be null"
	case "min":
		if err.Kind() == reflect.String {
			return fmt.Sprintf("length must be at least %s characters", err.Param())
		}
		return fmt.Sprintf("must be greater than or equal to %s", err.Param())
	case "max":
		if err.Kind() == reflect.String {
			return fmt.Sprintf("length must be at most %s characters", err.Param())
		}
		return fmt.Sprintf("must be less than or equal to %s", err.Param())
	default:
		return fmt.Sprintf("failed on the '%s' constraint", err.Tag())
	}
}
