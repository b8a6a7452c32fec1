package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"plates-backend/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Validate is the shared request validator with the service's custom tags registered:
// meal_type, ymd (YYYY-MM-DD) and clock (HH:MM).
var Validate = newValidator()

var clockRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

func newValidator() *validator.Validate {
	v := validator.New()
	mustRegister(v, "meal_type", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseMealType(fl.Field().String())
		return err == nil
	})
	mustRegister(v, "ymd", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseDate(fl.Field().String())
		return err == nil
	})
	mustRegister(v, "clock", func(fl validator.FieldLevel) bool {
		return clockRe.MatchString(fl.Field().String())
	})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %q: %v", tag, err))
	}
}

// Struct validates a request body and flattens failures into field -> rule.
func Struct(req interface{}) (map[string]string, error) {
	err := Validate.Struct(req)
	if err == nil {
		return nil, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		fields[fe.Field()] = rule
	}
	return fields, domain.InvalidArgument("Validation failed: %s", describe(fields))
}

func describe(fields map[string]string) string {
	parts := make([]string, 0, len(fields))
	for f, r := range fields {
		parts = append(parts, fmt.Sprintf("%s (%s)", f, r))
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}

// DateParam parses a required YYYY-MM-DD query or path value.
func DateParam(name, value string) (domain.Date, error) {
	if strings.TrimSpace(value) == "" {
		return domain.Date{}, domain.InvalidArgument("%s is required", name)
	}
	return domain.ParseDate(value)
}

// MealParam parses a required meal type value, any casing.
func MealParam(value string) (domain.MealType, error) {
	if strings.TrimSpace(value) == "" {
		return "", domain.InvalidArgument("meal_type is required")
	}
	return domain.ParseMealType(value)
}

// UUIDParam parses a path id.
func UUIDParam(name, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, domain.InvalidArgument("Invalid %s", name)
	}
	return id, nil
}
