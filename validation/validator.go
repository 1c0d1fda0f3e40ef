// Package validation holds the shared go-playground validator instance and the
// custom tags used by request bodies.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError describes one failed rule.
type FieldError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param,omitempty"`
}

// Errors is returned by ValidateStruct when one or more rules fail.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		if fe.Param != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", fe.Field, fe.Tag, fe.Param))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field, fe.Tag))
		}
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validator returns the process-wide validator, registering custom tags once.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = validate.RegisterValidation("outcome", validateOutcome)
		_ = validate.RegisterValidation("mealdate", validateDate)
	})
	return validate
}

// ValidateStruct runs the struct tags and flattens failures into Errors.
func ValidateStruct(s interface{}) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Tag: fe.Tag(), Param: fe.Param()})
	}
	return out
}

func validateOutcome(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "win", "lose", "tie":
		return true
	}
	return false
}

// validateDate accepts YYYY-MM-DD or a full RFC3339 timestamp.
func validateDate(fl validator.FieldLevel) bool {
	_, err := ParseDate(fl.Field().String())
	return err == nil
}

// ParseDate parses the two date layouts accepted by meal forms.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
