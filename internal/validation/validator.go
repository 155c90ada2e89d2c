// Package validation checks engine inputs at the boundary.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/Veraticus/the-ledger-must-balance/internal/common"
	"github.com/Veraticus/the-ledger-must-balance/internal/model"
	"github.com/go-playground/validator/v10"
)

// Validator wraps the go-playground validator with the ledger's custom tags.
type Validator struct {
	validate *validator.Validate
}

var (
	instance *Validator
	once     sync.Once
)

// Get returns the shared validator instance.
func Get() *Validator {
	once.Do(func() { instance = New() })
	return instance
}

// New creates a validator with the custom rules registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("match_type", validateMatchType)
	_ = v.RegisterValidation("account_type", validateAccountType)
	_ = v.RegisterValidation("notblank", validateNotBlank)
	_ = v.RegisterValidation("hexcolor_or_empty", validateHexColorOrEmpty)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validate: v}
}

// Validate implements echo.Validator.
func (v *Validator) Validate(i any) error {
	return v.Struct(i)
}

// Struct validates s and converts failures into a validation error naming
// the first offending field.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			msgs = append(msgs, formatFieldError(fe))
		}
		return &common.Error{Kind: common.KindValidation, Message: strings.Join(msgs, "; "), Err: err}
	}
	return common.Validationf("invalid input: %v", err)
}

// Struct validates s with the shared validator.
func Struct(s any) error {
	return Get().Struct(s)
}

func formatFieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "gt", "gte", "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "match_type":
		return fmt.Sprintf("%s must be one of contains, exact, regex", field)
	case "account_type":
		return fmt.Sprintf("%s must be one of checking, savings, credit", field)
	case "hexcolor_or_empty":
		return fmt.Sprintf("%s must be a hex color like #22c55e", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

func validateMatchType(fl validator.FieldLevel) bool {
	return model.MatchType(fl.Field().String()).Valid()
}

func validateAccountType(fl validator.FieldLevel) bool {
	return model.AccountType(strings.ToLower(fl.Field().String())).Valid()
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func validateHexColorOrEmpty(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, c := range s[1:] {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return false
		}
	}
	return true
}
