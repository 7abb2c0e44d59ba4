package common

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

const MaxCaptionLength = 2200

var (
	scopeRegex = regexp.MustCompile(`^[A-Za-z0-9_.:\-]{1,64}$`)

	validate     *validator.Validate
	validateOnce sync.Once
)

func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// report json names so errors line up with the request body
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("scope", func(fl validator.FieldLevel) bool {
			return scopeRegex.MatchString(fl.Field().String())
		})
		_ = validate.RegisterValidation("kind", func(fl validator.FieldLevel) bool {
			return Kind(fl.Field().String()).IsValid()
		})
		_ = validate.RegisterValidation("transition", func(fl validator.FieldLevel) bool {
			return fl.Field().String() == "" || Transition(fl.Field().String()).IsValid()
		})
	})
	return validate
}

// ValidateStruct runs the struct tags and returns the first failure as a *ValidationError.
func ValidateStruct(v interface{}) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ValidationError{Field: fe.Field(), Reason: describeTag(fe)}
	}
	return &ValidationError{Reason: err.Error()}
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s long", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "scope":
		return "must be 1-64 characters of letters, digits, '_', '.', ':' or '-'"
	case "kind":
		return "must be one of POST, REEL, STORY"
	case "transition":
		return "unknown transition"
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}

func ValidateScope(scope string) error {
	if !scopeRegex.MatchString(scope) {
		return NewValidationError("scope", "must be 1-64 characters of letters, digits, '_', '.', ':' or '-'")
	}
	return nil
}

func ValidateCaption(caption string) error {
	if len([]rune(caption)) > MaxCaptionLength {
		return NewValidationError("caption", "must be at most %d characters", MaxCaptionLength)
	}
	return nil
}
