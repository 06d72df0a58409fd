package scraper

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var hhmmPattern = regexp.MustCompile(`^([01]?\d|2[0-3])[h:]([0-5]\d)$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON names so field errors match what callers send and receive.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})

	// Registration only fails on empty tags or nil funcs.
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return hhmmPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("gender", func(fl validator.FieldLevel) bool {
		g := fl.Field().String()
		return g == "M" || g == "F"
	})
	return v
}

// Validate checks v against its struct tags and returns a Validation error
// carrying field details when it fails.
func Validate(v any, message string) error {
	if err := validate.Struct(v); err != nil {
		return Invalid(message, err)
	}
	return nil
}

// SafeValidate reports whether v satisfies its struct tags. Scrapers use it
// to drop malformed rows instead of failing the whole page.
func SafeValidate(v any) bool {
	return validate.Struct(v) == nil
}

func fieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}
