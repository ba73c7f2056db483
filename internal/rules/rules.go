// Package rules evaluates go-playground/validator tag strings against
// single field values.
package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var validate *validator.Validate
var translator ut.Translator

func init() {
	validate = validator.New()
	var ok bool
	translator, ok = ut.New(en.New(), en.New()).GetTranslator("en")
	if !ok {
		panic("rules: failed to get 'en' translator")
	}

	if err := en_translations.RegisterDefaultTranslations(validate, translator); err != nil {
		panic(err)
	}
}

// Check reports whether tag is a usable rule string. The validator panics
// on unknown tags, so the panic is turned into an error here, once, when
// the field is defined.
func Check(tag string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	_ = validate.Var("", tag)

	return nil
}

// Error is a failed rule. Error returns a human readable reason for the
// first failing rule and Unwrap the validator.ValidationErrors behind it.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string { return e.Reason }

func (e *Error) Unwrap() error { return e.Err }

// Apply validates value against tag. A failing rule is returned as an
// *Error.
func Apply(value any, tag string) error {
	err := validate.Var(value, tag)
	if err == nil {
		return nil
	}

	var verrors validator.ValidationErrors
	if !errors.As(err, &verrors) || len(verrors) == 0 {
		return err
	}

	return &Error{Reason: reasonForTag(verrors[0].Tag(), verrors[0]), Err: verrors}
}

func reasonForTag(tag string, verror validator.FieldError) string {
	switch tag {
	case "required":
		return "this field is required"
	default:
		return strings.TrimSpace(verror.Translate(translator))
	}
}
