// Package bind maps decoded multipart fields onto validated structs
package bind

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entrans "github.com/go-playground/validator/v10/translations/en"
)

// FieldLevel aliases validator.FieldLevel for custom rules
type FieldLevel = validator.FieldLevel

type engine struct {
	v     *validator.Validate
	trans ut.Translator
}

// messages override the stock english text; {0} is the field, {1} the param
var messages = map[string]string{
	"min":  "{0} must be at least {1}",
	"max":  "{0} must be at most {1}",
	"slug": "{0} must be lowercase letters, digits and single dashes",
}

var slugRe = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

var shared = sync.OnceValue(func() *engine {
	loc := en.New()
	trans, _ := ut.New(loc, loc).GetTranslator("en")

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(sf reflect.StructField) string {
		if name, ok := tagName(sf); ok {
			return name
		}
		return sf.Name
	})
	_ = entrans.RegisterDefaultTranslations(v, trans)
	_ = v.RegisterValidation("slug", func(fl FieldLevel) bool {
		return slugRe.MatchString(fl.Field().String())
	})

	e := &engine{v: v, trans: trans}
	for tag, text := range messages {
		e.translate(tag, text)
	}
	return e
})

func (e *engine) translate(tag, text string) {
	_ = e.v.RegisterTranslation(tag, e.trans,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			msg, err := t.T(tag, fe.Field(), fe.Param())
			if err != nil {
				return fe.Error()
			}
			return msg
		},
	)
}

// tagName reads the form tag, then json; ok is false for "-" or no usable name
func tagName(sf reflect.StructField) (string, bool) {
	tag := sf.Tag.Get("form")
	if tag == "" {
		tag = sf.Tag.Get("json")
	}
	tag, _, _ = strings.Cut(tag, ",")
	if tag == "" || tag == "-" {
		return "", false
	}
	return tag, true
}

// Struct validates v with the shared validator
func Struct(v any) error { return shared().v.Struct(v) }

// Register adds a custom rule; msg, when set, becomes its english message
func Register(tag string, fn func(FieldLevel) bool, msg string) error {
	e := shared()
	if err := e.v.RegisterValidation(tag, fn); err != nil {
		return err
	}
	if msg != "" {
		e.translate(tag, msg)
	}
	return nil
}

// Explain returns the first failing field and its translated message
func Explain(err error) (field, message string) {
	if err == nil {
		return "", ""
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Field(), verrs[0].Translate(shared().trans)
	}
	return "", err.Error()
}
