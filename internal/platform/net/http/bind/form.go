package bind

import (
	"errors"
	"net/url"
	"reflect"
	"slices"
	"sync"

	perr "formdata/internal/platform/errors"
	"formdata/internal/platform/logger"

	"github.com/go-playground/form/v4"
	"github.com/go-playground/validator/v10"
)

var decoder = sync.OnceValue(func() *form.Decoder {
	d := form.NewDecoder()
	d.RegisterTagNameFunc(func(sf reflect.StructField) string {
		if sf.Tag.Get("form") == "-" || sf.Tag.Get("json") == "-" {
			return "-"
		}
		name, _ := tagName(sf)
		return name
	})
	return d
})

// Form copies multipart field values into T using `form` tags (json names as fallback),
// then validates T. Scalars take the first value; slices take every value
func Form[T any](values map[string][]string) (T, error) {
	var zero T
	var dst T

	if k := reflect.TypeFor[T]().Kind(); k != reflect.Struct {
		return zero, perr.InvalidArgf("form target must be a struct, got %s", k)
	}
	if err := decoder().Decode(&dst, url.Values(values)); err != nil {
		return zero, decodeError(err)
	}

	if err := Struct(dst); err != nil {
		if inv, ok := err.(*validator.InvalidValidationError); ok {
			logger.Get().Error().Err(inv).Msg("validator internal error")
			return zero, perr.Newf(perr.ErrorCodeValidation, "validation error")
		}
		field, msg := Explain(err)
		return zero, perr.WithField(perr.Newf(perr.ErrorCodeValidation, "%s", msg), field)
	}
	return dst, nil
}

// decodeError reports the first failing field in name order
func decodeError(err error) error {
	var de form.DecodeErrors
	if !errors.As(err, &de) || len(de) == 0 {
		return perr.Wrap(err, perr.ErrorCodeValidation, "form decode failed")
	}
	names := make([]string, 0, len(de))
	for name := range de {
		names = append(names, name)
	}
	slices.Sort(names)
	name := names[0]
	return perr.WithField(perr.Newf(perr.ErrorCodeValidation, "%s: %v", name, de[name]), name)
}
