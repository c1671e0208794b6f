package binder

import (
	"fmt"
	"net/http"
	"reflect"
)

// PathExtractor resolves a path parameter name to its value for the current
// request. It decouples the binder from any particular router.
type PathExtractor func(r *http.Request, fieldName string) string

// Path creates a path parameter binder using the given extractor.
//
// Example with chi:
//
//	bind := binder.Path(func(r *http.Request, name string) string {
//		return chi.URLParam(r, name)
//	})
func Path(extractor PathExtractor) func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		if extractor == nil {
			return fmt.Errorf("%w: extractor function is nil", ErrFailedToParsePath)
		}

		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Ptr || rv.IsNil() {
			return fmt.Errorf("%w: target must be a non-nil pointer", ErrFailedToParsePath)
		}
		if rv.Elem().Kind() != reflect.Struct {
			return fmt.Errorf("%w: target must be a pointer to struct", ErrFailedToParsePath)
		}

		rt := rv.Elem().Type()
		values := make(map[string][]string, rt.NumField())
		for i := 0; i < rt.NumField(); i++ {
			name, skip := parseFieldTag(rt.Field(i), "path")
			if skip {
				continue
			}
			// An absent parameter leaves the field untouched.
			if val := extractor(r, name); val != "" {
				values[name] = []string{val}
			}
		}

		return bindToStruct(v, "path", values, ErrFailedToParsePath)
	}
}
