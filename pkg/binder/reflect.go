package binder

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// bindToStruct assigns tagged struct fields from a values map. Fields with
// no matching value keep their zero value, so binders compose without
// clobbering each other.
func bindToStruct(v any, tagName string, values map[string][]string, bindErr error) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("%w: target must be a non-nil pointer", bindErr)
	}

	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("%w: target must be a pointer to struct", bindErr)
	}

	rt := rv.Type()
	for i := 0; i < rv.NumField(); i++ {
		field := rv.Field(i)
		if !field.CanSet() {
			continue
		}

		name, skip := parseFieldTag(rt.Field(i), tagName)
		if skip {
			continue
		}

		fieldValues, exists := values[name]
		if !exists || len(fieldValues) == 0 {
			continue
		}

		if err := setFieldValue(field, rt.Field(i).Type, fieldValues); err != nil {
			return fmt.Errorf("%w: field %s: %v", bindErr, rt.Field(i).Name, err)
		}
	}
	return nil
}

// parseFieldTag resolves the parameter name for a field. An absent tag falls
// back to the lowercased field name; "-" skips the field.
func parseFieldTag(field reflect.StructField, tagName string) (paramName string, skip bool) {
	tag := field.Tag.Get(tagName)
	if tag == "" {
		return strings.ToLower(field.Name), false
	}
	if tag == "-" {
		return "", true
	}
	// Tag options after the first comma are ignored.
	name, _, _ := strings.Cut(tag, ",")
	return name, false
}

func setFieldValue(field reflect.Value, fieldType reflect.Type, values []string) error {
	if fieldType.Kind() == reflect.Ptr {
		if field.IsNil() {
			field.Set(reflect.New(fieldType.Elem()))
		}
		return setFieldValue(field.Elem(), fieldType.Elem(), values)
	}

	if fieldType.Kind() == reflect.Slice {
		return setSliceValue(field, fieldType, values)
	}

	if len(values) == 0 {
		return nil
	}
	value := values[0]

	switch fieldType.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, fieldType.Bits())
		if err != nil {
			return fmt.Errorf("invalid int value %q", value)
		}
		field.SetInt(n)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, fieldType.Bits())
		if err != nil {
			return fmt.Errorf("invalid uint value %q", value)
		}
		field.SetUint(n)

	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(value, fieldType.Bits())
		if err != nil {
			return fmt.Errorf("invalid float value %q", value)
		}
		field.SetFloat(n)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			// Accept the common HTML form spellings too.
			switch strings.ToLower(value) {
			case "on", "yes":
				b = true
			case "off", "no", "":
				b = false
			default:
				return fmt.Errorf("invalid bool value %q", value)
			}
		}
		field.SetBool(b)

	default:
		return fmt.Errorf("unsupported type %s", fieldType.Kind())
	}
	return nil
}

// setSliceValue builds a slice from repeated parameters, splitting
// comma-separated entries along the way.
func setSliceValue(field reflect.Value, fieldType reflect.Type, values []string) error {
	var all []string
	for _, v := range values {
		all = append(all, strings.Split(v, ",")...)
	}

	slice := reflect.MakeSlice(fieldType, len(all), len(all))
	for i, value := range all {
		if err := setFieldValue(slice.Index(i), fieldType.Elem(), []string{strings.TrimSpace(value)}); err != nil {
			return err
		}
	}
	field.Set(slice)
	return nil
}
