package util

import (
	"reflect"

	"github.com/pkg/errors"
)

// IsStructInitialized reports whether any exported pointer, interface or map
// field of the given struct is still nil. Used by the server readiness check.
func IsStructInitialized(s interface{}) error {
	v := reflect.ValueOf(s)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return errors.New("struct pointer is nil")
		}
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return errors.New("not a struct")
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" {
			continue
		}
		if field.Tag.Get("initialized") == "optional" {
			continue
		}

		switch v.Field(i).Kind() {
		case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Chan, reflect.Func:
			if v.Field(i).IsNil() {
				return errors.Errorf("field %s is not initialized", field.Name)
			}
		}
	}

	return nil
}
