package storage

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// SetDefaults 根据 def tag 为零值字段设置默认值，嵌套结构体递归处理
func SetDefaults(object any) error {
	rv := reflect.ValueOf(object)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("object must be a non-nil pointer, got %T", object)
	}
	return setDefaults(rv.Elem())
}

func setDefaults(rv reflect.Value) error {
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct || rv.Type() == timeType {
		return nil
	}

	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		fv := rv.Field(i)
		if !fv.CanSet() {
			continue
		}

		if err := setDefaults(fv); err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}

		tag := field.Tag.Get("def")
		if tag == "" || !fv.IsZero() {
			continue
		}
		if fv.Kind() == reflect.Ptr {
			fv.Set(reflect.New(fv.Type().Elem()))
			fv = fv.Elem()
		}
		if err := setDefaultValue(fv, tag); err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
	}
	return nil
}

func setDefaultValue(rv reflect.Value, value string) error {
	if rv.Type() == durationType {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		rv.SetInt(int64(d))
		return nil
	}

	switch rv.Kind() {
	case reflect.String:
		rv.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid bool %q: %w", value, err)
		}
		rv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 0, rv.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid int %q: %w", value, err)
		}
		rv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 0, rv.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid uint %q: %w", value, err)
		}
		rv.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, rv.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid float %q: %w", value, err)
		}
		rv.SetFloat(f)
	case reflect.Slice:
		parts := strings.Split(value, ",")
		out := reflect.MakeSlice(rv.Type(), len(parts), len(parts))
		for i, p := range parts {
			if err := setDefaultValue(out.Index(i), strings.TrimSpace(p)); err != nil {
				return err
			}
		}
		rv.Set(out)
	default:
		return fmt.Errorf("unsupported default for type %v", rv.Type())
	}
	return nil
}
