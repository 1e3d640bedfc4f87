package record

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

var timeType = reflect.TypeOf(time.Time{})

// fieldName 读取 rdb 标签，格式 `rdb:"column_name,..."`，"-" 表示忽略
func fieldName(field reflect.StructField) (string, bool) {
	tag := field.Tag.Get("rdb")
	if tag == "-" {
		return "", false
	}
	if tag == "" {
		return field.Name, true
	}
	if idx := strings.Index(tag, ","); idx != -1 {
		tag = tag[:idx]
	}
	if tag == "" {
		return field.Name, true
	}
	return tag, true
}

// Scan 把记录转换成结构体，dest 必须是结构体指针，缺失或为 nil 的字段保持零值
func (r Record) Scan(dest any) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("dest must be a pointer to struct, got %T", dest)
	}

	rv = rv.Elem()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name, ok := fieldName(field)
		if !ok {
			continue
		}
		value, exists := r[name]
		if !exists || value == nil {
			continue
		}
		if err := setFieldValue(rv.Field(i), value); err != nil {
			return fmt.Errorf("failed to set field %s: %w", name, err)
		}
	}
	return nil
}

func setFieldValue(fieldValue reflect.Value, value any) error {
	fieldType := fieldValue.Type()

	if fieldType.Kind() == reflect.Ptr {
		ptr := reflect.New(fieldType.Elem())
		if err := setFieldValue(ptr.Elem(), value); err != nil {
			return err
		}
		fieldValue.Set(ptr)
		return nil
	}

	if fieldType == timeType {
		t, ok := ToTime(value)
		if !ok {
			return fmt.Errorf("cannot parse time from %T %v", value, value)
		}
		fieldValue.Set(reflect.ValueOf(t))
		return nil
	}

	switch fieldType.Kind() {
	case reflect.Interface:
		fieldValue.Set(reflect.ValueOf(value))
		return nil
	case reflect.String:
		// 主键和外键统一成字符串
		key, _ := KeyOf(value)
		fieldValue.SetString(key)
		return nil
	case reflect.Bool:
		switch v := value.(type) {
		case bool:
			fieldValue.SetBool(v)
			return nil
		case string:
			fieldValue.SetBool(v == "true" || v == "1")
			return nil
		}
		if f, ok := ToFloat(value); ok {
			fieldValue.SetBool(f != 0)
			return nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if f, ok := ToFloat(value); ok {
			fieldValue.SetInt(int64(f))
			return nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if f, ok := ToFloat(value); ok && f >= 0 {
			fieldValue.SetUint(uint64(f))
			return nil
		}
	case reflect.Float32, reflect.Float64:
		if f, ok := ToFloat(value); ok {
			fieldValue.SetFloat(f)
			return nil
		}
	}

	valueType := reflect.TypeOf(value)
	if valueType.AssignableTo(fieldType) {
		fieldValue.Set(reflect.ValueOf(value))
		return nil
	}
	return fmt.Errorf("cannot convert %v to %v", valueType, fieldType)
}

// FromStruct 把结构体转换成记录，nil 指针字段输出 nil
func FromStruct(v any) Record {
	result := Record{}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return result
	}

	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name, ok := fieldName(field)
		if !ok {
			continue
		}
		fv := rv.Field(i)
		switch {
		case fv.Kind() == reflect.Ptr && fv.IsNil():
			result[name] = nil
		case fv.Kind() == reflect.Ptr:
			result[name] = fv.Elem().Interface()
		case fv.Type() == timeType && fv.Interface().(time.Time).IsZero():
			result[name] = nil
		default:
			result[name] = fv.Interface()
		}
	}
	return result
}
