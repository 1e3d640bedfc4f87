package storage

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var (
	durationType = reflect.TypeOf(time.Duration(0))
	timeType     = reflect.TypeOf(time.Time{})
)

// MapStorage 基于 map 和 slice 的存储实现，decoder 解析出来的数据都保存在这里
type MapStorage struct {
	data any
}

func NewMapStorage(data any) *MapStorage {
	return &MapStorage{data: data}
}

// Data 获取存储的原始数据
func (ms *MapStorage) Data() any {
	return ms.data
}

func (ms *MapStorage) Sub(key string) Storage {
	if key == "" {
		return ms
	}

	current := ms.data
	for _, k := range parseKey(key) {
		current = valueByKey(current, k)
		if current == nil {
			break
		}
	}
	return NewMapStorage(current)
}

// ConvertTo 转换完成后会根据 def tag 填充零值字段
func (ms *MapStorage) ConvertTo(object any) error {
	rv := reflect.ValueOf(object)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("object must be a non-nil pointer, got %T", object)
	}
	if err := convertValue(ms.data, rv); err != nil {
		return err
	}
	return SetDefaults(object)
}

func parseKey(key string) []string {
	var keys []string
	var sb strings.Builder
	flush := func() {
		if sb.Len() > 0 {
			keys = append(keys, sb.String())
			sb.Reset()
		}
	}
	for _, c := range key {
		switch c {
		case '.', '[', ']':
			flush()
		default:
			sb.WriteRune(c)
		}
	}
	flush()
	return keys
}

func valueByKey(data any, key string) any {
	rv := reflect.ValueOf(data)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil
		}
		v := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil
		}
		return v.Interface()
	case reflect.Slice, reflect.Array:
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= rv.Len() {
			return nil
		}
		return rv.Index(idx).Interface()
	}
	return nil
}

// fieldName 字段名优先级：cfg > json > yaml > 字段名
func fieldName(field reflect.StructField) string {
	for _, tagKey := range []string{"cfg", "json", "yaml"} {
		if tag := field.Tag.Get(tagKey); tag != "" {
			name := strings.Split(tag, ",")[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
	}
	return field.Name
}

func convertValue(src any, dst reflect.Value) error {
	sv := reflect.ValueOf(src)
	if !sv.IsValid() {
		return nil
	}

	if dst.Kind() == reflect.Ptr {
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return convertValue(src, dst.Elem())
	}

	for sv.Kind() == reflect.Ptr || sv.Kind() == reflect.Interface {
		if sv.IsNil() {
			return nil
		}
		sv = sv.Elem()
	}

	switch dst.Type() {
	case durationType:
		return convertToDuration(sv, dst)
	case timeType:
		return convertToTime(sv, dst)
	}

	if sv.Type().AssignableTo(dst.Type()) && dst.Kind() != reflect.Map && dst.Kind() != reflect.Slice {
		dst.Set(sv)
		return nil
	}

	switch dst.Kind() {
	case reflect.Map:
		return convertToMap(sv, dst)
	case reflect.Slice:
		return convertToSlice(sv, dst)
	case reflect.Struct:
		return convertToStruct(sv, dst)
	case reflect.Interface:
		if sv.Type().Implements(dst.Type()) {
			dst.Set(sv)
			return nil
		}
	case reflect.String:
		switch sv.Kind() {
		case reflect.Int, reflect.Int64, reflect.Float64, reflect.Bool:
			dst.SetString(fmt.Sprint(sv.Interface()))
			return nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if sv.Kind() == reflect.String {
			n, err := strconv.ParseInt(sv.String(), 10, 64)
			if err != nil {
				return fmt.Errorf("cannot convert %q to %v: %w", sv.String(), dst.Type(), err)
			}
			dst.SetInt(n)
			return nil
		}
	case reflect.Float32, reflect.Float64:
		if sv.Kind() == reflect.String {
			f, err := strconv.ParseFloat(sv.String(), 64)
			if err != nil {
				return fmt.Errorf("cannot convert %q to %v: %w", sv.String(), dst.Type(), err)
			}
			dst.SetFloat(f)
			return nil
		}
	case reflect.Bool:
		if sv.Kind() == reflect.String {
			b, err := strconv.ParseBool(sv.String())
			if err != nil {
				return fmt.Errorf("cannot convert %q to bool: %w", sv.String(), err)
			}
			dst.SetBool(b)
			return nil
		}
	}

	if isNumber(sv.Kind()) && isNumber(dst.Kind()) {
		dst.Set(sv.Convert(dst.Type()))
		return nil
	}

	return fmt.Errorf("cannot convert %v to %v", sv.Type(), dst.Type())
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func convertToDuration(src, dst reflect.Value) error {
	switch src.Kind() {
	case reflect.String:
		d, err := time.ParseDuration(src.String())
		if err != nil {
			return fmt.Errorf("failed to parse duration %q: %w", src.String(), err)
		}
		dst.SetInt(int64(d))
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		dst.SetInt(src.Int())
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		dst.SetInt(int64(src.Uint()))
		return nil
	case reflect.Float32, reflect.Float64:
		// 浮点数按秒处理
		dst.SetInt(int64(src.Float() * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("cannot convert %v to time.Duration", src.Type())
}

var timeFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func convertToTime(src, dst reflect.Value) error {
	if src.Type() == timeType {
		dst.Set(src)
		return nil
	}
	switch src.Kind() {
	case reflect.String:
		for _, format := range timeFormats {
			if t, err := time.Parse(format, src.String()); err == nil {
				dst.Set(reflect.ValueOf(t))
				return nil
			}
		}
		return fmt.Errorf("failed to parse time %q", src.String())
	case reflect.Int, reflect.Int32, reflect.Int64:
		dst.Set(reflect.ValueOf(time.Unix(src.Int(), 0)))
		return nil
	}
	return fmt.Errorf("cannot convert %v to time.Time", src.Type())
}

func convertToMap(src, dst reflect.Value) error {
	if src.Kind() != reflect.Map {
		return fmt.Errorf("cannot convert %v to %v", src.Type(), dst.Type())
	}

	out := reflect.MakeMapWithSize(dst.Type(), src.Len())
	for _, k := range src.MapKeys() {
		ev := reflect.New(dst.Type().Elem()).Elem()
		if err := convertValue(src.MapIndex(k).Interface(), ev); err != nil {
			return fmt.Errorf("key %v: %w", k.Interface(), err)
		}
		kv := reflect.New(dst.Type().Key()).Elem()
		if err := convertValue(k.Interface(), kv); err != nil {
			return fmt.Errorf("key %v: %w", k.Interface(), err)
		}
		out.SetMapIndex(kv, ev)
	}
	dst.Set(out)
	return nil
}

func convertToSlice(src, dst reflect.Value) error {
	if src.Kind() == reflect.String && dst.Type().Elem().Kind() == reflect.String {
		// 环境变量中的列表使用逗号分隔
		parts := strings.Split(src.String(), ",")
		out := reflect.MakeSlice(dst.Type(), len(parts), len(parts))
		for i, p := range parts {
			out.Index(i).SetString(strings.TrimSpace(p))
		}
		dst.Set(out)
		return nil
	}
	if src.Kind() != reflect.Slice && src.Kind() != reflect.Array {
		return fmt.Errorf("cannot convert %v to %v", src.Type(), dst.Type())
	}

	out := reflect.MakeSlice(dst.Type(), src.Len(), src.Len())
	for i := 0; i < src.Len(); i++ {
		if err := convertValue(src.Index(i).Interface(), out.Index(i)); err != nil {
			return fmt.Errorf("index %d: %w", i, err)
		}
	}
	dst.Set(out)
	return nil
}

func convertToStruct(src, dst reflect.Value) error {
	if src.Kind() != reflect.Map {
		return fmt.Errorf("cannot convert %v to %v", src.Type(), dst.Type())
	}

	values := make(map[string]reflect.Value, src.Len())
	for _, k := range src.MapKeys() {
		values[fmt.Sprint(k.Interface())] = src.MapIndex(k)
	}

	dt := dst.Type()
	for i := 0; i < dt.NumField(); i++ {
		field := dt.Field(i)
		fv := dst.Field(i)
		if !fv.CanSet() {
			continue
		}

		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			if err := convertToStruct(src, fv); err != nil {
				return err
			}
			continue
		}

		name := fieldName(field)
		if name == "" {
			continue
		}
		v, ok := values[name]
		if !ok {
			continue
		}

		// 空接口字段保留为子配置，交给 ref.New 按构造函数的参数类型再转换
		if field.Type.Kind() == reflect.Interface && field.Type.NumMethod() == 0 {
			raw := v.Interface()
			switch reflect.ValueOf(raw).Kind() {
			case reflect.Map, reflect.Slice:
				fv.Set(reflect.ValueOf(NewMapStorage(raw)))
				continue
			}
		}

		if err := convertValue(v.Interface(), fv); err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
	}
	return nil
}
