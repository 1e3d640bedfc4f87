package ref

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Convertable 可以把自身转换成任意目标结构的配置数据
// cfg 的 Storage 实现了该接口，作为 options 传入 New 时会自动转换成构造函数的参数类型
type Convertable interface {
	ConvertTo(object any) error
}

// TypeOptions 通过命名空间和类型名定位一个已注册的构造函数
type TypeOptions struct {
	Namespace string `cfg:"namespace"`
	Type      string `cfg:"type"`
	Options   any    `cfg:"options"`
}

type constructor struct {
	fn           reflect.Value
	paramType    reflect.Type // nil 表示无参构造函数
	returnsError bool
}

func newConstructor(fn any) (*constructor, error) {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		return nil, fmt.Errorf("constructor must be a function, got %T", fn)
	}

	ft := fv.Type()
	if ft.NumIn() > 1 {
		return nil, fmt.Errorf("constructor must have 0 or 1 input parameters, got %d", ft.NumIn())
	}
	if ft.NumOut() != 1 && ft.NumOut() != 2 {
		return nil, fmt.Errorf("constructor must have 1 or 2 return values, got %d", ft.NumOut())
	}
	if ft.NumOut() == 2 && !ft.Out(1).Implements(errorType) {
		return nil, fmt.Errorf("second return value must be error type")
	}

	c := &constructor{fn: fv, returnsError: ft.NumOut() == 2}
	if ft.NumIn() == 1 {
		c.paramType = ft.In(0)
	}
	return c, nil
}

func (c *constructor) call(options any) (any, error) {
	var args []reflect.Value
	if c.paramType != nil {
		arg, err := c.buildArg(options)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}

	out := c.fn.Call(args)
	if c.returnsError && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

// buildArg 把 options 转换成构造函数需要的参数
func (c *constructor) buildArg(options any) (reflect.Value, error) {
	if options == nil {
		// 指针参数允许传 nil，由构造函数自行处理默认值
		return reflect.Zero(c.paramType), nil
	}

	if conv, ok := options.(Convertable); ok {
		target := c.paramType
		if target.Kind() == reflect.Ptr {
			target = target.Elem()
		}
		ptr := reflect.New(target)
		if err := conv.ConvertTo(ptr.Interface()); err != nil {
			return reflect.Value{}, fmt.Errorf("failed to convert options to %v: %w", c.paramType, err)
		}
		if c.paramType.Kind() == reflect.Ptr {
			return ptr, nil
		}
		return ptr.Elem(), nil
	}

	v := reflect.ValueOf(options)
	switch {
	case v.Type().AssignableTo(c.paramType):
		return v, nil
	case c.paramType.Kind() == reflect.Ptr && v.Type().AssignableTo(c.paramType.Elem()):
		ptr := reflect.New(c.paramType.Elem())
		ptr.Elem().Set(v)
		return ptr, nil
	case v.Kind() == reflect.Ptr && !v.IsNil() && v.Elem().Type().AssignableTo(c.paramType):
		return v.Elem(), nil
	}
	return reflect.Value{}, fmt.Errorf("options type %T does not match constructor parameter %v", options, c.paramType)
}

var registry sync.Map

func key(namespace, typ string) string {
	return namespace + ":" + typ
}

// Register 注册构造函数，同一个 key 重复注册同一个函数是幂等的
func Register(namespace string, typ string, fn any) error {
	c, err := newConstructor(fn)
	if err != nil {
		return fmt.Errorf("invalid constructor for %s:%s: %w", namespace, typ, err)
	}

	if old, loaded := registry.LoadOrStore(key(namespace, typ), c); loaded {
		if old.(*constructor).fn.Pointer() != c.fn.Pointer() {
			return fmt.Errorf("constructor for %s:%s already registered with different function", namespace, typ)
		}
	}
	return nil
}

// RegisterT 以 T 的包路径和类型名作为命名空间和类型注册
func RegisterT[T any](fn any) error {
	namespace, typ, err := typeKey[T]()
	if err != nil {
		return err
	}
	return Register(namespace, typ, fn)
}

func MustRegister(namespace string, typ string, fn any) {
	if err := Register(namespace, typ, fn); err != nil {
		panic(err)
	}
}

func MustRegisterT[T any](fn any) {
	if err := RegisterT[T](fn); err != nil {
		panic(err)
	}
}

// New 调用已注册的构造函数创建对象
func New(namespace string, typ string, options any) (any, error) {
	v, ok := registry.Load(key(namespace, typ))
	if !ok {
		return nil, fmt.Errorf("constructor not found for %s:%s", namespace, typ)
	}
	return v.(*constructor).call(options)
}

// NewT 按 T 的类型信息查找构造函数并返回 T
func NewT[T any](options any) (T, error) {
	var zero T
	namespace, typ, err := typeKey[T]()
	if err != nil {
		return zero, err
	}
	obj, err := New(namespace, typ, options)
	if err != nil {
		return zero, err
	}
	t, ok := obj.(T)
	if !ok {
		return zero, fmt.Errorf("created object %T is not of type %T", obj, zero)
	}
	return t, nil
}

// TypeArgs 返回泛型实例化类型名中的类型参数部分，例如 "[string,int]"，非泛型类型返回空串
func TypeArgs[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	name := t.Name()
	if i := strings.Index(name, "["); i >= 0 {
		return name[i:]
	}
	return ""
}

func typeKey[T any]() (string, string, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.PkgPath() == "" || t.Name() == "" {
		return "", "", fmt.Errorf("cannot determine package path or type name for %v", t)
	}
	return t.PkgPath(), t.Name(), nil
}
