package serializer

import (
	"strings"

	"github.com/hatlonely/harvest/ref"
	"github.com/pkg/errors"
)

const Namespace = "github.com/hatlonely/harvest/kv/serializer"

type Serializer[F, T any] interface {
	Serialize(from F) (T, error)
	Deserialize(to T) (F, error)
}

// NewByteSerializerWithOptions 创建 []byte 序列化器，Type 可以只写 "JSONSerializer"，
// 会自动补全成当前类型参数的实例化名称，options 为空时使用 MsgPackSerializer
func NewByteSerializerWithOptions[T any](options *ref.TypeOptions) (Serializer[T, []byte], error) {
	ref.MustRegisterT[*JSONSerializer[T]](NewJSONSerializer[T])
	ref.MustRegisterT[*MsgPackSerializer[T]](NewMsgPackSerializer[T])

	namespace, typ := Namespace, "MsgPackSerializer"
	var opts any
	if options != nil && options.Type != "" {
		typ, opts = options.Type, options.Options
		if options.Namespace != "" {
			namespace = options.Namespace
		}
	}
	if !strings.Contains(typ, "[") {
		typ += ref.TypeArgs[*JSONSerializer[T]]()
	}

	obj, err := ref.New(namespace, typ, opts)
	if err != nil {
		return nil, errors.WithMessage(err, "ref.New failed")
	}
	s, ok := obj.(Serializer[T, []byte])
	if !ok {
		return nil, errors.Errorf("%T is not a Serializer", obj)
	}
	return s, nil
}
