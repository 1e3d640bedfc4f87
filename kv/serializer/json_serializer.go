package serializer

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// JSONSerializer 镜像给其他进程读取的快照使用 JSON，字段名以 json tag 为准
// 数字反序列化到 any 时是 float64
type JSONSerializer[T any] struct{}

func NewJSONSerializer[T any]() *JSONSerializer[T] {
	return &JSONSerializer[T]{}
}

func (s *JSONSerializer[T]) Serialize(from T) ([]byte, error) {
	data, err := json.Marshal(from)
	if err != nil {
		return nil, errors.Wrap(err, "json marshal failed")
	}
	return data, nil
}

// Deserialize 空内容返回错误，不会得到零值
func (s *JSONSerializer[T]) Deserialize(to []byte) (T, error) {
	var result T
	if len(to) == 0 {
		return result, errors.New("empty json payload")
	}
	if err := json.Unmarshal(to, &result); err != nil {
		return result, errors.Wrap(err, "json unmarshal failed")
	}
	return result, nil
}
