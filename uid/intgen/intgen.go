package intgen

import (
	"context"

	"github.com/hatlonely/harvest/ref"
	"github.com/pkg/errors"
)

func init() {
	ref.MustRegisterT[*TimestampSeqGenerator](NewTimestampSeqGenerator)
	ref.MustRegisterT[*SnowflakeGenerator](NewSnowflakeGeneratorWithOptions)
	ref.MustRegisterT[*RedisGenerator](NewRedisGeneratorWithOptions)
}

// IntGenerator 生成单调递增的 64 位整数，报表用它给每一轮刷新分配代数
type IntGenerator interface {
	Generate(ctx context.Context) (int64, error)
}

const Namespace = "github.com/hatlonely/harvest/uid/intgen"

// NewIntGeneratorWithOptions 通过 ref 创建生成器，options 为空时使用 TimestampSeqGenerator
// Namespace 为空时按本包注册的类型名查找，例如 "RedisGenerator"
func NewIntGeneratorWithOptions(options *ref.TypeOptions) (IntGenerator, error) {
	if options == nil || options.Type == "" {
		return NewTimestampSeqGenerator(), nil
	}

	namespace := options.Namespace
	if namespace == "" {
		namespace = Namespace
	}
	obj, err := ref.New(namespace, options.Type, options.Options)
	if err != nil {
		return nil, errors.WithMessage(err, "ref.New failed")
	}
	g, ok := obj.(IntGenerator)
	if !ok {
		return nil, errors.Errorf("%T is not an IntGenerator", obj)
	}
	return g, nil
}
