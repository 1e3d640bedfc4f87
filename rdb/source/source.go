package source

import (
	"context"
	"strings"

	"github.com/hatlonely/harvest/rdb/query"
	"github.com/hatlonely/harvest/rdb/record"
	"github.com/hatlonely/harvest/ref"
	"github.com/pkg/errors"
)

const Namespace = "github.com/hatlonely/harvest/rdb/source"

var ErrUnknownEntity = errors.New("unknown entity")

func init() {
	ref.MustRegisterT[*MemorySource](NewMemorySourceWithOptions)
	ref.MustRegisterT[*SQLSource](NewSQLSourceWithOptions)
	ref.MustRegisterT[*GormSource](NewGormSourceWithOptions)
	ref.MustRegisterT[*MongoSource](NewMongoSourceWithOptions)
	ref.MustRegisterT[*ESSource](NewESSourceWithOptions)
	ref.MustRegisterT[*ObservableSource](NewObservableSourceWithOptions)
	ref.MustRegisterT[*CachedSource](NewCachedSourceWithOptions)
}

// Source 只提供按实体拉取扁平记录的能力，不支持关联和聚合
// 结果为空时返回 []record.Record{} 和 nil，和失败区分开
type Source interface {
	// FetchAll q 为 nil 时返回全部记录
	FetchAll(ctx context.Context, entity record.Entity, q query.Query, opts ...FetchOption) ([]record.Record, error)
	Close() error
}

type FetchOptions struct {
	Limit     int
	Offset    int
	OrderBy   string
	OrderDesc bool
}

type FetchOption func(*FetchOptions)

func WithLimit(limit int) FetchOption {
	return func(o *FetchOptions) {
		o.Limit = limit
	}
}

func WithOffset(offset int) FetchOption {
	return func(o *FetchOptions) {
		o.Offset = offset
	}
}

func WithOrderBy(field string, desc bool) FetchOption {
	return func(o *FetchOptions) {
		o.OrderBy = field
		o.OrderDesc = desc
	}
}

func NewFetchOptions(opts ...FetchOption) *FetchOptions {
	options := &FetchOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

func (o *FetchOptions) empty() bool {
	return o.Limit <= 0 && o.Offset <= 0 && o.OrderBy == ""
}

// NewSourceWithOptions 通过 ref 创建数据源，Type 可以只写 "SQLSource"，options 为空时返回空的 MemorySource
func NewSourceWithOptions(options *ref.TypeOptions) (Source, error) {
	if options == nil || options.Type == "" {
		return NewMemorySourceWithOptions(nil), nil
	}

	namespace := options.Namespace
	if namespace == "" {
		namespace = Namespace
	}

	obj, err := ref.New(namespace, options.Type, options.Options)
	if err != nil {
		return nil, errors.WithMessage(err, "ref.New failed")
	}
	s, ok := obj.(Source)
	if !ok {
		return nil, errors.Errorf("%T is not a Source", obj)
	}
	return s, nil
}

// Tables 实体到物理表名（集合名、索引名）的映射，未配置的实体使用实体名
type Tables map[string]string

func (t Tables) Resolve(entity record.Entity) (string, error) {
	if name := strings.TrimSpace(t[string(entity)]); name != "" {
		return name, nil
	}
	for _, e := range record.Entities {
		if e == entity {
			return string(e), nil
		}
	}
	return "", errors.Wrapf(ErrUnknownEntity, "entity %q", entity)
}
