package source

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/hatlonely/harvest/kv/store"
	"github.com/hatlonely/harvest/log"
	"github.com/hatlonely/harvest/log/logger"
	"github.com/hatlonely/harvest/rdb/query"
	"github.com/hatlonely/harvest/rdb/record"
	"github.com/hatlonely/harvest/ref"
)

type CachedSourceOptions struct {
	Source *ref.TypeOptions `cfg:"source" validate:"required"`

	// Store 缓存存储，为空时使用 MapStore
	Store *ref.TypeOptions `cfg:"store"`

	TTL time.Duration `cfg:"ttl" def:"5m"`

	// Entities 需要缓存的实体，默认只缓存引用数据
	Entities []string `cfg:"entities" def:"users,states,farmers,products"`

	// Prefix 缓存 key 前缀
	Prefix string `cfg:"prefix" def:"harvest:source:"`

	Logger *ref.TypeOptions `cfg:"logger"`
}

// CachedSource 缓存引用数据的全量拉取结果，带过滤条件或者分页的请求直接透传
// 缓存读写失败都只记日志，继续走底层数据源
type CachedSource struct {
	source   Source
	store    store.Store[string, []record.Record]
	ttl      time.Duration
	entities map[record.Entity]bool
	prefix   string
	logger   logger.Logger
}

func NewCachedSourceWithOptions(options *CachedSourceOptions) (*CachedSource, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}
	if options.Source == nil {
		return nil, errors.New("source is required")
	}

	source, err := NewSourceWithOptions(options.Source)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create underlying source")
	}
	s, err := store.NewStoreWithOptions[string, []record.Record](options.Store)
	if err != nil {
		_ = source.Close()
		return nil, errors.WithMessage(err, "failed to create cache store")
	}
	l, err := log.NewLoggerWithOptions(options.Logger)
	if err != nil {
		_ = source.Close()
		_ = s.Close()
		return nil, errors.WithMessage(err, "failed to create logger")
	}
	return NewCachedSource(source, s, options, l), nil
}

func NewCachedSource(source Source, cache store.Store[string, []record.Record], options *CachedSourceOptions, l logger.Logger) *CachedSource {
	if l == nil {
		l = log.Default()
	}
	entities := options.Entities
	if len(entities) == 0 {
		entities = []string{string(record.EntityUsers), string(record.EntityStates), string(record.EntityFarmers), string(record.EntityProducts)}
	}
	c := &CachedSource{
		source:   source,
		store:    cache,
		ttl:      options.TTL,
		entities: map[record.Entity]bool{},
		prefix:   options.Prefix,
		logger:   l.WithGroup("cachedSource"),
	}
	for _, e := range entities {
		c.entities[record.Entity(e)] = true
	}
	return c
}

func cloneRecords(rows []record.Record) []record.Record {
	out := make([]record.Record, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}

func (c *CachedSource) FetchAll(ctx context.Context, entity record.Entity, q query.Query, opts ...FetchOption) ([]record.Record, error) {
	if !c.entities[entity] || q != nil || !NewFetchOptions(opts...).empty() {
		return c.source.FetchAll(ctx, entity, q, opts...)
	}

	key := c.prefix + string(entity)
	rows, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		if rows == nil {
			rows = []record.Record{}
		}
		return cloneRecords(rows), nil
	case !errors.Is(err, store.ErrKeyNotFound):
		c.logger.WarnContext(ctx, "cache get failed", "entity", string(entity), "error", err.Error())
	}

	rows, err = c.source.FetchAll(ctx, entity, q, opts...)
	if err != nil {
		return nil, err
	}

	var setOpts []store.SetOption
	if c.ttl > 0 {
		setOpts = append(setOpts, store.WithExpiration(c.ttl))
	}
	if err := c.store.Set(ctx, key, cloneRecords(rows), setOpts...); err != nil {
		c.logger.WarnContext(ctx, "cache set failed", "entity", string(entity), "error", err.Error())
	}
	return rows, nil
}

// Invalidate 删除实体的缓存
func (c *CachedSource) Invalidate(ctx context.Context, entity record.Entity) error {
	return c.store.Del(ctx, c.prefix+string(entity))
}

func (c *CachedSource) Close() error {
	var errs []error
	if err := c.store.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := c.source.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.Errorf("close cached source: %v", errs)
	}
	return nil
}
