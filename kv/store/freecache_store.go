package store

import (
	"context"
	"time"

	"github.com/coocood/freecache"
	"github.com/hatlonely/harvest/ref"
	"github.com/pkg/errors"
)

type FreeCacheStoreOptions struct {
	// 缓存大小，单位字节，freecache 最小 512KB
	Size          int              `cfg:"size" def:"33554432"`
	DefaultTTL    time.Duration    `cfg:"defaultTTL"`
	KeySerializer *ref.TypeOptions `cfg:"keySerializer"`
	ValSerializer *ref.TypeOptions `cfg:"valSerializer"`
}

// FreeCacheStore 进程内零 GC 开销的缓存，过期时间精度为秒
type FreeCacheStore[K, V any] struct {
	cache      *freecache.Cache
	defaultTTL time.Duration
	codec      *codec[K, V]
}

func NewFreeCacheStoreWithOptions[K, V any](options *FreeCacheStoreOptions) (*FreeCacheStore[K, V], error) {
	if options == nil {
		options = &FreeCacheStoreOptions{}
	}
	if options.Size == 0 {
		options.Size = 32 * 1024 * 1024
	}

	c, err := newCodec[K, V](options.KeySerializer, options.ValSerializer)
	if err != nil {
		return nil, err
	}

	return &FreeCacheStore[K, V]{
		cache:      freecache.NewCache(options.Size),
		defaultTTL: options.DefaultTTL,
		codec:      c,
	}, nil
}

func (s *FreeCacheStore[K, V]) Set(ctx context.Context, key K, value V, opts ...SetOption) error {
	options := newSetOptions(opts)

	kb, err := s.codec.encodeKey(key)
	if err != nil {
		return err
	}
	vb, err := s.codec.val.Serialize(value)
	if err != nil {
		return errors.Wrap(err, "serialize value failed")
	}

	expiration := options.Expiration
	if expiration == 0 {
		expiration = s.defaultTTL
	}
	seconds := 0
	if expiration > 0 {
		seconds = int((expiration + time.Second - 1) / time.Second)
	}

	if options.IfNotExist {
		if _, err := s.cache.Get(kb); err == nil {
			return ErrConditionFailed
		}
	}
	return errors.Wrap(s.cache.Set(kb, vb, seconds), "freecache set failed")
}

func (s *FreeCacheStore[K, V]) Get(ctx context.Context, key K) (V, error) {
	var zero V

	kb, err := s.codec.encodeKey(key)
	if err != nil {
		return zero, err
	}
	vb, err := s.cache.Get(kb)
	if errors.Is(err, freecache.ErrNotFound) {
		return zero, ErrKeyNotFound
	}
	if err != nil {
		return zero, errors.Wrap(err, "freecache get failed")
	}

	val, err := s.codec.val.Deserialize(vb)
	return val, errors.Wrap(err, "deserialize value failed")
}

func (s *FreeCacheStore[K, V]) Del(ctx context.Context, key K) error {
	kb, err := s.codec.encodeKey(key)
	if err != nil {
		return err
	}
	s.cache.Del(kb)
	return nil
}

func (s *FreeCacheStore[K, V]) Close() error {
	s.cache.Clear()
	return nil
}
