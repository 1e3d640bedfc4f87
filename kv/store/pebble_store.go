package store

import (
	"context"

	"github.com/cockroachdb/pebble"
	"github.com/hatlonely/harvest/ref"
	"github.com/pkg/errors"
)

type PebbleStoreOptions struct {
	DBPath string `cfg:"dbPath" validate:"required"`
	// 写入时是否同步刷盘
	Sync bool `cfg:"sync"`
	// 块缓存大小，单位字节，0 使用 pebble 默认值
	CacheSize int64 `cfg:"cacheSize"`

	KeySerializer *ref.TypeOptions `cfg:"keySerializer"`
	ValSerializer *ref.TypeOptions `cfg:"valSerializer"`
}

type PebbleStore[K, V any] struct {
	db    *pebble.DB
	wo    *pebble.WriteOptions
	codec *codec[K, V]
}

func NewPebbleStoreWithOptions[K, V any](options *PebbleStoreOptions) (*PebbleStore[K, V], error) {
	if options == nil || options.DBPath == "" {
		return nil, errors.New("dbPath is required")
	}

	c, err := newCodec[K, V](options.KeySerializer, options.ValSerializer)
	if err != nil {
		return nil, err
	}

	pebbleOptions := &pebble.Options{}
	if options.CacheSize > 0 {
		cache := pebble.NewCache(options.CacheSize)
		defer cache.Unref()
		pebbleOptions.Cache = cache
	}

	db, err := pebble.Open(options.DBPath, pebbleOptions)
	if err != nil {
		return nil, errors.Wrap(err, "pebble.Open failed")
	}

	wo := pebble.NoSync
	if options.Sync {
		wo = pebble.Sync
	}
	return &PebbleStore[K, V]{db: db, wo: wo, codec: c}, nil
}

func (s *PebbleStore[K, V]) get(kb []byte) ([]byte, error) {
	v, closer, err := s.db.Get(kb)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "pebble get failed")
	}
	defer closer.Close()
	// pebble 返回的切片在 closer 关闭后失效
	return append([]byte(nil), v...), nil
}

func (s *PebbleStore[K, V]) Set(ctx context.Context, key K, value V, opts ...SetOption) error {
	options := newSetOptions(opts)

	kb, err := s.codec.encodeKey(key)
	if err != nil {
		return err
	}
	vb, err := s.codec.encodeVal(value, options.Expiration)
	if err != nil {
		return err
	}

	if options.IfNotExist {
		old, err := s.get(kb)
		if err == nil {
			if _, err := s.codec.decodeVal(old); err == nil {
				return ErrConditionFailed
			}
		} else if !errors.Is(err, ErrKeyNotFound) {
			return err
		}
	}
	return errors.Wrap(s.db.Set(kb, vb, s.wo), "pebble set failed")
}

func (s *PebbleStore[K, V]) Get(ctx context.Context, key K) (V, error) {
	var zero V

	kb, err := s.codec.encodeKey(key)
	if err != nil {
		return zero, err
	}
	vb, err := s.get(kb)
	if err != nil {
		return zero, err
	}
	return s.codec.decodeVal(vb)
}

func (s *PebbleStore[K, V]) Del(ctx context.Context, key K) error {
	kb, err := s.codec.encodeKey(key)
	if err != nil {
		return err
	}
	return errors.Wrap(s.db.Delete(kb, s.wo), "pebble delete failed")
}

func (s *PebbleStore[K, V]) Close() error {
	return s.db.Close()
}
