package store

import (
	"context"

	"github.com/hatlonely/harvest/ref"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

type LevelDBStoreOptions struct {
	DBPath string `cfg:"dbPath" validate:"required"`
	// 写入时是否同步刷盘
	Sync bool `cfg:"sync"`
	// 块缓存大小，单位字节，0 使用 leveldb 默认值
	BlockCacheCapacity int `cfg:"blockCacheCapacity"`

	KeySerializer *ref.TypeOptions `cfg:"keySerializer"`
	ValSerializer *ref.TypeOptions `cfg:"valSerializer"`
}

type LevelDBStore[K, V any] struct {
	db    *leveldb.DB
	wo    *opt.WriteOptions
	codec *codec[K, V]
}

func NewLevelDBStoreWithOptions[K, V any](options *LevelDBStoreOptions) (*LevelDBStore[K, V], error) {
	if options == nil || options.DBPath == "" {
		return nil, errors.New("dbPath is required")
	}

	c, err := newCodec[K, V](options.KeySerializer, options.ValSerializer)
	if err != nil {
		return nil, err
	}

	db, err := leveldb.OpenFile(options.DBPath, &opt.Options{BlockCacheCapacity: options.BlockCacheCapacity})
	if err != nil {
		return nil, errors.Wrap(err, "leveldb.OpenFile failed")
	}

	return &LevelDBStore[K, V]{db: db, wo: &opt.WriteOptions{Sync: options.Sync}, codec: c}, nil
}

func (s *LevelDBStore[K, V]) Set(ctx context.Context, key K, value V, opts ...SetOption) error {
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
		old, err := s.db.Get(kb, nil)
		if err == nil {
			if _, err := s.codec.decodeVal(old); err == nil {
				return ErrConditionFailed
			}
		} else if !errors.Is(err, leveldb.ErrNotFound) {
			return errors.Wrap(err, "leveldb get failed")
		}
	}
	return errors.Wrap(s.db.Put(kb, vb, s.wo), "leveldb put failed")
}

func (s *LevelDBStore[K, V]) Get(ctx context.Context, key K) (V, error) {
	var zero V

	kb, err := s.codec.encodeKey(key)
	if err != nil {
		return zero, err
	}
	vb, err := s.db.Get(kb, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return zero, ErrKeyNotFound
	}
	if err != nil {
		return zero, errors.Wrap(err, "leveldb get failed")
	}
	return s.codec.decodeVal(vb)
}

func (s *LevelDBStore[K, V]) Del(ctx context.Context, key K) error {
	kb, err := s.codec.encodeKey(key)
	if err != nil {
		return err
	}
	return errors.Wrap(s.db.Delete(kb, s.wo), "leveldb delete failed")
}

func (s *LevelDBStore[K, V]) Close() error {
	return s.db.Close()
}
