package store

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/hatlonely/harvest/ref"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

type BoltDBStoreOptions struct {
	DBPath     string `cfg:"dbPath" validate:"required"`
	BucketName string `cfg:"bucketName" def:"default"`
	// 获取文件锁的等待时间，0 表示一直等待
	Timeout time.Duration `cfg:"timeout" def:"1s"`
	NoSync  bool          `cfg:"noSync"`

	KeySerializer *ref.TypeOptions `cfg:"keySerializer"`
	ValSerializer *ref.TypeOptions `cfg:"valSerializer"`
}

type BoltDBStore[K, V any] struct {
	db     *bolt.DB
	bucket []byte
	codec  *codec[K, V]
}

func NewBoltDBStoreWithOptions[K, V any](options *BoltDBStoreOptions) (*BoltDBStore[K, V], error) {
	if options == nil || options.DBPath == "" {
		return nil, errors.New("dbPath is required")
	}
	if options.BucketName == "" {
		options.BucketName = "default"
	}

	c, err := newCodec[K, V](options.KeySerializer, options.ValSerializer)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(options.DBPath), 0755); err != nil {
		return nil, errors.Wrap(err, "create db directory failed")
	}
	db, err := bolt.Open(options.DBPath, 0644, &bolt.Options{Timeout: options.Timeout, NoSync: options.NoSync})
	if err != nil {
		return nil, errors.Wrap(err, "bolt.Open failed")
	}

	bucket := []byte(options.BucketName)
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create bucket failed")
	}

	return &BoltDBStore[K, V]{db: db, bucket: bucket, codec: c}, nil
}

func (s *BoltDBStore[K, V]) Set(ctx context.Context, key K, value V, opts ...SetOption) error {
	options := newSetOptions(opts)

	kb, err := s.codec.encodeKey(key)
	if err != nil {
		return err
	}
	vb, err := s.codec.encodeVal(value, options.Expiration)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if options.IfNotExist {
			if old := b.Get(kb); old != nil {
				if _, err := s.codec.decodeVal(old); err == nil {
					return ErrConditionFailed
				}
			}
		}
		return b.Put(kb, vb)
	})
}

func (s *BoltDBStore[K, V]) Get(ctx context.Context, key K) (V, error) {
	var zero V

	kb, err := s.codec.encodeKey(key)
	if err != nil {
		return zero, err
	}

	var vb []byte
	if err := s.db.View(func(tx *bolt.Tx) error {
		// bolt 返回的切片只在事务内有效
		if v := tx.Bucket(s.bucket).Get(kb); v != nil {
			vb = append([]byte(nil), v...)
		}
		return nil
	}); err != nil {
		return zero, errors.Wrap(err, "bolt view failed")
	}
	if vb == nil {
		return zero, ErrKeyNotFound
	}
	return s.codec.decodeVal(vb)
}

func (s *BoltDBStore[K, V]) Del(ctx context.Context, key K) error {
	kb, err := s.codec.encodeKey(key)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete(kb)
	})
}

func (s *BoltDBStore[K, V]) Close() error {
	return s.db.Close()
}
