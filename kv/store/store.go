package store

import (
	"context"
	"encoding/binary"
	"strings"
	"time"

	"github.com/hatlonely/harvest/kv/serializer"
	"github.com/hatlonely/harvest/ref"
	"github.com/pkg/errors"
)

const Namespace = "github.com/hatlonely/harvest/kv/store"

var (
	ErrKeyNotFound     = errors.New("key not found")
	ErrConditionFailed = errors.New("condition failed")
)

type setOptions struct {
	Expiration time.Duration
	IfNotExist bool
}

type SetOption func(*setOptions)

func WithExpiration(expiration time.Duration) SetOption {
	return func(options *setOptions) {
		options.Expiration = expiration
	}
}

func WithIfNotExist() SetOption {
	return func(options *setOptions) {
		options.IfNotExist = true
	}
}

func newSetOptions(opts []SetOption) *setOptions {
	options := &setOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

type Store[K, V any] interface {
	// Set 设置键值对，WithIfNotExist 时键存在则返回 ErrConditionFailed
	Set(ctx context.Context, key K, value V, opts ...SetOption) error
	// Get 键不存在或者已过期时返回 ErrKeyNotFound
	Get(ctx context.Context, key K) (V, error)
	// Del 键不存在时也返回成功
	Del(ctx context.Context, key K) error
	Close() error
}

// NewStoreWithOptions 通过 ref 创建存储，Type 可以只写 "RedisStore"
func NewStoreWithOptions[K comparable, V any](options *ref.TypeOptions) (Store[K, V], error) {
	ref.MustRegisterT[*MapStore[K, V]](NewMapStoreWithOptions[K, V])
	ref.MustRegisterT[*FreeCacheStore[K, V]](NewFreeCacheStoreWithOptions[K, V])
	ref.MustRegisterT[*RedisStore[K, V]](NewRedisStoreWithOptions[K, V])
	ref.MustRegisterT[*BoltDBStore[K, V]](NewBoltDBStoreWithOptions[K, V])
	ref.MustRegisterT[*LevelDBStore[K, V]](NewLevelDBStoreWithOptions[K, V])
	ref.MustRegisterT[*PebbleStore[K, V]](NewPebbleStoreWithOptions[K, V])

	if options == nil || options.Type == "" {
		return NewMapStoreWithOptions[K, V](nil), nil
	}

	namespace, typ := options.Namespace, options.Type
	if namespace == "" {
		namespace = Namespace
	}
	if !strings.Contains(typ, "[") {
		typ += ref.TypeArgs[*MapStore[K, V]]()
	}

	obj, err := ref.New(namespace, typ, options.Options)
	if err != nil {
		return nil, errors.WithMessage(err, "ref.New failed")
	}
	s, ok := obj.(Store[K, V])
	if !ok {
		return nil, errors.Errorf("%T is not a Store", obj)
	}
	return s, nil
}

// codec 负责键值的序列化，字符串键直接使用原始字节，方便在 redis 等外部存储里查看
type codec[K, V any] struct {
	key serializer.Serializer[K, []byte]
	val serializer.Serializer[V, []byte]
}

func newCodec[K, V any](keyOptions, valOptions *ref.TypeOptions) (*codec[K, V], error) {
	c := &codec[K, V]{}
	var err error
	if keyOptions != nil {
		if c.key, err = serializer.NewByteSerializerWithOptions[K](keyOptions); err != nil {
			return nil, errors.WithMessage(err, "create key serializer failed")
		}
	} else if _, ok := any(*new(K)).(string); !ok {
		if c.key, err = serializer.NewByteSerializerWithOptions[K](nil); err != nil {
			return nil, errors.WithMessage(err, "create key serializer failed")
		}
	}
	if c.val, err = serializer.NewByteSerializerWithOptions[V](valOptions); err != nil {
		return nil, errors.WithMessage(err, "create value serializer failed")
	}
	return c, nil
}

func (c *codec[K, V]) encodeKey(key K) ([]byte, error) {
	if c.key == nil {
		return []byte(any(key).(string)), nil
	}
	buf, err := c.key.Serialize(key)
	return buf, errors.Wrap(err, "serialize key failed")
}

// encodeVal 前 8 个字节保存过期时间（unix 纳秒，0 表示不过期），用于本身不支持 TTL 的存储
func (c *codec[K, V]) encodeVal(val V, expiration time.Duration) ([]byte, error) {
	buf, err := c.val.Serialize(val)
	if err != nil {
		return nil, errors.Wrap(err, "serialize value failed")
	}
	var deadline int64
	if expiration > 0 {
		deadline = time.Now().Add(expiration).UnixNano()
	}
	out := make([]byte, 8+len(buf))
	binary.BigEndian.PutUint64(out, uint64(deadline))
	copy(out[8:], buf)
	return out, nil
}

func (c *codec[K, V]) decodeVal(buf []byte) (V, error) {
	var zero V
	if len(buf) < 8 {
		return zero, errors.New("corrupted value")
	}
	if deadline := int64(binary.BigEndian.Uint64(buf)); deadline != 0 && time.Now().UnixNano() >= deadline {
		return zero, ErrKeyNotFound
	}
	val, err := c.val.Deserialize(buf[8:])
	if err != nil {
		return zero, errors.Wrap(err, "deserialize value failed")
	}
	return val, nil
}
