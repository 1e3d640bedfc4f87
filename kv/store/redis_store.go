package store

import (
	"context"
	"time"

	"github.com/hatlonely/harvest/ref"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type RedisStoreOptions struct {
	// host:port 地址
	Endpoint string `cfg:"endpoint" def:"localhost:6379"`
	// 集群节点地址，不为空时使用集群模式
	Endpoints []string `cfg:"endpoints"`
	Username  string   `cfg:"username"`
	Password  string   `cfg:"password"`
	DB        int      `cfg:"db"`

	// 所有键都会加上这个前缀
	Prefix     string        `cfg:"prefix"`
	DefaultTTL time.Duration `cfg:"defaultTTL"`

	DialTimeout  time.Duration `cfg:"dialTimeout" def:"5s"`
	ReadTimeout  time.Duration `cfg:"readTimeout" def:"3s"`
	WriteTimeout time.Duration `cfg:"writeTimeout" def:"3s"`
	PoolSize     int           `cfg:"poolSize" def:"10"`
	MaxRetries   int           `cfg:"maxRetries" def:"3"`

	KeySerializer *ref.TypeOptions `cfg:"keySerializer"`
	ValSerializer *ref.TypeOptions `cfg:"valSerializer"`
}

type RedisStore[K, V any] struct {
	client     redis.UniversalClient
	prefix     string
	defaultTTL time.Duration
	codec      *codec[K, V]
}

func NewRedisStoreWithOptions[K, V any](options *RedisStoreOptions) (*RedisStore[K, V], error) {
	if options == nil {
		options = &RedisStoreOptions{}
	}

	var client redis.UniversalClient
	if len(options.Endpoints) > 0 {
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        options.Endpoints,
			Username:     options.Username,
			Password:     options.Password,
			DialTimeout:  options.DialTimeout,
			ReadTimeout:  options.ReadTimeout,
			WriteTimeout: options.WriteTimeout,
			PoolSize:     options.PoolSize,
			MaxRetries:   options.MaxRetries,
		})
	} else {
		endpoint := options.Endpoint
		if endpoint == "" {
			endpoint = "localhost:6379"
		}
		client = redis.NewClient(&redis.Options{
			Addr:         endpoint,
			Username:     options.Username,
			Password:     options.Password,
			DB:           options.DB,
			DialTimeout:  options.DialTimeout,
			ReadTimeout:  options.ReadTimeout,
			WriteTimeout: options.WriteTimeout,
			PoolSize:     options.PoolSize,
			MaxRetries:   options.MaxRetries,
		})
	}

	s, err := NewRedisStore[K, V](client, options)
	if err != nil {
		client.Close()
		return nil, err
	}
	return s, nil
}

// NewRedisStore 使用已有的客户端，options 中只有前缀、TTL 和序列化配置生效
func NewRedisStore[K, V any](client redis.UniversalClient, options *RedisStoreOptions) (*RedisStore[K, V], error) {
	if options == nil {
		options = &RedisStoreOptions{}
	}
	c, err := newCodec[K, V](options.KeySerializer, options.ValSerializer)
	if err != nil {
		return nil, err
	}
	return &RedisStore[K, V]{
		client:     client,
		prefix:     options.Prefix,
		defaultTTL: options.DefaultTTL,
		codec:      c,
	}, nil
}

func (s *RedisStore[K, V]) redisKey(key K) (string, error) {
	kb, err := s.codec.encodeKey(key)
	if err != nil {
		return "", err
	}
	return s.prefix + string(kb), nil
}

func (s *RedisStore[K, V]) Set(ctx context.Context, key K, value V, opts ...SetOption) error {
	options := newSetOptions(opts)

	rk, err := s.redisKey(key)
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

	if options.IfNotExist {
		ok, err := s.client.SetNX(ctx, rk, vb, expiration).Result()
		if err != nil {
			return errors.Wrap(err, "redis setnx failed")
		}
		if !ok {
			return ErrConditionFailed
		}
		return nil
	}
	return errors.Wrap(s.client.Set(ctx, rk, vb, expiration).Err(), "redis set failed")
}

func (s *RedisStore[K, V]) Get(ctx context.Context, key K) (V, error) {
	var zero V

	rk, err := s.redisKey(key)
	if err != nil {
		return zero, err
	}
	vb, err := s.client.Get(ctx, rk).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, ErrKeyNotFound
	}
	if err != nil {
		return zero, errors.Wrap(err, "redis get failed")
	}

	val, err := s.codec.val.Deserialize(vb)
	return val, errors.Wrap(err, "deserialize value failed")
}

func (s *RedisStore[K, V]) Del(ctx context.Context, key K) error {
	rk, err := s.redisKey(key)
	if err != nil {
		return err
	}
	return errors.Wrap(s.client.Del(ctx, rk).Err(), "redis del failed")
}

func (s *RedisStore[K, V]) Close() error {
	return s.client.Close()
}
