package intgen

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type RedisGeneratorOptions struct {
	Addr     string        `cfg:"addr" def:"localhost:6379"`
	Password string        `cfg:"password"`
	DB       int           `cfg:"db"`
	Key      string        `cfg:"key" def:"harvest:report:generation"`
	Timeout  time.Duration `cfg:"timeout" def:"3s"`
}

// RedisGenerator 基于 INCR 的计数器，多个实例共享同一个 key 时仍然全局递增
type RedisGenerator struct {
	client  redis.UniversalClient
	key     string
	timeout time.Duration
}

func NewRedisGeneratorWithOptions(options *RedisGeneratorOptions) *RedisGenerator {
	if options == nil {
		options = &RedisGeneratorOptions{}
	}
	if options.Addr == "" {
		options.Addr = "localhost:6379"
	}
	if options.Key == "" {
		options.Key = "harvest:report:generation"
	}
	if options.Timeout == 0 {
		options.Timeout = 3 * time.Second
	}

	return NewRedisGenerator(redis.NewClient(&redis.Options{
		Addr:     options.Addr,
		Password: options.Password,
		DB:       options.DB,
	}), options.Key, options.Timeout)
}

func NewRedisGenerator(client redis.UniversalClient, key string, timeout time.Duration) *RedisGenerator {
	return &RedisGenerator{client: client, key: key, timeout: timeout}
}

func (g *RedisGenerator) Generate(ctx context.Context) (int64, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	n, err := g.client.Incr(ctx, g.key).Result()
	if err != nil {
		return 0, errors.Wrapf(err, "redis incr %s failed", g.key)
	}
	return n, nil
}

func (g *RedisGenerator) Close() error {
	return g.client.Close()
}
