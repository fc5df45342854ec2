package cache

import (
	"context"
	"errors"
	"time"

	redisrepo "go-backoffice/internal/repository/redis"

	"github.com/redis/go-redis/v9"
)

const defaultNamespace = "backoffice:"

// RedisAdapter L2。key 统一加命名空间，避免与限流计数等其他 key 混在一起
type RedisAdapter struct {
	c  *redisrepo.Client
	ns string
}

// NewRedisAdapter c 为 nil（未配置 Redis）时返回 nil 接口，LayeredCache 跳过 L2
func NewRedisAdapter(c *redisrepo.Client) Cache {
	if c == nil {
		return nil
	}
	return &RedisAdapter{c: c, ns: defaultNamespace}
}

func (r *RedisAdapter) key(k string) string { return r.ns + k }

// Get redis.Nil 视为未命中，其余错误上抛
func (r *RedisAdapter) Get(ctx context.Context, key string) (string, error) {
	v, err := r.c.Client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

func (r *RedisAdapter) SetEX(ctx context.Context, key, val string, ttl time.Duration) error {
	return r.c.SetTTL(ctx, r.key(key), val, ttl)
}

func (r *RedisAdapter) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	return r.c.Client.Del(ctx, full...).Err()
}

// RemainingTTL -2 不存在、-1 无过期都按拿不到处理
func (r *RedisAdapter) RemainingTTL(ctx context.Context, key string) (time.Duration, bool) {
	d, err := r.c.Client.TTL(ctx, r.key(key)).Result()
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}
