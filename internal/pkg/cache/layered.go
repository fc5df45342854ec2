package cache

import (
	"context"
	"sync/atomic"
	"time"
)

// LayeredCache L1 (本地) + L2 (Redis)。
// 读：L1 -> L2(命中后回填 L1) -> miss；写、删：两层同时进行。
// 任一层为 nil 时跳过该层；L2 读失败按未命中处理并计数。
type LayeredCache struct {
	L1 Cache
	L2 Cache

	// BackfillTTL L2 拿不到剩余 TTL 时回填 L1 的兜底值
	BackfillTTL time.Duration

	hitsL1   uint64
	hitsL2   uint64
	miss     uint64
	l2Errors uint64
}

type LayeredMetrics struct {
	HitsL1   uint64  `json:"hits_l1"`
	HitsL2   uint64  `json:"hits_l2"`
	Miss     uint64  `json:"miss"`
	L2Errors uint64  `json:"l2_errors"`
	HitRate  float64 `json:"hit_rate"`
}

// TTLFetcher 可选能力：返回 key 的剩余 TTL
type TTLFetcher interface {
	RemainingTTL(ctx context.Context, key string) (time.Duration, bool)
}

func NewLayered(l1, l2 Cache) *LayeredCache {
	return &LayeredCache{L1: l1, L2: l2, BackfillTTL: 30 * time.Second}
}

func (c *LayeredCache) Get(ctx context.Context, key string) (string, error) {
	if c.L1 != nil {
		if v, _ := c.L1.Get(ctx, key); v != "" {
			atomic.AddUint64(&c.hitsL1, 1)
			return v, nil
		}
	}
	if c.L2 != nil {
		v, err := c.L2.Get(ctx, key)
		if err != nil {
			atomic.AddUint64(&c.l2Errors, 1)
		} else if v != "" {
			atomic.AddUint64(&c.hitsL2, 1)
			if c.L1 != nil {
				ttl := c.BackfillTTL
				if tf, ok := c.L2.(TTLFetcher); ok {
					if d, ok := tf.RemainingTTL(ctx, key); ok && d > 0 {
						ttl = d
					}
				}
				_ = c.L1.SetEX(ctx, key, v, ttl)
			}
			return v, nil
		}
	}
	atomic.AddUint64(&c.miss, 1)
	return "", nil
}

func (c *LayeredCache) SetEX(ctx context.Context, key, val string, ttl time.Duration) error {
	if c.L1 != nil {
		_ = c.L1.SetEX(ctx, key, val, ttl)
	}
	if c.L2 != nil {
		return c.L2.SetEX(ctx, key, val, ttl)
	}
	return nil
}

func (c *LayeredCache) Del(ctx context.Context, keys ...string) error {
	if c.L1 != nil {
		_ = c.L1.Del(ctx, keys...)
	}
	if c.L2 != nil {
		return c.L2.Del(ctx, keys...)
	}
	return nil
}

func (c *LayeredCache) Snapshot() LayeredMetrics {
	m := LayeredMetrics{
		HitsL1:   atomic.LoadUint64(&c.hitsL1),
		HitsL2:   atomic.LoadUint64(&c.hitsL2),
		Miss:     atomic.LoadUint64(&c.miss),
		L2Errors: atomic.LoadUint64(&c.l2Errors),
	}
	if total := m.HitsL1 + m.HitsL2 + m.Miss; total > 0 {
		m.HitRate = float64(m.HitsL1+m.HitsL2) / float64(total)
	}
	return m
}
