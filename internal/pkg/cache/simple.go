package cache

import (
	"context"
	"sync"
	"time"
)

// Cache value 统一为 string，JSON 编解码由调用方负责。Get 未命中返回 ("", nil)
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	SetEX(ctx context.Context, key, val string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type entry struct {
	val string
	exp time.Time // 零值表示不过期
}

func (e entry) expired(now time.Time) bool { return !e.exp.IsZero() && now.After(e.exp) }

// SimpleCache 进程内 L1。读到过期项时惰性删除；
// 设置了 maxEntries 时写满先清过期项，仍满则淘汰最早过期的一项
type SimpleCache struct {
	mu         sync.RWMutex
	data       map[string]entry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// New ttl 为 SetEX 未指定 TTL 时的默认值，0 表示不过期
func New(ttl time.Duration) *SimpleCache {
	return &SimpleCache{data: make(map[string]entry), ttl: ttl, now: time.Now}
}

// WithMaxEntries n<=0 表示不限
func (c *SimpleCache) WithMaxEntries(n int) *SimpleCache {
	c.maxEntries = n
	return c
}

func (c *SimpleCache) Get(_ context.Context, key string) (string, error) {
	c.mu.RLock()
	e, ok := c.data[key]
	c.mu.RUnlock()
	if !ok {
		return "", nil
	}
	if e.expired(c.now()) {
		c.mu.Lock()
		if cur, ok := c.data[key]; ok && cur.expired(c.now()) {
			delete(c.data, key)
		}
		c.mu.Unlock()
		return "", nil
	}
	return e.val, nil
}

func (c *SimpleCache) SetEX(_ context.Context, key, val string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}
	now := c.now()
	e := entry{val: val}
	if ttl > 0 {
		e.exp = now.Add(ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.data[key]; !exists && c.maxEntries > 0 && len(c.data) >= c.maxEntries {
		c.evictLocked(now)
	}
	c.data[key] = e
	return nil
}

func (c *SimpleCache) evictLocked(now time.Time) {
	for k, e := range c.data {
		if e.expired(now) {
			delete(c.data, k)
		}
	}
	if len(c.data) < c.maxEntries {
		return
	}
	var victim string
	var soonest time.Time
	for k, e := range c.data {
		if e.exp.IsZero() {
			continue
		}
		if victim == "" || e.exp.Before(soonest) {
			victim, soonest = k, e.exp
		}
	}
	if victim == "" {
		for k := range c.data {
			victim = k
			break
		}
	}
	delete(c.data, victim)
}

func (c *SimpleCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	for _, k := range keys {
		delete(c.data, k)
	}
	c.mu.Unlock()
	return nil
}

// Len 含尚未被清理的过期项
func (c *SimpleCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// RemainingTTL L2 回填 L1 时用来透传剩余寿命
func (c *SimpleCache) RemainingTTL(_ context.Context, key string) (time.Duration, bool) {
	c.mu.RLock()
	e, ok := c.data[key]
	c.mu.RUnlock()
	now := c.now()
	if !ok || e.exp.IsZero() || e.expired(now) {
		return 0, false
	}
	return e.exp.Sub(now), true
}
