package util

import (
	"context"
	"fmt"
	"sync"
)

type requestCacheKey struct{}

// RequestCache 单个 HTTP 请求内的查询缓存，随请求结束丢弃
type RequestCache struct {
	mu      sync.RWMutex
	entries map[string]interface{}
}

func NewRequestCache() *RequestCache {
	return &RequestCache{entries: make(map[string]interface{})}
}

func WithRequestCache(ctx context.Context, rc *RequestCache) context.Context {
	return context.WithValue(ctx, requestCacheKey{}, rc)
}

// RequestCacheFrom 上下文中没有缓存时返回 nil，nil 缓存的所有方法都是空操作
func RequestCacheFrom(ctx context.Context) *RequestCache {
	if ctx == nil {
		return nil
	}
	rc, _ := ctx.Value(requestCacheKey{}).(*RequestCache)
	return rc
}

func (c *RequestCache) Get(key string) (interface{}, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *RequestCache) Set(key string, v interface{}) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries[key] = v
	c.mu.Unlock()
}

func (c *RequestCache) Invalidate(keys ...string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	c.mu.Unlock()
}

func (c *RequestCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func UserCacheKey(id uint) string {
	return fmt.Sprintf("user:%d", id)
}

func RequestCacheKey(id string) string {
	return "request:" + id
}

// Memo 先查请求缓存，未命中时调用 load 并写回；load 出错不缓存
func Memo[T any](ctx context.Context, key string, load func() (T, error)) (T, error) {
	rc := RequestCacheFrom(ctx)
	if v, ok := rc.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	rc.Set(key, v)
	return v, nil
}

// Forget 使上下文缓存中的 key 失效
func Forget(ctx context.Context, keys ...string) {
	RequestCacheFrom(ctx).Invalidate(keys...)
}
