package gormtool

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	lru "github.com/hashicorp/golang-lru"
	"github.com/redis/go-redis/v9"
)

// Cache 查询结果缓存，值以 JSON 存储
type Cache interface {
	Get(ctx context.Context, key string, result interface{}) bool
	Set(ctx context.Context, key string, data interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
}

type noopCache struct{}

func (noopCache) Get(context.Context, string, interface{}) bool                  { return false }
func (noopCache) Set(context.Context, string, interface{}, time.Duration) error { return nil }
func (noopCache) Delete(context.Context, ...string) error                       { return nil }
func (noopCache) Ping(context.Context) error                                    { return nil }

// RedisCache 多实例部署时使用
type RedisCache struct {
	client *redis.Client
	prefix string
}

func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

func (r *RedisCache) Get(ctx context.Context, key string, result interface{}) bool {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, result); err != nil {
		return false
	}
	return true
}

func (r *RedisCache) Set(ctx context.Context, key string, data interface{}, ttl time.Duration) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.prefix+key, jsonData, ttl).Err()
}

func (r *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.prefix + k
	}
	return r.client.Del(ctx, full...).Err()
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// LRUCache 单实例进程内缓存，未配置 Redis 时的默认实现
type LRUCache struct {
	cache *lru.Cache
	now   func() time.Time
}

type lruEntry struct {
	data    []byte
	expires time.Time
}

func NewLRUCache(size int) (*LRUCache, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &LRUCache{cache: c, now: time.Now}, nil
}

func (l *LRUCache) Get(_ context.Context, key string, result interface{}) bool {
	v, ok := l.cache.Get(key)
	if !ok {
		return false
	}
	entry := v.(lruEntry)
	if l.now().After(entry.expires) {
		l.cache.Remove(key)
		return false
	}
	if err := json.Unmarshal(entry.data, result); err != nil {
		return false
	}
	return true
}

func (l *LRUCache) Set(_ context.Context, key string, data interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	l.cache.Add(key, lruEntry{data: raw, expires: l.now().Add(ttl)})
	return nil
}

func (l *LRUCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		l.cache.Remove(k)
	}
	return nil
}

func (l *LRUCache) Ping(context.Context) error { return nil }
