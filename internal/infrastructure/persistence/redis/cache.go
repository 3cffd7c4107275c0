package redis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

var cacheTracer = otel.Tracer("redis.cache")

// 不存在的记录也缓存一小段时间，避免无效用户 ID 反复打到数据库
const missingTTL = 30 * time.Second

var nullValue = []byte("null")

// Cache 读穿缓存，值以 JSON 存储
type Cache struct {
	client *Client
	group  singleflight.Group
}

// NewCache 创建缓存服务
func NewCache(client *Client) *Cache {
	return &Cache{client: client}
}

// IsMissing 判断缓存值是否为“记录不存在”
func IsMissing(val []byte) bool {
	return len(val) == 0 || bytes.Equal(val, nullValue)
}

// GetOrLoad 命中直接返回；未命中时同 key 的并发请求只调用一次 loader。
// loader 返回 nil 表示记录不存在，结果满足 IsMissing。
func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, loader func(ctx context.Context) (any, error)) ([]byte, error) {
	ctx, span := cacheTracer.Start(ctx, "cache.GetOrLoad",
		trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	val, err := c.client.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return val, nil
	case !IsNil(err):
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	result, err, shared := c.group.Do(key, func() (any, error) {
		data, err := loader(ctx)
		if err != nil {
			return nil, err
		}

		encoded, expire := nullValue, min(ttl, missingTTL)
		if data != nil {
			if encoded, err = json.Marshal(data); err != nil {
				return nil, fmt.Errorf("failed to marshal cache value: %w", err)
			}
			expire = ttl
		}
		if err := c.client.rdb.Set(ctx, key, encoded, expire).Err(); err != nil {
			span.RecordError(err)
		}
		return encoded, nil
	})
	span.SetAttributes(attribute.Bool("cache.shared", shared))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return result.([]byte), nil
}

// Invalidate 删除缓存
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	ctx, span := cacheTracer.Start(ctx, "cache.Invalidate",
		trace.WithAttributes(attribute.Int("cache.key_count", len(keys))))
	defer span.End()

	if err := c.client.rdb.Del(ctx, keys...).Err(); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}
