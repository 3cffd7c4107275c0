package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"adjacent-api/internal/domain/entity"
	"adjacent-api/internal/domain/repository"
	"adjacent-api/pkg/logger"
)

// CachedProfileRepository 带缓存的资料仓储，每次流水线运行都会读取一次资料
type CachedProfileRepository struct {
	next  repository.ProfileRepository
	cache *Cache
	ttl   time.Duration
}

var _ repository.ProfileRepository = (*CachedProfileRepository)(nil)

// NewCachedProfileRepository 包装底层资料仓储
func NewCachedProfileRepository(next repository.ProfileRepository, cache *Cache, ttl time.Duration) *CachedProfileRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedProfileRepository{next: next, cache: cache, ttl: ttl}
}

// ProfileCacheKey 资料缓存键
func ProfileCacheKey(id string) string {
	return fmt.Sprintf("profile:%s", id)
}

// GetByID 优先读缓存，缓存故障时回落到数据库
func (r *CachedProfileRepository) GetByID(ctx context.Context, id string) (*entity.Profile, error) {
	raw, err := r.cache.GetOrLoad(ctx, ProfileCacheKey(id), r.ttl, func(ctx context.Context) (any, error) {
		p, err := r.next.GetByID(ctx, id)
		if err != nil || p == nil {
			return nil, err
		}
		return p, nil
	})
	if err != nil {
		logger.Warn(ctx, "profile cache unavailable, falling back to database", "error", err)
		return r.next.GetByID(ctx, id)
	}
	if IsMissing(raw) {
		return nil, nil
	}

	var p entity.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return r.next.GetByID(ctx, id)
	}
	return &p, nil
}

// Upsert 写库后失效缓存
func (r *CachedProfileRepository) Upsert(ctx context.Context, profile *entity.Profile) error {
	if err := r.next.Upsert(ctx, profile); err != nil {
		return err
	}
	if err := r.cache.Invalidate(ctx, ProfileCacheKey(profile.ID)); err != nil {
		logger.Warn(ctx, "failed to invalidate profile cache", "error", err)
	}
	return nil
}
