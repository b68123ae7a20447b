package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SergeiKhy/linktrack/internal/models"
	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by CacheRepository.Get when nothing is stored.
var ErrCacheMiss = errors.New("cache miss")

type CacheRepository interface {
	Get(ctx context.Context, code string) (*models.ResolvedLink, error)
	Set(ctx context.Context, link *models.ResolvedLink, ttl time.Duration) error
	Delete(ctx context.Context, code string) error
}

type cacheRepository struct {
	redis *RedisDB
}

func NewCacheRepository(redis *RedisDB) CacheRepository {
	return &cacheRepository{redis: redis}
}

func (r *cacheRepository) Get(ctx context.Context, code string) (*models.ResolvedLink, error) {
	data, err := r.redis.Client.Get(ctx, r.key(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var link models.ResolvedLink
	if err := json.Unmarshal(data, &link); err != nil {
		return nil, fmt.Errorf("failed to unmarshal link: %w", err)
	}

	return &link, nil
}

func (r *cacheRepository) Set(ctx context.Context, link *models.ResolvedLink, ttl time.Duration) error {
	data, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("failed to marshal link: %w", err)
	}

	return r.redis.Client.Set(ctx, r.key(link.ShortCode), data, ttl).Err()
}

func (r *cacheRepository) Delete(ctx context.Context, code string) error {
	return r.redis.Client.Del(ctx, r.key(code)).Err()
}

func (r *cacheRepository) key(code string) string {
	return "link:" + code
}
