package repository

import (
	"context"
	"time"
)

// TokenRepository keeps a denylist of revoked access token ids. Entries
// expire together with the token they revoke.
type TokenRepository interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type tokenRepository struct {
	redis *RedisDB
}

func NewTokenRepository(redis *RedisDB) TokenRepository {
	return &tokenRepository{redis: redis}
}

func (r *tokenRepository) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.redis.Client.Set(ctx, r.key(tokenID), 1, ttl).Err()
}

func (r *tokenRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.redis.Client.Exists(ctx, r.key(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *tokenRepository) key(tokenID string) string {
	return "revoked:" + tokenID
}
