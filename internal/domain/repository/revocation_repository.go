package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationRepository remembers token ids (jti) that must no longer be
// accepted, until the token would have expired anyway.
type RevocationRepository interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type redisRevocationRepository struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisRevocationRepository(rdb *redis.Client, prefix string) RevocationRepository {
	return &redisRevocationRepository{rdb: rdb, prefix: prefix}
}

func (r *redisRevocationRepository) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil // already expired, nothing to deny
	}
	if err := r.rdb.Set(ctx, r.prefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("redisRevocationRepository.Revoke: %w", err)
	}
	return nil
}

func (r *redisRevocationRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.rdb.Exists(ctx, r.prefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("redisRevocationRepository.IsRevoked: %w", err)
	}
	return n > 0, nil
}
