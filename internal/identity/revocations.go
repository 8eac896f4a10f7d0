package identity

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

var revokedPrefix = "revoked:"

// RedisRevocations keeps revoked token ids until the token would have expired anyway.
type RedisRevocations struct {
	client *redis.Client
}

func NewRedisRevocations(ctx context.Context, addr, password string, db int, log *slog.Logger) (*RedisRevocations, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	log.Info("connected to redis successfully")

	return &RedisRevocations{client: rdb}, nil
}

func (r *RedisRevocations) Revoke(ctx context.Context, tokenId string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, revokedPrefix+tokenId, 1, ttl).Err()
}

func (r *RedisRevocations) IsRevoked(ctx context.Context, tokenId string) (bool, error) {
	err := r.client.Get(ctx, revokedPrefix+tokenId).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *RedisRevocations) Close() error {
	return r.client.Close()
}
