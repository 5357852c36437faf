package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ckpayment/ckmodal/internal/modal"
	"github.com/redis/go-redis/v9"
)

// Connect accepts either a redis:// URL or a bare host:port address.
func Connect(_ context.Context, redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, parseErr := redis.ParseURL(redisURL)
		if parseErr != nil {
			return nil, fmt.Errorf("parse redis url: %w", parseErr)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

// Redis stores analytics as JSON strings with a TTL, so several ckmodal
// processes can share one cache.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, instanceID, modalID string) (modal.Analytics, bool, error) {
	raw, err := r.client.Get(ctx, key(instanceID, modalID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return modal.Analytics{}, false, nil
	}
	if err != nil {
		return modal.Analytics{}, false, fmt.Errorf("redis get analytics: %w", err)
	}

	var a modal.Analytics
	if err := json.Unmarshal(raw, &a); err != nil {
		return modal.Analytics{}, false, fmt.Errorf("decode cached analytics: %w", err)
	}
	return a, true, nil
}

func (r *Redis) Set(ctx context.Context, instanceID, modalID string, a modal.Analytics) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode analytics: %w", err)
	}
	if err := r.client.Set(ctx, key(instanceID, modalID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set analytics: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, instanceID, modalID string) error {
	return r.client.Del(ctx, key(instanceID, modalID)).Err()
}

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
