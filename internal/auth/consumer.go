package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTokenConsumer records consumed single-use tokens in Redis. The marker
// lives only as long as the token itself would; after that the codec rejects
// the token anyway, so Redis TTL handles cleanup.
type RedisTokenConsumer struct {
	client *redis.Client
}

func NewRedisTokenConsumer(client *redis.Client) *RedisTokenConsumer {
	return &RedisTokenConsumer{client: client}
}

func consumedKey(tokenID string) string {
	return fmt.Sprintf("consumed_token:%s", tokenID)
}

// Consume marks the token id as used. Reports true on first use, false when
// the marker already existed.
func (r *RedisTokenConsumer) Consume(ctx context.Context, tokenID string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		// The token is already past expiry; treat as consumed.
		return false, nil
	}

	first, err := r.client.SetNX(ctx, consumedKey(tokenID), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark token consumed: %w", err)
	}

	return first, nil
}
