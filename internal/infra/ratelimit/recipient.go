package ratelimit

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"backoffice/internal/domain/dispatch"

	"github.com/redis/go-redis/v9"
)

var _ dispatch.RecipientRateLimiter = (*RedisRecipientLimiter)(nil)

const keyPrefix = "backoffice:ratelimit"

// RedisRecipientLimiter caps how many messages one recipient receives per
// channel in a sliding one-hour window, using a Redis sorted set scored by
// send time.
type RedisRecipientLimiter struct {
	client     *redis.Client
	maxPerHour int
	window     time.Duration
}

// NewRedisRecipientLimiter creates a new Redis-based per-recipient rate limiter.
func NewRedisRecipientLimiter(redisAddr, password string, db int, maxPerHour int) *RedisRecipientLimiter {
	return NewRecipientLimiter(redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: password,
		DB:       db,
	}), maxPerHour, time.Hour)
}

// NewRecipientLimiter creates a limiter on an existing client.
func NewRecipientLimiter(client *redis.Client, maxPerHour int, window time.Duration) *RedisRecipientLimiter {
	return &RedisRecipientLimiter{
		client:     client,
		maxPerHour: maxPerHour,
		window:     window,
	}
}

func recipientKey(ch dispatch.Channel, recipient string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, ch, strings.ToLower(strings.TrimSpace(recipient)))
}

// Allow reports whether another message may go to recipient on ch, and
// records the send when it may. A non-positive limit disables limiting.
func (r *RedisRecipientLimiter) Allow(ctx context.Context, ch dispatch.Channel, recipient string) (bool, error) {
	if r.maxPerHour <= 0 {
		return true, nil
	}

	key := recipientKey(ch, recipient)
	now := time.Now()
	windowStart := now.Add(-r.window)

	pipe := r.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("%d", windowStart.UnixNano()))
	countCmd := pipe.ZCard(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("checking recipient rate limit: %w", err)
	}

	if countCmd.Val() >= int64(r.maxPerHour) {
		return false, nil
	}

	// Random suffix keeps concurrent sends in the same nanosecond distinct.
	randBytes := make([]byte, 4)
	_, _ = rand.Read(randBytes)
	member := redis.Z{
		Score:  float64(now.UnixNano()),
		Member: fmt.Sprintf("%d:%s", now.UnixNano(), hex.EncodeToString(randBytes)),
	}

	pipe = r.client.Pipeline()
	pipe.ZAdd(ctx, key, member)
	pipe.Expire(ctx, key, r.window+time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("recording rate limit entry: %w", err)
	}

	return true, nil
}

// Close closes the Redis connection.
func (r *RedisRecipientLimiter) Close() error {
	return r.client.Close()
}
