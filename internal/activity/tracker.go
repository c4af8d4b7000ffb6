// Package activity remembers which days a user has checked in, so that the
// daily-login reward is granted once per UTC day.
package activity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Tracker records user activity per day.
type Tracker interface {
	// MarkActive records userID as active on day (truncated to the UTC
	// date). It reports true only the first time for that user and day.
	MarkActive(ctx context.Context, userID uuid.UUID, day time.Time) (bool, error)
}

func dayKey(day time.Time) string {
	return day.UTC().Format(time.DateOnly)
}

// RedisTracker stores one key per user-day with SET NX.
type RedisTracker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// checkinTTL keeps a day's key around long enough to cover every timezone's
// idea of "today" without growing forever.
const checkinTTL = 48 * time.Hour

func NewRedisTracker(client *redis.Client) *RedisTracker {
	return &RedisTracker{client: client, prefix: "storyverse:checkin", ttl: checkinTTL}
}

func (t *RedisTracker) MarkActive(ctx context.Context, userID uuid.UUID, day time.Time) (bool, error) {
	key := fmt.Sprintf("%s:%s:%s", t.prefix, userID, dayKey(day))
	first, err := t.client.SetNX(ctx, key, "1", t.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark active: %w", err)
	}
	return first, nil
}

// NewRedisClient parses a redis:// URL and checks the server answers.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// MemoryTracker is the single-process fallback used when no Redis is
// configured, and in tests.
type MemoryTracker struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{seen: make(map[string]struct{})}
}

func (t *MemoryTracker) MarkActive(_ context.Context, userID uuid.UUID, day time.Time) (bool, error) {
	key := userID.String() + ":" + dayKey(day)

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.seen[key]; ok {
		return false, nil
	}
	t.seen[key] = struct{}{}
	return true, nil
}
