package redisclient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mohit83k/aaabridge/internal/model"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultTTL = 24 * time.Hour
	KeyPrefix  = "aaabridge:"
)

// Store persists classified device events and sync audit records.
type Store interface {
	SaveEvent(ctx context.Context, device string, ev model.LogEvent) (bool, error)
	SaveSyncResult(ctx context.Context, res model.SyncResult) error
}

// RedisStore implements Store using go-redis.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore returns a new RedisStore with auto-reconnect and retry.
// A non-positive ttl selects DefaultTTL.
func NewRedisStore(addr, password string, db int, ttl time.Duration) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:            addr,
		Password:        password,
		DB:              db,
		MaxRetries:      5,
		MinRetryBackoff: 100 * time.Millisecond,
		MaxRetryBackoff: 1 * time.Second,
	})
	return newStore(client, ttl)
}

func newStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl, now: time.Now}
}

// EventKey is the key an event is stored under. The hash covers the line
// identity so re-fetching the same lines does not duplicate them.
func EventKey(device string, ev model.LogEvent) string {
	sum := sha256.Sum256([]byte(ev.ID + "\x00" + ev.Time + "\x00" + ev.Message))
	return fmt.Sprintf("%slog:%s:%s:%s", KeyPrefix, device, ev.Kind, hex.EncodeToString(sum[:8]))
}

// SaveEvent stores ev unless an identical line is already present. It
// reports whether the event was new.
func (r *RedisStore) SaveEvent(ctx context.Context, device string, ev model.LogEvent) (bool, error) {
	value, err := json.Marshal(ev)
	if err != nil {
		return false, fmt.Errorf("failed to marshal event: %w", err)
	}

	created, err := r.client.SetNX(ctx, EventKey(device, ev), string(value), r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to save event in redis: %w", err)
	}
	return created, nil
}

// SaveSyncResult records the outcome of one account sync.
func (r *RedisStore) SaveSyncResult(ctx context.Context, res model.SyncResult) error {
	user := res.Username
	if user == "" {
		user = "unknown"
	}
	key := fmt.Sprintf("%ssync:%s:%s", KeyPrefix, user, r.now().UTC().Format("20060102T150405.000000"))

	value, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal sync result: %w", err)
	}

	if err := r.client.Set(ctx, key, string(value), r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save sync result in redis: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
