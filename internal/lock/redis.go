package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisLocker is the SlotLocker for multi-process deployments sharing a
// durable store: one SetNX key per slot, acquired in the same sorted order
// as the in-process locker. Unlike MemoryLocker it does not wait; a
// contended slot surfaces as ErrSlotBusy and the caller retries.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl}
}

func (l *RedisLocker) WithSlots(ctx context.Context, slotIDs []uuid.UUID, fn func(ctx context.Context) error) error {
	ids := sortedUnique(slotIDs)
	token := uuid.NewString()

	acquired := make([]string, 0, len(ids))
	release := func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			_ = l.release(ctx, acquired[i], token)
		}
	}

	for _, id := range ids {
		key := "lock:slot:" + id.String()
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			release()
			return fmt.Errorf("acquire slot lock: %w", err)
		}
		if !ok {
			release()
			return ErrSlotBusy
		}
		acquired = append(acquired, key)
	}
	defer release()

	fnCtx, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(fnCtx)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *RedisLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release slot lock: %w", err)
	}
	return nil
}

// NewRedisClient dials Redis and verifies connectivity.
func NewRedisClient(addr, username, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Username:     username,
		Password:     password,
		DB:           0,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return rdb, nil
}
