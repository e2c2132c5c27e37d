package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dots-Uzbekistan/Lexora/pkg/store"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultLockTTL   = 2 * time.Minute
	lockRetryBackoff = 50 * time.Millisecond
)

// ErrLockNotAcquired is returned when the session stays locked until the
// caller's context ends.
var ErrLockNotAcquired = errors.New("session lock not acquired")

// releaseScript deletes the lock only while it still holds our token, so an
// expired lock taken over by another replica is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker serializes turns of a session across API replicas with a
// SET NX PX lease per session.
type Locker struct {
	rdb     *redis.Client
	service string
	ttl     time.Duration
	local   *store.KeyedMutex
}

var _ store.Locker = &Locker{}

// NewLocker creates a session locker for one service. The lease expires after
// ttl so a crashed replica cannot hold a session forever.
func NewLocker(rdb *redis.Client, service string, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &Locker{rdb: rdb, service: service, ttl: ttl, local: store.NewKeyedMutex()}
}

func (l *Locker) lockKey(id string) string {
	return keyPrefix + l.service + ":lock:" + id
}

// Acquire waits until the session lease is ours or ctx ends.
func (l *Locker) Acquire(ctx context.Context, id string) (func(), error) {
	// turns of this replica queue locally instead of polling Redis
	unlockLocal := l.local.Lock(id)

	key := l.lockKey(id)
	token := uuid.New().String()
	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			unlockLocal()
			return nil, fmt.Errorf("failed to lock session %s: %w", id, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			unlockLocal()
			return nil, fmt.Errorf("%w: %s: %v", ErrLockNotAcquired, id, ctx.Err())
		case <-time.After(lockRetryBackoff):
		}
	}

	return func() {
		// release even when the turn's context is already cancelled
		releaseCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.rdb, []string{key}, token).Err()
		unlockLocal()
	}, nil
}
