package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/99minutos/shipment-legs/internal/core/domain"
)

const (
	lockPrefix   = "lock:"
	retryBackoff = 25 * time.Millisecond
)

// releaseScript deletes the key only while it still carries our token, so an
// expired lock taken over by another instance is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is an advisory lock shared by all API instances.
// Key format: lock:<leg|courier>:<id>
//
// The lock shortens the window for conflicting writes; correctness still
// rests on the version check and the balance guard in MongoDB.
type Locker struct {
	client redis.Cmdable
	ttl    time.Duration
	wait   time.Duration
	log    zerolog.Logger
}

// NewLocker creates a Locker. ttl bounds how long a crashed holder can block
// a key; wait bounds how long Lock retries before giving up.
func NewLocker(client redis.Cmdable, ttl, wait time.Duration, log zerolog.Logger) *Locker {
	return &Locker{client: client, ttl: ttl, wait: wait, log: log}
}

// Lock acquires key, retrying until wait elapses. Contention past the wait
// is reported as ErrConcurrentModification so callers refetch and retry.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := lockPrefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", redisKey, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s is busy", domain.ErrConcurrentModification, key)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryBackoff):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(ctx, redisKey, token) })
	}, nil
}

func (l *Locker) release(ctx context.Context, redisKey, token string) {
	// Release must not be skipped because the request context was cancelled.
	relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultTimeout)
	defer cancel()
	if err := releaseScript.Run(relCtx, l.client, []string{redisKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		l.log.Warn().Err(err).Str("key", redisKey).Msg("lock release failed, waiting for ttl")
	}
}
