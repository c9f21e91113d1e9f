package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	redisPollInterval   = 50 * time.Millisecond
	redisReleaseTimeout = 2 * time.Second
)

// Deletes the key only while it still holds our token.
var releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

type redisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisLocker is a Locker shared by every replica. The key expires after ttl so a
// crashed holder cannot block an order forever.
type RedisLocker struct {
	client  redisClient
	timeout time.Duration
	ttl     time.Duration
	logger  logrus.FieldLogger
}

func NewRedisLocker(client redisClient, timeout, ttl time.Duration, logger logrus.FieldLogger) *RedisLocker {
	return &RedisLocker{client: client, timeout: timeout, ttl: ttl, logger: logger}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	deadline := time.Now().Add(l.timeout)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		if !time.Now().Before(deadline) {
			return nil, ErrLockTimeout
		}

		wait := min(redisPollInterval, time.Until(deadline))
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), redisReleaseTimeout)
			defer cancel()
			if err := l.client.Eval(releaseCtx, releaseScript, []string{key}, token).Err(); err != nil {
				l.logger.WithError(err).WithField("key", key).Warn("Failed to release order lock")
			}
		})
	}, nil
}
