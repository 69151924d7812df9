package redis

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ErrLockNotAcquired is returned when a lock stays held past the wait budget
var ErrLockNotAcquired = errors.New("lock not acquired")

const retryInterval = 50 * time.Millisecond

// Locker hands out short-lived named locks
type Locker interface {
	// Acquire blocks up to wait for the lock. The returned release function
	// is safe to call more than once.
	Acquire(ctx context.Context, key string, ttl, wait time.Duration) (func(), error)
}

// releaseScript deletes the key only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with SET NX PX
type RedisLocker struct {
	client *Client
	logger *logrus.Logger
}

// NewRedisLocker creates a Redis backed locker
func NewRedisLocker(client *Client, logger *logrus.Logger) *RedisLocker {
	return &RedisLocker{client: client, logger: logger}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl, wait time.Duration) (func(), error) {
	fullKey := LockKeyPrefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(wait)

	for {
		ok, err := l.client.rdb.SetNX(ctx, fullKey, token, ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return l.releaser(fullKey, token), nil
		}
		if time.Now().After(deadline) {
			return nil, ErrLockNotAcquired
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}
}

// releaser deletes the key on first call. Runs on a fresh context so a
// cancelled request still frees the key.
func (l *RedisLocker) releaser(fullKey, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, l.client.rdb, []string{fullKey}, token).Err(); err != nil {
				l.logger.WithError(err).WithField("key", fullKey).Warn("Failed to release lock, held until TTL expiry")
			}
		})
	}
}

// LocalLocker implements Locker in-process for single-replica deployments
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewLocalLocker creates an in-process locker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]chan struct{})}
}

func (l *LocalLocker) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[key] = ch
	}
	return ch
}

// Acquire holds the lock until release or until ttl elapses, matching the
// expiry behaviour of the Redis locker
func (l *LocalLocker) Acquire(ctx context.Context, key string, ttl, wait time.Duration) (func(), error) {
	ch := l.slot(key)

	select {
	case ch <- struct{}{}:
		return l.holder(ch, ttl), nil
	default:
	}
	if wait <= 0 {
		return nil, ErrLockNotAcquired
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		return l.holder(ch, ttl), nil
	case <-timer.C:
		return nil, ErrLockNotAcquired
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *LocalLocker) holder(ch chan struct{}, ttl time.Duration) func() {
	var once sync.Once
	done := make(chan struct{})
	release := func() {
		once.Do(func() {
			close(done)
			<-ch
		})
	}
	if ttl > 0 {
		go func() {
			timer := time.NewTimer(ttl)
			defer timer.Stop()
			select {
			case <-timer.C:
				release()
			case <-done:
			}
		}()
	}
	return release
}

var (
	_ Locker = (*RedisLocker)(nil)
	_ Locker = (*LocalLocker)(nil)
)
