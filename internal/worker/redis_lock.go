package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

// RedisLease is a single-holder lease on a Redis key. It keeps scheduler
// passes from running on two instances at once.
type RedisLease struct {
	client   *redis.Client
	key      string
	ttl      time.Duration
	newToken func() string

	mu    sync.Mutex
	token string
}

func NewRedisLease(client *redis.Client, key string, ttl time.Duration) *RedisLease {
	return &RedisLease{client: client, key: "lock:" + key, ttl: ttl, newToken: uuid.NewString}
}

// TryAcquire takes the lease if nobody holds it. It returns false without an
// error when another holder has it.
func (l *RedisLease) TryAcquire(ctx context.Context) (bool, error) {
	token := l.newToken()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lease: %w", err)
	}
	if !ok {
		return false, nil
	}
	l.mu.Lock()
	l.token = token
	l.mu.Unlock()
	return true, nil
}

// Release drops the lease, but only if this holder still owns it.
func (l *RedisLease) Release(ctx context.Context) error {
	l.mu.Lock()
	token := l.token
	l.token = ""
	l.mu.Unlock()
	if token == "" {
		return nil
	}

	n, err := l.client.Eval(ctx, releaseScript, []string{l.key}, token).Int()
	if err != nil {
		return fmt.Errorf("release lease: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("lease %s expired before release", l.key)
	}
	return nil
}
