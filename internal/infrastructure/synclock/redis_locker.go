package synclock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fbstrack/backend/internal/application/tracking"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only when it still belongs to the holder.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker guards the sync run with a Redis lock. It is suitable for
// distributed deployments where several instances might trigger a sync.
type RedisLocker struct {
	client *redis.Client
	key    string
	ttl    time.Duration

	mu    sync.Mutex // guards token
	token string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisLocker creates a Redis-backed sync locker. The TTL bounds how long
// a crashed holder can keep the lock.
func NewRedisLocker(cfg RedisConfig, key string, ttl time.Duration) (*RedisLocker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisLockerWithClient(client, key, ttl), nil
}

// NewRedisLockerWithClient creates a locker with an existing Redis client.
// This is useful for testing or when sharing a client across components.
func NewRedisLockerWithClient(client *redis.Client, key string, ttl time.Duration) *RedisLocker {
	if key == "" {
		key = "sync:run:lock"
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisLocker{
		client: client,
		key:    key,
		ttl:    ttl,
	}
}

// TryLock attempts to take the lock without waiting. Returns false when
// another holder owns it.
func (l *RedisLocker) TryLock(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	acquired, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	if acquired {
		l.mu.Lock()
		l.token = token
		l.mu.Unlock()
	}
	return acquired, nil
}

// Unlock releases the lock if this locker still holds it.
func (l *RedisLocker) Unlock(ctx context.Context) error {
	l.mu.Lock()
	token := l.token
	l.token = ""
	l.mu.Unlock()
	if token == "" {
		return nil
	}
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
		return fmt.Errorf("failed to release sync lock: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (l *RedisLocker) Close() error {
	return l.client.Close()
}

// Ensure RedisLocker implements the sync locker port
var _ tracking.Locker = (*RedisLocker)(nil)
