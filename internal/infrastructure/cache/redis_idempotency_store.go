package cache

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/erp/ledgersync/internal/domain/shared"
	"github.com/erp/ledgersync/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	idempotencyKeyPrefix = "ledgersync:event:"
	redisPingTimeout     = 5 * time.Second
)

// OpenIdempotencyStore picks the store for the deployment. Redis is used when
// enabled and reachable. Otherwise claims live in process memory, unless
// cfg.Required is set, in which case an unreachable Redis is an error.
func OpenIdempotencyStore(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (shared.IdempotencyStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if !cfg.Enabled {
		log.Info("redis disabled, idempotency claims kept in memory")
		return NewInMemoryIdempotencyStore(), nil
	}

	store, err := NewRedisIdempotencyStore(ctx, cfg)
	switch {
	case err == nil:
		log.Info("idempotency claims kept in redis", zap.String("addr", store.addr))
		return store, nil
	case cfg.Required:
		return nil, fmt.Errorf("idempotency store: %w", err)
	}

	log.Warn("redis unreachable, idempotency claims kept in memory; "+
		"a payment event may sync twice if several instances run",
		zap.Error(err),
	)
	return NewInMemoryIdempotencyStore(), nil
}

// RedisIdempotencyStore shares claims across every instance of the service
type RedisIdempotencyStore struct {
	client *redis.Client
	addr   string
}

// NewRedisIdempotencyStore dials Redis and pings it before returning
func NewRedisIdempotencyStore(ctx context.Context, cfg config.RedisConfig) (*RedisIdempotencyStore, error) {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	client := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Password, DB: cfg.DB})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s: %w", addr, err)
	}
	return &RedisIdempotencyStore{client: client, addr: addr}, nil
}

// MarkProcessed is a single SET NX with expiry, so concurrent claims race safely
func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	claimed, err := s.client.SetNX(ctx, idempotencyKeyPrefix+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return claimed, nil
}

func (s *RedisIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, idempotencyKeyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("lookup %s: %w", key, err)
	}
	return n == 1, nil
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, idempotencyKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}

func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
