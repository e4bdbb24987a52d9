package pcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/taskforge/authcore/internal/model"
)

// RedisConfig mirrors the pack's Redis connection shape (grounded on
// growth-server's third_party/cache/redis.go RedisConfig).
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Redis is a Cache implementation backed by github.com/redis/go-redis/v9,
// for multi-instance deployments where invalidation must be visible to
// every process resolving principals, not just the one that triggered it.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedis(cfg RedisConfig, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Redis{client: client, ttl: ttl, prefix: "principal:"}, nil
}

func (r *Redis) key(principalID uuid.UUID) string {
	return r.prefix + principalID.String()
}

func (r *Redis) Get(ctx context.Context, principalID uuid.UUID) (model.Principal, bool) {
	raw, err := r.client.Get(ctx, r.key(principalID)).Bytes()
	if err != nil {
		return model.Principal{}, false
	}

	var p model.Principal
	if err := json.Unmarshal(raw, &p); err != nil {
		return model.Principal{}, false
	}
	return p, true
}

func (r *Redis) Set(ctx context.Context, principal model.Principal) {
	raw, err := json.Marshal(principal)
	if err != nil {
		return
	}
	r.client.Set(ctx, r.key(principal.ID), raw, r.ttl)
}

func (r *Redis) Invalidate(ctx context.Context, principalID uuid.UUID) {
	r.client.Del(ctx, r.key(principalID))
}

func (r *Redis) Close() error {
	return r.client.Close()
}

var _ Cache = (*Redis)(nil)
