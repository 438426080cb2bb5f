// Package cache holds the Redis-backed webhook replay guard.
//
// The guard only short-circuits deliveries that were already applied. The
// payment row remains the source of truth, so a lost or expired key costs a
// database round trip and nothing more.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ReplayGuard remembers processed webhook deliveries.
type ReplayGuard interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

// DeliveryKey identifies one webhook delivery.
func DeliveryKey(gatewayPaymentID, status string) string {
	return fmt.Sprintf("%s:%s", gatewayPaymentID, status)
}

type redisReplayGuard struct {
	client      *redis.Client
	ttl         time.Duration
	serviceName string
	logger      zerolog.Logger
}

// NewRedisReplayGuard creates a guard storing keys for ttl.
func NewRedisReplayGuard(client *redis.Client, ttl time.Duration, logger zerolog.Logger) ReplayGuard {
	return &redisReplayGuard{
		client:      client,
		ttl:         ttl,
		serviceName: "checkout",
		logger:      logger.With().Str("component", "replay_guard").Logger(),
	}
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func (g *redisReplayGuard) generateKey(key string) string {
	return fmt.Sprintf("%s:webhook:%s", g.serviceName, key)
}

func (g *redisReplayGuard) Seen(ctx context.Context, key string) (bool, error) {
	_, err := g.client.Get(ctx, g.generateKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read replay key: %w", err)
	}
	return true, nil
}

func (g *redisReplayGuard) Mark(ctx context.Context, key string) error {
	err := g.client.SetArgs(ctx, g.generateKey(key), time.Now().UTC().Format(time.RFC3339), redis.SetArgs{
		Mode: "NX",
		TTL:  g.ttl,
	}).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to write replay key: %w", err)
	}
	g.logger.Debug().Str("key", key).Msg("delivery marked")
	return nil
}

type noopReplayGuard struct{}

// NewNoopReplayGuard returns a guard that never remembers anything.
func NewNoopReplayGuard() ReplayGuard { return noopReplayGuard{} }

func (noopReplayGuard) Seen(context.Context, string) (bool, error) { return false, nil }
func (noopReplayGuard) Mark(context.Context, string) error         { return nil }
