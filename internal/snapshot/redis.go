package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chanhduy633/checkout-service/domain"
)

// RedisStore keeps snapshots in Redis under one checkout-scoped key per
// user. The TTL is generous; an abandoned checkout eventually evaporates.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    24 * time.Hour,
	}
}

func (r *RedisStore) Load(ctx context.Context, userID string) (*domain.CartSnapshot, error) {
	data, err := r.client.Get(ctx, snapshotKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.EmptyCartSnapshot(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var snap domain.CartSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		slog.Warn("Discarding malformed cart snapshot", "user_id", userID, "error", err)
		return domain.EmptyCartSnapshot(), nil
	}

	// The stored total is never trusted; stale or tampered values must not
	// reach the payment-matching path.
	snap.TotalAmount = snap.ComputeTotal()
	if snap.Items == nil {
		snap.Items = []domain.CartLine{}
	}
	return &snap, nil
}

func (r *RedisStore) Save(ctx context.Context, userID string, snap *domain.CartSnapshot) error {
	normalize(snap)
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot failed: %w", err)
	}

	if err := r.client.Set(ctx, snapshotKey(userID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, snapshotKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func snapshotKey(userID string) string {
	return fmt.Sprintf("checkout:snapshot:%s", userID)
}
