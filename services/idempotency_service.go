package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// CachedResponse is the HTTP-level reply replayed verbatim for a
// repeated idempotency key.
type CachedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// IdempotencyGuard deduplicates order-creation requests that carry a
// client-supplied idempotency key. The reserve step must be atomic so
// two concurrent requests with the same key cannot both create an order.
type IdempotencyGuard interface {
	// CheckAndReserve returns the cached response if one exists. When no
	// response is cached, reserved reports whether this caller won the
	// slot; a false result with no cached response means another request
	// holding the same key is still in flight.
	CheckAndReserve(ctx context.Context, key string) (cached *CachedResponse, reserved bool, err error)
	// Store records the final response for the key.
	Store(ctx context.Context, key string, resp CachedResponse) error
	// Release frees a reservation after a failed attempt so the client
	// can retry with the same key.
	Release(ctx context.Context, key string) error
}

const (
	idempotencyKeyPrefix = "idem:order:"
	idempotencyTTL       = 24 * time.Hour

	// reservedMarker occupies the slot between reserve and store.
	reservedMarker = "__in_progress__"
)

// RedisIdempotencyGuard implements the guard on redis. SET NX gives the
// atomic check-then-reserve; the marker value distinguishes an in-flight
// request from a finished one.
type RedisIdempotencyGuard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisIdempotencyGuard(client *redis.Client) *RedisIdempotencyGuard {
	return &RedisIdempotencyGuard{client: client, ttl: idempotencyTTL}
}

func (g *RedisIdempotencyGuard) CheckAndReserve(ctx context.Context, key string) (*CachedResponse, bool, error) {
	rkey := idempotencyKeyPrefix + key

	ok, err := g.client.SetNX(ctx, rkey, reservedMarker, g.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("idempotency reserve: %w", err)
	}
	if ok {
		return nil, true, nil
	}

	val, err := g.client.Get(ctx, rkey).Result()
	if err == redis.Nil {
		// Key expired between SetNX and Get; treat as lost race.
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("idempotency lookup: %w", err)
	}
	if val == reservedMarker {
		return nil, false, nil
	}

	var cached CachedResponse
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		return nil, false, fmt.Errorf("idempotency decode: %w", err)
	}
	return &cached, false, nil
}

func (g *RedisIdempotencyGuard) Store(ctx context.Context, key string, resp CachedResponse) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("idempotency encode: %w", err)
	}
	return g.client.Set(ctx, idempotencyKeyPrefix+key, payload, g.ttl).Err()
}

func (g *RedisIdempotencyGuard) Release(ctx context.Context, key string) error {
	return g.client.Del(ctx, idempotencyKeyPrefix+key).Err()
}
