package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps carts as JSON blobs with a sliding TTL. Suitable for
// guest checkouts where the cart lives only as long as the shopper session.
type RedisStore struct {
	Client *redis.Client
	TTL    time.Duration
}

func (s *RedisStore) key(shopperID string) string {
	return "monmi:cart:" + shopperID
}

func (s *RedisStore) Load(ctx context.Context, shopperID string) (Snapshot, error) {
	raw, err := s.Client.Get(ctx, s.key(shopperID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Snapshot{}, nil
		}
		return Snapshot{}, fmt.Errorf("load cart: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode cart: %w", err)
	}
	return snap, nil
}

func (s *RedisStore) Save(ctx context.Context, shopperID string, snap Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if err := s.Client.Set(ctx, s.key(shopperID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, shopperID string) error {
	if err := s.Client.Del(ctx, s.key(shopperID)).Err(); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
