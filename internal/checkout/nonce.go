package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// NonceStore issues one-time checkout nonces bound to a shopper. Consume uses
// GETDEL so a nonce can never authorize two submissions.
type NonceStore struct {
	Client *redis.Client
	TTL    time.Duration
}

func (s *NonceStore) key(nonce string) string {
	return "monmi:nonce:" + nonce
}

// Issue mints a nonce for the shopper.
func (s *NonceStore) Issue(ctx context.Context, shopperID string) (string, error) {
	nonce := uuid.NewString()
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if err := s.Client.Set(ctx, s.key(nonce), shopperID, ttl).Err(); err != nil {
		return "", fmt.Errorf("issue nonce: %w", err)
	}
	return nonce, nil
}

// Consume atomically deletes the nonce and reports whether it was valid for
// this shopper.
func (s *NonceStore) Consume(ctx context.Context, nonce, shopperID string) (bool, error) {
	if nonce == "" {
		return false, nil
	}
	owner, err := s.Client.GetDel(ctx, s.key(nonce)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("consume nonce: %w", err)
	}
	return owner == shopperID, nil
}
