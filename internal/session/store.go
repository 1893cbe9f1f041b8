package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store holds at most one PaymentSession per shopper.
type Store interface {
	Get(ctx context.Context, shopperID string) (*PaymentSession, error)
	Set(ctx context.Context, shopperID string, sess *PaymentSession) error
	Clear(ctx context.Context, shopperID string) error
}

// RedisStore keeps sessions as TTL-bound JSON blobs.
type RedisStore struct {
	Client *redis.Client
	TTL    time.Duration
}

func (s *RedisStore) key(shopperID string) string {
	return "monmi:sess:" + shopperID
}

func (s *RedisStore) Get(ctx context.Context, shopperID string) (*PaymentSession, error) {
	raw, err := s.Client.Get(ctx, s.key(shopperID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load payment session: %w", err)
	}
	var sess PaymentSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode payment session: %w", err)
	}
	return &sess, nil
}

func (s *RedisStore) Set(ctx context.Context, shopperID string, sess *PaymentSession) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode payment session: %w", err)
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if err := s.Client.Set(ctx, s.key(shopperID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("save payment session: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, shopperID string) error {
	if err := s.Client.Del(ctx, s.key(shopperID)).Err(); err != nil {
		return fmt.Errorf("clear payment session: %w", err)
	}
	return nil
}
