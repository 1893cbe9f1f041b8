// Package settings holds the merchant-facing gateway options (API key,
// secret, environment). Values written at runtime live in Redis and shadow
// the environment defaults, so credentials can be rotated without a deploy.
package settings

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	KeyAPIKey      = "api_key"
	KeySecretKey   = "secret_key"
	KeyEnvironment = "environment"
)

const hashKey = "monmi:settings"

// Reader is the view consumed by the provider client and webhook handler.
type Reader interface {
	APIKey(ctx context.Context) string
	SecretKey(ctx context.Context) string
	Environment(ctx context.Context) string
}

// Store reads options from Redis, falling back to the configured defaults.
type Store struct {
	rdb      *redis.Client
	defaults map[string]string
}

func NewStore(rdb *redis.Client, defaults map[string]string) *Store {
	if defaults == nil {
		defaults = map[string]string{}
	}
	return &Store{rdb: rdb, defaults: defaults}
}

// Get returns the stored value for an option, or its default when unset.
func (s *Store) Get(ctx context.Context, key string) string {
	if s.rdb != nil {
		val, err := s.rdb.HGet(ctx, hashKey, key).Result()
		if err == nil && strings.TrimSpace(val) != "" {
			return val
		}
	}
	return s.defaults[key]
}

// Set persists an option override.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if s.rdb == nil {
		s.defaults[key] = value
		return nil
	}
	return s.rdb.HSet(ctx, hashKey, key, value).Err()
}

func (s *Store) APIKey(ctx context.Context) string    { return s.Get(ctx, KeyAPIKey) }
func (s *Store) SecretKey(ctx context.Context) string { return s.Get(ctx, KeySecretKey) }

// Environment returns the normalized environment name, defaulting to development.
func (s *Store) Environment(ctx context.Context) string {
	env := strings.ToLower(strings.TrimSpace(s.Get(ctx, KeyEnvironment)))
	if env != "production" {
		return "development"
	}
	return env
}
