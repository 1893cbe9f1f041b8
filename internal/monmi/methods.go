package monmi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/monmi-labs/pay-gateway/internal/settings"
)

const (
	methodsCacheTTL      = 15 * time.Minute
	methodsEmptyCacheTTL = 5 * time.Minute
)

// MethodsService fetches the payment methods the merchant account supports,
// cached per environment so checkout rendering does not hammer the provider.
type MethodsService struct {
	Client   *Client
	Settings settings.Reader
	Redis    *redis.Client
	TTL      time.Duration
}

// PaymentMethods returns the deduplicated method list. An empty provider
// result is cached for a shorter window so newly enabled methods show up soon.
func (s *MethodsService) PaymentMethods(ctx context.Context) ([]string, error) {
	env := s.Settings.Environment(ctx)
	cacheKey := "monmi:methods:" + env

	if s.Redis != nil {
		if raw, err := s.Redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached []string
			if json.Unmarshal(raw, &cached) == nil {
				return cached, nil
			}
		}
	}

	resp, err := s.Client.Call(ctx, "/api/v1/payment/methods", nil, http.MethodGet)
	if err != nil {
		return nil, err
	}

	if code, ok := resp.Data["errorCode"]; ok {
		if n, ok := code.(float64); ok && int(n) != 0 {
			msg := "monmi API reported an error while retrieving payment methods"
			if m, ok := resp.Data["message"].(string); ok && m != "" {
				msg = m
			}
			return nil, fmt.Errorf("monmi: %s", msg)
		}
	}

	methods := dedupeStrings(resp.Data["data"])
	s.cache(ctx, cacheKey, methods)
	return methods, nil
}

func (s *MethodsService) cache(ctx context.Context, key string, methods []string) {
	if s.Redis == nil {
		return
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = methodsCacheTTL
	}
	if len(methods) == 0 {
		ttl = methodsEmptyCacheTTL
	}
	if raw, err := json.Marshal(methods); err == nil {
		_ = s.Redis.Set(ctx, key, raw, ttl).Err()
	}
}

func dedupeStrings(data any) []string {
	items, ok := data.([]any)
	if !ok {
		return []string{}
	}
	seen := make(map[string]struct{}, len(items))
	methods := make([]string, 0, len(items))
	for _, item := range items {
		name, ok := item.(string)
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		methods = append(methods, name)
	}
	return methods
}
