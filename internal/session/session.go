// Package session creates Monmi payment sessions from the shopper's cart and
// keeps the resulting token scoped to that shopper until checkout consumes it.
package session

import (
	"regexp"
	"strings"
)

// PaymentSession is the server-side record of a created provider session.
// Overwritten on each create for the same shopper, cleared by finalization.
type PaymentSession struct {
	Token  string         `json:"token"`
	Code   string         `json:"code,omitempty"`
	Status string         `json:"status,omitempty"`
	Data   map[string]any `json:"data,omitempty"`
}

// Seed is the client-facing view of a stored session: enough to remount the
// hosted widget without another provider call.
func (s *PaymentSession) Seed() map[string]any {
	if s == nil || s.Token == "" {
		return nil
	}
	seed := map[string]any{"token": s.Token}
	if s.Code != "" {
		seed["code"] = s.Code
	}
	if s.Status != "" {
		seed["status"] = s.Status
	}
	if len(s.Data) > 0 {
		seed["data"] = SanitizeData(s.Data)
	}
	return seed
}

var keyPattern = regexp.MustCompile(`[^a-z0-9_]+`)

const maxScalarLen = 512

// SanitizeData normalizes provider payload before it is reused client-side:
// keys are lowered and restricted to [a-z0-9_], scalar strings are trimmed
// and length-bounded, nested containers are walked recursively.
func SanitizeData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for key, value := range data {
		out[sanitizeKey(key)] = sanitizeValue(value)
	}
	return out
}

func sanitizeKey(key string) string {
	return keyPattern.ReplaceAllString(strings.ToLower(key), "")
}

func sanitizeValue(value any) any {
	switch v := value.(type) {
	case string:
		v = strings.TrimSpace(v)
		if len(v) > maxScalarLen {
			v = v[:maxScalarLen]
		}
		return v
	case map[string]any:
		return SanitizeData(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = sanitizeValue(item)
		}
		return out
	default:
		return v
	}
}
