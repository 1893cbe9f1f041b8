// Package redact masks credential material before it reaches logs or
// diagnostic snapshots. Masking is irreversible but shape-preserving, so
// operators can still eyeball which credential was in play.
package redact

import (
	"net/http"
	"strings"
)

var sensitiveKeys = map[string]struct{}{
	"secret":        {},
	"secret_key":    {},
	"secretkey":     {},
	"client_secret": {},
	"token":         {},
	"payment_token": {},
	"signature":     {},
	"api_key":       {},
	"apikey":        {},
	"code":          {},
	"authorization": {},
}

var sensitiveHeaders = map[string]struct{}{
	"x-api-key":       {},
	"x-api-signature": {},
	"authorization":   {},
	"x-api-secret":    {},
}

// SensitiveKey reports whether a payload key is considered credential material.
func SensitiveKey(key string) bool {
	_, ok := sensitiveKeys[strings.ToLower(key)]
	return ok
}

// SensitiveHeader reports whether a header name is considered credential material.
func SensitiveHeader(name string) bool {
	_, ok := sensitiveHeaders[strings.ToLower(name)]
	return ok
}

// MaskValue masks a scalar while preserving its length. Short values keep only
// the last 2 characters visible; longer values keep 4 at each end.
func MaskValue(value string) string {
	length := len(value)
	if length == 0 {
		return value
	}
	if length <= 8 {
		keep := 2
		if length < keep {
			keep = length
		}
		return strings.Repeat("*", length-keep) + value[length-keep:]
	}
	const visible = 4
	return value[:visible] + strings.Repeat("*", length-2*visible) + value[length-visible:]
}

// MaskStructure walks decoded JSON (maps, slices, scalars) and masks any
// string value stored under a sensitive key, recursing into nested containers.
func MaskStructure(data any) any {
	switch v := data.(type) {
	case map[string]any:
		masked := make(map[string]any, len(v))
		for key, value := range v {
			if SensitiveKey(key) {
				if s, ok := value.(string); ok {
					masked[key] = MaskValue(s)
					continue
				}
			}
			masked[key] = MaskStructure(value)
		}
		return masked
	case []any:
		masked := make([]any, len(v))
		for i, item := range v {
			masked[i] = MaskStructure(item)
		}
		return masked
	default:
		return data
	}
}

// MaskHeaders returns a copy of the headers with sensitive values masked.
func MaskHeaders(h http.Header) http.Header {
	masked := make(http.Header, len(h))
	for name, values := range h {
		out := make([]string, len(values))
		for i, value := range values {
			if SensitiveHeader(name) {
				out[i] = MaskValue(value)
			} else {
				out[i] = value
			}
		}
		masked[name] = out
	}
	return masked
}
