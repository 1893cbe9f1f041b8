// Package snapshot records a redacted trace of the most recent outbound
// provider call so operators can inspect what was actually sent and received
// without trawling raw logs. Secrets are masked before the snapshot is held in
// memory or cached.
package snapshot

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/monmi-labs/pay-gateway/internal/redact"
)

// Request captures the outbound request half of a provider call.
type Request struct {
	Method  string         `json:"method"`
	URL     string         `json:"url"`
	Headers http.Header    `json:"headers"`
	Body    map[string]any `json:"body,omitempty"`
}

// Response captures the inbound response half of a provider call.
type Response struct {
	Status  int         `json:"status"`
	Headers http.Header `json:"headers"`
	RawBody string      `json:"raw_body,omitempty"`
	Decoded any         `json:"decoded,omitempty"`
}

// Snapshot is the full redacted record of a single provider call.
type Snapshot struct {
	Endpoint   string    `json:"endpoint"`
	Request    Request   `json:"request"`
	Response   *Response `json:"response,omitempty"`
	Error      string    `json:"error,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Store keeps the latest snapshot in process memory and mirrors it into Redis
// with a short TTL so it survives across replicas.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
	log zerolog.Logger

	mu   sync.RWMutex
	last *Snapshot
}

const cacheKey = "monmi:diag:last_call"

func NewStore(rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *Store {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Store{rdb: rdb, ttl: ttl, log: log}
}

// Record masks the snapshot and stores it. Masking happens here so no caller
// can accidentally persist plaintext credentials.
func (s *Store) Record(ctx context.Context, snap Snapshot) {
	snap.Request.Headers = redact.MaskHeaders(snap.Request.Headers)
	if snap.Request.Body != nil {
		snap.Request.Body = redact.MaskStructure(snap.Request.Body).(map[string]any)
	}
	if snap.Response != nil {
		resp := *snap.Response
		resp.Headers = redact.MaskHeaders(resp.Headers)
		resp.Decoded = redact.MaskStructure(resp.Decoded)
		snap.Response = &resp
	}
	if snap.RecordedAt.IsZero() {
		snap.RecordedAt = time.Now().UTC()
	}

	s.mu.Lock()
	s.last = &snap
	s.mu.Unlock()

	if s.rdb == nil {
		return
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		s.log.Warn().Err(err).Msg("snapshot: marshal failed")
		return
	}
	if err := s.rdb.Set(ctx, cacheKey, payload, s.ttl).Err(); err != nil {
		s.log.Warn().Err(err).Msg("snapshot: cache write failed")
	}
}

// Last returns the most recent snapshot, falling back to the Redis mirror when
// this process has not made a call yet.
func (s *Store) Last(ctx context.Context) (*Snapshot, bool) {
	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()
	if last != nil {
		return last, true
	}
	if s.rdb == nil {
		return nil, false
	}
	raw, err := s.rdb.Get(ctx, cacheKey).Bytes()
	if err != nil {
		return nil, false
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, false
	}
	return &snap, true
}
