// Package monmi is the signed HTTP client for the Monmi partner API. Every
// call carries a fresh request id, millisecond timestamp and HMAC signature,
// and leaves a redacted diagnostic snapshot behind.
package monmi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/monmi-labs/pay-gateway/internal/common"
	"github.com/monmi-labs/pay-gateway/internal/obs"
	"github.com/monmi-labs/pay-gateway/internal/redact"
	"github.com/monmi-labs/pay-gateway/internal/settings"
	"github.com/monmi-labs/pay-gateway/internal/signature"
	"github.com/monmi-labs/pay-gateway/internal/snapshot"
)

const callTimeout = 20 * time.Second

// Response is the decoded outcome of a successful provider call.
type Response struct {
	Status  int
	Headers http.Header
	RawBody string
	Data    map[string]any
}

// Client calls the Monmi partner API. Credentials and environment are read
// from the settings store on every call so rotations apply immediately.
type Client struct {
	httpc     *http.Client
	settings  settings.Reader
	baseURLs  map[string]string
	snapshots *snapshot.Store
	log       zerolog.Logger
}

func NewClient(settings settings.Reader, baseURLs map[string]string, snapshots *snapshot.Store, log zerolog.Logger) *Client {
	return &Client{
		httpc:     &http.Client{Timeout: callTimeout},
		settings:  settings,
		baseURLs:  baseURLs,
		snapshots: snapshots,
		log:       log,
	}
}

// Call signs and sends a request to the given endpoint. Body is JSON-encoded
// for non-GET methods. Failures are typed per the error taxonomy, and every
// outcome is recorded as a masked snapshot.
func (c *Client) Call(ctx context.Context, endpoint string, body map[string]any, method string) (*Response, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodPost
	}

	apiKey := c.settings.APIKey(ctx)
	secret := c.settings.SecretKey(ctx)
	env := c.settings.Environment(ctx)

	snap := snapshot.Snapshot{
		Endpoint: endpoint,
		Request: snapshot.Request{
			Method:  method,
			Headers: http.Header{},
			Body:    body,
		},
	}

	if apiKey == "" || secret == "" {
		err := &ConfigError{Code: common.CodeMissingCredentials, Message: "monmi API credentials are missing"}
		c.fail(ctx, snap, endpoint, err)
		return nil, err
	}
	base, ok := c.baseURLs[env]
	if !ok || base == "" {
		err := &ConfigError{Code: common.CodeMissingBaseURL, Message: "monmi API base URL is not configured for environment " + env}
		c.fail(ctx, snap, endpoint, err)
		return nil, err
	}

	url := strings.TrimRight(base, "/") + endpoint
	requestID := uuid.NewString()
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)

	var reqBody io.Reader
	if len(body) > 0 && method != http.MethodGet {
		encoded, err := json.Marshal(body)
		if err != nil {
			cfgErr := &ConfigError{Code: common.CodeInternal, Message: "encode request body: " + err.Error()}
			c.fail(ctx, snap, endpoint, cfgErr)
			return nil, cfgErr
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		tErr := &TransportError{Err: err}
		c.fail(ctx, snap, endpoint, tErr)
		return nil, tErr
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("x-request-id", requestID)
	req.Header.Set("x-timestamp", timestamp)
	req.Header.Set("x-api-signature", signature.Sign(secret, requestID, timestamp))

	snap.Request.URL = url
	snap.Request.Headers = req.Header.Clone()

	started := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		c.observe(endpoint, "transport_error", started)
		tErr := &TransportError{Err: err}
		c.fail(ctx, snap, endpoint, tErr)
		return nil, tErr
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.observe(endpoint, "transport_error", started)
		tErr := &TransportError{Err: err}
		c.fail(ctx, snap, endpoint, tErr)
		return nil, tErr
	}

	snap.Response = &snapshot.Response{
		Status:  resp.StatusCode,
		Headers: resp.Header.Clone(),
		RawBody: string(raw),
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.observe(endpoint, "http_error", started)
		hErr := &HTTPError{Status: resp.StatusCode, RawBody: string(raw)}
		c.fail(ctx, snap, endpoint, hErr)
		return nil, hErr
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		c.observe(endpoint, "decode_error", started)
		dErr := &DecodeError{Err: err, RawBody: string(raw)}
		c.fail(ctx, snap, endpoint, dErr)
		return nil, dErr
	}

	snap.Response.Decoded = decoded
	c.observe(endpoint, "ok", started)
	c.record(ctx, snap)

	return &Response{
		Status:  resp.StatusCode,
		Headers: resp.Header,
		RawBody: string(raw),
		Data:    decoded,
	}, nil
}

func (c *Client) observe(endpoint, result string, started time.Time) {
	if obs.ProviderCallDuration == nil {
		return
	}
	obs.ProviderCallDuration.WithLabelValues(endpoint, result).Observe(obs.DurationMillis(time.Since(started)))
}

func (c *Client) record(ctx context.Context, snap snapshot.Snapshot) {
	if c.snapshots != nil {
		c.snapshots.Record(ctx, snap)
	}
}

func (c *Client) fail(ctx context.Context, snap snapshot.Snapshot, endpoint string, err error) {
	snap.Error = err.Error()
	c.record(ctx, snap)
	c.log.Error().
		Err(err).
		Str("endpoint", endpoint).
		Interface("headers", redact.MaskHeaders(snap.Request.Headers)).
		Msg("monmi api call failed")
}
