// Package signature implements the HMAC request signing scheme used by the
// Monmi partner API. Every outbound call and every inbound webhook carries a
// signature over the request id and timestamp pair.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign computes the hex-encoded HMAC-SHA256 of "requestID.timestamp" with the
// partner secret key.
func Sign(secretKey, requestID, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(requestID + "." + timestamp))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether the presented signature matches the expected value
// for the given request id and timestamp. Comparison is constant time.
func Verify(secretKey, requestID, timestamp, presented string) bool {
	if requestID == "" || timestamp == "" || presented == "" {
		return false
	}
	expected := Sign(secretKey, requestID, timestamp)
	return hmac.Equal([]byte(expected), []byte(presented))
}
