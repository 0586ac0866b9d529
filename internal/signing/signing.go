// Package signing computes the keyed request signatures and timestamps
// used by HMAC-authenticated gateways.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// timestampLayout renders a fixed-width YYYYMMDDTHHMMSS.mmmZ timestamp.
const timestampLayout = "20060102T150405.000Z"

// Timestamp formats t in the gateway's fixed-width UTC form.
func Timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// Now returns the current timestamp. Signatures must use a timestamp taken
// at send time: gateways validate a replay window and reject stale dates.
func Now() string {
	return Timestamp(time.Now())
}

// SignHMACSHA256 returns the hex-encoded HMAC-SHA256 digest of message
// under key. Same inputs always yield the same digest.
func SignHMACSHA256(key, message []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}
