package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Sign computes the hex-encoded HMAC-SHA256 signature over the string
// "{timestamp}.{body}" using secret as the key. The timestamp is epoch
// milliseconds. Subscribers recompute this over the raw request body to
// authenticate deliveries.
func Sign(secret string, timestamp int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", timestamp, body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the signature and compares it in constant time.
func VerifySignature(secret string, timestamp int64, body []byte, signature string) bool {
	expected := Sign(secret, timestamp, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
