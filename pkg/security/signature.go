package security

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
)

// SignPayload computes the hex HMAC-SHA512 of a webhook body, the scheme
// Paystack uses for the x-paystack-signature header.
func SignPayload(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a webhook signature in constant time.
func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := SignPayload(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
