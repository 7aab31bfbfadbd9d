package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"subscription-commerce/internal/domain/ports/adapter"
)

var _ adapter.SignatureVerifier = (*HMACVerifier)(nil)

// Sign returns the lowercase hex HMAC-SHA256 of payload under secret.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether candidate is the hex HMAC-SHA256 of payload under
// secret. The digest comparison is constant time. Anything that does not
// decode to a digest of the right length is simply a mismatch.
func Verify(candidate string, payload []byte, secret string) bool {
	if candidate == "" || secret == "" {
		return false
	}
	got, err := hex.DecodeString(candidate)
	if err != nil || len(got) != sha256.Size {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(got, mac.Sum(nil))
}

// PaymentPayload is the string the gateway signs at checkout.
func PaymentPayload(orderID, paymentID string) []byte {
	return []byte(orderID + "|" + paymentID)
}

// HMACVerifier checks checkout signatures with the gateway key secret and
// webhook signatures with the webhook secret. The two secrets are distinct.
type HMACVerifier struct {
	keySecret     string
	webhookSecret string
}

func NewHMACVerifier(keySecret, webhookSecret string) *HMACVerifier {
	return &HMACVerifier{keySecret: keySecret, webhookSecret: webhookSecret}
}

func (v *HMACVerifier) VerifyPayment(orderID, paymentID, signature string) bool {
	if orderID == "" || paymentID == "" {
		return false
	}
	return Verify(signature, PaymentPayload(orderID, paymentID), v.keySecret)
}

// VerifyWebhook must be given the body bytes exactly as received; re-encoded
// JSON will not match.
func (v *HMACVerifier) VerifyWebhook(rawBody []byte, signature string) bool {
	return Verify(signature, rawBody, v.webhookSecret)
}
