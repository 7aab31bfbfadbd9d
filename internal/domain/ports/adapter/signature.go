package adapter

// SignatureVerifier authenticates inbound gateway traffic. Both methods are
// pure and never fail with an error: a mismatch is simply false.
type SignatureVerifier interface {
	VerifyPayment(orderID, paymentID, signature string) bool
	VerifyWebhook(rawBody []byte, signature string) bool
}
