package domain

import "errors"

// Error categories. Every error returned by a use case matches exactly one of
// these with errors.Is so transports can map it to a response without
// inspecting messages.
var (
	ErrAuthentication = errors.New("authentication failed")
	ErrValidation     = errors.New("validation failed")
	ErrBusinessRule   = errors.New("business rule violation")
	ErrNotFound       = errors.New("entity not found")
	ErrIntegration    = errors.New("integration failure")
	ErrStore          = errors.New("store operation failed")
)

var (
	// Authentication
	ErrInvalidSignature = kindError(ErrAuthentication, "invalid signature")

	// Validation
	ErrInvalidArgument  = kindError(ErrValidation, "invalid argument")
	ErrInvalidAmount    = kindError(ErrValidation, "amount must be positive")
	ErrMalformedPayload = kindError(ErrValidation, "malformed payload")

	// Business rules
	ErrNoActiveSubscription   = kindError(ErrBusinessRule, "no active subscription to cancel")
	ErrRefundExceedsRemaining = kindError(ErrBusinessRule, "refund amount exceeds remaining refundable amount")
	ErrPaymentFullyRefunded   = kindError(ErrBusinessRule, "payment is already fully refunded")
	ErrPaymentNotVerified     = kindError(ErrBusinessRule, "payment is not verified")
	ErrStateReversion         = kindError(ErrBusinessRule, "event would revert a terminal refund state")

	// Store
	ErrVersionConflict    = kindError(ErrStore, "concurrent modification")
	ErrReadDatabaseRow    = kindError(ErrStore, "failed to read database row")
	ErrInvalidExecContext = kindError(ErrStore, "invalid execution context")
	ErrOperationFailed    = kindError(ErrStore, "database operation failed")
	ErrLockNotAcquired    = kindError(ErrStore, "lock is held by another worker")
)

type categorized struct {
	kind error
	msg  string
}

func kindError(kind error, msg string) error { return &categorized{kind: kind, msg: msg} }

func (e *categorized) Error() string        { return e.msg }
func (e *categorized) Is(target error) bool { return target == e.kind }

// Kind returns the category sentinel err belongs to, or nil for uncategorized
// (unexpected) errors.
func Kind(err error) error {
	for _, k := range []error{ErrAuthentication, ErrValidation, ErrBusinessRule, ErrNotFound, ErrIntegration, ErrStore} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
