package settlement

import "errors"

var (
	// ErrPaymentNotFound is returned when a referenced payment does not exist.
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrSubscriptionNotFound is returned when a payment references an
	// unknown subscription.
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrRecipientNotFound is returned when an earnings or admin operation
	// references an unknown user.
	ErrRecipientNotFound = errors.New("recipient not found")

	// ErrInvalidStatus is returned when a caller supplies a status outside
	// the closed payment status set.
	ErrInvalidStatus = errors.New("invalid payment status")

	// ErrInvalidAmount is returned when a caller supplies a negative amount.
	ErrInvalidAmount = errors.New("payment amount must be non-negative")

	// ErrNoEligibleRecipients is returned when settlement runs against an
	// empty eligible set. The payment stays unsettled and can be retried
	// once eligibility data changes.
	ErrNoEligibleRecipients = errors.New("no eligible recipients for payment split")

	// ErrNotSettleable is returned when settlement is requested for a
	// payment whose status is not succeeded.
	ErrNotSettleable = errors.New("payment status does not allow settlement")

	// ErrSplitMismatch signals that computed split amounts do not sum to
	// the payment amount. It cannot occur with a correct calculator; when
	// detected the settlement aborts before anything is written.
	ErrSplitMismatch = errors.New("split amounts do not sum to payment amount")

	// ErrUnsupportedEvent is returned for webhook event types the engine
	// does not consume.
	ErrUnsupportedEvent = errors.New("unsupported webhook event type")
)
