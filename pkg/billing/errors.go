package billing

import "errors"

var (
	// ErrInvalidSignature means the payload could not be authenticated.
	// Nothing is mutated and the sender gets a 4xx.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrMalformedPayload means a recognized event type carried JSON we
	// could not decode. 4xx, no redelivery storm.
	ErrMalformedPayload = errors.New("malformed event payload")
)

// Everything else returned from Handle is a store/transport failure and is
// treated as retryable: the controller answers 5xx so Stripe redelivers,
// which is safe because every handler is idempotent.
