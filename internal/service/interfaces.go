package service

import "context"

// CheckoutSessionParams describes the hosted checkout to create
type CheckoutSessionParams struct {
	Amount     int64
	PollTitle  string
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

// CheckoutSession is the provider's handle on a created checkout
type CheckoutSession struct {
	ID  string
	URL string
}

// CheckoutCompletedEvent is a verified payment confirmation
type CheckoutCompletedEvent struct {
	SessionID       string
	PaymentIntentID string
	Metadata        map[string]string
}

// PaymentProvider abstracts the external payment provider so services and
// tests never touch the SDK directly.
type PaymentProvider interface {
	// CreateCheckoutSession creates a hosted checkout and returns its
	// id and redirect URL
	CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (*CheckoutSession, error)

	// VerifyWebhook checks the event signature against the shared
	// secret and parses the payload. Returns nil (and no error) for
	// event types this service does not consume.
	VerifyWebhook(payload []byte, signature string) (*CheckoutCompletedEvent, error)
}
