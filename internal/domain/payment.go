package domain

import "time"

// Payment is one checkout attempt for pay_to_view results access. A
// (poll, client hash) pair may accumulate several attempts; access needs
// at least one with Paid set. RevealToken is a capability credential:
// presenting it grants access independent of the identity hash.
type Payment struct {
	ID                int64      `json:"id"`
	PollID            int64      `json:"poll_id"`
	ClientHash        string     `json:"client_hash"`
	CheckoutSessionID string     `json:"checkout_session_id"`
	PaymentIntentID   string     `json:"payment_intent_id,omitempty"`
	RevealToken       string     `json:"reveal_token"`
	Amount            int64      `json:"amount"`
	Paid              bool       `json:"paid"`
	PaidAt            *time.Time `json:"paid_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// CheckoutResponse carries the provider redirect URL
type CheckoutResponse struct {
	URL string `json:"url"`
}

// PaymentStatusResponse reports whether the caller's identity has a paid
// payment for the poll, and if so the reveal token to carry across
// devices.
type PaymentStatusResponse struct {
	Paid        bool   `json:"paid"`
	RevealToken string `json:"reveal_token,omitempty"`
}
