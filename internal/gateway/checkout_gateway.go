package gateway

import (
	"context"
	"errors"
)

// Gateway event kinds the checkout flow reacts to. Every other kind is
// acknowledged and ignored.
const (
	EventCheckoutCompleted     = "checkout.session.completed"
	EventAsyncPaymentFailed    = "checkout.session.async_payment_failed"
	EventCheckoutSessionExpire = "checkout.session.expired"
)

// Session payment / lifecycle statuses as reported by the gateway.
const (
	PaymentStatusPaid   = "paid"
	PaymentStatusUnpaid = "unpaid"

	SessionStatusOpen     = "open"
	SessionStatusComplete = "complete"
	SessionStatusExpired  = "expired"
)

var (
	// ErrNotConfigured means the gateway credentials or webhook secret are
	// missing. Callers fail closed: nothing is mutated.
	ErrNotConfigured = errors.New("payment gateway is not configured")
	// ErrMissingSignature means the webhook request carried no signature header.
	ErrMissingSignature = errors.New("webhook signature header missing")
	// ErrInvalidSignature means webhook authentication failed.
	ErrInvalidSignature = errors.New("webhook signature verification failed")
)

// LineItem is one chargeable row of a checkout session. UnitAmount is in
// minor units; the gateway never sees floating point money.
type LineItem struct {
	Name       string
	UnitAmount int64
	Quantity   int64
	Image      string
	Metadata   map[string]string
}

// SessionParams describes a create-checkout-session request.
type SessionParams struct {
	LineItems         []LineItem
	SuccessURL        string
	CancelURL         string
	ClientReferenceID string
	CustomerEmail     string
	Metadata          map[string]string
}

// CheckoutSession is the gateway's view of one payment-collection attempt.
type CheckoutSession struct {
	ID                string            `json:"id"`
	URL               string            `json:"url"`
	PaymentStatus     string            `json:"payment_status"`
	Status            string            `json:"status"`
	ClientReferenceID string            `json:"client_reference_id"`
	Metadata          map[string]string `json:"metadata"`
}

// Event is a verified webhook notification.
type Event struct {
	Type    string
	Session CheckoutSession
}

// Gateway abstracts the external payment provider. It is constructed once
// from validated configuration; an unconfigured gateway is an explicit error
// state, not a nil handle probed at call sites.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, params SessionParams) (*CheckoutSession, error)
	RetrieveSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
	VerifyEvent(payload []byte, sigHeader string) (*Event, error)
}
