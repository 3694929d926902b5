package payment

import (
	"context"

	"github.com/google/uuid"
)

// CheckoutSession is the external checkout the buyer is redirected to.
// The order id travels in the session metadata and comes back on the
// webhook, which is the only inbound call this core accepts.
type CheckoutSession struct {
	SessionID string
	URL       string
}

// Gateway abstracts the payment collaborator. The core never learns
// card details; it hands over an order id and a total and waits for the
// asynchronous confirmation.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, orderID uuid.UUID, amountCents int64, customerEmail string) (*CheckoutSession, error)
	VerifySignature(header string, payload []byte) error
}
