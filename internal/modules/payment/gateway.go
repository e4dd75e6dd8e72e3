// README: Payment gateway contract and the checkout-session settlement flow.
package payment

import (
	"context"
	"errors"

	"masar/internal/types"
)

var (
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrSessionNotFound    = errors.New("payment session not found")
	ErrInvalidSignature   = errors.New("invalid webhook signature")
	ErrPaymentsDisabled   = errors.New("online payments are disabled")
	// ErrAmountMismatch means the gateway charged a different amount than the
	// parcel's current price.
	ErrAmountMismatch = errors.New("charged amount does not match parcel price")
)

// Gateway-reported session states.
const (
	SessionPaid      = "paid"
	SessionUnpaid    = "unpaid"
	SessionCancelled = "cancelled"
)

type SessionRequest struct {
	Reference   string
	ProductName string
	Amount      types.Money
	SuccessURL  string
	CancelURL   string
	Metadata    map[string]string
}

type Session struct {
	ID            string
	Reference     string
	PaymentStatus string
	// Amount is the total the session charges.
	Amount types.Money
}

// Gateway is a hosted-checkout payment provider.
type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (Session, error)
	GetSession(ctx context.Context, id string) (Session, error)
	// CheckoutURL is where the payer is redirected to complete the session.
	CheckoutURL(sessionID string) string
}
