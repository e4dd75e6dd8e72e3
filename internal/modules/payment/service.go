package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"masar/internal/modules/parcel"
	"masar/internal/modules/pricing"
	"masar/internal/modules/profile"
	"masar/internal/types"
)

// Parcels is the lifecycle surface payment settlement drives.
type Parcels interface {
	BeginPayment(ctx context.Context, actor types.Actor, id types.ID) (*parcel.Parcel, error)
	AttachPaymentSession(ctx context.Context, id types.ID, sessionID string) error
	ConfirmPayment(ctx context.Context, id types.ID) (*parcel.Parcel, error)
	FailPayment(ctx context.Context, id types.ID) (*parcel.Parcel, error)
	GetBySession(ctx context.Context, sessionID string) (*parcel.Parcel, error)
	GetByTracking(ctx context.Context, tracking string) (*parcel.Parcel, error)
}

type SettingsReader interface {
	Settings(ctx context.Context) (pricing.Settings, error)
}

type Contacts interface {
	Contact(ctx context.Context, uid types.ID) (profile.Contact, error)
}

type ServiceDeps struct {
	Parcels       Parcels
	Gateway       Gateway
	Settings      SettingsReader
	Contacts      Contacts
	SuccessURL    string
	CancelURL     string
	WebhookSecret string
	Logger        *zap.Logger
}

type Service struct {
	parcels       Parcels
	gateway       Gateway
	settings      SettingsReader
	contacts      Contacts
	successURL    string
	cancelURL     string
	webhookSecret string
	logger        *zap.Logger
}

func NewService(deps ServiceDeps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		parcels:       deps.Parcels,
		gateway:       deps.Gateway,
		settings:      deps.Settings,
		contacts:      deps.Contacts,
		successURL:    deps.SuccessURL,
		cancelURL:     deps.CancelURL,
		webhookSecret: deps.WebhookSecret,
		logger:        logger,
	}
}

type Checkout struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
}

// Initiate opens a checkout session for the shipper's unpaid parcel.
func (s *Service) Initiate(ctx context.Context, actor types.Actor, id types.ID) (Checkout, error) {
	if s.settings != nil {
		st, err := s.settings.Settings(ctx)
		if err != nil {
			return Checkout{}, err
		}
		if !st.PaymentsEnabled {
			return Checkout{}, ErrPaymentsDisabled
		}
	}
	p, err := s.parcels.BeginPayment(ctx, actor, id)
	if err != nil {
		return Checkout{}, err
	}

	meta := map[string]string{"parcel_id": string(p.ID)}
	if s.contacts != nil {
		if c, err := s.contacts.Contact(ctx, p.ShipperID); err == nil {
			meta["customer_name"] = c.Name
			meta["customer_phone"] = c.Phone
		}
	}
	sess, err := s.gateway.CreateSession(ctx, SessionRequest{
		Reference:   p.TrackingNumber,
		ProductName: "Shipping for Parcel " + p.TrackingNumber,
		Amount:      p.Pricing.TotalPrice,
		SuccessURL:  withTracking(s.successURL, p.TrackingNumber),
		CancelURL:   withTracking(s.cancelURL, p.TrackingNumber),
		Metadata:    meta,
	})
	if err != nil {
		s.logger.Error("create checkout session failed", zap.String("tracking_number", p.TrackingNumber), zap.Error(err))
		return Checkout{}, err
	}
	if err := s.parcels.AttachPaymentSession(ctx, p.ID, sess.ID); err != nil {
		return Checkout{}, err
	}
	s.logger.Info("checkout session created",
		zap.String("tracking_number", p.TrackingNumber),
		zap.String("session_id", sess.ID))
	return Checkout{SessionID: sess.ID, RedirectURL: s.gateway.CheckoutURL(sess.ID)}, nil
}

// The gateway does not echo the session id on redirect, so return URLs carry
// the tracking number instead.
func withTracking(raw, tracking string) string {
	u, err := url.Parse(raw)
	if err != nil || raw == "" {
		return raw
	}
	q := u.Query()
	q.Set("tracking_number", tracking)
	u.RawQuery = q.Encode()
	return u.String()
}

// Return settles a parcel after the payer is redirected back. Either the
// session id or the tracking number identifies it.
func (s *Service) Return(ctx context.Context, sessionID, tracking string) (*parcel.Parcel, error) {
	if sessionID != "" {
		return s.Settle(ctx, sessionID)
	}
	if tracking == "" {
		return nil, ErrSessionNotFound
	}
	p, err := s.parcels.GetByTracking(ctx, tracking)
	if errors.Is(err, parcel.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if p.PaymentSessionID == nil {
		return nil, ErrSessionNotFound
	}
	return s.settle(ctx, p, *p.PaymentSessionID)
}

// Settle re-queries the gateway for sessionID and applies the result to the
// parcel: paid confirms, cancelled fails, anything else leaves it unchanged.
func (s *Service) Settle(ctx context.Context, sessionID string) (*parcel.Parcel, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}
	p, err := s.parcels.GetBySession(ctx, sessionID)
	if errors.Is(err, parcel.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.settle(ctx, p, sessionID)
}

func (s *Service) settle(ctx context.Context, p *parcel.Parcel, sessionID string) (*parcel.Parcel, error) {
	sess, err := s.gateway.GetSession(ctx, sessionID)
	if err != nil {
		s.logger.Error("checkout session lookup failed",
			zap.String("tracking_number", p.TrackingNumber),
			zap.String("session_id", sessionID),
			zap.Error(err))
		return nil, err
	}
	switch sess.PaymentStatus {
	case SessionPaid:
		if sess.Amount.Amount != p.Pricing.TotalPrice.Amount {
			s.logger.Error("charged amount does not match parcel price",
				zap.String("tracking_number", p.TrackingNumber),
				zap.String("session_id", sessionID),
				zap.String("charged", sess.Amount.String()),
				zap.String("price", p.Pricing.TotalPrice.String()))
			return nil, ErrAmountMismatch
		}
		return s.parcels.ConfirmPayment(ctx, p.ID)
	case SessionCancelled:
		return s.parcels.FailPayment(ctx, p.ID)
	default:
		return p, nil
	}
}

type webhookPayload struct {
	SessionID string `json:"session_id"`
	Data      struct {
		SessionID string `json:"session_id"`
	} `json:"data"`
}

// Webhook verifies the signature over body and settles the referenced session.
func (s *Service) Webhook(ctx context.Context, body []byte, signature string) (*parcel.Parcel, error) {
	if !VerifyHMAC(s.webhookSecret, body, signature) {
		return nil, ErrInvalidSignature
	}
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", types.FieldErrors{"body": "malformed json"}, err)
	}
	id := payload.Data.SessionID
	if id == "" {
		id = payload.SessionID
	}
	return s.Settle(ctx, id)
}
