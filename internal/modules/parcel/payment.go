package parcel

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"masar/internal/types"
)

var systemActor = types.Actor{Role: "system"}

// BeginPayment checks that the shipper may pay for the parcel now.
func (s *Service) BeginPayment(ctx context.Context, actor types.Actor, id types.ID) (*Parcel, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != types.RoleShipper || !p.OwnedBy(actor.ID) {
		return nil, ErrNotFound
	}
	if p.Status != StatusPending || p.PaymentStatus == PaymentPaid {
		return nil, ErrInvalidState
	}
	return p, nil
}

// AttachPaymentSession stores the gateway session and reopens a failed payment.
func (s *Service) AttachPaymentSession(ctx context.Context, id types.ID, sessionID string) error {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if p.PaymentStatus == PaymentPaid {
		return ErrInvalidState
	}
	ok, err := s.store.UpdatePayment(ctx, id, p.PaymentStatus, PaymentPending, &sessionID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	if p.PaymentStatus != PaymentPending {
		s.record(ctx, id, EventKindPayment, string(p.PaymentStatus), string(PaymentPending), systemActor)
	}
	return nil
}

// ConfirmPayment marks the parcel paid after the gateway confirmed it.
// Confirming an already paid parcel is a no-op. A parcel that left pending
// (cancelled while checkout was open) is recorded as paid without
// notifications.
func (s *Service) ConfirmPayment(ctx context.Context, id types.ID) (*Parcel, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.PaymentStatus == PaymentPaid {
		return p, nil
	}
	if !CanTransitionPayment(p.PaymentStatus, PaymentPaid) {
		return nil, ErrInvalidState
	}
	ok, err := s.store.UpdatePayment(ctx, id, p.PaymentStatus, PaymentPaid, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		// A concurrent confirmation won; report the stored state.
		return s.store.Get(ctx, id)
	}
	from := p.PaymentStatus
	p, err = s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.record(ctx, id, EventKindPayment, string(from), string(PaymentPaid), systemActor)
	if p.Status != StatusPending {
		// Keep the payment but do not announce a closed shipment.
		s.logger.Warn("payment received for parcel that is no longer pending, refund required",
			zap.String("tracking_number", p.TrackingNumber),
			zap.String("status", string(p.Status)),
			zap.String("amount", p.Pricing.TotalPrice.String()))
		return p, nil
	}
	s.logger.Info("parcel paid",
		zap.String("tracking_number", p.TrackingNumber),
		zap.String("amount", p.Pricing.TotalPrice.String()))

	s.notifier.PaymentReceived(ctx, p)
	s.publish(ctx, TopicPaid, p)
	return p, nil
}

// FailPayment records a cancelled or rejected checkout. A paid parcel is left
// untouched.
func (s *Service) FailPayment(ctx context.Context, id types.ID) (*Parcel, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.PaymentStatus != PaymentPending {
		return p, nil
	}
	ok, err := s.store.UpdatePayment(ctx, id, PaymentPending, PaymentFailed, nil)
	if err != nil {
		return nil, err
	}
	if ok {
		s.record(ctx, id, EventKindPayment, string(PaymentPending), string(PaymentFailed), systemActor)
	}
	return s.store.Get(ctx, id)
}

func (s *Service) GetBySession(ctx context.Context, sessionID string) (*Parcel, error) {
	return s.store.GetBySession(ctx, sessionID)
}

// GetByTracking is the system-side lookup used by gateway return handlers.
func (s *Service) GetByTracking(ctx context.Context, tracking string) (*Parcel, error) {
	return s.store.GetByTracking(ctx, strings.ToUpper(strings.TrimSpace(tracking)))
}
