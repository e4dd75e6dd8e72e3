package parcel

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"masar/internal/types"
)

// Notifier receives lifecycle side effects. Implementations own their error
// handling; a failed notification never fails the transition.
type Notifier interface {
	ShipmentCreated(ctx context.Context, p *Parcel)
	PaymentReceived(ctx context.Context, p *Parcel)
	DriverAssigned(ctx context.Context, p *Parcel)
	StatusChanged(ctx context.Context, p *Parcel)
	Cancelled(ctx context.Context, p *Parcel)
}

// Publisher sends lifecycle events to the event bus.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

const publishTimeout = 3 * time.Second

const (
	TopicCreated   = "parcel.created"
	TopicPaid      = "parcel.paid"
	TopicPickedUp  = "parcel.picked_up"
	TopicInTransit = "parcel.in_transit"
	TopicDelivered = "parcel.delivered"
	TopicCancelled = "parcel.cancelled"
)

func topicFor(s Status) string {
	switch s {
	case StatusPickedUp:
		return TopicPickedUp
	case StatusInTransit:
		return TopicInTransit
	case StatusDelivered:
		return TopicDelivered
	case StatusCancelled:
		return TopicCancelled
	default:
		return TopicCreated
	}
}

type LifecycleEvent struct {
	Type           string        `json:"type"`
	ParcelID       types.ID      `json:"parcel_id"`
	TrackingNumber string        `json:"tracking_number"`
	Status         Status        `json:"status"`
	PaymentStatus  PaymentStatus `json:"payment_status"`
	CarrierID      *types.ID     `json:"carrier_id,omitempty"`
	OccurredAt     time.Time     `json:"occurred_at"`
}

func (s *Service) publish(ctx context.Context, topic string, p *Parcel) {
	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(LifecycleEvent{
		Type:           topic,
		ParcelID:       p.ID,
		TrackingNumber: p.TrackingNumber,
		Status:         p.Status,
		PaymentStatus:  p.PaymentStatus,
		CarrierID:      p.CarrierID,
		OccurredAt:     time.Now().UTC(),
	})
	if err != nil {
		s.logger.Error("encode lifecycle event", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(ctx, topic, payload); err != nil {
		s.logger.Warn("publish lifecycle event failed",
			zap.String("topic", topic),
			zap.String("tracking_number", p.TrackingNumber),
			zap.Error(err))
	}
}

type nopNotifier struct{}

func (nopNotifier) ShipmentCreated(context.Context, *Parcel) {}
func (nopNotifier) PaymentReceived(context.Context, *Parcel) {}
func (nopNotifier) DriverAssigned(context.Context, *Parcel)  {}
func (nopNotifier) StatusChanged(context.Context, *Parcel)   {}
func (nopNotifier) Cancelled(context.Context, *Parcel)       {}
