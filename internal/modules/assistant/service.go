// README: Shipping assistant chat backed by an LLM, metered by a monthly per-user quota.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"masar/internal/modules/parcel"
)

const chatTimeout = 10 * time.Second

// Tracker looks up the public view of a parcel.
type Tracker interface {
	Track(ctx context.Context, tracking string) (parcel.PublicView, error)
}

type ServiceDeps struct {
	Quota   Quota
	Model   Model
	Tracker Tracker
	Logger  *zap.Logger
}

type Service struct {
	quota   Quota
	model   Model
	tracker Tracker
	logger  *zap.Logger
}

func NewService(deps ServiceDeps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{quota: deps.Quota, model: deps.Model, tracker: deps.Tracker, logger: logger}
}

// UseToken deducts one token from the user's monthly allowance.
// If the user row does not exist yet it is initialised and the token is immediately consumed.
func (s *Service) UseToken(ctx context.Context, uid string) error {
	err := s.quota.UseToken(ctx, uid)
	if !errors.Is(err, ErrInsufficientTokens) {
		return err
	}

	// Row may be missing: try to create it, then retry the deduction once.
	if initErr := s.quota.EnsureUser(ctx, uid); initErr != nil {
		return initErr
	}
	return s.quota.UseToken(ctx, uid)
}

// Chat answers one message. A token is consumed before the model is called.
func (s *Service) Chat(ctx context.Context, cmd ChatCommand) (Reply, error) {
	msg := strings.TrimSpace(cmd.Message)
	if msg == "" {
		return Reply{}, ErrEmptyMessage
	}
	if len([]rune(msg)) > maxMessageLen {
		msg = string([]rune(msg)[:maxMessageLen])
	}
	if s.model == nil {
		return Reply{}, ErrUnavailable
	}
	if err := s.UseToken(ctx, cmd.UID); err != nil {
		return Reply{}, err
	}

	system := systemPrompt(cmd.Language, s.trackingContext(ctx, cmd.TrackingNumber))

	ctx, cancel := context.WithTimeout(ctx, chatTimeout)
	defer cancel()
	text, err := s.model.Generate(ctx, system, msg)
	if err != nil {
		s.logger.Warn("assistant generation failed", zap.String("uid", cmd.UID), zap.Error(err))
		return Reply{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return Reply{Text: strings.TrimSpace(text)}, nil
}

func (s *Service) trackingContext(ctx context.Context, tracking string) string {
	tracking = strings.TrimSpace(tracking)
	if tracking == "" || s.tracker == nil {
		return ""
	}
	v, err := s.tracker.Track(ctx, tracking)
	if err != nil {
		return fmt.Sprintf("The user asked about tracking number %s, which was not found.", strings.ToUpper(tracking))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Shipment %s: status %s, from %s to %s, created %s.",
		v.TrackingNumber, v.Status, v.From, v.To, v.CreatedAt.Format(time.RFC3339))
	if v.PickedUpAt != nil {
		fmt.Fprintf(&b, " Picked up %s.", v.PickedUpAt.Format(time.RFC3339))
	}
	if v.DeliveredAt != nil {
		fmt.Fprintf(&b, " Delivered %s.", v.DeliveredAt.Format(time.RFC3339))
	}
	return b.String()
}

func systemPrompt(lang, shipment string) string {
	reply := "English"
	if lang == "ar" {
		reply = "Arabic"
	}
	if shipment == "" {
		shipment = "NONE"
	}
	return fmt.Sprintf(`Role: You are the customer assistant for "Masar Express", a parcel delivery marketplace in Oman.
Shippers post parcels, pay online, and independent drivers accept and deliver them.
Prices are in Omani Rial (OMR) and depend on distance and weight bands set by the platform.
Shipment statuses: pending, picked_up, in_transit, delivered, cancelled.

Shipment context: %s

Rules:
- Answer in %s, briefly and politely.
- Never invent prices, tracking numbers or delivery times that are not in the context.
- For payment or account problems, direct the user to the contact form.`, shipment, reply)
}
