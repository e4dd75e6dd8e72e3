// README: Parcel service implements the lifecycle state machine and its side effects.
package parcel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"masar/internal/metrics"
	"masar/internal/modules/location"
	"masar/internal/modules/pricing"
	"masar/internal/types"
)

var (
	ErrNotFound        = errors.New("parcel not found")
	ErrInvalidState    = errors.New("invalid state transition")
	ErrNotAvailable    = errors.New("parcel is no longer available")
	ErrForbidden       = errors.New("forbidden")
	ErrPaymentRequired = errors.New("payment required")
	ErrAlreadyRated    = errors.New("parcel already rated")
	ErrNotAccepting    = errors.New("platform is not accepting new shipments")
	ErrConflict        = errors.New("parcel state conflict")
)

const (
	maxTrackingAttempts = 5
	statsWindow         = 7 * 24 * time.Hour
)

// SnapshotSource supplies the pricing configuration for one operation.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (pricing.Snapshot, error)
}

type ServiceDeps struct {
	Store     Store
	Pricing   SnapshotSource
	Notifier  Notifier
	Publisher Publisher
	Geocoder  location.Geocoder
	Logger    *zap.Logger
}

type Service struct {
	store     Store
	pricing   SnapshotSource
	notifier  Notifier
	publisher Publisher
	geocoder  location.Geocoder
	logger    *zap.Logger
}

func NewService(deps ServiceDeps) *Service {
	s := &Service{
		store:     deps.Store,
		pricing:   deps.Pricing,
		notifier:  deps.Notifier,
		publisher: deps.Publisher,
		geocoder:  deps.Geocoder,
		logger:    deps.Logger,
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

type Details struct {
	Description   string
	WeightKg      float64
	Pickup        location.Address
	Delivery      location.Address
	ReceiverName  string
	ReceiverPhone string
}

type CreateCommand struct {
	Actor types.Actor
	Details
}

type UpdateCommand struct {
	Actor    types.Actor
	ParcelID types.ID
	Details
}

type AcceptCommand struct {
	Actor    types.Actor
	ParcelID types.ID
}

type StatusCommand struct {
	Actor    types.Actor
	ParcelID types.ID
	To       Status
}

type CancelCommand struct {
	Actor    types.Actor
	ParcelID types.ID
	Reason   string
}

type RateCommand struct {
	Actor    types.Actor
	ParcelID types.ID
	Score    int
	Comment  string
}

func (d Details) validate() types.FieldErrors {
	fields := types.FieldErrors{}
	if strings.TrimSpace(d.Description) == "" {
		fields.Add("description", "is required")
	}
	if d.WeightKg <= 0 {
		fields.Add("weight", "must be greater than zero")
	}
	if strings.TrimSpace(d.ReceiverName) == "" {
		fields.Add("receiver_name", "is required")
	}
	if strings.TrimSpace(d.ReceiverPhone) == "" {
		fields.Add("receiver_phone", "is required")
	}
	if d.Pickup.Point != nil && !d.Pickup.Point.Valid() {
		fields.Add("pickup", "coordinates out of range")
	}
	if d.Delivery.Point != nil && !d.Delivery.Point.Valid() {
		fields.Add("delivery", "coordinates out of range")
	}
	return fields
}

// price geocodes missing coordinates and computes the breakdown. Both points
// are mandatory for a persisted parcel.
func (s *Service) price(ctx context.Context, snap pricing.Snapshot, d *Details) (Pricing, error) {
	s.geocode(ctx, &d.Pickup)
	s.geocode(ctx, &d.Delivery)

	fields := types.FieldErrors{}
	if d.Pickup.Point == nil {
		fields.Add("pickup", "coordinates are required")
	}
	if d.Delivery.Point == nil {
		fields.Add("delivery", "coordinates are required")
	}
	if err := fields.Err(); err != nil {
		return Pricing{}, err
	}

	b, err := pricing.Quote(snap, pricing.QuoteRequest{
		Pickup:   d.Pickup.Point,
		Delivery: d.Delivery.Point,
		WeightKg: d.WeightKg,
	})
	pricing.ObserveQuote(err)
	if err != nil {
		return Pricing{}, err
	}
	return Pricing{
		DistanceKm:         b.DistanceKm,
		TotalPrice:         b.TotalPrice,
		PlatformFeePercent: b.PlatformFeePercent,
		PlatformFee:        b.PlatformFee,
		DriverAmount:       b.DriverAmount,
	}, nil
}

func (s *Service) geocode(ctx context.Context, a *location.Address) {
	if a.Point != nil || s.geocoder == nil || a.Query() == "" {
		return
	}
	pt, err := s.geocoder.Geocode(ctx, a.Query())
	if err != nil {
		s.logger.Info("geocoding failed", zap.String("address", a.Query()), zap.Error(err))
		return
	}
	a.Point = pt
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Parcel, error) {
	if cmd.Actor.Role != types.RoleShipper {
		return nil, ErrForbidden
	}
	if err := cmd.validate().Err(); err != nil {
		return nil, err
	}
	snap, err := s.pricing.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if !snap.Settings.AcceptingShipments {
		return nil, ErrNotAccepting
	}
	details := cmd.Details
	pr, err := s.price(ctx, snap, &details)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := &Parcel{
		ID:            types.NewID(),
		ShipperID:     cmd.Actor.ID,
		Description:   strings.TrimSpace(details.Description),
		WeightKg:      details.WeightKg,
		Pickup:        details.Pickup,
		Delivery:      details.Delivery,
		ReceiverName:  strings.TrimSpace(details.ReceiverName),
		ReceiverPhone: strings.TrimSpace(details.ReceiverPhone),
		Status:        StatusPending,
		PaymentStatus: PaymentPending,
		Pricing:       pr,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.insertWithTracking(ctx, p); err != nil {
		return nil, err
	}
	s.record(ctx, p.ID, EventKindStatus, string(StatusNone), string(StatusPending), cmd.Actor)
	s.logger.Info("parcel created",
		zap.String("tracking_number", p.TrackingNumber),
		zap.String("price", p.Pricing.TotalPrice.String()),
		zap.Float64("distance_km", p.Pricing.DistanceKm))

	s.notifier.ShipmentCreated(ctx, p)
	s.publish(ctx, TopicCreated, p)
	return p, nil
}

func (s *Service) insertWithTracking(ctx context.Context, p *Parcel) error {
	for attempt := 0; attempt < maxTrackingAttempts; attempt++ {
		p.TrackingNumber = NewTrackingNumber()
		err := s.store.Create(ctx, p)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrDuplicateTracking) {
			return err
		}
	}
	return fmt.Errorf("allocate tracking number: %w", ErrDuplicateTracking)
}

// NewTrackingNumber returns ten upper-case hex characters from a random UUID.
func NewTrackingNumber() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:10]
}

// UpdateDetails lets the shipper edit a pending, unpaid parcel. The price is
// recomputed from the edited details.
func (s *Service) UpdateDetails(ctx context.Context, cmd UpdateCommand) (*Parcel, error) {
	p, err := s.store.Get(ctx, cmd.ParcelID)
	if err != nil {
		return nil, err
	}
	if !p.OwnedBy(cmd.Actor.ID) {
		return nil, ErrNotFound
	}
	if !p.Repriceable() {
		return nil, ErrInvalidState
	}
	if err := cmd.validate().Err(); err != nil {
		return nil, err
	}
	snap, err := s.pricing.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	details := cmd.Details
	pr, err := s.price(ctx, snap, &details)
	if err != nil {
		return nil, err
	}

	next := *p
	next.Description = strings.TrimSpace(details.Description)
	next.WeightKg = details.WeightKg
	next.Pickup = details.Pickup
	next.Delivery = details.Delivery
	next.ReceiverName = strings.TrimSpace(details.ReceiverName)
	next.ReceiverPhone = strings.TrimSpace(details.ReceiverPhone)
	next.Pricing = pr
	// An open checkout was created for the old total; it can no longer settle this parcel.
	dropped := next.PaymentSessionID != nil && pr.TotalPrice.Amount != p.Pricing.TotalPrice.Amount
	if dropped {
		next.PaymentSessionID = nil
	}
	ok, err := s.store.UpdateDetails(ctx, &next, p.StatusVersion)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	if dropped {
		s.logger.Info("checkout session dropped after reprice",
			zap.String("tracking_number", p.TrackingNumber),
			zap.String("old_price", p.Pricing.TotalPrice.String()),
			zap.String("new_price", pr.TotalPrice.String()))
	}
	return s.store.Get(ctx, p.ID)
}

// Get returns a parcel if the actor may see it. Invisible parcels are
// reported as not found.
func (s *Service) Get(ctx context.Context, actor types.Actor, id types.ID) (*Parcel, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch actor.Role {
	case types.RoleAdmin:
		return p, nil
	case types.RoleShipper:
		if p.OwnedBy(actor.ID) {
			return p, nil
		}
	case types.RoleDriver:
		if p.CarriedBy(actor.ID) {
			return p, nil
		}
		snap, err := s.pricing.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		if p.Available(snap.Settings.PaymentsEnabled) {
			return p, nil
		}
	}
	return nil, ErrNotFound
}

func (s *Service) Track(ctx context.Context, tracking string) (PublicView, error) {
	p, err := s.store.GetByTracking(ctx, strings.ToUpper(strings.TrimSpace(tracking)))
	if err != nil {
		return PublicView{}, err
	}
	return p.Public(), nil
}

// List is role scoped: shippers see their own parcels, drivers see what they
// may accept plus what they carry, administrators see everything.
func (s *Service) List(ctx context.Context, actor types.Actor, filter ListFilter, page Page) ([]*Parcel, error) {
	switch actor.Role {
	case types.RoleShipper:
		return s.store.ListByShipper(ctx, actor.ID, page)
	case types.RoleDriver:
		snap, err := s.pricing.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		return s.store.ListForDriver(ctx, actor.ID, snap.Settings.PaymentsEnabled, page)
	case types.RoleAdmin:
		return s.store.ListAll(ctx, filter, page)
	}
	return nil, ErrForbidden
}

// Accept assigns the parcel to the first driver to act. Losing callers get
// ErrNotAvailable and the winner's assignment stands.
func (s *Service) Accept(ctx context.Context, cmd AcceptCommand) (*Parcel, error) {
	if cmd.Actor.Role != types.RoleDriver {
		return nil, ErrForbidden
	}
	p, err := s.store.Get(ctx, cmd.ParcelID)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusPending || p.CarrierID != nil {
		return nil, ErrNotAvailable
	}
	snap, err := s.pricing.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	requirePaid := snap.Settings.PaymentsEnabled
	if requirePaid && p.PaymentStatus != PaymentPaid {
		return nil, ErrPaymentRequired
	}
	ok, err := s.store.Accept(ctx, p.ID, cmd.Actor.ID, requirePaid)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAvailable
	}
	p, err = s.store.Get(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	s.record(ctx, p.ID, EventKindStatus, string(StatusPending), string(StatusPickedUp), cmd.Actor)
	s.logger.Info("parcel accepted",
		zap.String("tracking_number", p.TrackingNumber),
		zap.String("driver_id", string(cmd.Actor.ID)))

	s.notifier.DriverAssigned(ctx, p)
	s.publish(ctx, TopicPickedUp, p)
	return p, nil
}

// UpdateStatus moves an accepted parcel forward. Only the carrier may do it.
func (s *Service) UpdateStatus(ctx context.Context, cmd StatusCommand) (*Parcel, error) {
	if cmd.To != StatusInTransit && cmd.To != StatusDelivered {
		return nil, ErrInvalidState
	}
	p, err := s.store.Get(ctx, cmd.ParcelID)
	if err != nil {
		return nil, err
	}
	if cmd.Actor.Role != types.RoleDriver || !p.CarriedBy(cmd.Actor.ID) {
		return nil, ErrForbidden
	}
	if !CanTransition(p.Status, cmd.To) {
		return nil, ErrInvalidState
	}
	ok, err := s.store.UpdateStatus(ctx, p.ID, p.Status, cmd.To, p.StatusVersion, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	from := p.Status
	p, err = s.store.Get(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	s.record(ctx, p.ID, EventKindStatus, string(from), string(cmd.To), cmd.Actor)

	s.notifier.StatusChanged(ctx, p)
	s.publish(ctx, topicFor(cmd.To), p)
	return p, nil
}

func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (*Parcel, error) {
	p, err := s.store.Get(ctx, cmd.ParcelID)
	if err != nil {
		return nil, err
	}
	switch cmd.Actor.Role {
	case types.RoleAdmin:
	case types.RoleShipper:
		if !p.OwnedBy(cmd.Actor.ID) {
			return nil, ErrNotFound
		}
	default:
		return nil, ErrForbidden
	}
	if !CanTransition(p.Status, StatusCancelled) {
		return nil, ErrInvalidState
	}
	var reason *string
	if r := strings.TrimSpace(cmd.Reason); r != "" {
		reason = &r
	}
	ok, err := s.store.UpdateStatus(ctx, p.ID, p.Status, StatusCancelled, p.StatusVersion, reason)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	from := p.Status
	p, err = s.store.Get(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	s.record(ctx, p.ID, EventKindStatus, string(from), string(StatusCancelled), cmd.Actor)

	s.notifier.Cancelled(ctx, p)
	s.publish(ctx, TopicCancelled, p)
	return p, nil
}

// Rate attaches the single rating a delivered parcel may carry.
func (s *Service) Rate(ctx context.Context, cmd RateCommand) (*Rating, error) {
	if cmd.Actor.Role != types.RoleShipper {
		return nil, ErrForbidden
	}
	p, err := s.store.Get(ctx, cmd.ParcelID)
	if err != nil {
		return nil, err
	}
	if !p.OwnedBy(cmd.Actor.ID) {
		return nil, ErrNotFound
	}
	if p.Status != StatusDelivered {
		return nil, ErrInvalidState
	}
	if cmd.Score < 1 || cmd.Score > 5 {
		return nil, types.FieldErrors{"score": "must be between 1 and 5"}
	}
	r := &Rating{
		ParcelID:  p.ID,
		ShipperID: cmd.Actor.ID,
		Score:     cmd.Score,
		Comment:   strings.TrimSpace(cmd.Comment),
		CreatedAt: time.Now().UTC(),
	}
	ok, err := s.store.CreateRating(ctx, r)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadyRated
	}
	return r, nil
}

func (s *Service) Rating(ctx context.Context, actor types.Actor, id types.ID) (*Rating, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.store.GetRating(ctx, id)
}

func (s *Service) Stats(ctx context.Context, actor types.Actor) (Stats, error) {
	if actor.Role != types.RoleAdmin {
		return Stats{}, ErrForbidden
	}
	since := time.Now().UTC().Add(-statsWindow).Truncate(24 * time.Hour)
	return s.store.Stats(ctx, since)
}

func (s *Service) record(ctx context.Context, id types.ID, kind, from, to string, actor types.Actor) {
	metrics.ParcelTransitions.WithLabelValues(to).Inc()
	var actorID *types.ID
	if actor.ID != "" {
		a := actor.ID
		actorID = &a
	}
	err := s.store.AppendEvent(ctx, &Event{
		ParcelID:  id,
		Kind:      kind,
		From:      from,
		To:        to,
		ActorRole: string(actor.Role),
		ActorID:   actorID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn("append parcel event failed", zap.String("parcel_id", string(id)), zap.Error(err))
	}
}
