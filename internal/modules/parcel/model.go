// README: Parcel aggregate, status definitions and the lifecycle transition table.
package parcel

import (
	"time"

	"masar/internal/modules/location"
	"masar/internal/types"
)

type Status string

const (
	StatusNone      Status = "none"
	StatusPending   Status = "pending"
	StatusPickedUp  Status = "picked_up"
	StatusInTransit Status = "in_transit"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

type Parcel struct {
	ID               types.ID         `json:"id"`
	TrackingNumber   string           `json:"tracking_number"`
	ShipperID        types.ID         `json:"shipper_id"`
	CarrierID        *types.ID        `json:"carrier_id,omitempty"`
	Description      string           `json:"description"`
	WeightKg         float64          `json:"weight_kg"`
	Pickup           location.Address `json:"pickup"`
	Delivery         location.Address `json:"delivery"`
	ReceiverName     string           `json:"receiver_name"`
	ReceiverPhone    string           `json:"receiver_phone"`
	Status           Status           `json:"status"`
	PaymentStatus    PaymentStatus    `json:"payment_status"`
	PaymentSessionID *string          `json:"-"`
	Pricing          Pricing          `json:"pricing"`
	StatusVersion    int              `json:"-"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	PickedUpAt       *time.Time       `json:"picked_up_at,omitempty"`
	DeliveredAt      *time.Time       `json:"delivered_at,omitempty"`
	CancelledAt      *time.Time       `json:"cancelled_at,omitempty"`
	CancelReason     *string          `json:"cancel_reason,omitempty"`
}

// Pricing is the breakdown persisted with the parcel at creation or while
// it is still pending.
type Pricing struct {
	DistanceKm         float64       `json:"distance_km"`
	TotalPrice         types.Money   `json:"price"`
	PlatformFeePercent types.Percent `json:"platform_fee_percentage"`
	PlatformFee        types.Money   `json:"platform_fee"`
	DriverAmount       types.Money   `json:"driver_amount"`
}

func (p *Parcel) OwnedBy(id types.ID) bool {
	return p.ShipperID == id
}

func (p *Parcel) CarriedBy(id types.ID) bool {
	return p.CarrierID != nil && *p.CarrierID == id
}

// Available reports whether a driver may see and accept the parcel.
func (p *Parcel) Available(requirePaid bool) bool {
	if p.Status != StatusPending || p.CarrierID != nil {
		return false
	}
	return !requirePaid || p.PaymentStatus == PaymentPaid
}

// Repriceable reports whether details and price may still change.
func (p *Parcel) Repriceable() bool {
	return p.Status == StatusPending && p.PaymentStatus != PaymentPaid
}

type Rating struct {
	ParcelID  types.ID  `json:"parcel_id"`
	ShipperID types.ID  `json:"shipper_id"`
	Score     int       `json:"score"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	EventKindStatus  = "status"
	EventKindPayment = "payment"
)

// Event is one row of the parcel transition log.
type Event struct {
	ID        int64
	ParcelID  types.ID
	Kind      string
	From      string
	To        string
	ActorRole string
	ActorID   *types.ID
	CreatedAt time.Time
}

// PublicView is what anonymous tracking exposes: no coordinates, no money.
type PublicView struct {
	TrackingNumber string     `json:"tracking_number"`
	Status         Status     `json:"status"`
	From           string     `json:"from"`
	To             string     `json:"to"`
	CreatedAt      time.Time  `json:"created_at"`
	PickedUpAt     *time.Time `json:"picked_up_at,omitempty"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
}

func (p *Parcel) Public() PublicView {
	return PublicView{
		TrackingNumber: p.TrackingNumber,
		Status:         p.Status,
		From:           p.Pickup.Coarse(),
		To:             p.Delivery.Coarse(),
		CreatedAt:      p.CreatedAt,
		PickedUpAt:     p.PickedUpAt,
		DeliveredAt:    p.DeliveredAt,
	}
}

type Page struct {
	Limit  int
	Offset int
}

// Normalize applies the default and maximum page size.
func (p Page) Normalize() Page {
	if p.Limit <= 0 || p.Limit > 100 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

type ListFilter struct {
	Status *Status
}

type DailyCount struct {
	Day   time.Time `json:"day"`
	Count int64     `json:"count"`
}

type Stats struct {
	ByStatus         map[Status]int64 `json:"by_status"`
	Total            int64            `json:"total"`
	DeliveredRevenue types.Money      `json:"delivered_revenue"`
	PlatformFees     types.Money      `json:"platform_fees"`
	Daily            []DailyCount     `json:"daily"`
}

// AllowedTransitions represents the parcel status flow as code.
var AllowedTransitions = map[Status][]Status{
	StatusNone:      {StatusPending},
	StatusPending:   {StatusPickedUp, StatusCancelled},
	StatusPickedUp:  {StatusInTransit, StatusDelivered, StatusCancelled},
	StatusInTransit: {StatusDelivered},
}

func CanTransition(from, to Status) bool {
	return contains(AllowedTransitions[from], to)
}

var PaymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending: {PaymentPaid, PaymentFailed},
	PaymentFailed:  {PaymentPending, PaymentPaid},
}

func CanTransitionPayment(from, to PaymentStatus) bool {
	return contains(PaymentTransitions[from], to)
}

func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusPending, StatusPickedUp, StatusInTransit, StatusDelivered, StatusCancelled:
		return st, true
	}
	return "", false
}

func contains[T comparable](list []T, v T) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
