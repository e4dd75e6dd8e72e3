// README: Parcel persistence contract. Conditional updates report whether they applied.
package parcel

import (
	"context"
	"errors"
	"time"

	"masar/internal/types"
)

var ErrDuplicateTracking = errors.New("tracking number already in use")

type Store interface {
	// Create fails with ErrDuplicateTracking when the tracking number exists.
	Create(ctx context.Context, p *Parcel) error
	Get(ctx context.Context, id types.ID) (*Parcel, error)
	GetByTracking(ctx context.Context, tracking string) (*Parcel, error)
	GetBySession(ctx context.Context, sessionID string) (*Parcel, error)

	// UpdateDetails applies only while the parcel is pending, unpaid and
	// still at the given version.
	UpdateDetails(ctx context.Context, p *Parcel, version int) (bool, error)
	// Accept assigns the carrier and moves pending to picked_up in one
	// conditional write; at most one concurrent caller gets true.
	Accept(ctx context.Context, id, driverID types.ID, requirePaid bool) (bool, error)
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, reason *string) (bool, error)
	UpdatePayment(ctx context.Context, id types.ID, from, to PaymentStatus, sessionID *string) (bool, error)

	ListByShipper(ctx context.Context, shipperID types.ID, page Page) ([]*Parcel, error)
	ListForDriver(ctx context.Context, driverID types.ID, requirePaid bool, page Page) ([]*Parcel, error)
	ListAll(ctx context.Context, filter ListFilter, page Page) ([]*Parcel, error)

	AppendEvent(ctx context.Context, e *Event) error
	CreateRating(ctx context.Context, r *Rating) (bool, error)
	GetRating(ctx context.Context, parcelID types.ID) (*Rating, error)
	Stats(ctx context.Context, since time.Time) (Stats, error)
}
