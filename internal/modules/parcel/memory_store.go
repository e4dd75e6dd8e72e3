package parcel

import (
	"context"
	"sort"
	"sync"
	"time"

	"masar/internal/types"
)

// MemoryStore is an in-process Store. A single mutex serialises writes, which
// gives Accept the same at-most-one-winner guarantee as the SQL version.
type MemoryStore struct {
	mu      sync.Mutex
	parcels map[types.ID]*Parcel
	ratings map[types.ID]*Rating
	events  []Event
	nextEvt int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		parcels: make(map[types.ID]*Parcel),
		ratings: make(map[types.ID]*Rating),
	}
}

func clone(p *Parcel) *Parcel {
	c := *p
	return &c
}

func (m *MemoryStore) Create(ctx context.Context, p *Parcel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.parcels {
		if existing.TrackingNumber == p.TrackingNumber {
			return ErrDuplicateTracking
		}
	}
	m.parcels[p.ID] = clone(p)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id types.ID) (*Parcel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.parcels[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(p), nil
}

func (m *MemoryStore) find(match func(*Parcel) bool) (*Parcel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.parcels {
		if match(p) {
			return clone(p), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) GetByTracking(ctx context.Context, tracking string) (*Parcel, error) {
	return m.find(func(p *Parcel) bool { return p.TrackingNumber == tracking })
}

func (m *MemoryStore) GetBySession(ctx context.Context, sessionID string) (*Parcel, error) {
	return m.find(func(p *Parcel) bool { return p.PaymentSessionID != nil && *p.PaymentSessionID == sessionID })
}

func (m *MemoryStore) UpdateDetails(ctx context.Context, p *Parcel, version int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.parcels[p.ID]
	if !ok || !cur.Repriceable() || cur.StatusVersion != version {
		return false, nil
	}
	next := clone(cur)
	next.Description = p.Description
	next.WeightKg = p.WeightKg
	next.Pickup = p.Pickup
	next.Delivery = p.Delivery
	next.ReceiverName = p.ReceiverName
	next.ReceiverPhone = p.ReceiverPhone
	next.Pricing = p.Pricing
	next.PaymentSessionID = p.PaymentSessionID
	next.StatusVersion++
	next.UpdatedAt = time.Now().UTC()
	m.parcels[p.ID] = next
	return true, nil
}

func (m *MemoryStore) Accept(ctx context.Context, id, driverID types.ID, requirePaid bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.parcels[id]
	if !ok || !cur.Available(requirePaid) {
		return false, nil
	}
	now := time.Now().UTC()
	next := clone(cur)
	d := driverID
	next.CarrierID = &d
	next.Status = StatusPickedUp
	next.StatusVersion++
	next.PickedUpAt = &now
	next.UpdatedAt = now
	m.parcels[id] = next
	return true, nil
}

func (m *MemoryStore) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, reason *string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.parcels[id]
	if !ok || cur.Status != from || cur.StatusVersion != version {
		return false, nil
	}
	now := time.Now().UTC()
	next := clone(cur)
	next.Status = to
	next.StatusVersion++
	next.UpdatedAt = now
	switch to {
	case StatusDelivered:
		next.DeliveredAt = &now
	case StatusCancelled:
		next.CancelledAt = &now
		next.CancelReason = reason
	}
	m.parcels[id] = next
	return true, nil
}

func (m *MemoryStore) UpdatePayment(ctx context.Context, id types.ID, from, to PaymentStatus, sessionID *string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.parcels[id]
	if !ok || cur.PaymentStatus != from {
		return false, nil
	}
	next := clone(cur)
	next.PaymentStatus = to
	if sessionID != nil {
		s := *sessionID
		next.PaymentSessionID = &s
	}
	next.UpdatedAt = time.Now().UTC()
	m.parcels[id] = next
	return true, nil
}

func (m *MemoryStore) list(match func(*Parcel) bool, page Page) []*Parcel {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Parcel
	for _, p := range m.parcels {
		if match(p) {
			out = append(out, clone(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	page = page.Normalize()
	if page.Offset >= len(out) {
		return nil
	}
	out = out[page.Offset:]
	if len(out) > page.Limit {
		out = out[:page.Limit]
	}
	return out
}

func (m *MemoryStore) ListByShipper(ctx context.Context, shipperID types.ID, page Page) ([]*Parcel, error) {
	return m.list(func(p *Parcel) bool { return p.ShipperID == shipperID }, page), nil
}

func (m *MemoryStore) ListForDriver(ctx context.Context, driverID types.ID, requirePaid bool, page Page) ([]*Parcel, error) {
	return m.list(func(p *Parcel) bool { return p.Available(requirePaid) || p.CarriedBy(driverID) }, page), nil
}

func (m *MemoryStore) ListAll(ctx context.Context, filter ListFilter, page Page) ([]*Parcel, error) {
	return m.list(func(p *Parcel) bool { return filter.Status == nil || p.Status == *filter.Status }, page), nil
}

func (m *MemoryStore) AppendEvent(ctx context.Context, e *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextEvt++
	e.ID = m.nextEvt
	m.events = append(m.events, *e)
	return nil
}

// Events returns the transition log for one parcel in insertion order.
func (m *MemoryStore) Events(id types.ID) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for _, e := range m.events {
		if e.ParcelID == id {
			out = append(out, e)
		}
	}
	return out
}

func (m *MemoryStore) CreateRating(ctx context.Context, r *Rating) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.ratings[r.ParcelID]; exists {
		return false, nil
	}
	c := *r
	m.ratings[r.ParcelID] = &c
	return true, nil
}

func (m *MemoryStore) GetRating(ctx context.Context, parcelID types.ID) (*Rating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.ratings[parcelID]
	if !ok {
		return nil, ErrNotFound
	}
	c := *r
	return &c, nil
}

func (m *MemoryStore) Stats(ctx context.Context, since time.Time) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := Stats{
		ByStatus:         make(map[Status]int64),
		DeliveredRevenue: types.NewMoney(0),
		PlatformFees:     types.NewMoney(0),
	}
	daily := make(map[time.Time]int64)
	for _, p := range m.parcels {
		st.ByStatus[p.Status]++
		st.Total++
		if p.Status == StatusDelivered {
			st.DeliveredRevenue = st.DeliveredRevenue.Add(p.Pricing.TotalPrice)
			st.PlatformFees = st.PlatformFees.Add(p.Pricing.PlatformFee)
		}
		if !p.CreatedAt.Before(since) {
			y, mo, d := p.CreatedAt.UTC().Date()
			daily[time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)]++
		}
	}
	for day, n := range daily {
		st.Daily = append(st.Daily, DailyCount{Day: day, Count: n})
	}
	sort.Slice(st.Daily, func(i, j int) bool { return st.Daily[i].Day.Before(st.Daily[j].Day) })
	return st, nil
}
