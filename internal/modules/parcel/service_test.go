// README: Parcel service tests against the in-memory store.
package parcel

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"masar/internal/modules/location"
	"masar/internal/modules/pricing"
	"masar/internal/modules/tariff"
	"masar/internal/types"
)

var (
	shipper      = types.Actor{ID: "shipper-1", Role: types.RoleShipper}
	otherShipper = types.Actor{ID: "shipper-2", Role: types.RoleShipper}
	driver       = types.Actor{ID: "driver-1", Role: types.RoleDriver}
	otherDriver  = types.Actor{ID: "driver-2", Role: types.RoleDriver}
	admin        = types.Actor{ID: "admin-1", Role: types.RoleAdmin}
)

type staticSnapshot struct {
	mu   sync.Mutex
	snap pricing.Snapshot
}

func (s *staticSnapshot) Snapshot(context.Context) (pricing.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap, nil
}

func (s *staticSnapshot) set(fn func(*pricing.Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.snap.Settings)
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls map[string]int
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{calls: map[string]int{}}
}

func (r *recordingNotifier) hit(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[name]++
}

func (r *recordingNotifier) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[name]
}

func (r *recordingNotifier) ShipmentCreated(context.Context, *Parcel) { r.hit("created") }
func (r *recordingNotifier) PaymentReceived(context.Context, *Parcel) { r.hit("paid") }
func (r *recordingNotifier) DriverAssigned(context.Context, *Parcel)  { r.hit("assigned") }
func (r *recordingNotifier) StatusChanged(context.Context, *Parcel)   { r.hit("status") }
func (r *recordingNotifier) Cancelled(context.Context, *Parcel)       { r.hit("cancelled") }

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (r *recordingPublisher) Publish(_ context.Context, topic string, _ []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
	return nil
}

type stubGeocoder map[string]types.Point

func (g stubGeocoder) Geocode(_ context.Context, address string) (*types.Point, error) {
	p, ok := g[address]
	if !ok {
		return nil, location.ErrAddressNotFound
	}
	return &p, nil
}

type fixture struct {
	svc       *Service
	store     *MemoryStore
	snap      *staticSnapshot
	notifier  *recordingNotifier
	publisher *recordingPublisher
}

func newFixture(t *testing.T, paymentsEnabled bool) *fixture {
	t.Helper()
	snap := &staticSnapshot{snap: pricing.Snapshot{
		Settings: pricing.Settings{PlatformFee: 1000, AcceptingShipments: true, PaymentsEnabled: paymentsEnabled},
		Rules: []tariff.Rule{
			{ID: 1, MinDistanceKm: 0, MaxDistanceKm: 10, MinWeightKg: 0, MaxWeightKg: 5, Price: types.NewMoney(2500)},
			{ID: 2, MinDistanceKm: 10.01, MaxDistanceKm: 15, MinWeightKg: 0, MaxWeightKg: 5, Price: types.NewMoney(5000)},
		},
	}}
	f := &fixture{
		store:     NewMemoryStore(),
		snap:      snap,
		notifier:  newRecordingNotifier(),
		publisher: &recordingPublisher{},
	}
	f.svc = NewService(ServiceDeps{
		Store:     f.store,
		Pricing:   snap,
		Notifier:  f.notifier,
		Publisher: f.publisher,
		Geocoder: stubGeocoder{
			"Way 3021, Bawshar, Muscat, Oman": {Lat: 23.5880, Lng: 58.3829},
		},
	})
	return f
}

func validDetails() Details {
	return Details{
		Description:   "Documents",
		WeightKg:      3,
		Pickup:        location.Address{Country: "Oman", Region: "Muscat", City: "Bawshar", Line: "Way 3021", Point: &types.Point{Lat: 23.5880, Lng: 58.3829}},
		Delivery:      location.Address{Country: "Oman", Region: "Muscat", City: "Qurum", Line: "Villa 7", Point: &types.Point{Lat: 23.6000, Lng: 58.4000}},
		ReceiverName:  "Salim",
		ReceiverPhone: "+968 9123 4567",
	}
}

func (f *fixture) create(t *testing.T) *Parcel {
	t.Helper()
	p, err := f.svc.Create(context.Background(), CreateCommand{Actor: shipper, Details: validDetails()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return p
}

func (f *fixture) createPaid(t *testing.T) *Parcel {
	t.Helper()
	p := f.create(t)
	if err := f.svc.AttachPaymentSession(context.Background(), p.ID, "sess_"+p.TrackingNumber); err != nil {
		t.Fatalf("attach session: %v", err)
	}
	p, err := f.svc.ConfirmPayment(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("confirm payment: %v", err)
	}
	return p
}

func assertStatus(t *testing.T, f *fixture, id types.ID, want Status) {
	t.Helper()
	p, err := f.store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.Status != want {
		t.Fatalf("status = %s, want %s", p.Status, want)
	}
}

func TestCreatePricesAndNotifies(t *testing.T) {
	f := newFixture(t, true)
	p := f.create(t)

	if p.Status != StatusPending || p.PaymentStatus != PaymentPending {
		t.Fatalf("status = %s/%s", p.Status, p.PaymentStatus)
	}
	if len(p.TrackingNumber) != 10 {
		t.Errorf("tracking number = %q", p.TrackingNumber)
	}
	if p.CarrierID != nil {
		t.Errorf("carrier assigned at creation")
	}
	if p.Pricing.DistanceKm < 2.0 || p.Pricing.DistanceKm > 2.5 {
		t.Errorf("distance = %.2f", p.Pricing.DistanceKm)
	}
	if p.Pricing.TotalPrice.String() != "2.500" || p.Pricing.PlatformFee.String() != "0.250" || p.Pricing.DriverAmount.String() != "2.250" {
		t.Errorf("pricing = %+v", p.Pricing)
	}
	if f.notifier.count("created") != 1 {
		t.Errorf("created notifications = %d", f.notifier.count("created"))
	}
	if len(f.publisher.topics) != 1 || f.publisher.topics[0] != TopicCreated {
		t.Errorf("topics = %v", f.publisher.topics)
	}
	if evts := f.store.Events(p.ID); len(evts) != 1 || evts[0].To != string(StatusPending) {
		t.Errorf("events = %+v", evts)
	}
}

func TestCreateMatchesStatelessQuote(t *testing.T) {
	f := newFixture(t, true)
	p := f.create(t)
	snap, _ := f.snap.Snapshot(context.Background())
	d := validDetails()
	b, err := pricing.Quote(snap, pricing.QuoteRequest{Pickup: d.Pickup.Point, Delivery: d.Delivery.Point, WeightKg: d.WeightKg})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if b.DistanceKm != p.Pricing.DistanceKm || b.TotalPrice != p.Pricing.TotalPrice ||
		b.PlatformFee != p.Pricing.PlatformFee || b.DriverAmount != p.Pricing.DriverAmount {
		t.Fatalf("quote %+v differs from stored pricing %+v", b, p.Pricing)
	}
}

func TestCreateRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("driver cannot create", func(t *testing.T) {
		f := newFixture(t, true)
		_, err := f.svc.Create(ctx, CreateCommand{Actor: driver, Details: validDetails()})
		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("err = %v, want ErrForbidden", err)
		}
	})

	t.Run("no tariff rule", func(t *testing.T) {
		f := newFixture(t, true)
		d := validDetails()
		d.WeightKg = 100
		_, err := f.svc.Create(ctx, CreateCommand{Actor: shipper, Details: d})
		if !errors.Is(err, tariff.ErrNoPricingRuleFound) {
			t.Fatalf("err = %v, want ErrNoPricingRuleFound", err)
		}
		all, _ := f.store.ListAll(ctx, ListFilter{}, Page{})
		if len(all) != 0 {
			t.Fatalf("parcel persisted without a price")
		}
		if f.notifier.count("created") != 0 {
			t.Fatalf("notified for rejected parcel")
		}
	})

	t.Run("not accepting shipments", func(t *testing.T) {
		f := newFixture(t, true)
		f.snap.set(func(s *pricing.Settings) { s.AcceptingShipments = false })
		_, err := f.svc.Create(ctx, CreateCommand{Actor: shipper, Details: validDetails()})
		if !errors.Is(err, ErrNotAccepting) {
			t.Fatalf("err = %v, want ErrNotAccepting", err)
		}
	})

	t.Run("validation", func(t *testing.T) {
		f := newFixture(t, true)
		_, err := f.svc.Create(ctx, CreateCommand{Actor: shipper, Details: Details{WeightKg: -1}})
		var fields types.FieldErrors
		if !errors.As(err, &fields) {
			t.Fatalf("err = %v, want FieldErrors", err)
		}
		for _, name := range []string{"description", "weight", "receiver_name", "receiver_phone"} {
			if _, ok := fields[name]; !ok {
				t.Errorf("missing field error %s in %v", name, fields)
			}
		}
	})

	t.Run("coordinates required after geocoding", func(t *testing.T) {
		f := newFixture(t, true)
		d := validDetails()
		d.Delivery.Point = nil
		d.Delivery.Line = "Unknown street"
		_, err := f.svc.Create(ctx, CreateCommand{Actor: shipper, Details: d})
		var fields types.FieldErrors
		if !errors.As(err, &fields) || fields["delivery"] == "" {
			t.Fatalf("err = %v, want delivery field error", err)
		}
	})
}

func TestCreateGeocodesMissingCoordinates(t *testing.T) {
	f := newFixture(t, true)
	d := validDetails()
	d.Pickup.Point = nil
	p, err := f.svc.Create(context.Background(), CreateCommand{Actor: shipper, Details: d})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Pickup.Point == nil || p.Pickup.Point.Lat != 23.5880 {
		t.Fatalf("pickup not geocoded: %+v", p.Pickup)
	}
	if p.Pricing.TotalPrice.Amount != 2500 {
		t.Errorf("price = %s", p.Pricing.TotalPrice)
	}
}

func TestLifecycleHappyPath(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	p := f.create(t)

	if _, err := f.svc.Accept(ctx, AcceptCommand{Actor: driver, ParcelID: p.ID}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	assertStatus(t, f, p.ID, StatusPickedUp)

	if _, err := f.svc.UpdateStatus(ctx, StatusCommand{Actor: driver, ParcelID: p.ID, To: StatusInTransit}); err != nil {
		t.Fatalf("in transit: %v", err)
	}
	assertStatus(t, f, p.ID, StatusInTransit)

	got, err := f.svc.UpdateStatus(ctx, StatusCommand{Actor: driver, ParcelID: p.ID, To: StatusDelivered})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if got.DeliveredAt == nil || got.PickedUpAt == nil {
		t.Errorf("timestamps not set: %+v", got)
	}

	if _, err := f.svc.UpdateStatus(ctx, StatusCommand{Actor: driver, ParcelID: p.ID, To: StatusPickedUp}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("delivered -> picked_up err = %v, want ErrInvalidState", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, StatusCommand{Actor: driver, ParcelID: p.ID, To: StatusInTransit}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("delivered -> in_transit err = %v, want ErrInvalidState", err)
	}
	if _, err := f.svc.Accept(ctx, AcceptCommand{Actor: otherDriver, ParcelID: p.ID}); !errors.Is(err, ErrNotAvailable) {
		t.Fatalf("accept delivered err = %v, want ErrNotAvailable", err)
	}
	assertStatus(t, f, p.ID, StatusDelivered)

	if f.notifier.count("assigned") != 1 || f.notifier.count("status") != 2 {
		t.Errorf("notifications = %v", f.notifier.calls)
	}
	if n := len(f.store.Events(p.ID)); n != 4 {
		t.Errorf("events = %d, want 4", n)
	}
}

func TestAcceptRequiresPaymentWhenEnabled(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	p := f.create(t)

	if _, err := f.svc.Accept(ctx, AcceptCommand{Actor: driver, ParcelID: p.ID}); !errors.Is(err, ErrPaymentRequired) {
		t.Fatalf("err = %v, want ErrPaymentRequired", err)
	}
	list, err := f.svc.List(ctx, driver, ListFilter{}, Page{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("unpaid parcel visible to drivers")
	}
	if _, err := f.svc.Get(ctx, driver, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("driver get unpaid err = %v, want ErrNotFound", err)
	}

	if err := f.svc.AttachPaymentSession(ctx, p.ID, "sess_1"); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if _, err := f.svc.ConfirmPayment(ctx, p.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	list, _ = f.svc.List(ctx, driver, ListFilter{}, Page{})
	if len(list) != 1 {
		t.Fatalf("paid parcel not visible: %d", len(list))
	}
	accepted, err := f.svc.Accept(ctx, AcceptCommand{Actor: driver, ParcelID: p.ID})
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if !accepted.CarriedBy(driver.ID) {
		t.Fatalf("carrier = %v", accepted.CarrierID)
	}
}

func TestAcceptAlreadyTaken(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	p := f.create(t)
	if _, err := f.svc.Accept(ctx, AcceptCommand{Actor: driver, ParcelID: p.ID}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := f.svc.Accept(ctx, AcceptCommand{Actor: otherDriver, ParcelID: p.ID}); !errors.Is(err, ErrNotAvailable) {
		t.Fatalf("err = %v, want ErrNotAvailable", err)
	}
	got, _ := f.store.Get(ctx, p.ID)
	if !got.CarriedBy(driver.ID) {
		t.Fatalf("carrier overwritten: %v", *got.CarrierID)
	}
	if _, err := f.svc.Accept(ctx, AcceptCommand{Actor: shipper, ParcelID: p.ID}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("shipper accept err = %v, want ErrForbidden", err)
	}
}

func TestUpdateStatusOnlyCarrier(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	p := f.create(t)
	if _, err := f.svc.Accept(ctx, AcceptCommand{Actor: driver, ParcelID: p.ID}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	for _, actor := range []types.Actor{otherDriver, shipper, admin} {
		if _, err := f.svc.UpdateStatus(ctx, StatusCommand{Actor: actor, ParcelID: p.ID, To: StatusInTransit}); !errors.Is(err, ErrForbidden) {
			t.Errorf("%s err = %v, want ErrForbidden", actor.ID, err)
		}
	}
	if _, err := f.svc.UpdateStatus(ctx, StatusCommand{Actor: driver, ParcelID: p.ID, To: StatusCancelled}); !errors.Is(err, ErrInvalidState) {
		t.Errorf("status endpoint cancel err = %v, want ErrInvalidState", err)
	}
	assertStatus(t, f, p.ID, StatusPickedUp)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("shipper cancels pending", func(t *testing.T) {
		f := newFixture(t, false)
		p := f.create(t)
		got, err := f.svc.Cancel(ctx, CancelCommand{Actor: shipper, ParcelID: p.ID, Reason: "changed plans"})
		if err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if got.Status != StatusCancelled || got.CancelReason == nil || *got.CancelReason != "changed plans" {
			t.Fatalf("parcel = %+v", got)
		}
		if f.notifier.count("cancelled") != 1 {
			t.Errorf("cancel notifications = %d", f.notifier.count("cancelled"))
		}
	})

	t.Run("admin cancels picked up", func(t *testing.T) {
		f := newFixture(t, false)
		p := f.create(t)
		if _, err := f.svc.Accept(ctx, AcceptCommand{Actor: driver, ParcelID: p.ID}); err != nil {
			t.Fatalf("accept: %v", err)
		}
		if _, err := f.svc.Cancel(ctx, CancelCommand{Actor: admin, ParcelID: p.ID}); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		assertStatus(t, f, p.ID, StatusCancelled)
	})

	t.Run("rejections", func(t *testing.T) {
		f := newFixture(t, false)
		p := f.create(t)
		if _, err := f.svc.Cancel(ctx, CancelCommand{Actor: otherShipper, ParcelID: p.ID}); !errors.Is(err, ErrNotFound) {
			t.Errorf("other shipper err = %v, want ErrNotFound", err)
		}
		if _, err := f.svc.Cancel(ctx, CancelCommand{Actor: driver, ParcelID: p.ID}); !errors.Is(err, ErrForbidden) {
			t.Errorf("driver err = %v, want ErrForbidden", err)
		}
		if _, err := f.svc.Accept(ctx, AcceptCommand{Actor: driver, ParcelID: p.ID}); err != nil {
			t.Fatalf("accept: %v", err)
		}
		if _, err := f.svc.UpdateStatus(ctx, StatusCommand{Actor: driver, ParcelID: p.ID, To: StatusInTransit}); err != nil {
			t.Fatalf("in transit: %v", err)
		}
		if _, err := f.svc.Cancel(ctx, CancelCommand{Actor: shipper, ParcelID: p.ID}); !errors.Is(err, ErrInvalidState) {
			t.Errorf("in-transit cancel err = %v, want ErrInvalidState", err)
		}
		assertStatus(t, f, p.ID, StatusInTransit)
	})
}

func TestRateExactlyOnce(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	p := f.create(t)

	if _, err := f.svc.Rate(ctx, RateCommand{Actor: shipper, ParcelID: p.ID, Score: 5}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("rate pending err = %v, want ErrInvalidState", err)
	}
	if _, err := f.svc.Accept(ctx, AcceptCommand{Actor: driver, ParcelID: p.ID}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, StatusCommand{Actor: driver, ParcelID: p.ID, To: StatusDelivered}); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	var fields types.FieldErrors
	if _, err := f.svc.Rate(ctx, RateCommand{Actor: shipper, ParcelID: p.ID, Score: 6}); !errors.As(err, &fields) {
		t.Fatalf("score 6 err = %v, want FieldErrors", err)
	}
	if _, err := f.svc.Rate(ctx, RateCommand{Actor: otherShipper, ParcelID: p.ID, Score: 4}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other shipper err = %v, want ErrNotFound", err)
	}
	r, err := f.svc.Rate(ctx, RateCommand{Actor: shipper, ParcelID: p.ID, Score: 4, Comment: " quick "})
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if r.Score != 4 || r.Comment != "quick" {
		t.Fatalf("rating = %+v", r)
	}
	if _, err := f.svc.Rate(ctx, RateCommand{Actor: shipper, ParcelID: p.ID, Score: 1}); !errors.Is(err, ErrAlreadyRated) {
		t.Fatalf("second rating err = %v, want ErrAlreadyRated", err)
	}
	stored, err := f.svc.Rating(ctx, shipper, p.ID)
	if err != nil || stored.Score != 4 {
		t.Fatalf("stored rating = %+v, %v", stored, err)
	}
}

func TestListScoping(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	mine := f.create(t)
	theirs, err := f.svc.Create(ctx, CreateCommand{Actor: otherShipper, Details: validDetails()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Accept(ctx, AcceptCommand{Actor: otherDriver, ParcelID: theirs.ID}); err != nil {
		t.Fatalf("accept: %v", err)
	}

	own, _ := f.svc.List(ctx, shipper, ListFilter{}, Page{})
	if len(own) != 1 || own[0].ID != mine.ID {
		t.Errorf("shipper list = %d parcels", len(own))
	}
	avail, _ := f.svc.List(ctx, driver, ListFilter{}, Page{})
	if len(avail) != 1 || avail[0].ID != mine.ID {
		t.Errorf("driver list = %d parcels", len(avail))
	}
	carried, _ := f.svc.List(ctx, otherDriver, ListFilter{}, Page{})
	if len(carried) != 2 {
		t.Errorf("carrier list = %d parcels, want available + carried", len(carried))
	}
	all, _ := f.svc.List(ctx, admin, ListFilter{}, Page{})
	if len(all) != 2 {
		t.Errorf("admin list = %d parcels", len(all))
	}
	picked := StatusPickedUp
	filtered, _ := f.svc.List(ctx, admin, ListFilter{Status: &picked}, Page{})
	if len(filtered) != 1 || filtered[0].ID != theirs.ID {
		t.Errorf("admin filtered list = %d parcels", len(filtered))
	}
	if _, err := f.svc.Get(ctx, shipper, theirs.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign get err = %v, want ErrNotFound", err)
	}
}

func TestUpdateDetailsReprices(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	p := f.create(t)

	d := validDetails()
	// ~12.5 km north of pickup.
	d.Delivery.Point = &types.Point{Lat: 23.7004, Lng: 58.3829}
	got, err := f.svc.UpdateDetails(ctx, UpdateCommand{Actor: shipper, ParcelID: p.ID, Details: d})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Pricing.TotalPrice.Amount != 5000 || got.Pricing.PlatformFee.Amount != 500 || got.Pricing.DriverAmount.Amount != 4500 {
		t.Fatalf("repriced = %+v", got.Pricing)
	}
	if got.TrackingNumber != p.TrackingNumber {
		t.Fatalf("tracking number changed")
	}

	if _, err := f.svc.UpdateDetails(ctx, UpdateCommand{Actor: otherShipper, ParcelID: p.ID, Details: d}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign update err = %v", err)
	}

	if err := f.svc.AttachPaymentSession(ctx, p.ID, "sess_x"); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if _, err := f.svc.ConfirmPayment(ctx, p.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	f.snap.set(func(s *pricing.Settings) { s.PlatformFee = 5000 })
	if _, err := f.svc.UpdateDetails(ctx, UpdateCommand{Actor: shipper, ParcelID: p.ID, Details: d}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("update paid err = %v, want ErrInvalidState", err)
	}
	stored, _ := f.store.Get(ctx, p.ID)
	if stored.Pricing.PlatformFee.Amount != 500 {
		t.Fatalf("paid parcel repriced: %+v", stored.Pricing)
	}
}

func TestPaymentTransitions(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	p := f.create(t)

	if _, err := f.svc.BeginPayment(ctx, otherShipper, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign begin err = %v", err)
	}
	if _, err := f.svc.BeginPayment(ctx, shipper, p.ID); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := f.svc.AttachPaymentSession(ctx, p.ID, "sess_a"); err != nil {
		t.Fatalf("attach: %v", err)
	}
	failed, err := f.svc.FailPayment(ctx, p.ID)
	if err != nil || failed.PaymentStatus != PaymentFailed {
		t.Fatalf("fail = %+v, %v", failed, err)
	}
	if err := f.svc.AttachPaymentSession(ctx, p.ID, "sess_b"); err != nil {
		t.Fatalf("re-attach: %v", err)
	}
	bySession, err := f.svc.GetBySession(ctx, "sess_b")
	if err != nil || bySession.ID != p.ID || bySession.PaymentStatus != PaymentPending {
		t.Fatalf("by session = %+v, %v", bySession, err)
	}

	for i := 0; i < 3; i++ {
		paid, err := f.svc.ConfirmPayment(ctx, p.ID)
		if err != nil || paid.PaymentStatus != PaymentPaid {
			t.Fatalf("confirm %d = %+v, %v", i, paid, err)
		}
	}
	if n := f.notifier.count("paid"); n != 1 {
		t.Fatalf("payment notifications = %d, want 1", n)
	}
	still, err := f.svc.FailPayment(ctx, p.ID)
	if err != nil || still.PaymentStatus != PaymentPaid {
		t.Fatalf("fail after paid = %+v, %v", still, err)
	}
	if _, err := f.svc.BeginPayment(ctx, shipper, p.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("begin after paid err = %v", err)
	}
}

func TestUpdateDetailsDropsSessionOnlyWhenPriceChanges(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	p := f.create(t)
	if err := f.svc.AttachPaymentSession(ctx, p.ID, "sess_a"); err != nil {
		t.Fatalf("attach: %v", err)
	}

	same := validDetails()
	same.Description = "Contracts"
	if _, err := f.svc.UpdateDetails(ctx, UpdateCommand{Actor: shipper, ParcelID: p.ID, Details: same}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got, err := f.svc.GetBySession(ctx, "sess_a"); err != nil || got.ID != p.ID {
		t.Fatalf("session lost on same-price edit: %+v, %v", got, err)
	}

	farther := validDetails()
	farther.Delivery.Point = &types.Point{Lat: 23.7004, Lng: 58.3829}
	if _, err := f.svc.UpdateDetails(ctx, UpdateCommand{Actor: shipper, ParcelID: p.ID, Details: farther}); err != nil {
		t.Fatalf("reprice: %v", err)
	}
	if _, err := f.svc.GetBySession(ctx, "sess_a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("stale session still resolves: %v", err)
	}
	stored, _ := f.store.Get(ctx, p.ID)
	if stored.PaymentSessionID != nil || stored.PaymentStatus != PaymentPending {
		t.Fatalf("after reprice session=%v payment=%s", stored.PaymentSessionID, stored.PaymentStatus)
	}
}

func TestConfirmPaymentAfterCancelIsSilent(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	p := f.create(t)
	if err := f.svc.AttachPaymentSession(ctx, p.ID, "sess_c"); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if _, err := f.svc.Cancel(ctx, CancelCommand{Actor: shipper, ParcelID: p.ID}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	topics := len(f.publisher.topics)

	got, err := f.svc.ConfirmPayment(ctx, p.ID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if got.Status != StatusCancelled || got.PaymentStatus != PaymentPaid {
		t.Fatalf("status = %s/%s, want cancelled/paid", got.Status, got.PaymentStatus)
	}
	if n := f.notifier.count("paid"); n != 0 {
		t.Fatalf("payment notifications = %d, want 0", n)
	}
	for _, topic := range f.publisher.topics[topics:] {
		if topic == TopicPaid {
			t.Fatalf("published %s for a cancelled parcel", TopicPaid)
		}
	}
	evts := f.store.Events(p.ID)
	if last := evts[len(evts)-1]; last.Kind != EventKindPayment || last.To != string(PaymentPaid) {
		t.Fatalf("last event = %+v", last)
	}
}

func TestTrackHidesPrivateFields(t *testing.T) {
	f := newFixture(t, false)
	p := f.create(t)
	view, err := f.svc.Track(context.Background(), " "+strings.ToLower(p.TrackingNumber)+" ")
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if view.Status != StatusPending || view.From != "Bawshar, Muscat" || view.To != "Qurum, Muscat" {
		t.Fatalf("view = %+v", view)
	}
	if _, err := f.svc.Track(context.Background(), "NOPE"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown tracking err = %v", err)
	}
}

func TestStats(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	p := f.create(t)
	f.create(t)
	if _, err := f.svc.Accept(ctx, AcceptCommand{Actor: driver, ParcelID: p.ID}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, StatusCommand{Actor: driver, ParcelID: p.ID, To: StatusDelivered}); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if _, err := f.svc.Stats(ctx, shipper); !errors.Is(err, ErrForbidden) {
		t.Fatalf("shipper stats err = %v", err)
	}
	st, err := f.svc.Stats(ctx, admin)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Total != 2 || st.ByStatus[StatusDelivered] != 1 || st.ByStatus[StatusPending] != 1 {
		t.Errorf("counts = %+v", st.ByStatus)
	}
	if st.DeliveredRevenue.Amount != 2500 || st.PlatformFees.Amount != 250 {
		t.Errorf("revenue = %s fees = %s", st.DeliveredRevenue, st.PlatformFees)
	}
	if len(st.Daily) != 1 || st.Daily[0].Count != 2 {
		t.Errorf("daily = %+v", st.Daily)
	}
}
