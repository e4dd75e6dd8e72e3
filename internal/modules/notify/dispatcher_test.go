package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"firebase.google.com/go/v4/messaging"

	"masar/internal/modules/location"
	"masar/internal/modules/parcel"
	"masar/internal/modules/profile"
	"masar/internal/types"
)

type sent struct {
	channel string
	to      Recipient
	key     Key
	content Content
}

type recordingChannel struct {
	name      string
	reachable func(Recipient) bool
	err       error

	mu   sync.Mutex
	sent []sent
}

func (c *recordingChannel) Name() string { return c.name }

func (c *recordingChannel) Reachable(r Recipient) bool { return c.reachable(r) }

func (c *recordingChannel) Send(_ context.Context, r Recipient, key Key, content Content) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sent{channel: c.name, to: r, key: key, content: content})
	return c.err
}

func (c *recordingChannel) Sent() []sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sent(nil), c.sent...)
}

func emailish() *recordingChannel {
	return &recordingChannel{name: ChannelEmail, reachable: func(r Recipient) bool { return r.Email != "" }}
}

func phoneish() *recordingChannel {
	return &recordingChannel{name: ChannelWhatsApp, reachable: func(r Recipient) bool { return r.Phone != "" }}
}

func TestDispatcherFailureDoesNotBlockOtherChannels(t *testing.T) {
	email := emailish()
	email.err = errors.New("smtp down")
	wa := phoneish()
	d := NewDispatcher(NewRenderer(nil), nil, 0, email, wa)

	d.Send(context.Background(), Recipient{Email: "a@b.com", Phone: "968"}, PaymentSuccess{TrackingNumber: "T1"}, "T1")

	if len(email.Sent()) != 1 {
		t.Fatalf("email attempts = %d", len(email.Sent()))
	}
	got := wa.Sent()
	if len(got) != 1 || got[0].content.Subject != "Payment Successful - T1" {
		t.Fatalf("whatsapp sends = %+v", got)
	}
}

func TestDispatcherSkipsUnreachableChannels(t *testing.T) {
	email := emailish()
	wa := phoneish()
	d := NewDispatcher(NewRenderer(nil), nil, 0, email, wa)

	d.Send(context.Background(), Recipient{Phone: "968"}, PaymentSuccess{TrackingNumber: "T1"}, "T1")

	if len(email.Sent()) != 0 {
		t.Fatalf("email should be skipped")
	}
	if len(wa.Sent()) != 1 {
		t.Fatalf("whatsapp should be sent")
	}
}

type fakeFCM struct {
	got *messaging.Message
}

func (f *fakeFCM) Send(_ context.Context, m *messaging.Message) (string, error) {
	f.got = m
	return "msg-1", nil
}

func TestPushChannel(t *testing.T) {
	fcm := &fakeFCM{}
	ch := NewPushChannel(fcm)
	if ch.Reachable(Recipient{}) {
		t.Fatalf("empty token should be unreachable")
	}
	err := ch.Send(context.Background(), Recipient{PushToken: "tok"}, KeyStatusUpdate, Content{Subject: "S", WhatsApp: "B"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if fcm.got.Token != "tok" || fcm.got.Notification.Title != "S" || fcm.got.Data["type"] != string(KeyStatusUpdate) {
		t.Fatalf("message = %+v", fcm.got)
	}
}

type notifierFixture struct {
	notifier *Notifier
	email    *recordingChannel
	wa       *recordingChannel
	shipper  types.ID
	driver   types.ID
}

func newNotifierFixture(t *testing.T, async bool) *notifierFixture {
	t.Helper()
	profiles := profile.NewMemoryStore()
	shipper, driver := types.ID("shipper-1"), types.ID("driver-1")
	email, phone, plate := "shipper@example.com", "+96890000001", "12345 AB"
	driverPhone := "+96890000002"
	_ = profiles.Upsert(context.Background(), &profile.Profile{UID: shipper, FullName: "Sara", Role: types.RoleShipper, Email: &email, Phone: &phone, Language: LangArabic})
	_ = profiles.Upsert(context.Background(), &profile.Profile{UID: driver, FullName: "Ahmed", Role: types.RoleDriver, Phone: &driverPhone, CarPlate: &plate, Language: LangEnglish})

	f := &notifierFixture{email: emailish(), wa: phoneish(), shipper: shipper, driver: driver}
	f.notifier = NewNotifier(NotifierDeps{
		Dispatcher: NewDispatcher(NewRenderer(nil), nil, 0, f.email, f.wa),
		Contacts:   profile.NewService(profiles),
		Admin:      Recipient{Name: "Ops", Email: "ops@masar.om"},
		Async:      async,
	})
	return f
}

func (f *notifierFixture) parcel(carrier bool) *parcel.Parcel {
	p := &parcel.Parcel{
		ID:             "p-1",
		TrackingNumber: "AB12CD34EF",
		ShipperID:      f.shipper,
		Description:    "Books",
		Pickup:         location.Address{City: "Muscat", Line: "Way 1"},
		Delivery:       location.Address{City: "Seeb", Line: "Way 2"},
		ReceiverName:   "Omar",
		ReceiverPhone:  "+96890000003",
		Status:         parcel.StatusPending,
	}
	if carrier {
		p.CarrierID = &f.driver
		p.Status = parcel.StatusPickedUp
	}
	return p
}

func keysTo(sends []sent, match func(Recipient) bool) []Key {
	var out []Key
	for _, s := range sends {
		if match(s.to) {
			out = append(out, s.key)
		}
	}
	return out
}

func TestNotifierDriverAssigned(t *testing.T) {
	f := newNotifierFixture(t, false)
	f.notifier.DriverAssigned(context.Background(), f.parcel(true))

	emails := f.email.Sent()
	if got := keysTo(emails, func(r Recipient) bool { return r.Email == "ops@masar.om" }); len(got) != 1 || got[0] != KeyAdminDriverAccept {
		t.Fatalf("admin emails = %v", got)
	}
	if got := keysTo(emails, func(r Recipient) bool { return r.Email == "shipper@example.com" }); len(got) != 1 || got[0] != KeyPickupShipper {
		t.Fatalf("shipper emails = %v", got)
	}

	wa := f.wa.Sent()
	if got := keysTo(wa, func(r Recipient) bool { return r.Phone == "+96890000003" }); len(got) != 1 || got[0] != KeyPickupReceiver {
		t.Fatalf("receiver whatsapp = %v", got)
	}
	if got := keysTo(wa, func(r Recipient) bool { return r.Phone == "+96890000002" }); len(got) != 1 || got[0] != KeyPickupDriver {
		t.Fatalf("driver whatsapp = %v", got)
	}

	for _, s := range emails {
		if s.key == KeyAdminDriverAccept && s.content.Subject != "Shipment Accepted (AB12CD34EF)" {
			t.Fatalf("admin subject = %q", s.content.Subject)
		}
		if s.key == KeyPickupShipper && s.content.Subject != "تم تعيين سائق - AB12CD34EF" {
			t.Fatalf("shipper subject should be arabic, got %q", s.content.Subject)
		}
	}
}

func TestNotifierCancelledWithoutDriver(t *testing.T) {
	f := newNotifierFixture(t, false)
	p := f.parcel(false)
	reason := "changed plans"
	p.CancelReason = &reason
	p.Status = parcel.StatusCancelled
	f.notifier.Cancelled(context.Background(), p)

	for _, s := range f.wa.Sent() {
		if s.to.Phone == "+96890000002" {
			t.Fatalf("unassigned driver must not be notified")
		}
	}
	emails := f.email.Sent()
	if len(emails) != 1 || emails[0].key != KeyShipmentCancelled {
		t.Fatalf("emails = %+v", emails)
	}
}

func TestNotifierUnknownProfileHasNoChannels(t *testing.T) {
	f := newNotifierFixture(t, false)
	p := f.parcel(false)
	p.ShipperID = "ghost"
	p.ReceiverPhone = ""
	f.notifier.PaymentReceived(context.Background(), p)

	if n := len(f.email.Sent()) + len(f.wa.Sent()); n != 0 {
		t.Fatalf("expected no sends, got %d", n)
	}
}

func TestNotifierAsyncWait(t *testing.T) {
	f := newNotifierFixture(t, true)
	ctx, cancel := context.WithCancel(context.Background())
	f.notifier.StatusChanged(ctx, f.parcel(true))
	cancel()
	f.notifier.Wait()

	if got := len(f.wa.Sent()); got != 2 {
		t.Fatalf("whatsapp sends = %d, want shipper and receiver", got)
	}
}

func TestStatusLabel(t *testing.T) {
	if StatusLabel(parcel.StatusInTransit, LangEnglish) != "In Transit" {
		t.Fatalf("english label")
	}
	if StatusLabel(parcel.StatusDelivered, LangArabic) != "تم التوصيل" {
		t.Fatalf("arabic label")
	}
	if StatusLabel("weird", LangEnglish) != "weird" {
		t.Fatalf("unknown label passthrough")
	}
}
