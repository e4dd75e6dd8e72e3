package notify

import (
	"context"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"masar/internal/modules/parcel"
	"masar/internal/modules/profile"
	"masar/internal/types"
)

// Contacts resolves a user's contact details.
type Contacts interface {
	Contact(ctx context.Context, uid types.ID) (profile.Contact, error)
}

type NotifierDeps struct {
	Dispatcher *Dispatcher
	Contacts   Contacts
	Admin      Recipient
	Logger     *zap.Logger
	// Async runs each event's fan-out on its own goroutine; Wait blocks
	// until all of them finish.
	Async bool
}

// Notifier turns parcel lifecycle events into notifications for the shipper,
// receiver, driver and administrator.
type Notifier struct {
	dispatcher *Dispatcher
	contacts   Contacts
	admin      Recipient
	logger     *zap.Logger
	async      bool
	wg         sync.WaitGroup
}

var _ parcel.Notifier = (*Notifier)(nil)

func NewNotifier(deps NotifierDeps) *Notifier {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Admin.Language == "" {
		deps.Admin.Language = LangEnglish
	}
	return &Notifier{
		dispatcher: deps.Dispatcher,
		contacts:   deps.Contacts,
		admin:      deps.Admin,
		logger:     logger,
		async:      deps.Async,
	}
}

// Wait blocks until in-flight asynchronous notifications complete.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) run(ctx context.Context, p *parcel.Parcel, fn func(ctx context.Context, p *parcel.Parcel)) {
	cp := *p
	n.spawn(ctx, func(ctx context.Context) { fn(ctx, &cp) })
}

func (n *Notifier) spawn(ctx context.Context, fn func(ctx context.Context)) {
	if !n.async {
		fn(ctx)
		return
	}
	ctx = context.WithoutCancel(ctx)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		fn(ctx)
	}()
}

func (n *Notifier) ShipmentCreated(ctx context.Context, p *parcel.Parcel) {
	n.run(ctx, p, func(ctx context.Context, p *parcel.Parcel) {
		shipper := n.contact(ctx, p.ShipperID, p.TrackingNumber)
		n.dispatcher.Send(ctx, shipper, ShipmentCreated{
			Name:           shipper.Name,
			Description:    p.Description,
			TrackingNumber: p.TrackingNumber,
			Status:         StatusLabel(p.Status, shipper.Language),
			Distance:       formatKm(p.Pricing.DistanceKm),
			Price:          p.Pricing.TotalPrice.String(),
		}, p.TrackingNumber)
	})
}

func (n *Notifier) PaymentReceived(ctx context.Context, p *parcel.Parcel) {
	n.run(ctx, p, func(ctx context.Context, p *parcel.Parcel) {
		shipper := n.contact(ctx, p.ShipperID, p.TrackingNumber)
		n.dispatcher.Send(ctx, shipper, PaymentSuccess{TrackingNumber: p.TrackingNumber}, p.TrackingNumber)

		receiver := receiverOf(p, shipper.Language)
		n.dispatcher.Send(ctx, receiver, ShipmentVisible{
			ReceiverName:   receiver.Name,
			ShipperName:    shipper.Name,
			TrackingNumber: p.TrackingNumber,
			Status:         StatusLabel(p.Status, receiver.Language),
		}, p.TrackingNumber)
	})
}

func (n *Notifier) DriverAssigned(ctx context.Context, p *parcel.Parcel) {
	n.run(ctx, p, func(ctx context.Context, p *parcel.Parcel) {
		shipper := n.contact(ctx, p.ShipperID, p.TrackingNumber)
		var driver profile.Contact
		if p.CarrierID != nil {
			driver = n.profileContact(ctx, *p.CarrierID, p.TrackingNumber)
		}
		price := p.Pricing.TotalPrice.String()
		distance := formatKm(p.Pricing.DistanceKm)

		n.dispatcher.Send(ctx, shipper, PickupShipper{
			TrackingNumber: p.TrackingNumber,
			DriverName:     driver.Name,
			CarPlate:       driver.CarPlate,
			Status:         StatusLabel(p.Status, shipper.Language),
		}, p.TrackingNumber)

		n.dispatcher.Send(ctx, receiverOf(p, shipper.Language), PickupReceiver{
			TrackingNumber: p.TrackingNumber,
			ShipperName:    shipper.Name,
			DriverName:     driver.Name,
			CarPlate:       driver.CarPlate,
		}, p.TrackingNumber)

		n.dispatcher.Send(ctx, recipientOf(driver), PickupDriver{
			TrackingNumber:  p.TrackingNumber,
			ShipperName:     shipper.Name,
			PickupAddress:   p.Pickup.Query(),
			DeliveryAddress: p.Delivery.Query(),
			Price:           price,
			Distance:        distance,
		}, p.TrackingNumber)

		n.dispatcher.Send(ctx, n.admin, AdminDriverAccept{
			DriverName:     driver.Name,
			CarPlate:       driver.CarPlate,
			TrackingNumber: p.TrackingNumber,
			ShipperName:    shipper.Name,
			Price:          price,
			Distance:       distance,
		}, p.TrackingNumber)
	})
}

func (n *Notifier) StatusChanged(ctx context.Context, p *parcel.Parcel) {
	n.run(ctx, p, func(ctx context.Context, p *parcel.Parcel) {
		shipper := n.contact(ctx, p.ShipperID, p.TrackingNumber)
		n.dispatcher.Send(ctx, shipper, StatusUpdate{
			TrackingNumber: p.TrackingNumber,
			Status:         StatusLabel(p.Status, shipper.Language),
		}, p.TrackingNumber)

		receiver := receiverOf(p, shipper.Language)
		n.dispatcher.Send(ctx, receiver, StatusUpdate{
			TrackingNumber: p.TrackingNumber,
			Status:         StatusLabel(p.Status, receiver.Language),
		}, p.TrackingNumber)
	})
}

func (n *Notifier) Cancelled(ctx context.Context, p *parcel.Parcel) {
	n.run(ctx, p, func(ctx context.Context, p *parcel.Parcel) {
		reason := ""
		if p.CancelReason != nil {
			reason = *p.CancelReason
		}
		msg := ShipmentCancelled{TrackingNumber: p.TrackingNumber, Reason: reason}
		n.dispatcher.Send(ctx, n.contact(ctx, p.ShipperID, p.TrackingNumber), msg, p.TrackingNumber)
		if p.CarrierID != nil {
			n.dispatcher.Send(ctx, n.contact(ctx, *p.CarrierID, p.TrackingNumber), msg, p.TrackingNumber)
		}
	})
}

// ContactForm forwards a public contact-form submission to the administrator.
func (n *Notifier) ContactForm(ctx context.Context, name, email, message string) {
	n.spawn(ctx, func(ctx context.Context) {
		n.dispatcher.Send(ctx, n.admin, ContactForm{Name: name, Email: email, Message: message}, "contact")
	})
}

func (n *Notifier) contact(ctx context.Context, uid types.ID, ref string) Recipient {
	return recipientOf(n.profileContact(ctx, uid, ref))
}

func (n *Notifier) profileContact(ctx context.Context, uid types.ID, ref string) profile.Contact {
	c, err := n.contacts.Contact(ctx, uid)
	if err != nil {
		n.logger.Warn("resolve contact failed", zap.String("uid", string(uid)), zap.String("ref", ref), zap.Error(err))
		return profile.Contact{Language: LangEnglish}
	}
	return c
}

func recipientOf(c profile.Contact) Recipient {
	return Recipient{
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		PushToken: c.PushToken,
		Language:  c.Language,
	}
}

// The receiver has no account; they get WhatsApp only, in the shipper's language.
func receiverOf(p *parcel.Parcel, lang string) Recipient {
	return Recipient{Name: p.ReceiverName, Phone: p.ReceiverPhone, Language: lang}
}

func formatKm(km float64) string {
	return strconv.FormatFloat(km, 'f', 2, 64)
}

var statusLabels = map[parcel.Status][2]string{
	parcel.StatusPending:   {"Pending", "قيد الانتظار"},
	parcel.StatusPickedUp:  {"Picked Up", "تم الاستلام"},
	parcel.StatusInTransit: {"In Transit", "في الطريق"},
	parcel.StatusDelivered: {"Delivered", "تم التوصيل"},
	parcel.StatusCancelled: {"Cancelled", "ملغاة"},
}

// StatusLabel is the human-readable status in lang.
func StatusLabel(s parcel.Status, lang string) string {
	l, ok := statusLabels[s]
	if !ok {
		return string(s)
	}
	if lang == LangArabic {
		return l[1]
	}
	return l[0]
}
