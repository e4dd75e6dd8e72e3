package notify

// Message is a typed set of template variables bound to one key.
type Message interface {
	Key() Key
	Vars() map[string]string
}

type ShipmentCreated struct {
	Name           string
	Description    string
	TrackingNumber string
	Status         string
	Distance       string
	Price          string
}

func (ShipmentCreated) Key() Key { return KeyShipmentCreated }
func (m ShipmentCreated) Vars() map[string]string {
	return map[string]string{
		"name":            m.Name,
		"description":     m.Description,
		"tracking_number": m.TrackingNumber,
		"status":          m.Status,
		"distance":        m.Distance,
		"price":           m.Price,
	}
}

type PaymentSuccess struct {
	TrackingNumber string
}

func (PaymentSuccess) Key() Key { return KeyPaymentSuccess }
func (m PaymentSuccess) Vars() map[string]string {
	return map[string]string{"tracking_number": m.TrackingNumber}
}

type ShipmentVisible struct {
	ReceiverName   string
	ShipperName    string
	TrackingNumber string
	Status         string
}

func (ShipmentVisible) Key() Key { return KeyShipmentVisible }
func (m ShipmentVisible) Vars() map[string]string {
	return map[string]string{
		"receiver_name":   m.ReceiverName,
		"shipper_name":    m.ShipperName,
		"tracking_number": m.TrackingNumber,
		"status":          m.Status,
	}
}

type PickupShipper struct {
	TrackingNumber string
	DriverName     string
	CarPlate       string
	Status         string
}

func (PickupShipper) Key() Key { return KeyPickupShipper }
func (m PickupShipper) Vars() map[string]string {
	return map[string]string{
		"tracking_number":  m.TrackingNumber,
		"driver_name":      m.DriverName,
		"car_plate_number": m.CarPlate,
		"status":           m.Status,
	}
}

type PickupReceiver struct {
	TrackingNumber string
	ShipperName    string
	DriverName     string
	CarPlate       string
}

func (PickupReceiver) Key() Key { return KeyPickupReceiver }
func (m PickupReceiver) Vars() map[string]string {
	return map[string]string{
		"tracking_number":  m.TrackingNumber,
		"shipper_name":     m.ShipperName,
		"driver_name":      m.DriverName,
		"car_plate_number": m.CarPlate,
	}
}

type PickupDriver struct {
	TrackingNumber  string
	ShipperName     string
	PickupAddress   string
	DeliveryAddress string
	Price           string
	Distance        string
}

func (PickupDriver) Key() Key { return KeyPickupDriver }
func (m PickupDriver) Vars() map[string]string {
	return map[string]string{
		"tracking_number":  m.TrackingNumber,
		"shipper_name":     m.ShipperName,
		"pickup_address":   m.PickupAddress,
		"delivery_address": m.DeliveryAddress,
		"price":            m.Price,
		"distance":         m.Distance,
	}
}

type StatusUpdate struct {
	TrackingNumber string
	Status         string
}

func (StatusUpdate) Key() Key { return KeyStatusUpdate }
func (m StatusUpdate) Vars() map[string]string {
	return map[string]string{"tracking_number": m.TrackingNumber, "status": m.Status}
}

type AdminDriverAccept struct {
	DriverName     string
	CarPlate       string
	TrackingNumber string
	ShipperName    string
	Price          string
	Distance       string
}

func (AdminDriverAccept) Key() Key { return KeyAdminDriverAccept }
func (m AdminDriverAccept) Vars() map[string]string {
	return map[string]string{
		"driver_name":      m.DriverName,
		"car_plate_number": m.CarPlate,
		"tracking_number":  m.TrackingNumber,
		"shipper_name":     m.ShipperName,
		"price":            m.Price,
		"distance":         m.Distance,
	}
}

type ShipmentCancelled struct {
	TrackingNumber string
	Reason         string
}

func (ShipmentCancelled) Key() Key { return KeyShipmentCancelled }
func (m ShipmentCancelled) Vars() map[string]string {
	return map[string]string{"tracking_number": m.TrackingNumber, "reason": m.Reason}
}

type ContactForm struct {
	Name    string
	Email   string
	Message string
}

func (ContactForm) Key() Key { return KeyContactForm }
func (m ContactForm) Vars() map[string]string {
	return map[string]string{"name": m.Name, "email": m.Email, "message": m.Message}
}
