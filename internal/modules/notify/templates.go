// README: Built-in notification templates and the closed variable set of each key.
package notify

type Key string

const (
	KeyShipmentCreated   Key = "shipment_created_shipper"
	KeyPaymentSuccess    Key = "payment_success_shipper"
	KeyShipmentVisible   Key = "shipment_visible_receiver"
	KeyPickupShipper     Key = "driver_pickup_shipper"
	KeyPickupReceiver    Key = "driver_pickup_receiver"
	KeyPickupDriver      Key = "driver_pickup_driver"
	KeyStatusUpdate      Key = "shipment_status_update"
	KeyAdminDriverAccept Key = "admin_alert_driver_accept"
	KeyShipmentCancelled Key = "shipment_cancelled"
	KeyContactForm       Key = "contact_form_admin"
)

// Template holds one key's text in both languages. Empty Arabic fields fall
// back to English at render time.
type Template struct {
	Key         Key      `yaml:"key" json:"key"`
	Description string   `yaml:"description" json:"description"`
	Variables   []string `yaml:"-" json:"variables"`
	SubjectEN   string   `yaml:"subject_en" json:"subject_en"`
	SubjectAR   string   `yaml:"subject_ar" json:"subject_ar"`
	EmailEN     string   `yaml:"email_en" json:"email_en"`
	EmailAR     string   `yaml:"email_ar" json:"email_ar"`
	WhatsAppEN  string   `yaml:"whatsapp_en" json:"whatsapp_en"`
	WhatsAppAR  string   `yaml:"whatsapp_ar" json:"whatsapp_ar"`
}

// Content is a rendered notification.
type Content struct {
	Subject  string
	Email    string
	WhatsApp string
}

// Defaults returns the built-in templates, keyed by Key.
func Defaults() map[Key]Template {
	out := make(map[Key]Template, len(defaultTemplates))
	for _, t := range defaultTemplates {
		out[t.Key] = t
	}
	return out
}

// Variables lists the placeholders a key accepts.
func Variables(key Key) []string {
	for _, t := range defaultTemplates {
		if t.Key == key {
			return t.Variables
		}
	}
	return nil
}

var defaultTemplates = []Template{
	{
		Key:         KeyShipmentCreated,
		Description: "Sent to the shipper when a shipment is created",
		Variables:   []string{"name", "description", "tracking_number", "status", "distance", "price"},
		SubjectEN:   "Shipment Request Received - {{ tracking_number }}",
		SubjectAR:   "تم استلام طلب الشحنة - {{ tracking_number }}",
		EmailEN:     "Hello {{ name }},\n\nYour shipment request for '{{ description }}' has been received.\nTracking Number: {{ tracking_number }}\nDistance: {{ distance }} km\nPrice: {{ price }} OMR\nStatus: {{ status }}\n\nPlease proceed to payment to make it visible to drivers.",
		EmailAR:     "مرحباً {{ name }}،\n\nتم استلام طلب الشحنة '{{ description }}'.\nرقم التتبع: {{ tracking_number }}\nالمسافة: {{ distance }} كم\nالسعر: {{ price }} ر.ع\nالحالة: {{ status }}\n\nيرجى متابعة الدفع لجعلها مرئية للسائقين.",
		WhatsAppEN:  "Hello {{ name }}\nYour shipment request for '{{ description }}' has been received.\nTracking Number: {{ tracking_number }}\nDistance: {{ distance }} km\nPrice: {{ price }} OMR\nStatus: {{ status }}\nPlease proceed to payment.",
		WhatsAppAR:  "مرحباً {{ name }}،\nتم استلام طلب الشحنة '{{ description }}'.\nرقم التتبع: {{ tracking_number }}\nالمسافة: {{ distance }} كم\nالسعر: {{ price }} ر.ع\nالحالة: {{ status }}\nيرجى الدفع.",
	},
	{
		Key:         KeyPaymentSuccess,
		Description: "Sent to the shipper after payment",
		Variables:   []string{"tracking_number"},
		SubjectEN:   "Payment Successful - {{ tracking_number }}",
		SubjectAR:   "تم الدفع بنجاح - {{ tracking_number }}",
		EmailEN:     "Payment successful for shipment {{ tracking_number }}.\nYour shipment is now visible to available drivers.",
		EmailAR:     "تم الدفع بنجاح للشحنة {{ tracking_number }}.\nشحنتك الآن مرئية للسائقين المتاحين.",
		WhatsAppEN:  "Payment successful for shipment {{ tracking_number }}.\nYour shipment is now visible to available drivers.",
		WhatsAppAR:  "تم الدفع بنجاح للشحنة {{ tracking_number }}.\nشحنتك الآن مرئية للسائقين المتاحين.",
	},
	{
		Key:         KeyShipmentVisible,
		Description: "Sent to the receiver when a shipment is paid",
		Variables:   []string{"receiver_name", "shipper_name", "tracking_number", "status"},
		SubjectEN:   "Incoming Shipment - {{ tracking_number }}",
		SubjectAR:   "شحنة واردة - {{ tracking_number }}",
		EmailEN:     "Hello {{ receiver_name }},\n\nA shipment is coming your way from {{ shipper_name }}.\nTracking Number: {{ tracking_number }}\nStatus: {{ status }}",
		EmailAR:     "مرحباً {{ receiver_name }}،\n\nشحنة قادمة إليك من {{ shipper_name }}.\nرقم التتبع: {{ tracking_number }}\nالحالة: {{ status }}",
		WhatsAppEN:  "Hello {{ receiver_name }},\nA shipment is coming your way from {{ shipper_name }}.\nTracking Number: {{ tracking_number }}\nStatus: {{ status }}",
		WhatsAppAR:  "مرحباً {{ receiver_name }}،\nشحنة قادمة إليك من {{ shipper_name }}.\nرقم التتبع: {{ tracking_number }}\nالحالة: {{ status }}",
	},
	{
		Key:         KeyPickupShipper,
		Description: "Sent to the shipper when a driver picks up",
		Variables:   []string{"tracking_number", "driver_name", "car_plate_number", "status"},
		SubjectEN:   "Driver Assigned - {{ tracking_number }}",
		SubjectAR:   "تم تعيين سائق - {{ tracking_number }}",
		EmailEN:     "Shipment {{ tracking_number }} has been picked up by {{ driver_name }}.\nCar Plate: {{ car_plate_number }}\nStatus: {{ status }}",
		EmailAR:     "الشحنة {{ tracking_number }} تم استلامها بواسطة {{ driver_name }}.\nرقم اللوحة: {{ car_plate_number }}\nالحالة: {{ status }}",
		WhatsAppEN:  "Shipment {{ tracking_number }} has been picked up by {{ driver_name }}.\nCar Plate: {{ car_plate_number }}\nStatus: {{ status }}",
		WhatsAppAR:  "الشحنة {{ tracking_number }} تم استلامها بواسطة {{ driver_name }}.\nرقم اللوحة: {{ car_plate_number }}\nالحالة: {{ status }}",
	},
	{
		Key:         KeyPickupReceiver,
		Description: "Sent to the receiver when a driver picks up",
		Variables:   []string{"tracking_number", "shipper_name", "driver_name", "car_plate_number"},
		SubjectEN:   "Shipment On The Way - {{ tracking_number }}",
		SubjectAR:   "الشحنة في الطريق - {{ tracking_number }}",
		EmailEN:     "Shipment {{ tracking_number }} from {{ shipper_name }} is on the way (Picked up).\nDriver: {{ driver_name }}\nCar Plate: {{ car_plate_number }}",
		EmailAR:     "الشحنة {{ tracking_number }} من {{ shipper_name }} في الطريق (تم الاستلام).\nالسائق: {{ driver_name }}\nرقم اللوحة: {{ car_plate_number }}",
		WhatsAppEN:  "Shipment {{ tracking_number }} from {{ shipper_name }} is on the way (Picked up).\nDriver: {{ driver_name }}\nCar Plate: {{ car_plate_number }}",
		WhatsAppAR:  "الشحنة {{ tracking_number }} من {{ shipper_name }} في الطريق (تم الاستلام).\nالسائق: {{ driver_name }}\nرقم اللوحة: {{ car_plate_number }}",
	},
	{
		Key:         KeyPickupDriver,
		Description: "Sent to the driver on acceptance",
		Variables:   []string{"tracking_number", "shipper_name", "pickup_address", "delivery_address", "price", "distance"},
		SubjectEN:   "Shipment Accepted - {{ tracking_number }}",
		SubjectAR:   "تم قبول الشحنة - {{ tracking_number }}",
		EmailEN:     "You have successfully accepted Shipment {{ tracking_number }}.\nShipper: {{ shipper_name }}\nPickup: {{ pickup_address }}\nDelivery: {{ delivery_address }}\nDistance: {{ distance }} km\nPrice: {{ price }} OMR",
		EmailAR:     "لقد قبلت الشحنة {{ tracking_number }} بنجاح.\nالشاحن: {{ shipper_name }}\nالاستلام: {{ pickup_address }}\nالتوصيل: {{ delivery_address }}\nالمسافة: {{ distance }} كم\nالسعر: {{ price }} ر.ع",
		WhatsAppEN:  "You have successfully accepted Shipment {{ tracking_number }}.\nShipper: {{ shipper_name }}\nPickup: {{ pickup_address }}\nDelivery: {{ delivery_address }}\nDistance: {{ distance }} km\nPrice: {{ price }} OMR",
		WhatsAppAR:  "لقد قبلت الشحنة {{ tracking_number }} بنجاح.\nالشاحن: {{ shipper_name }}\nالاستلام: {{ pickup_address }}\nالتوصيل: {{ delivery_address }}\nالمسافة: {{ distance }} كم\nالسعر: {{ price }} ر.ع",
	},
	{
		Key:         KeyStatusUpdate,
		Description: "Sent on in-transit and delivered updates",
		Variables:   []string{"tracking_number", "status"},
		SubjectEN:   "Shipment Update - {{ tracking_number }}",
		SubjectAR:   "تحديث الشحنة - {{ tracking_number }}",
		EmailEN:     "Update for shipment {{ tracking_number }}:\nNew Status: {{ status }}",
		EmailAR:     "تحديث للشحنة {{ tracking_number }}:\nالحالة الجديدة: {{ status }}",
		WhatsAppEN:  "Update for shipment {{ tracking_number }}:\nNew Status: {{ status }}",
		WhatsAppAR:  "تحديث للشحنة {{ tracking_number }}:\nالحالة الجديدة: {{ status }}",
	},
	{
		Key:         KeyAdminDriverAccept,
		Description: "Sent to the administrator when a driver accepts",
		Variables:   []string{"driver_name", "car_plate_number", "tracking_number", "shipper_name", "price", "distance"},
		SubjectEN:   "Shipment Accepted ({{ tracking_number }})",
		SubjectAR:   "تم قبول الشحنة ({{ tracking_number }})",
		EmailEN:     "Driver {{ driver_name }} ({{ car_plate_number }}) accepted shipment {{ tracking_number }} from {{ shipper_name }}.\nDistance: {{ distance }} km\nPrice: {{ price }} OMR",
		EmailAR:     "قام السائق {{ driver_name }} ({{ car_plate_number }}) بقبول الشحنة {{ tracking_number }} من {{ shipper_name }}.\nالمسافة: {{ distance }} كم\nالسعر: {{ price }} ر.ع",
		WhatsAppEN:  "Driver {{ driver_name }} ({{ car_plate_number }}) accepted shipment {{ tracking_number }} from {{ shipper_name }}.\nDistance: {{ distance }} km\nPrice: {{ price }} OMR",
		WhatsAppAR:  "قام السائق {{ driver_name }} ({{ car_plate_number }}) بقبول الشحنة {{ tracking_number }} من {{ shipper_name }}.\nالمسافة: {{ distance }} كم\nالسعر: {{ price }} ر.ع",
	},
	{
		Key:         KeyShipmentCancelled,
		Description: "Sent to the shipper and assigned driver on cancellation",
		Variables:   []string{"tracking_number", "reason"},
		SubjectEN:   "Shipment Cancelled - {{ tracking_number }}",
		SubjectAR:   "تم إلغاء الشحنة - {{ tracking_number }}",
		EmailEN:     "Shipment {{ tracking_number }} has been cancelled.\nReason: {{ reason }}",
		EmailAR:     "تم إلغاء الشحنة {{ tracking_number }}.\nالسبب: {{ reason }}",
		WhatsAppEN:  "Shipment {{ tracking_number }} has been cancelled.\nReason: {{ reason }}",
		WhatsAppAR:  "تم إلغاء الشحنة {{ tracking_number }}.\nالسبب: {{ reason }}",
	},
	{
		Key:         KeyContactForm,
		Description: "Sent to the administrator when the contact form is submitted",
		Variables:   []string{"name", "email", "message"},
		SubjectEN:   "New Contact Message from {{ name }}",
		SubjectAR:   "رسالة جديدة من {{ name }}",
		EmailEN:     "You have received a new message from your website contact form.\n\nName: {{ name }}\nEmail: {{ email }}\n\nMessage:\n{{ message }}",
		EmailAR:     "لقد تلقيت رسالة جديدة من نموذج الاتصال.\n\nالاسم: {{ name }}\nالبريد: {{ email }}\n\nالرسالة:\n{{ message }}",
		WhatsAppEN:  "New Message from {{ name }}:\n{{ message }}",
		WhatsAppAR:  "رسالة جديدة من {{ name }}:\n{{ message }}",
	},
}
