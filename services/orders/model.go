package orders

import (
	"time"

	"github.com/MarcGrol/dobmilano/services/catalog"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusFailed  Status = "failed"
)

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusPaid       PaymentStatus = "paid"
	PaymentStatusFailed     PaymentStatus = "failed"
)

type FulfillmentMode string

const (
	FulfillmentShipping FulfillmentMode = "shipping"
	FulfillmentPickup   FulfillmentMode = "pickup"
	FulfillmentNone     FulfillmentMode = "none"
)

type AppointmentMode string

const (
	AppointmentRequestedSlot AppointmentMode = "requested_slot"
	AppointmentContactLater  AppointmentMode = "contact_later"
	AppointmentNone          AppointmentMode = "none"
)

type Customer struct {
	Email      string `json:"email"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Phone      string `json:"phone,omitempty"`
	Address    string `json:"address,omitempty"`
	City       string `json:"city,omitempty"`
	Province   string `json:"province,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
	Notes      string `json:"notes,omitempty" datastore:",noindex"`
}

type ServiceAppointment struct {
	Mode          AppointmentMode `json:"mode"`
	RequestedDate string          `json:"requestedDate,omitempty"`
	RequestedTime string          `json:"requestedTime,omitempty"`
}

type Order struct {
	ID                     int64
	OrderNumber            string
	Locale                 string
	Customer               Customer
	Lines                  []catalog.PricedLine
	SubtotalCents          int64
	ShippingCents          int64
	TotalCents             int64
	Currency               string
	ProductFulfillmentMode FulfillmentMode
	ShippingOptionID       string
	ServiceAppointment     ServiceAppointment
	Status                 Status
	PaymentStatus          PaymentStatus
	PaymentReference       string
	FailureReason          string `datastore:",noindex"`
	InventoryCommitted     bool
	CreatedAt              time.Time
	LastModified           time.Time
}

func (o Order) IsPaid() bool {
	return o.Status == StatusPaid || o.PaymentStatus == PaymentStatusPaid
}

// orderSequence hands out numeric order ids.
type orderSequence struct {
	Name string
	Last int64
}
