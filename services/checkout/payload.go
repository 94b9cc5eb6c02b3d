package checkout

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/MarcGrol/dobmilano/services/catalog"
	"github.com/MarcGrol/dobmilano/services/orders"
)

const CheckoutModePaymentElement = "payment_element"

// InputItem is a cart line as sent by the client. Unmarshalling never fails on
// odd values: ids are stringified and unusable quantities become NaN.
type InputItem struct {
	ID       string
	Quantity float64
}

func (i *InputItem) UnmarshalJSON(data []byte) error {
	raw := map[string]any{}
	err := json.Unmarshal(data, &raw)
	if err != nil {
		*i = InputItem{Quantity: math.NaN()}
		return nil
	}

	switch id := raw["id"].(type) {
	case string:
		i.ID = id
	case float64:
		i.ID = strconv.FormatFloat(id, 'f', -1, 64)
	default:
		i.ID = ""
	}

	switch q := raw["quantity"].(type) {
	case float64:
		i.Quantity = q
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(q), 64)
		if err != nil {
			parsed = math.NaN()
		}
		i.Quantity = parsed
	default:
		i.Quantity = math.NaN()
	}

	return nil
}

type BuildInput struct {
	Locale                 string
	Customer               orders.Customer
	Items                  []InputItem
	ShippingOptionID       string
	ProductFulfillmentMode orders.FulfillmentMode
	ServiceAppointmentMode orders.AppointmentMode
	ServiceRequestedDate   string
	ServiceRequestedTime   string
}

// SubmitPayload is the canonical body of a checkout submission.
type SubmitPayload struct {
	CheckoutMode           string                    `json:"checkoutMode"`
	Locale                 string                    `json:"locale"`
	Customer               orders.Customer           `json:"customer"`
	Items                  []catalog.LineItem        `json:"items"`
	ShippingOptionID       string                    `json:"shippingOptionID,omitempty"`
	ProductFulfillmentMode orders.FulfillmentMode    `json:"productFulfillmentMode"`
	ServiceAppointment     orders.ServiceAppointment `json:"serviceAppointment"`
}

// BuildSubmitPayload turns the checkout state into a submission. It is pure:
// equal input gives equal output.
func BuildSubmitPayload(in BuildInput) SubmitPayload {
	items := NormalizeItems(in.Items)
	fulfillment := ResolveFulfillmentMode(items, in.ProductFulfillmentMode)

	payload := SubmitPayload{
		CheckoutMode:           CheckoutModePaymentElement,
		Locale:                 in.Locale,
		Customer:               in.Customer,
		Items:                  items,
		ProductFulfillmentMode: fulfillment,
		ServiceAppointment:     ResolveServiceAppointment(items, in.ServiceAppointmentMode, in.ServiceRequestedDate, in.ServiceRequestedTime),
	}
	if fulfillment == orders.FulfillmentShipping && in.ShippingOptionID != "" {
		payload.ShippingOptionID = in.ShippingOptionID
	}
	return payload
}

// NormalizeItems trims ids, drops lines without one and makes every quantity a
// positive integer.
func NormalizeItems(items []InputItem) []catalog.LineItem {
	result := []catalog.LineItem{}
	for _, item := range items {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			continue
		}
		result = append(result, catalog.LineItem{ID: id, Quantity: normalizeQuantity(item.Quantity)})
	}
	return result
}

func normalizeQuantity(q float64) int {
	if math.IsNaN(q) || math.IsInf(q, 0) {
		return 1
	}
	q = math.Floor(q)
	if q < 1 {
		return 1
	}
	if q > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(q)
}

func hasProducts(items []catalog.LineItem) bool {
	for _, item := range items {
		if !IsServiceLike(item.ID) {
			return true
		}
	}
	return false
}

func hasServiceLike(items []catalog.LineItem) bool {
	for _, item := range items {
		if IsServiceLike(item.ID) {
			return true
		}
	}
	return false
}

// ResolveFulfillmentMode is "none" without products, "pickup" when asked for, else "shipping".
func ResolveFulfillmentMode(items []catalog.LineItem, requested orders.FulfillmentMode) orders.FulfillmentMode {
	if !hasProducts(items) {
		return orders.FulfillmentNone
	}
	if requested == orders.FulfillmentPickup {
		return orders.FulfillmentPickup
	}
	return orders.FulfillmentShipping
}

// ResolveServiceAppointment keeps a requested slot only when both date and time are given.
func ResolveServiceAppointment(items []catalog.LineItem, mode orders.AppointmentMode, date string, time string) orders.ServiceAppointment {
	if !hasServiceLike(items) {
		return orders.ServiceAppointment{Mode: orders.AppointmentNone}
	}
	date = strings.TrimSpace(date)
	time = strings.TrimSpace(time)
	if mode == orders.AppointmentRequestedSlot && date != "" && time != "" {
		return orders.ServiceAppointment{Mode: orders.AppointmentRequestedSlot, RequestedDate: date, RequestedTime: time}
	}
	return orders.ServiceAppointment{Mode: orders.AppointmentContactLater}
}
