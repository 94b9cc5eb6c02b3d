package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v74"

	"github.com/MarcGrol/dobmilano/lib/myerrors"
	"github.com/MarcGrol/dobmilano/lib/mylog"
	"github.com/MarcGrol/dobmilano/lib/mymetrics"
	"github.com/MarcGrol/dobmilano/lib/mypublisher"
	"github.com/MarcGrol/dobmilano/services/catalog"
	"github.com/MarcGrol/dobmilano/services/checkoutevents"
	"github.com/MarcGrol/dobmilano/services/orders"
	"github.com/MarcGrol/dobmilano/services/shipping"
	"github.com/MarcGrol/dobmilano/services/sitesettings"
)

const (
	eventPaymentSucceeded  = "payment_intent.succeeded"
	eventPaymentProcessing = "payment_intent.processing"
	eventPaymentFailed     = "payment_intent.payment_failed"
)

type CartClearer interface {
	Clear(c context.Context, cartUID string) error
}

type Service struct {
	logger    mylog.Logger
	catalog   *catalog.Catalog
	orders    *orders.Repository
	settings  *sitesettings.Resolver
	shipping  *shipping.Gateway
	carts     CartClearer
	payer     Payer
	publisher mypublisher.Publisher
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewService(productCatalog *catalog.Catalog, orderRepo *orders.Repository, settings *sitesettings.Resolver, gateway *shipping.Gateway, carts CartClearer, payer Payer, publisher mypublisher.Publisher) *Service {
	return &Service{
		logger:    mylog.New("checkout"),
		catalog:   productCatalog,
		orders:    orderRepo,
		settings:  settings,
		shipping:  gateway,
		carts:     carts,
		payer:     payer,
		publisher: publisher,
	}
}

// SubmitRequest is a checkout submission as received from the client. Nothing in it is trusted.
type SubmitRequest struct {
	CheckoutMode           string                    `json:"checkoutMode"`
	Locale                 string                    `json:"locale"`
	Customer               orders.Customer           `json:"customer"`
	Items                  []InputItem               `json:"items"`
	ShippingOptionID       string                    `json:"shippingOptionID"`
	ProductFulfillmentMode orders.FulfillmentMode    `json:"productFulfillmentMode"`
	ServiceAppointment     orders.ServiceAppointment `json:"serviceAppointment"`
	CartID                 string                    `json:"cartId"`
}

type SubmitResult struct {
	OrderNumber               string
	OrderID                   int64
	PaymentIntentClientSecret string
	StripePublishableKey      string
	CheckoutMode              string
}

func rejection(locale string, key messageKey) error {
	return myerrors.NewInvalidInputError(errors.New(message(locale, key)))
}

// Submit validates the submission, prices it against the catalog, creates the
// pending order and the payment intent the client will confirm.
func (s *Service) Submit(c context.Context, req SubmitRequest) (SubmitResult, error) {
	locale := normalizeLocale(req.Locale)

	if req.CheckoutMode != "" && req.CheckoutMode != CheckoutModePaymentElement {
		return SubmitResult{}, rejection(locale, keyUnsupportedMode)
	}

	items := NormalizeItems(req.Items)
	if len(items) == 0 {
		return SubmitResult{}, rejection(locale, keyCartEmpty)
	}

	fulfillment := ResolveFulfillmentMode(items, req.ProductFulfillmentMode)
	customer := trimCustomer(req.Customer)

	missing := missingCustomerFields(customer, fulfillment)
	if len(missing) > 0 {
		return SubmitResult{}, myerrors.NewInvalidInputError(errors.New(message(locale, keyCompleteRequiredFields))).WithDetail("missing", missing)
	}

	requested := req.ServiceAppointment
	if hasServiceLike(items) && requested.Mode == orders.AppointmentRequestedSlot &&
		(strings.TrimSpace(requested.RequestedDate) == "" || strings.TrimSpace(requested.RequestedTime) == "") {
		return SubmitResult{}, rejection(locale, keySlotRequired)
	}
	appointment := ResolveServiceAppointment(items, requested.Mode, requested.RequestedDate, requested.RequestedTime)

	lines, unknown, err := s.catalog.PriceLines(c, items)
	if err != nil {
		return SubmitResult{}, err
	}
	if len(unknown) > 0 {
		return SubmitResult{}, myerrors.NewInvalidInputError(errors.New(message(locale, keyUnknownItems))).WithDetail("missing", unknown)
	}

	shortfall, err := s.catalog.CheckAvailability(c, lines)
	if err != nil {
		return SubmitResult{}, err
	}
	if shortfall != nil {
		return SubmitResult{}, myerrors.NewConflictError(errors.New(message(locale, keyInsufficientStock))).
			WithDetail("requested", shortfall.Requested).
			WithDetail("available", shortfall.Available)
	}

	integrations, err := s.settings.Integrations(c)
	if err != nil {
		return SubmitResult{}, err
	}
	if !integrations.PaymentsConfigured() {
		return SubmitResult{}, paymentsUnavailable(locale)
	}

	subtotalCents := catalog.SubtotalCents(lines)

	shippingOptionID := ""
	shippingCents := int64(0)
	if fulfillment == orders.FulfillmentShipping {
		quote, err := s.shipping.Quote(c, shipping.Destination{
			Address:    customer.Address,
			City:       customer.City,
			Province:   customer.Province,
			PostalCode: customer.PostalCode,
			Country:    customer.Country,
		}, catalog.FromCents(subtotalCents))
		if err != nil {
			return SubmitResult{}, err
		}
		if len(quote.Methods) == 0 {
			return SubmitResult{}, myerrors.NewInvalidInputError(fmt.Errorf("no shipping method for %s %s", customer.Country, customer.PostalCode)).
				WithMessage(message(locale, keyNoShippingMethod))
		}
		method := quote.Method(req.ShippingOptionID)
		shippingOptionID = method.ID
		shippingCents = catalog.ToCents(method.Amount)
	}

	order, err := s.orders.Create(c, orders.Order{
		Locale:                 locale,
		Customer:               customer,
		Lines:                  lines,
		SubtotalCents:          subtotalCents,
		ShippingCents:          shippingCents,
		TotalCents:             subtotalCents + shippingCents,
		Currency:               lines[0].Currency,
		ProductFulfillmentMode: fulfillment,
		ShippingOptionID:       shippingOptionID,
		ServiceAppointment:     appointment,
	})
	if err != nil {
		return SubmitResult{}, err
	}
	mymetrics.OrdersCreated.Inc()

	intent, err := s.payer.CreatePaymentIntent(c, integrations.StripeSecretKey, paymentIntentParams(order))
	if err != nil {
		s.logger.Log(c, order.OrderNumber, mylog.SeverityError, "Error creating payment-intent for order %d: %s", order.ID, err)
		_, markErr := s.orders.MarkFailed(c, order.ID, "payment intent creation failed")
		if markErr != nil {
			s.logger.Log(c, order.OrderNumber, mylog.SeverityError, "Error marking order %d failed: %s", order.ID, markErr)
		}
		return SubmitResult{}, myerrors.NewInternalError(err)
	}

	order, err = s.orders.AttachPaymentReference(c, order.ID, intent.ID)
	if err != nil {
		return SubmitResult{}, err
	}

	err = s.publisher.Publish(c, checkoutevents.TopicName, checkoutevents.OrderCreated{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Locale:      order.Locale,
		TotalCents:  order.TotalCents,
		Currency:    order.Currency,
		Email:       order.Customer.Email,
		ItemCount:   len(order.Lines),
	})
	if err != nil {
		s.logger.Log(c, order.OrderNumber, mylog.SeverityError, "Error publishing order.created for order %d: %s", order.ID, err)
	}

	if req.CartID != "" && s.carts != nil {
		err = s.carts.Clear(c, req.CartID)
		if err != nil {
			s.logger.Log(c, order.OrderNumber, mylog.SeverityWarn, "Error clearing cart %s: %s", req.CartID, err)
		}
	}

	s.logger.Log(c, order.OrderNumber, mylog.SeverityInfo, "Checkout submitted: order %d, total %d %s, payment-intent %s",
		order.ID, order.TotalCents, order.Currency, intent.ID)

	return SubmitResult{
		OrderNumber:               order.OrderNumber,
		OrderID:                   order.ID,
		PaymentIntentClientSecret: intent.ClientSecret,
		StripePublishableKey:      integrations.StripePublishableKey,
		CheckoutMode:              CheckoutModePaymentElement,
	}, nil
}

func paymentIntentParams(order orders.Order) stripe.PaymentIntentParams {
	params := stripe.PaymentIntentParams{
		Amount:      stripe.Int64(order.TotalCents),
		Currency:    stripe.String(strings.ToLower(order.Currency)),
		Description: stripe.String(fmt.Sprintf("Order %s", order.OrderNumber)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if order.Customer.Email != "" {
		params.ReceiptEmail = stripe.String(order.Customer.Email)
	}
	params.SetIdempotencyKey(fmt.Sprintf("order-%s-%d", order.OrderNumber, order.ID))
	params.AddMetadata("orderId", strconv.FormatInt(order.ID, 10))
	params.AddMetadata("orderNumber", order.OrderNumber)
	return params
}

func trimCustomer(customer orders.Customer) orders.Customer {
	customer.Email = strings.TrimSpace(customer.Email)
	customer.FirstName = strings.TrimSpace(customer.FirstName)
	customer.LastName = strings.TrimSpace(customer.LastName)
	customer.Phone = strings.TrimSpace(customer.Phone)
	customer.Address = strings.TrimSpace(customer.Address)
	customer.City = strings.TrimSpace(customer.City)
	customer.Province = strings.TrimSpace(customer.Province)
	customer.PostalCode = strings.TrimSpace(customer.PostalCode)
	customer.Country = strings.ToUpper(strings.TrimSpace(customer.Country))
	return customer
}

func missingCustomerFields(customer orders.Customer, fulfillment orders.FulfillmentMode) []string {
	type field struct {
		name  string
		value string
	}
	fields := []field{
		{"email", customer.Email},
		{"firstName", customer.FirstName},
		{"lastName", customer.LastName},
	}
	if fulfillment == orders.FulfillmentShipping {
		fields = append(fields,
			field{"address", customer.Address},
			field{"city", customer.City},
			field{"province", customer.Province},
			field{"postalCode", customer.PostalCode},
		)
	}

	missing := []string{}
	for _, f := range fields {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

func paymentsUnavailable(locale string) error {
	msg := message(locale, keyPaymentsUnavailable)
	return myerrors.NewUnavailableError(errors.New("stripe secret key not configured")).WithMessage(msg)
}

// Confirm reconciles the order with a payment intent the client claims to have
// completed. Repeated calls for a paid order succeed without committing again.
func (s *Service) Confirm(c context.Context, locale string, orderID int64, paymentIntentID string) error {
	locale = normalizeLocale(locale)

	integrations, err := s.settings.Integrations(c)
	if err != nil {
		return err
	}
	if !integrations.PaymentsConfigured() {
		return paymentsUnavailable(locale)
	}

	intent, err := s.payer.GetPaymentIntent(c, integrations.StripeSecretKey, paymentIntentID)
	if err != nil {
		mymetrics.PaymentConfirmations.WithLabelValues("error").Inc()
		return myerrors.NewInternalError(err)
	}

	if !finalized(intent.Status) {
		mymetrics.PaymentConfirmations.WithLabelValues("not_finalized").Inc()
		return myerrors.NewConflictError(errors.New(paymentNotFinalizedMessage)).WithDetail("status", string(intent.Status))
	}

	return s.markPaid(c, orderID, paymentIntentID, intent.Status)
}

func finalized(status stripe.PaymentIntentStatus) bool {
	return status == stripe.PaymentIntentStatusSucceeded || status == stripe.PaymentIntentStatusProcessing
}

// markPaid flips the order and commits inventory in one transaction. The
// order.paid event goes into the same transaction so it is emitted exactly once.
func (s *Service) markPaid(c context.Context, orderID int64, reference string, status stripe.PaymentIntentStatus) error {
	paymentStatus := orders.PaymentStatusPaid
	if status == stripe.PaymentIntentStatusProcessing {
		paymentStatus = orders.PaymentStatusProcessing
	}

	order, changed, err := s.orders.MarkPaidOnce(c, orderID, reference, paymentStatus, func(c context.Context, order orders.Order) error {
		err := s.catalog.CommitInventory(c, order.Lines)
		if err != nil {
			return err
		}

		err = s.publisher.Publish(c, checkoutevents.TopicName, checkoutevents.OrderPaid{
			OrderID:          order.ID,
			OrderNumber:      order.OrderNumber,
			PaymentReference: reference,
			PaymentStatus:    string(paymentStatus),
			TotalCents:       order.TotalCents,
			Currency:         order.Currency,
		})
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error publishing order.paid for order %d: %s", order.ID, err))
		}
		return nil
	})
	if err != nil {
		outcome := "error"
		if myerrors.GetHTTPStatus(err) < 500 {
			outcome = "rejected"
		}
		mymetrics.PaymentConfirmations.WithLabelValues(outcome).Inc()
		return err
	}

	if !changed {
		mymetrics.PaymentConfirmations.WithLabelValues("duplicate").Inc()
		s.logger.Log(c, order.OrderNumber, mylog.SeverityInfo, "Order %d already paid, nothing to commit", order.ID)
		return nil
	}

	mymetrics.InventoryCommits.Inc()
	mymetrics.PaymentConfirmations.WithLabelValues("paid").Inc()

	return nil
}

// HandleWebhook verifies and processes a stripe event. Events that cannot be
// applied to an order are acknowledged so stripe does not keep retrying them.
func (s *Service) HandleWebhook(c context.Context, payload []byte, signature string) error {
	integrations, err := s.settings.Integrations(c)
	if err != nil {
		return err
	}
	if integrations.StripeWebhookSecret == "" {
		return myerrors.NewUnavailableError(errors.New("stripe webhook secret not configured")).WithMessage("Webhook not configured.")
	}

	event, err := s.payer.ConstructWebhookEvent(payload, signature, integrations.StripeWebhookSecret)
	if err != nil {
		return err
	}

	eventType := string(event.Type)
	if eventType != eventPaymentSucceeded && eventType != eventPaymentProcessing && eventType != eventPaymentFailed {
		s.logger.Log(c, event.ID, mylog.SeverityDebug, "Ignoring stripe event %s", eventType)
		return nil
	}

	if event.Data == nil {
		return myerrors.NewInvalidInputError(fmt.Errorf("stripe event %s without data", event.ID))
	}
	intent := stripe.PaymentIntent{}
	err = json.Unmarshal(event.Data.Raw, &intent)
	if err != nil {
		return myerrors.NewInvalidInputError(fmt.Errorf("error parsing payment-intent of event %s: %s", event.ID, err))
	}

	orderID, err := strconv.ParseInt(intent.Metadata["orderId"], 10, 64)
	if err != nil || orderID <= 0 {
		s.logger.Log(c, event.ID, mylog.SeverityWarn, "Stripe event %s for payment-intent %s carries no order", eventType, intent.ID)
		return nil
	}

	if eventType == eventPaymentFailed {
		return s.markFailed(c, orderID, intent)
	}

	err = s.markPaid(c, orderID, intent.ID, intent.Status)
	if err != nil {
		if myerrors.GetHTTPStatus(err) < 500 {
			s.logger.Log(c, event.ID, mylog.SeverityWarn, "Stripe event %s for order %d not applied: %s", eventType, orderID, err)
			return nil
		}
		return err
	}

	return nil
}

func (s *Service) markFailed(c context.Context, orderID int64, intent stripe.PaymentIntent) error {
	order, found, err := s.orders.Get(c, orderID)
	if err != nil {
		return err
	}
	if !found || order.PaymentReference != intent.ID {
		s.logger.Log(c, intent.ID, mylog.SeverityWarn, "Payment failure for unknown order %d", orderID)
		return nil
	}

	reason := "payment failed"
	if intent.LastPaymentError != nil && intent.LastPaymentError.Msg != "" {
		reason = intent.LastPaymentError.Msg
	}

	_, err = s.orders.MarkFailed(c, orderID, reason)
	return err
}
