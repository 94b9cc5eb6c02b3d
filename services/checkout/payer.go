package checkout

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"

	"github.com/MarcGrol/dobmilano/lib/myerrors"
)

//go:generate mockgen -source=payer.go -package checkout -destination payer_mock.go Payer
type Payer interface {
	CreatePaymentIntent(c context.Context, secretKey string, params stripe.PaymentIntentParams) (stripe.PaymentIntent, error)
	GetPaymentIntent(c context.Context, secretKey string, paymentIntentID string) (stripe.PaymentIntent, error)
	ConstructWebhookEvent(payload []byte, signature string, secret string) (stripe.Event, error)
}

type stripePayer struct{}

func NewPayer() Payer {
	return &stripePayer{}
}

// The secret key can change at runtime through site settings, so every call builds its own client.
func newClient(secretKey string) *client.API {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return sc
}

func (p *stripePayer) CreatePaymentIntent(c context.Context, secretKey string, params stripe.PaymentIntentParams) (stripe.PaymentIntent, error) {
	params.Context = c
	intent, err := newClient(secretKey).PaymentIntents.New(&params)
	if err != nil {
		return stripe.PaymentIntent{}, myerrors.NewInternalError(fmt.Errorf("error creating stripe payment-intent: %s", err))
	}
	return *intent, nil
}

func (p *stripePayer) GetPaymentIntent(c context.Context, secretKey string, paymentIntentID string) (stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = c
	intent, err := newClient(secretKey).PaymentIntents.Get(paymentIntentID, params)
	if err != nil {
		return stripe.PaymentIntent{}, myerrors.NewInternalError(fmt.Errorf("error fetching stripe payment-intent %s: %s", paymentIntentID, err))
	}
	return *intent, nil
}

func (p *stripePayer) ConstructWebhookEvent(payload []byte, signature string, secret string) (stripe.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, myerrors.NewInvalidInputError(fmt.Errorf("invalid stripe signature: %s", err))
	}
	return event, nil
}
