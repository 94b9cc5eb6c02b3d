package sitesettings

import (
	"context"
	"fmt"

	"github.com/MarcGrol/dobmilano/lib/myconfig"
	"github.com/MarcGrol/dobmilano/lib/myerrors"
	"github.com/MarcGrol/dobmilano/lib/mystore"
)

const globalUID = "global"

// SiteSettings is the admin edited global document. Empty fields fall back to the environment.
type SiteSettings struct {
	StripeSecretKey       string `datastore:",noindex"`
	StripePublishableKey  string `datastore:",noindex"`
	StripeWebhookSecret   string `datastore:",noindex"`
	ShippingAPIURL        string `datastore:",noindex"`
	ShippingAPIKey        string `datastore:",noindex"`
	ShippingOriginCountry string `datastore:",noindex"`
}

type Integrations struct {
	StripeSecretKey       string
	StripePublishableKey  string
	StripeWebhookSecret   string
	ShippingAPIURL        string
	ShippingAPIKey        string
	ShippingOriginCountry string
}

func (i Integrations) PaymentsConfigured() bool {
	return i.StripeSecretKey != ""
}

func (i Integrations) ShippingConfigured() bool {
	return i.ShippingAPIURL != "" && i.ShippingAPIKey != ""
}

type Resolver struct {
	store    mystore.Store[SiteSettings]
	defaults myconfig.IntegrationDefaults
}

func NewResolver(store mystore.Store[SiteSettings], defaults myconfig.IntegrationDefaults) *Resolver {
	return &Resolver{
		store:    store,
		defaults: defaults,
	}
}

func (r *Resolver) Get(c context.Context) (SiteSettings, error) {
	settings, _, err := r.store.Get(c, globalUID)
	if err != nil {
		return SiteSettings{}, myerrors.NewInternalError(fmt.Errorf("error fetching site settings: %s", err))
	}
	return settings, nil
}

func (r *Resolver) Save(c context.Context, settings SiteSettings) error {
	err := r.store.Put(c, globalUID, settings)
	if err != nil {
		return myerrors.NewInternalError(fmt.Errorf("error storing site settings: %s", err))
	}
	return nil
}

// Integrations merges the stored document with the environment defaults, field by field.
func (r *Resolver) Integrations(c context.Context) (Integrations, error) {
	settings, err := r.Get(c)
	if err != nil {
		return Integrations{}, err
	}

	return Integrations{
		StripeSecretKey:       firstNonEmpty(settings.StripeSecretKey, r.defaults.StripeSecretKey),
		StripePublishableKey:  firstNonEmpty(settings.StripePublishableKey, r.defaults.StripePublishableKey),
		StripeWebhookSecret:   firstNonEmpty(settings.StripeWebhookSecret, r.defaults.StripeWebhookSecret),
		ShippingAPIURL:        firstNonEmpty(settings.ShippingAPIURL, r.defaults.ShippingAPIURL),
		ShippingAPIKey:        firstNonEmpty(settings.ShippingAPIKey, r.defaults.ShippingAPIKey),
		ShippingOriginCountry: firstNonEmpty(settings.ShippingOriginCountry, r.defaults.ShippingOriginCountry, "IT"),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
