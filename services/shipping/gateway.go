package shipping

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/MarcGrol/dobmilano/lib/myerrors"
	"github.com/MarcGrol/dobmilano/lib/mylog"
	"github.com/MarcGrol/dobmilano/lib/mymetrics"
	"github.com/MarcGrol/dobmilano/services/sitesettings"
)

const (
	missingDestinationMessage = "Missing required destination fields."
	quoteFailedMessage        = "Unable to fetch shipping quote."
)

type Gateway struct {
	settings  *sitesettings.Resolver
	providers ProviderSource
	logger    mylog.Logger
}

func NewGateway(settings *sitesettings.Resolver, providers ProviderSource) *Gateway {
	return &Gateway{
		settings:  settings,
		providers: providers,
		logger:    mylog.New("shipping"),
	}
}

// Quote asks the carrier for the methods to dest. At or above the free shipping
// threshold every method is zeroed; the first method in provider order is the default.
// A carrier without services for dest yields a quote without methods.
func (g *Gateway) Quote(c context.Context, dest Destination, subtotal decimal.Decimal) (Quote, error) {
	if !dest.complete() {
		mymetrics.ShippingQuotes.WithLabelValues("invalid").Inc()
		return Quote{}, myerrors.NewInvalidInputError(fmt.Errorf(missingDestinationMessage))
	}

	integrations, err := g.settings.Integrations(c)
	if err != nil {
		return Quote{}, g.failure(c, "error", err)
	}
	if !integrations.ShippingConfigured() {
		return Quote{}, g.failure(c, "unconfigured", fmt.Errorf("shipping provider not configured"))
	}

	providerQuote, err := g.providers.ProviderFor(integrations.ShippingAPIURL, integrations.ShippingAPIKey).Quote(c, QuoteRequest{
		FromCountry:  integrations.ShippingOriginCountry,
		ToCountry:    dest.country(),
		ToPostalCode: dest.PostalCode,
		ToCity:       dest.City,
		ToProvince:   dest.Province,
	})
	if err != nil {
		return Quote{}, g.failure(c, "error", err)
	}
	free := subtotal.GreaterThanOrEqual(FreeShippingThreshold)

	quote := Quote{
		FreeShipping: free,
		Currency:     providerQuote.Currency,
		Methods:      []Method{},
	}
	if quote.Currency == "" {
		quote.Currency = "EUR"
	}
	for _, s := range providerQuote.Services {
		amount := s.Price
		if free {
			amount = decimal.Zero
		}
		quote.Methods = append(quote.Methods, Method{ID: s.ID, Name: s.Name, Amount: amount})
	}
	if len(quote.Methods) == 0 {
		mymetrics.ShippingQuotes.WithLabelValues("empty").Inc()
		g.logger.Log(c, "", mylog.SeverityInfo, "Carrier returned no services for %s %s", dest.country(), dest.PostalCode)
		return quote, nil
	}
	quote.Amount = quote.Methods[0].Amount
	quote.MethodID = quote.Methods[0].ID
	quote.MethodName = quote.Methods[0].Name

	mymetrics.ShippingQuotes.WithLabelValues("ok").Inc()

	return quote, nil
}

func (g *Gateway) failure(c context.Context, outcome string, err error) error {
	mymetrics.ShippingQuotes.WithLabelValues(outcome).Inc()
	g.logger.Log(c, "", mylog.SeverityError, "Shipping quote failed (%s): %s", outcome, err)
	return myerrors.NewInternalError(err).WithMessage(quoteFailedMessage)
}
