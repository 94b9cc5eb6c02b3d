package shipping

import (
	"context"

	"github.com/shopspring/decimal"
)

type QuoteRequest struct {
	FromCountry  string `json:"from_country"`
	ToCountry    string `json:"to_country"`
	ToPostalCode string `json:"to_postal_code"`
	ToCity       string `json:"to_city"`
	ToProvince   string `json:"to_province"`
}

type ProviderService struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type ProviderQuote struct {
	Currency string            `json:"currency"`
	Services []ProviderService `json:"services"`
}

//go:generate mockgen -source=provider.go -package shipping -destination provider_mock.go Provider,ProviderSource
type Provider interface {
	Quote(c context.Context, req QuoteRequest) (ProviderQuote, error)
}

// ProviderSource hands out a provider for the integration settings of the moment.
type ProviderSource interface {
	ProviderFor(baseURL string, apiKey string) Provider
}
