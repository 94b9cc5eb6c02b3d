package shipping

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

var ErrUnsupportedDestination = errors.New("unsupported destination")

// FakeProvider answers like the carrier API, from memory.
type FakeProvider struct {
	sync.Mutex
	Currency string
	Services []ProviderService
	Err      error
	Requests []QuoteRequest
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		Currency: "EUR",
		Services: []ProviderService{
			{ID: "brt-standard", Name: "BRT Standard", Price: decimal.RequireFromString("6.90")},
			{ID: "gls-express", Name: "GLS Express", Price: decimal.RequireFromString("12.50")},
		},
	}
}

func (f *FakeProvider) ProviderFor(baseURL string, apiKey string) Provider {
	return f
}

func (f *FakeProvider) Quote(c context.Context, req QuoteRequest) (ProviderQuote, error) {
	f.Lock()
	defer f.Unlock()

	f.Requests = append(f.Requests, req)

	if f.Err != nil {
		return ProviderQuote{}, f.Err
	}
	if strings.TrimSpace(req.ToPostalCode) == "" || len(req.ToCountry) != 2 {
		return ProviderQuote{}, ErrUnsupportedDestination
	}

	services := make([]ProviderService, len(f.Services))
	copy(services, f.Services)

	return ProviderQuote{
		Currency: f.Currency,
		Services: services,
	}, nil
}
