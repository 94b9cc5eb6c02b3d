package shipping

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MarcGrol/dobmilano/lib/myconfig"
	"github.com/MarcGrol/dobmilano/lib/myerrors"
	"github.com/MarcGrol/dobmilano/lib/mystore"
	"github.com/MarcGrol/dobmilano/services/sitesettings"
)

var milano = Destination{Address: "Via Torino 12", City: "Milano", Province: "MI", PostalCode: "20123"}

func newResolver(t *testing.T, defaults myconfig.IntegrationDefaults) *sitesettings.Resolver {
	store, _, err := mystore.NewInMemoryStore[sitesettings.SiteSettings](context.TODO())
	require.NoError(t, err)
	return sitesettings.NewResolver(store, defaults)
}

var configured = myconfig.IntegrationDefaults{
	ShippingAPIURL:        "https://carrier.example",
	ShippingAPIKey:        "key",
	ShippingOriginCountry: "IT",
}

func TestGateway(t *testing.T) {
	c := context.TODO()

	t.Run("Missing destination fields", func(t *testing.T) {
		fake := NewFakeProvider()
		sut := NewGateway(newResolver(t, configured), fake)

		_, err := sut.Quote(c, Destination{Address: "Via Torino 12", City: "Milano", Province: " "}, decimal.NewFromInt(10))

		require.Error(t, err)
		assert.Equal(t, 400, myerrors.GetHTTPStatus(err))
		assert.Equal(t, "Missing required destination fields.", myerrors.GetPublicMessage(err))
		assert.Empty(t, fake.Requests)
	})

	t.Run("Below threshold keeps provider prices and order", func(t *testing.T) {
		fake := NewFakeProvider()
		sut := NewGateway(newResolver(t, configured), fake)

		quote, err := sut.Quote(c, milano, decimal.RequireFromString("69.99"))

		require.NoError(t, err)
		assert.False(t, quote.FreeShipping)
		assert.Equal(t, "6.9", quote.Amount.String())
		assert.Equal(t, "BRT Standard", quote.MethodName)
		assert.Equal(t, "EUR", quote.Currency)
		require.Len(t, quote.Methods, 2)
		assert.Equal(t, "gls-express", quote.Methods[1].ID)
		assert.Equal(t, "12.5", quote.Methods[1].Amount.String())
		assert.Equal(t, []QuoteRequest{{FromCountry: "IT", ToCountry: "IT", ToPostalCode: "20123", ToCity: "Milano", ToProvince: "MI"}}, fake.Requests)
	})

	t.Run("At threshold every method is free", func(t *testing.T) {
		fake := NewFakeProvider()
		sut := NewGateway(newResolver(t, configured), fake)

		quote, err := sut.Quote(c, milano, decimal.NewFromInt(70))

		require.NoError(t, err)
		assert.True(t, quote.FreeShipping)
		assert.True(t, quote.Amount.IsZero())
		require.Len(t, quote.Methods, 2)
		for _, m := range quote.Methods {
			assert.True(t, m.Amount.IsZero())
			assert.NotEmpty(t, m.Name)
		}
		assert.Equal(t, "gls-express", quote.Method("gls-express").ID)
		assert.Equal(t, "brt-standard", quote.Method("unknown").ID)
	})

	t.Run("Provider failure is generic", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		provider := NewMockProvider(ctrl)
		source := NewMockProviderSource(ctrl)
		source.EXPECT().ProviderFor("https://carrier.example", "key").Return(provider)
		provider.EXPECT().Quote(gomock.Any(), gomock.Any()).Return(ProviderQuote{}, fmt.Errorf("dial tcp 10.0.0.1:443: i/o timeout"))
		sut := NewGateway(newResolver(t, configured), source)

		_, err := sut.Quote(c, milano, decimal.NewFromInt(10))

		require.Error(t, err)
		assert.Equal(t, 500, myerrors.GetHTTPStatus(err))
		assert.Equal(t, "Unable to fetch shipping quote.", myerrors.GetPublicMessage(err))
	})

	t.Run("No services yields an empty quote", func(t *testing.T) {
		fake := NewFakeProvider()
		fake.Services = nil
		sut := NewGateway(newResolver(t, configured), fake)

		quote, err := sut.Quote(c, milano, decimal.NewFromInt(10))

		require.NoError(t, err)
		assert.Empty(t, quote.Methods)
		assert.True(t, quote.Amount.IsZero())
		assert.Equal(t, "", quote.MethodID)
		assert.Equal(t, "EUR", quote.Currency)
	})

	t.Run("Not configured", func(t *testing.T) {
		fake := NewFakeProvider()
		sut := NewGateway(newResolver(t, myconfig.IntegrationDefaults{}), fake)

		_, err := sut.Quote(c, milano, decimal.NewFromInt(10))

		assert.Equal(t, 500, myerrors.GetHTTPStatus(err))
		assert.Equal(t, "Unable to fetch shipping quote.", myerrors.GetPublicMessage(err))
		assert.Empty(t, fake.Requests)
	})
}
