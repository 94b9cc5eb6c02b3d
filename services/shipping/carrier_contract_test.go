package shipping

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarcGrol/dobmilano/lib/myhttpclient"
)

func TestFakeCarrier(t *testing.T) {
	CarrierContract{
		provider: func(t *testing.T) Provider {
			return NewFakeProvider()
		},
	}.Test(t)
}

func TestHTTPCarrier(t *testing.T) {
	CarrierContract{
		provider: func(t *testing.T) Provider {
			server := newCarrierServer(t, NewFakeProvider(), "secret")
			return NewCarrierClient(server.URL, "secret", myhttpclient.New(time.Second))
		},
	}.Test(t)
}

// newCarrierServer serves the carrier API from a fake, the way the real service answers.
func newCarrierServer(t *testing.T, fake *FakeProvider, apiKey string) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/quotes" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+apiKey {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		req := QuoteRequest{}
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		quote, err := fake.Quote(r.Context(), req)
		if err != nil {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"error":"` + err.Error() + `"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(quote)
	}))
	t.Cleanup(server.Close)
	return server
}

type CarrierContract struct {
	provider func(t *testing.T) Provider
}

func (cc CarrierContract) Test(t *testing.T) {
	t.Run("quotes services in provider order", func(t *testing.T) {
		var (
			sut = cc.provider(t)
			ctx = context.Background()
		)

		quote, err := sut.Quote(ctx, QuoteRequest{FromCountry: "IT", ToCountry: "IT", ToPostalCode: "20123", ToCity: "Milano", ToProvince: "MI"})
		require.NoError(t, err)

		assert.Equal(t, "EUR", quote.Currency)
		require.Len(t, quote.Services, 2)
		assert.Equal(t, "brt-standard", quote.Services[0].ID)
		assert.Equal(t, "BRT Standard", quote.Services[0].Name)
		assert.Equal(t, "6.9", quote.Services[0].Price.String())
		assert.Equal(t, "gls-express", quote.Services[1].ID)
	})

	t.Run("rejects a destination without postal code", func(t *testing.T) {
		var (
			sut = cc.provider(t)
			ctx = context.Background()
		)

		_, err := sut.Quote(ctx, QuoteRequest{FromCountry: "IT", ToCountry: "IT", ToCity: "Milano"})
		assert.Error(t, err)
	})

	t.Run("rejects an invalid country code", func(t *testing.T) {
		var (
			sut = cc.provider(t)
			ctx = context.Background()
		)

		_, err := sut.Quote(ctx, QuoteRequest{FromCountry: "IT", ToCountry: "ITALY", ToPostalCode: "20123"})
		assert.Error(t, err)
	})
}

func TestCarrierBreaker(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	sut := NewCarrierClient(server.URL, "secret", myhttpclient.New(time.Second))
	for i := 0; i < breakerFailureThreshold+3; i++ {
		_, err := sut.Quote(context.Background(), QuoteRequest{ToCountry: "IT", ToPostalCode: "20123"})
		assert.Error(t, err)
	}

	assert.Equal(t, breakerFailureThreshold, calls)
}

func TestCarrierPool(t *testing.T) {
	pool := NewCarrierPool(myhttpclient.New(time.Second))

	first := pool.ProviderFor("https://a.example", "k")
	assert.Same(t, first, pool.ProviderFor("https://a.example", "k"))
	assert.NotSame(t, first, pool.ProviderFor("https://b.example", "k"))
}
