package shipping

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*mux.Router, *FakeProvider) {
	fake := NewFakeProvider()
	router := mux.NewRouter()
	NewWebService(NewGateway(newResolver(t, configured), fake)).RegisterEndpoints(context.TODO(), router)
	return router, fake
}

func post(t *testing.T, router *mux.Router, body string) *httptest.ResponseRecorder {
	request, err := http.NewRequest(http.MethodPost, "/api/shop/shipping-quote", strings.NewReader(body))
	require.NoError(t, err)
	request.Header.Set("Content-Type", "application/json")
	response := httptest.NewRecorder()
	router.ServeHTTP(response, request)
	return response
}

func TestShippingQuoteWebService(t *testing.T) {
	t.Run("Paid shipping", func(t *testing.T) {
		// given
		router, _ := setup(t)

		// when
		response := post(t, router, `{"address":"Via Torino 12","city":"Milano","province":"MI","postalCode":"20123","subtotal":25}`)

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		assert.JSONEq(t, `{"ok":true,"freeShipping":false,"amount":6.9,"currency":"EUR","methodName":"BRT Standard",
			"methods":[{"id":"brt-standard","name":"BRT Standard","amount":6.9},{"id":"gls-express","name":"GLS Express","amount":12.5}]}`, response.Body.String())
	})

	t.Run("Free shipping from 70", func(t *testing.T) {
		// given
		router, _ := setup(t)

		// when
		response := post(t, router, `{"address":"Via Torino 12","city":"Milano","province":"MI","postalCode":"20123","subtotal":70}`)

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		assert.JSONEq(t, `{"ok":true,"freeShipping":true,"amount":0,"currency":"EUR","methodName":"BRT Standard",
			"methods":[{"id":"brt-standard","name":"BRT Standard","amount":0},{"id":"gls-express","name":"GLS Express","amount":0}]}`, response.Body.String())
	})

	t.Run("No carrier services", func(t *testing.T) {
		// given
		router, fake := setup(t)
		fake.Services = nil

		// when
		response := post(t, router, `{"address":"Via Torino 12","city":"Milano","province":"MI","postalCode":"20123","subtotal":25}`)

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		assert.JSONEq(t, `{"ok":true,"freeShipping":false,"amount":null,"currency":"EUR","methodName":"","methods":[]}`, response.Body.String())
	})

	t.Run("Missing fields", func(t *testing.T) {
		// given
		router, _ := setup(t)

		// when
		response := post(t, router, `{"city":"Milano","subtotal":70}`)

		// then
		assert.Equal(t, http.StatusBadRequest, response.Code)
		assert.JSONEq(t, `{"ok":false,"error":"Missing required destination fields."}`, response.Body.String())
	})

	t.Run("Upstream failure does not leak", func(t *testing.T) {
		// given
		router, fake := setup(t)
		fake.Err = assert.AnError

		// when
		response := post(t, router, `{"address":"Via Torino 12","city":"Milano","province":"MI","postalCode":"20123","subtotal":25}`)

		// then
		assert.Equal(t, http.StatusInternalServerError, response.Code)
		assert.JSONEq(t, `{"ok":false,"error":"Unable to fetch shipping quote."}`, response.Body.String())
		assert.NotContains(t, response.Body.String(), assert.AnError.Error())
	})
}
