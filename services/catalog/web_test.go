package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogWebService(t *testing.T) {
	_, sut, _ := setupCatalog(t)
	router := mux.NewRouter()
	NewWebService(sut).RegisterEndpoints(context.TODO(), router)

	t.Run("List products", func(t *testing.T) {
		// when
		request, err := http.NewRequest(http.MethodGet, "/api/shop/products", nil)
		require.NoError(t, err)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		assert.JSONEq(t, `[
			{"id":"11","title":"Crema mani","slug":"crema-mani","price":12,"currency":"EUR","coverImage":null,"inStock":true},
			{"id":"10","title":"Siero viso","slug":"siero-viso","brand":"DOB","price":35.5,"currency":"EUR","coverImage":null,"inStock":true}
		]`, response.Body.String())
	})

	t.Run("Unknown product", func(t *testing.T) {
		// when
		request, err := http.NewRequest(http.MethodGet, "/api/shop/products/99", nil)
		require.NoError(t, err)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusNotFound, response.Code)
		assert.JSONEq(t, `{"ok":false,"error":"Product not found."}`, response.Body.String())
	})

	t.Run("List services with package ids", func(t *testing.T) {
		// when
		request, err := http.NewRequest(http.MethodGet, "/api/shop/services", nil)
		require.NoError(t, err)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		assert.JSONEq(t, `[{"id":"1","title":"Pulizia viso","slug":"pulizia-viso","price":60,"currency":"EUR","durationMinutes":50,
			"packages":[{"id":"1:package:five","title":"5 sedute","sessions":5,"price":270}]}]`, response.Body.String())
	})
}
