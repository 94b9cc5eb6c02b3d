package myhttp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MarcGrol/dobmilano/lib/myerrors"
	"github.com/MarcGrol/dobmilano/lib/mylog"
)

func TestClientIP(t *testing.T) {
	testCases := []struct {
		name           string
		trustedProxies int
		forwardedFor   string
		remoteAddr     string
		expected       string
	}{
		{name: "Remote addr", remoteAddr: "9.9.9.9:5555", expected: "9.9.9.9"},
		{name: "Remote addr without port", remoteAddr: "9.9.9.9", expected: "9.9.9.9"},
		{name: "Forwarded for ignored without trusted proxies", forwardedFor: "1.2.3.4", remoteAddr: "9.9.9.9:5555", expected: "9.9.9.9"},
		{name: "Hop before trusted proxy", trustedProxies: 1, forwardedFor: "1.2.3.4", remoteAddr: "10.0.0.2:1234", expected: "1.2.3.4"},
		{name: "Spoofed entries left of client", trustedProxies: 1, forwardedFor: "6.6.6.6, 1.2.3.4", remoteAddr: "10.0.0.2:1234", expected: "1.2.3.4"},
		{name: "Two trusted proxies", trustedProxies: 2, forwardedFor: "6.6.6.6, 1.2.3.4, 10.0.0.1", remoteAddr: "10.0.0.2:1234", expected: "1.2.3.4"},
		{name: "Fewer hops than proxies", trustedProxies: 3, forwardedFor: "1.2.3.4", remoteAddr: "10.0.0.2:1234", expected: "1.2.3.4"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tc.remoteAddr
			if tc.forwardedFor != "" {
				r.Header.Set("X-Forwarded-For", tc.forwardedFor)
			}

			resolved := ""
			handler := ResolveClientIP(tc.trustedProxies)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				resolved = ClientIP(r)
			}))
			handler.ServeHTTP(httptest.NewRecorder(), r)

			assert.Equal(t, tc.expected, resolved)
		})
	}

	t.Run("Without resolver only the remote address counts", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "9.9.9.9:5555"
		r.Header.Set("X-Forwarded-For", "1.2.3.4")
		assert.Equal(t, "9.9.9.9", ClientIP(r))
	})
}

func TestWriteError(t *testing.T) {
	writer := NewWriter(mylog.New("test"))

	t.Run("Client error with details", func(t *testing.T) {
		response := httptest.NewRecorder()
		err := myerrors.NewInvalidInputErrorf("Carrello vuoto.").WithDetail("missing", []string{"email"})

		writer.WriteError(context.TODO(), response, 1, err)

		assert.Equal(t, 400, response.Code)
		assert.Equal(t, "application/json", response.Header().Get("Content-Type"))
		body := map[string]any{}
		assert.NoError(t, json.Unmarshal(response.Body.Bytes(), &body))
		assert.Equal(t, false, body["ok"])
		assert.Equal(t, "Carrello vuoto.", body["error"])
		assert.Equal(t, []any{"email"}, body["missing"])
	})

	t.Run("Server error never leaks", func(t *testing.T) {
		response := httptest.NewRecorder()
		err := myerrors.NewInternalError(fmt.Errorf("datastore: no such entity in namespace secret"))

		writer.WriteError(context.TODO(), response, 1, err)

		assert.Equal(t, 500, response.Code)
		assert.NotContains(t, response.Body.String(), "datastore")
		assert.Contains(t, response.Body.String(), "Internal server error.")
	})
}

func TestDecodeJSON(t *testing.T) {
	dest := struct{ Name string }{}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"Name":"Eva"}`))
	assert.NoError(t, DecodeJSON(r, &dest))
	assert.Equal(t, "Eva", dest.Name)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	assert.Equal(t, 400, myerrors.GetHTTPStatus(DecodeJSON(r, &dest)))

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"Name":`))
	assert.Equal(t, 400, myerrors.GetHTTPStatus(DecodeJSON(r, &dest)))
}
