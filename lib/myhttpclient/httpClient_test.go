package myhttpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, `{"a":1}`, string(body))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	t.Run("Round trip", func(t *testing.T) {
		status, body, err := New(time.Second).Send(context.TODO(), http.MethodPost, server.URL, map[string]string{"Authorization": "Bearer secret"}, []byte(`{"a":1}`))
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, status)
		assert.Equal(t, `{"ok":true}`, string(body))
	})

	t.Run("Cancelled context", func(t *testing.T) {
		c, cancel := context.WithCancel(context.TODO())
		cancel()
		_, _, err := New(time.Second).Send(c, http.MethodPost, server.URL, nil, nil)
		assert.Error(t, err)
	})
}
