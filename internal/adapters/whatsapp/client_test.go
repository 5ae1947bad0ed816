package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Send(t *testing.T) {
	var got sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"wamid.1","status":"queued"}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL+"/", "secret")
	require.NoError(t, err)

	res, err := c.Send(context.Background(), "393331234567", "Ciao")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "wamid.1", res.ExternalID)
	assert.Equal(t, sendRequest{To: "393331234567", Text: "Ciao"}, got)
}

func TestClient_Rejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"number not on whatsapp"}`))
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, "")
	res, err := c.Send(context.Background(), "393331234567", "Ciao")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "number not on whatsapp", res.Error)
}

func TestClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, "")
	_, err := c.Send(context.Background(), "393331234567", "Ciao")
	assert.ErrorContains(t, err, "502")
}

func TestNewClient_RequiresURL(t *testing.T) {
	_, err := NewClient(" ", "token")
	assert.Error(t, err)
}
