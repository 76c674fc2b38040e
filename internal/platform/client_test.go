package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterDomain(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"name":"api.shop.dev","verified":false}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	payload, err := c.RegisterDomain(context.Background(), "proj1", "api.shop.dev", "user-token")
	require.NoError(t, err)

	assert.Equal(t, "/projects/proj1/domains", gotPath)
	assert.Equal(t, "Bearer user-token", gotAuth)
	assert.Equal(t, "api.shop.dev", gotBody["name"])
	assert.Contains(t, string(payload), "api.shop.dev")
}

func TestRegisterDomainNon2xxIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":"invalid token"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.RegisterDomain(context.Background(), "proj1", "api.shop.dev", "bad-token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestRegisterDomainTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := NewClient(srv.URL, time.Second)
	_, err := c.RegisterDomain(context.Background(), "proj1", "api.shop.dev", "tok")
	require.Error(t, err)
}
