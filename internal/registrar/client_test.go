package registrar

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

func TestUpsertCname(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"record":"created"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "zone-token", 5*time.Second)
	payload, err := c.UpsertCname(context.Background(), "shop.dev", "api", "proj1.vercel.app.")
	require.NoError(t, err)

	assert.Equal(t, "/zones/shop.dev", gotPath)
	assert.Equal(t, "Bearer zone-token", gotAuth)
	assert.Equal(t, "api", gotBody["name"])
	assert.Equal(t, "proj1.vercel.app.", gotBody["target"])
	assert.Equal(t, true, gotBody["overwrite"])
	assert.JSONEq(t, `{"record":"created"}`, string(payload))
}

func TestUpsertCnameNon2xxIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":"zone locked"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "zone-token", 5*time.Second)
	_, err := c.UpsertCname(context.Background(), "shop.dev", "api", "proj1.vercel.app.")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "zone locked")
}

func TestUpsertCnameRespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := NewClient(srv.URL, "zone-token", 5*time.Second)
	_, err := c.UpsertCname(ctx, "shop.dev", "api", "proj1.vercel.app.")
	require.Error(t, err)
}
