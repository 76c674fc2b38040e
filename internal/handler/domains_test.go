package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/subslot/backend/internal/contextkeys"
	"github.com/subslot/backend/internal/domain"
	"github.com/subslot/backend/internal/repository"
)

type fakeDomainStore struct {
	byName map[string]*domain.BaseDomain
}

func newFakeDomainStore() *fakeDomainStore {
	return &fakeDomainStore{byName: make(map[string]*domain.BaseDomain)}
}

func (s *fakeDomainStore) Create(ctx context.Context, d *domain.BaseDomain) error {
	if _, ok := s.byName[d.Name]; ok {
		return repository.ErrDomainExists
	}
	s.byName[d.Name] = d
	return nil
}

func (s *fakeDomainStore) ListAll(ctx context.Context) ([]*domain.BaseDomain, error) {
	domains := []*domain.BaseDomain{}
	for _, d := range s.byName {
		domains = append(domains, d)
	}
	return domains, nil
}

func createDomainRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/domains", strings.NewReader(body))
	ctx := context.WithValue(req.Context(), contextkeys.UserID, "admin1")
	return req.WithContext(ctx)
}

func TestCreateDomain(t *testing.T) {
	h := NewDomainsHandler(newFakeDomainStore())

	w := httptest.NewRecorder()
	h.Create(w, createDomainRequest(`{"name":"Shop.Dev","sellerId":"seller1"}`))
	require.Equal(t, http.StatusCreated, w.Code)

	var created domain.BaseDomain
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	assert.Equal(t, "shop.dev", created.Name)
	assert.Equal(t, "seller1", created.SellerID)
	assert.NotEmpty(t, created.ID)
}

func TestCreateDomainDefaultsSellerToRequester(t *testing.T) {
	h := NewDomainsHandler(newFakeDomainStore())

	w := httptest.NewRecorder()
	h.Create(w, createDomainRequest(`{"name":"shop.dev"}`))
	require.Equal(t, http.StatusCreated, w.Code)

	var created domain.BaseDomain
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	assert.Equal(t, "admin1", created.SellerID)
}

func TestCreateDomainRejectsBareLabel(t *testing.T) {
	h := NewDomainsHandler(newFakeDomainStore())

	for _, body := range []string{`{"name":""}`, `{"name":"shop"}`, `{"name":".shop.dev"}`, `{"name":"shop.dev."}`} {
		w := httptest.NewRecorder()
		h.Create(w, createDomainRequest(body))
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %s", body)
	}
}

func TestCreateDomainDuplicate(t *testing.T) {
	h := NewDomainsHandler(newFakeDomainStore())

	w := httptest.NewRecorder()
	h.Create(w, createDomainRequest(`{"name":"shop.dev","sellerId":"seller1"}`))
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	h.Create(w, createDomainRequest(`{"name":"SHOP.dev","sellerId":"seller2"}`))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestListDomains(t *testing.T) {
	store := newFakeDomainStore()
	store.byName["shop.dev"] = &domain.BaseDomain{ID: "bd1", Name: "shop.dev", SellerID: "seller1"}
	h := NewDomainsHandler(store)

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/api/domains", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []*domain.BaseDomain `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "shop.dev", resp.Data[0].Name)
}
