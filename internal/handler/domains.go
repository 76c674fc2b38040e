package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/subslot/backend/internal/contextkeys"
	"github.com/subslot/backend/internal/domain"
	"github.com/subslot/backend/internal/repository"
)

// BaseDomainStore is the catalog persistence the handler needs.
// Implemented by repository.BaseDomainRepository.
type BaseDomainStore interface {
	Create(ctx context.Context, d *domain.BaseDomain) error
	ListAll(ctx context.Context) ([]*domain.BaseDomain, error)
}

// DomainsHandler serves the base-domain catalog.
type DomainsHandler struct {
	store BaseDomainStore
}

// NewDomainsHandler creates a new DomainsHandler.
func NewDomainsHandler(store BaseDomainStore) *DomainsHandler {
	return &DomainsHandler{store: store}
}

// List handles GET /api/domains.
func (h *DomainsHandler) List(w http.ResponseWriter, r *http.Request) {
	domains, err := h.store.ListAll(r.Context())
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"data": domains})
}

// Create handles POST /api/domains (ADMIN ONLY — gated in router). Without
// at least one listed base domain nothing can be purchased or bound.
func (h *DomainsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateDomainRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	name := strings.ToLower(strings.TrimSpace(req.Name))
	if name == "" || !strings.Contains(name, ".") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		Error(w, domain.ErrBadRequest("a full domain name is required"))
		return
	}

	sellerID := req.SellerID
	if sellerID == "" {
		sellerID, _ = r.Context().Value(contextkeys.UserID).(string)
	}

	d := &domain.BaseDomain{
		ID:        domain.NewID(),
		Name:      name,
		SellerID:  sellerID,
		CreatedAt: time.Now(),
	}
	if err := h.store.Create(r.Context(), d); err != nil {
		if errors.Is(err, repository.ErrDomainExists) {
			Error(w, domain.ErrConflict("base domain is already listed"))
			return
		}
		Error(w, domain.ErrInternal("failed to create base domain", err))
		return
	}

	JSON(w, http.StatusCreated, d)
}
