package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/subslot/backend/internal/contextkeys"
	"github.com/subslot/backend/internal/domain"
	"github.com/subslot/backend/internal/service"
)

// BindingHandler handles the binding endpoints for a purchase.
type BindingHandler struct {
	svc *service.BindingService
}

// NewBindingHandler creates a new BindingHandler.
func NewBindingHandler(svc *service.BindingService) *BindingHandler {
	return &BindingHandler{svc: svc}
}

// Bind handles PUT /api/purchases/{id}/binding. A partial upstream failure
// still returns 200 with per-service outcomes in the body; the caller
// retries by re-issuing the same request.
func (h *BindingHandler) Bind(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(contextkeys.UserID).(string)
	purchaseID := chi.URLParam(r, "id")

	var req domain.BindRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	result, err := h.svc.Bind(r.Context(), purchaseID, userID, &req)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, result)
}

// Get handles GET /api/purchases/{id}/binding.
func (h *BindingHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(contextkeys.UserID).(string)
	purchaseID := chi.URLParam(r, "id")

	view, err := h.svc.View(r.Context(), purchaseID, userID)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, view)
}

// Unbind handles DELETE /api/purchases/{id}/binding. The registrar CNAME
// and platform domain are not retracted; they remain until reconciled
// manually.
func (h *BindingHandler) Unbind(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(contextkeys.UserID).(string)
	purchaseID := chi.URLParam(r, "id")

	if err := h.svc.Unbind(r.Context(), purchaseID, userID); err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
