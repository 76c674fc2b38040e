package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/subslot/backend/internal/contextkeys"
	"github.com/subslot/backend/internal/domain"
	"github.com/subslot/backend/internal/service"
)

// PurchaseHandler handles checkout and purchase endpoints.
type PurchaseHandler struct {
	svc *service.PurchaseService
}

// NewPurchaseHandler creates a new PurchaseHandler.
func NewPurchaseHandler(svc *service.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{svc: svc}
}

// Checkout handles POST /api/checkout.
func (h *PurchaseHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(contextkeys.UserID).(string)

	var req domain.CheckoutRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	resp, err := h.svc.Checkout(r.Context(), userID, &req)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusCreated, resp)
}

// List handles GET /api/purchases.
func (h *PurchaseHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(contextkeys.UserID).(string)

	purchases, err := h.svc.List(r.Context(), userID)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"data": purchases})
}

// GetByID handles GET /api/purchases/{id}.
func (h *PurchaseHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(contextkeys.UserID).(string)
	id := chi.URLParam(r, "id")

	purchase, err := h.svc.Get(r.Context(), id, userID)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, purchase)
}

// Simulate handles POST /api/payment/simulate (ADMIN ONLY — gated in router).
func (h *PurchaseHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req domain.SimulatePaymentRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}
	if req.PurchaseID == "" {
		Error(w, domain.ErrBadRequest("purchaseId is required"))
		return
	}

	if err := h.svc.MarkPaid(r.Context(), req.PurchaseID); err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]bool{"success": true})
}
