package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/subslot/backend/internal/domain"
	"github.com/subslot/backend/internal/repository"
	"github.com/subslot/backend/pkg/payment"
)

// PurchaseService handles checkout and purchase reads. Price computation
// and the real payment flow live with the provider; this service records
// the purchase and hands back a payment link.
type PurchaseService struct {
	purchases   *repository.PurchaseRepository
	baseDomains *repository.BaseDomainRepository
	gateway     payment.Gateway
	validate    *validator.Validate
}

// NewPurchaseService creates a new PurchaseService.
func NewPurchaseService(
	purchases *repository.PurchaseRepository,
	baseDomains *repository.BaseDomainRepository,
	gateway payment.Gateway,
) *PurchaseService {
	return &PurchaseService{
		purchases:   purchases,
		baseDomains: baseDomains,
		gateway:     gateway,
		validate:    validator.New(),
	}
}

// Checkout creates a pending purchase for a subdomain slot and returns a
// payment link from the gateway.
func (s *PurchaseService) Checkout(ctx context.Context, buyerID string, req *domain.CheckoutRequest) (*domain.CheckoutResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, domain.ErrValidation(formatValidationErrors(err))
	}

	baseDomain, err := s.baseDomains.FindByID(ctx, req.BaseDomainID)
	if err != nil {
		return nil, domain.ErrInternal("failed to load base domain", err)
	}
	if baseDomain == nil {
		return nil, domain.ErrNotFound("base domain not found")
	}

	purchase := &domain.Purchase{
		ID:           domain.NewID(),
		BuyerID:      buyerID,
		BaseDomainID: baseDomain.ID,
		PriceCents:   req.PriceCents,
		Status:       domain.PurchasePending,
		CreatedAt:    time.Now(),
	}
	if err := s.purchases.Create(ctx, purchase); err != nil {
		return nil, domain.ErrInternal("failed to create purchase", err)
	}

	link, err := s.gateway.CreatePaymentLink(buyerID, purchase.ID, purchase.PriceCents)
	if err != nil {
		_ = s.purchases.UpdateStatus(ctx, purchase.ID, domain.PurchaseFailed)
		return nil, domain.ErrInternal("failed to create payment link", err)
	}

	return &domain.CheckoutResponse{Purchase: purchase, PaymentURL: link}, nil
}

// MarkPaid transitions a pending purchase to paid (payment webhook or admin
// simulation).
func (s *PurchaseService) MarkPaid(ctx context.Context, purchaseID string) error {
	purchase, err := s.purchases.FindByID(ctx, purchaseID)
	if err != nil {
		return domain.ErrInternal("failed to load purchase", err)
	}
	if purchase == nil {
		return domain.ErrNotFound("purchase not found")
	}
	if purchase.Status == domain.PurchasePaid {
		return nil
	}
	if err := s.purchases.UpdateStatus(ctx, purchaseID, domain.PurchasePaid); err != nil {
		return domain.ErrInternal("failed to update purchase status", err)
	}
	return nil
}

// List returns the requester's purchases.
func (s *PurchaseService) List(ctx context.Context, buyerID string) ([]*domain.Purchase, error) {
	purchases, err := s.purchases.FindAllByBuyer(ctx, buyerID)
	if err != nil {
		return nil, domain.ErrInternal("failed to list purchases", err)
	}
	return purchases, nil
}

// Get returns one purchase with an ownership check.
func (s *PurchaseService) Get(ctx context.Context, purchaseID, requesterID string) (*domain.Purchase, error) {
	purchase, err := s.purchases.FindByID(ctx, purchaseID)
	if err != nil {
		return nil, domain.ErrInternal("failed to load purchase", err)
	}
	if purchase == nil {
		return nil, domain.ErrNotFound("purchase not found")
	}
	if purchase.BuyerID != requesterID {
		return nil, domain.ErrUnauthorized("purchase belongs to another user")
	}
	return purchase, nil
}
