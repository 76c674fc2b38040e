package domain

import (
	"time"

	"github.com/google/uuid"
)

// Purchase statuses.
const (
	PurchasePending = "pending"
	PurchasePaid    = "paid"
	PurchaseFailed  = "failed"
)

// BaseDomain is a seller-listed domain under which subdomain slots are sold.
type BaseDomain struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SellerID  string    `json:"sellerId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Purchase records a buyer's acquisition of a subdomain slot. Immutable
// after creation except for status; never deleted (audit trail).
type Purchase struct {
	ID           string    `json:"id"`
	BuyerID      string    `json:"buyerId"`
	BaseDomainID string    `json:"baseDomainId"`
	PriceCents   int64     `json:"priceCents"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ProjectConnection links a purchase to a project on an external deployment
// platform. At most one per purchase; updated in place on re-link. The
// credential is encrypted at rest and never serialized.
type ProjectConnection struct {
	ID          string    `json:"id"`
	PurchaseID  string    `json:"purchaseId"`
	OwnerID     string    `json:"ownerId"`
	Platform    string    `json:"platform"`
	Credential  string    `json:"-"` // AES-GCM ciphertext
	ProjectID   string    `json:"projectId"`
	ProjectName string    `json:"projectName"`
	DeployedURL string    `json:"deployedUrl"`
	Connected   bool      `json:"connected"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CnameBinding is the DNS-facing record mapping a subdomain label to a
// deployed target host. At most one per purchase; the label is unique per
// base domain. Target is denormalized from the connection at bind time in
// FQDN form (scheme stripped, trailing dot).
type CnameBinding struct {
	ID           string    `json:"id"`
	PurchaseID   string    `json:"purchaseId"`
	ConnectionID string    `json:"connectionId"`
	BaseDomainID string    `json:"baseDomainId"`
	Label        string    `json:"label"`
	Target       string    `json:"target"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// BindingView is the joined read model for a purchase's configuration.
// Binding is nil when no CNAME binding exists (e.g. after Unbind).
type BindingView struct {
	Purchase   *Purchase          `json:"purchase"`
	Connection *ProjectConnection `json:"connection,omitempty"`
	Binding    *CnameBinding      `json:"binding,omitempty"`
}

// ServiceOutcome is the captured result of one upstream call. Upstream
// failures are data, not errors: a failed leg never fails the Bind itself.
type ServiceOutcome struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// BindResult aggregates the persisted binding with the per-service
// registrar and platform outcomes.
type BindResult struct {
	Binding    *CnameBinding      `json:"binding"`
	Connection *ProjectConnection `json:"connection"`
	Registrar  ServiceOutcome     `json:"registrar"`
	Platform   ServiceOutcome     `json:"platform"`
}

// BindRequest is the validated input for binding a purchase to a project.
// Credential may be omitted on a re-bind; the stored one is reused.
type BindRequest struct {
	Label       string `json:"label" validate:"required,min=1,max=63"`
	Platform    string `json:"platform" validate:"required,oneof=vercel netlify render fly"`
	Credential  string `json:"credential"`
	ProjectID   string `json:"projectId" validate:"required"`
	ProjectName string `json:"projectName"`
	DeployedURL string `json:"deployedUrl" validate:"required"`
}

// CheckoutRequest is the validated input for purchasing a subdomain slot.
type CheckoutRequest struct {
	BaseDomainID string `json:"baseDomainId" validate:"required"`
	PriceCents   int64  `json:"priceCents" validate:"gte=0"`
}

// CheckoutResponse is returned from a successful checkout.
type CheckoutResponse struct {
	Purchase   *Purchase `json:"purchase"`
	PaymentURL string    `json:"paymentUrl"`
}

// CreateDomainRequest lists a base domain in the catalog (admin only).
// SellerID defaults to the requester when omitted.
type CreateDomainRequest struct {
	Name     string `json:"name"`
	SellerID string `json:"sellerId"`
}

// SimulatePaymentRequest marks a pending purchase as paid (admin only).
type SimulatePaymentRequest struct {
	PurchaseID string `json:"purchaseId" validate:"required"`
}

// NewID generates a new UUID string for any persisted entity.
func NewID() string {
	return uuid.New().String()
}
