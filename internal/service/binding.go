package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/subslot/backend/internal/domain"
	"github.com/subslot/backend/internal/metrics"
	"github.com/subslot/backend/internal/repository"
	"github.com/subslot/backend/pkg/crypto"
	"github.com/subslot/backend/pkg/dnsname"
)

// BindingStore is the persistence contract the orchestrator drives.
// Implemented by repository.BindingRepository.
type BindingStore interface {
	UpsertBinding(ctx context.Context, purchaseID string, conn repository.ConnectionParams, bind repository.BindingParams) (*domain.ProjectConnection, *domain.CnameBinding, error)
	SetConnected(ctx context.Context, purchaseID string, connected bool) error
	DeleteCnameBinding(ctx context.Context, purchaseID string) error
	GetBindingView(ctx context.Context, purchaseID string) (*domain.BindingView, error)
}

// PurchaseLookup reads purchase ownership. Implemented by
// repository.PurchaseRepository.
type PurchaseLookup interface {
	FindByID(ctx context.Context, id string) (*domain.Purchase, error)
}

// BaseDomainLookup resolves base-domain ids to zone names. Implemented by
// repository.BaseDomainRepository.
type BaseDomainLookup interface {
	FindByID(ctx context.Context, id string) (*domain.BaseDomain, error)
}

// RegistrarAPI upserts CNAME records. Implemented by registrar.Client.
type RegistrarAPI interface {
	UpsertCname(ctx context.Context, zone, label, target string) ([]byte, error)
}

// PlatformAPI registers custom domains. Implemented by platform.Client.
type PlatformAPI interface {
	RegisterDomain(ctx context.Context, projectID, fullDomain, credential string) ([]byte, error)
}

// BindingService orchestrates domain binding: it upserts local state, then
// drives the registrar and platform independently, capturing each outcome
// instead of failing the operation on upstream errors.
type BindingService struct {
	store       BindingStore
	purchases   PurchaseLookup
	baseDomains BaseDomainLookup
	registrar   RegistrarAPI
	platform    PlatformAPI
	enc         *crypto.Encryptor
	validate    *validator.Validate
	locks       keyedMutex
}

// NewBindingService creates a new BindingService.
func NewBindingService(
	store BindingStore,
	purchases PurchaseLookup,
	baseDomains BaseDomainLookup,
	registrarAPI RegistrarAPI,
	platformAPI PlatformAPI,
	enc *crypto.Encryptor,
) *BindingService {
	return &BindingService{
		store:       store,
		purchases:   purchases,
		baseDomains: baseDomains,
		registrar:   registrarAPI,
		platform:    platformAPI,
		enc:         enc,
		validate:    validator.New(),
	}
}

// Bind creates or updates the purchase's project connection and CNAME
// binding, then attempts both external registrations. Re-invoking Bind is
// the retry mechanism: the store writes are idempotent upserts and both
// upstream calls are re-attempted. Bind fails only on authorization,
// validation, conflict, or store errors; upstream failures come back as
// per-service outcomes in the result.
func (s *BindingService) Bind(ctx context.Context, purchaseID, requesterID string, req *domain.BindRequest) (*domain.BindResult, error) {
	metrics.BindAttempts.Inc()

	// Ownership is checked before anything looks at the request body: a
	// non-owner always gets Unauthorized, never validation feedback.
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
	if purchase.Status != domain.PurchasePaid {
		return nil, domain.ErrBadRequest("purchase is not paid")
	}

	if err := s.validate.Struct(req); err != nil {
		return nil, domain.ErrValidation(formatValidationErrors(err))
	}

	label, err := dnsname.NormalizeLabel(req.Label)
	if err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	target, err := dnsname.NormalizeTarget(req.DeployedURL)
	if err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	baseDomain, err := s.baseDomains.FindByID(ctx, purchase.BaseDomainID)
	if err != nil {
		return nil, domain.ErrInternal("failed to load base domain", err)
	}
	if baseDomain == nil {
		return nil, domain.ErrInternal("base domain missing for purchase", nil)
	}

	// Serialize Bind/Unbind for the same purchase. The store locks the
	// purchase row too; this keeps the external calls inside the critical
	// section as well, so two retries cannot interleave their outcomes.
	unlock := s.locks.lock(purchaseID)
	defer unlock()

	// A re-bind may omit the credential; the one stored on the existing
	// connection is decrypted and reused so retries don't force the user
	// to re-enter their platform token.
	plainCredential, storedCredential, err := s.resolveCredential(ctx, purchaseID, req.Credential)
	if err != nil {
		return nil, err
	}

	connection, binding, err := s.store.UpsertBinding(ctx, purchaseID,
		repository.ConnectionParams{
			OwnerID:     purchase.BuyerID,
			Platform:    req.Platform,
			Credential:  storedCredential,
			ProjectID:   req.ProjectID,
			ProjectName: req.ProjectName,
			DeployedURL: req.DeployedURL,
		},
		repository.BindingParams{
			BaseDomainID: purchase.BaseDomainID,
			Label:        label,
			Target:       target,
		},
	)
	if err != nil {
		if errors.Is(err, repository.ErrLabelTaken) {
			metrics.LabelConflicts.Inc()
			return nil, domain.ErrConflict(fmt.Sprintf("label %q is already taken under %s", label, baseDomain.Name))
		}
		return nil, domain.ErrInternal("failed to persist binding", err)
	}

	result := &domain.BindResult{
		Binding:    binding,
		Connection: connection,
	}

	// The two upstream calls are independent: neither blocks the other and
	// neither rolls back the store write. Each failure is captured in its
	// outcome so the caller can retry by re-invoking Bind.
	fullDomain := label + "." + baseDomain.Name

	if payload, err := s.registrar.UpsertCname(ctx, baseDomain.Name, label, target); err != nil {
		metrics.RegistrarFailures.Inc()
		log.Printf("[WARN] registrar upsert failed for %s: %v", fullDomain, err)
		result.Registrar = domain.ServiceOutcome{OK: false, Message: err.Error()}
	} else {
		log.Printf("[INFO] registrar upserted CNAME %s -> %s (%d bytes)", fullDomain, target, len(payload))
		result.Registrar = domain.ServiceOutcome{OK: true}
	}

	if payload, err := s.platform.RegisterDomain(ctx, req.ProjectID, fullDomain, plainCredential); err != nil {
		metrics.PlatformFailures.Inc()
		log.Printf("[WARN] platform registration failed for %s: %v", fullDomain, err)
		result.Platform = domain.ServiceOutcome{OK: false, Message: err.Error()}
	} else {
		log.Printf("[INFO] platform registered %s on project %s (%d bytes)", fullDomain, req.ProjectID, len(payload))
		result.Platform = domain.ServiceOutcome{OK: true}
	}

	connected := result.Registrar.OK && result.Platform.OK
	if err := s.store.SetConnected(ctx, purchaseID, connected); err != nil {
		return nil, domain.ErrInternal("failed to update connected flag", err)
	}
	result.Connection.Connected = connected
	if connected {
		metrics.BindsCompleted.Inc()
	}

	return result, nil
}

// resolveCredential returns the plaintext credential for the platform call
// and the ciphertext to persist. A fresh request credential is encrypted;
// an omitted one falls back to the stored connection's ciphertext,
// decrypted only here, at call time.
func (s *BindingService) resolveCredential(ctx context.Context, purchaseID, requestCredential string) (plain, stored string, err error) {
	if requestCredential != "" {
		stored, err = s.enc.EncryptString(requestCredential)
		if err != nil {
			return "", "", domain.ErrInternal("failed to encrypt credential", err)
		}
		return requestCredential, stored, nil
	}

	view, err := s.store.GetBindingView(ctx, purchaseID)
	if err != nil {
		return "", "", domain.ErrInternal("failed to load existing connection", err)
	}
	if view == nil || view.Connection == nil {
		return "", "", domain.ErrValidation("credential is required for the first bind")
	}

	plain, err = s.enc.DecryptString(view.Connection.Credential)
	if err != nil {
		return "", "", domain.ErrInternal("failed to decrypt stored credential", err)
	}
	return plain, view.Connection.Credential, nil
}

// Unbind deletes the purchase's CNAME binding and clears the connection's
// connected flag. The project connection itself survives. Upstream records
// are NOT retracted: the registrar CNAME and platform domain stay in place
// until reconciled out of band.
func (s *BindingService) Unbind(ctx context.Context, purchaseID, requesterID string) error {
	purchase, err := s.purchases.FindByID(ctx, purchaseID)
	if err != nil {
		return domain.ErrInternal("failed to load purchase", err)
	}
	if purchase == nil {
		return domain.ErrNotFound("purchase not found")
	}
	if purchase.BuyerID != requesterID {
		return domain.ErrUnauthorized("purchase belongs to another user")
	}

	unlock := s.locks.lock(purchaseID)
	defer unlock()

	if err := s.store.DeleteCnameBinding(ctx, purchaseID); err != nil {
		if errors.Is(err, repository.ErrNoBinding) {
			return domain.ErrNotFound("no binding for purchase")
		}
		return domain.ErrInternal("failed to delete binding", err)
	}
	metrics.Unbinds.Inc()
	return nil
}

// View returns the purchase's connection and binding, if any.
func (s *BindingService) View(ctx context.Context, purchaseID, requesterID string) (*domain.BindingView, error) {
	view, err := s.store.GetBindingView(ctx, purchaseID)
	if err != nil {
		return nil, domain.ErrInternal("failed to load binding view", err)
	}
	if view == nil {
		return nil, domain.ErrNotFound("purchase not found")
	}
	if view.Purchase.BuyerID != requesterID {
		return nil, domain.ErrUnauthorized("purchase belongs to another user")
	}
	return view, nil
}

// formatValidationErrors flattens validator errors into one message.
func formatValidationErrors(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, len(verrs))
	for i, fe := range verrs {
		parts[i] = fmt.Sprintf("%s failed on %q", fe.Field(), fe.Tag())
	}
	return "validation failed: " + strings.Join(parts, ", ")
}
