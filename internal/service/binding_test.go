package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/subslot/backend/internal/domain"
	"github.com/subslot/backend/internal/repository"
	"github.com/subslot/backend/pkg/crypto"
)

// fakeStore is an in-memory BindingStore with the same invariants the SQL
// schema enforces: one connection and one binding per purchase, one label
// per base domain.
type fakeStore struct {
	mu          sync.Mutex
	purchases   map[string]*domain.Purchase
	connections map[string]*domain.ProjectConnection // by purchase id
	bindings    map[string]*domain.CnameBinding      // by purchase id
	failUpsert  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		purchases:   make(map[string]*domain.Purchase),
		connections: make(map[string]*domain.ProjectConnection),
		bindings:    make(map[string]*domain.CnameBinding),
	}
}

func (s *fakeStore) addPurchase(p *domain.Purchase) {
	s.purchases[p.ID] = p
}

func (s *fakeStore) FindByID(ctx context.Context, id string) (*domain.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.purchases[id], nil
}

func (s *fakeStore) UpsertBinding(ctx context.Context, purchaseID string, conn repository.ConnectionParams, bind repository.BindingParams) (*domain.ProjectConnection, *domain.CnameBinding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failUpsert != nil {
		return nil, nil, s.failUpsert
	}

	// Label uniqueness against other purchases under the same base domain.
	for pid, b := range s.bindings {
		if pid != purchaseID && b.BaseDomainID == bind.BaseDomainID && b.Label == bind.Label {
			return nil, nil, repository.ErrLabelTaken
		}
	}

	now := time.Now()
	c, ok := s.connections[purchaseID]
	if !ok {
		c = &domain.ProjectConnection{ID: domain.NewID(), PurchaseID: purchaseID, OwnerID: conn.OwnerID, CreatedAt: now}
		s.connections[purchaseID] = c
	}
	c.Platform = conn.Platform
	c.Credential = conn.Credential
	c.ProjectID = conn.ProjectID
	c.ProjectName = conn.ProjectName
	c.DeployedURL = conn.DeployedURL
	c.UpdatedAt = now

	b, ok := s.bindings[purchaseID]
	if !ok {
		b = &domain.CnameBinding{ID: domain.NewID(), PurchaseID: purchaseID, BaseDomainID: bind.BaseDomainID, CreatedAt: now}
		s.bindings[purchaseID] = b
	}
	b.ConnectionID = c.ID
	b.Label = bind.Label
	b.Target = bind.Target
	b.UpdatedAt = now

	cCopy, bCopy := *c, *b
	return &cCopy, &bCopy, nil
}

func (s *fakeStore) SetConnected(ctx context.Context, purchaseID string, connected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.connections[purchaseID]; ok {
		c.Connected = connected
	}
	return nil
}

func (s *fakeStore) DeleteCnameBinding(ctx context.Context, purchaseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bindings[purchaseID]; !ok {
		return repository.ErrNoBinding
	}
	delete(s.bindings, purchaseID)
	if c, ok := s.connections[purchaseID]; ok {
		c.Connected = false
	}
	return nil
}

func (s *fakeStore) GetBindingView(ctx context.Context, purchaseID string) (*domain.BindingView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.purchases[purchaseID]
	if !ok {
		return nil, nil
	}
	view := &domain.BindingView{Purchase: p}
	if c, ok := s.connections[purchaseID]; ok {
		cCopy := *c
		view.Connection = &cCopy
	}
	if b, ok := s.bindings[purchaseID]; ok {
		bCopy := *b
		view.Binding = &bCopy
	}
	return view, nil
}

type fakeBaseDomains struct {
	domains map[string]*domain.BaseDomain
}

func (f *fakeBaseDomains) FindByID(ctx context.Context, id string) (*domain.BaseDomain, error) {
	return f.domains[id], nil
}

type registrarCall struct {
	zone, label, target string
}

type fakeRegistrar struct {
	calls []registrarCall
	err   error
}

func (f *fakeRegistrar) UpsertCname(ctx context.Context, zone, label, target string) ([]byte, error) {
	f.calls = append(f.calls, registrarCall{zone, label, target})
	if f.err != nil {
		return nil, f.err
	}
	return []byte(`{"ok":true}`), nil
}

type platformCall struct {
	projectID, fullDomain, credential string
}

type fakePlatform struct {
	calls []platformCall
	err   error
}

func (f *fakePlatform) RegisterDomain(ctx context.Context, projectID, fullDomain, credential string) ([]byte, error) {
	f.calls = append(f.calls, platformCall{projectID, fullDomain, credential})
	if f.err != nil {
		return nil, f.err
	}
	return []byte(`{"verified":false}`), nil
}

type fixture struct {
	svc       *BindingService
	store     *fakeStore
	registrar *fakeRegistrar
	platform  *fakePlatform
	enc       *crypto.Encryptor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	enc, err := crypto.NewEncryptor(strings.Repeat("k", 32))
	require.NoError(t, err)

	store := newFakeStore()
	store.addPurchase(&domain.Purchase{
		ID: "p1", BuyerID: "u1", BaseDomainID: "bd1",
		Status: domain.PurchasePaid, CreatedAt: time.Now(),
	})

	baseDomains := &fakeBaseDomains{domains: map[string]*domain.BaseDomain{
		"bd1": {ID: "bd1", Name: "shop.dev", SellerID: "seller1"},
	}}

	reg := &fakeRegistrar{}
	plat := &fakePlatform{}
	return &fixture{
		svc:       NewBindingService(store, store, baseDomains, reg, plat, enc),
		store:     store,
		registrar: reg,
		platform:  plat,
		enc:       enc,
	}
}

func bindReq() *domain.BindRequest {
	return &domain.BindRequest{
		Label:       "api",
		Platform:    "vercel",
		Credential:  "tok-secret",
		ProjectID:   "proj1",
		ProjectName: "My Project",
		DeployedURL: "https://proj1.vercel.app",
	}
}

func TestBindPersistsAndCallsBothServices(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Bind(context.Background(), "p1", "u1", bindReq())
	require.NoError(t, err)

	require.NotNil(t, result.Binding)
	assert.Equal(t, "api", result.Binding.Label)
	assert.Equal(t, "proj1.vercel.app.", result.Binding.Target)
	assert.True(t, result.Registrar.OK)
	assert.True(t, result.Platform.OK)
	assert.True(t, result.Connection.Connected)

	require.Len(t, f.registrar.calls, 1)
	assert.Equal(t, registrarCall{"shop.dev", "api", "proj1.vercel.app."}, f.registrar.calls[0])

	require.Len(t, f.platform.calls, 1)
	assert.Equal(t, "proj1", f.platform.calls[0].projectID)
	assert.Equal(t, "api.shop.dev", f.platform.calls[0].fullDomain)
	assert.Equal(t, "tok-secret", f.platform.calls[0].credential)
}

func TestBindIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Bind(ctx, "p1", "u1", bindReq())
	require.NoError(t, err)

	// Re-bind with a new deployed URL: the existing rows are updated in
	// place, never duplicated.
	req := bindReq()
	req.DeployedURL = "https://proj1-v2.vercel.app"
	second, err := f.svc.Bind(ctx, "p1", "u1", req)
	require.NoError(t, err)

	assert.Len(t, f.store.connections, 1)
	assert.Len(t, f.store.bindings, 1)
	assert.Equal(t, first.Binding.ID, second.Binding.ID)
	assert.Equal(t, first.Connection.ID, second.Connection.ID)
	assert.Equal(t, "proj1-v2.vercel.app.", second.Binding.Target)

	// Both external calls re-attempted on every Bind.
	assert.Len(t, f.registrar.calls, 2)
	assert.Len(t, f.platform.calls, 2)
}

func TestBindLabelConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.addPurchase(&domain.Purchase{
		ID: "p2", BuyerID: "u2", BaseDomainID: "bd1",
		Status: domain.PurchasePaid, CreatedAt: time.Now(),
	})

	_, err := f.svc.Bind(ctx, "p1", "u1", bindReq())
	require.NoError(t, err)
	callsAfterFirst := len(f.registrar.calls)

	// Another purchase claims the same label under the same base domain.
	_, err = f.svc.Bind(ctx, "p2", "u2", bindReq())
	require.Error(t, err)
	appErr, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 409, appErr.Code)

	// No external calls were made for the conflicting bind, and the first
	// purchase's binding is untouched.
	assert.Len(t, f.registrar.calls, callsAfterFirst)
	assert.Equal(t, "p1", f.store.bindings["p1"].PurchaseID)
	assert.Equal(t, "api", f.store.bindings["p1"].Label)
	_, exists := f.store.bindings["p2"]
	assert.False(t, exists)
}

func TestBindOwnership(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Bind(context.Background(), "p1", "intruder", bindReq())
	require.Error(t, err)
	appErr, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 401, appErr.Code)
	assert.Empty(t, f.registrar.calls)
	assert.Empty(t, f.platform.calls)
}

func TestBindOwnershipCheckedBeforeValidation(t *testing.T) {
	f := newFixture(t)

	// A non-owner sending a malformed body still gets Unauthorized, not
	// validation feedback about a purchase they don't own.
	req := bindReq()
	req.Label = "-invalid-"
	_, err := f.svc.Bind(context.Background(), "p1", "intruder", req)
	require.Error(t, err)
	appErr, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 401, appErr.Code)
}

func TestBindPurchaseNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Bind(context.Background(), "missing", "u1", bindReq())
	appErr, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 404, appErr.Code)
}

func TestBindRejectsUnpaidPurchase(t *testing.T) {
	f := newFixture(t)
	f.store.addPurchase(&domain.Purchase{
		ID: "p3", BuyerID: "u1", BaseDomainID: "bd1",
		Status: domain.PurchasePending, CreatedAt: time.Now(),
	})

	_, err := f.svc.Bind(context.Background(), "p3", "u1", bindReq())
	appErr, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 400, appErr.Code)
}

func TestBindRejectsInvalidLabel(t *testing.T) {
	f := newFixture(t)

	for _, label := range []string{"-bad", "bad-", "a.b", "has space"} {
		req := bindReq()
		req.Label = label
		_, err := f.svc.Bind(context.Background(), "p1", "u1", req)
		require.Error(t, err, "label %q", label)
		appErr, ok := domain.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, 422, appErr.Code)
	}
	assert.Empty(t, f.registrar.calls)
}

func TestBindPartialFailureIsolation(t *testing.T) {
	f := newFixture(t)
	f.registrar.err = errors.New("registrar returned 503: zone busy")

	result, err := f.svc.Bind(context.Background(), "p1", "u1", bindReq())
	require.NoError(t, err, "upstream failure must not fail the Bind")

	assert.False(t, result.Registrar.OK)
	assert.Contains(t, result.Registrar.Message, "zone busy")
	assert.True(t, result.Platform.OK)
	assert.False(t, result.Connection.Connected)

	// Binding persisted despite the failed leg: the user retries by
	// re-invoking Bind without re-entering configuration.
	require.NotNil(t, f.store.bindings["p1"])
	assert.Equal(t, "proj1.vercel.app.", f.store.bindings["p1"].Target)
	assert.Len(t, f.platform.calls, 1)

	// Retry after the registrar recovers flips connected.
	f.registrar.err = nil
	result, err = f.svc.Bind(context.Background(), "p1", "u1", bindReq())
	require.NoError(t, err)
	assert.True(t, result.Registrar.OK)
	assert.True(t, result.Connection.Connected)
}

func TestBindBothServicesFail(t *testing.T) {
	f := newFixture(t)
	f.registrar.err = errors.New("registrar down")
	f.platform.err = errors.New("platform down")

	result, err := f.svc.Bind(context.Background(), "p1", "u1", bindReq())
	require.NoError(t, err)
	assert.False(t, result.Registrar.OK)
	assert.False(t, result.Platform.OK)
	assert.False(t, result.Connection.Connected)
	require.NotNil(t, f.store.bindings["p1"])
}

func TestBindEncryptsCredentialAtRest(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Bind(context.Background(), "p1", "u1", bindReq())
	require.NoError(t, err)

	stored := f.store.connections["p1"].Credential
	assert.NotEqual(t, "tok-secret", stored)

	plain, err := f.enc.DecryptString(stored)
	require.NoError(t, err)
	assert.Equal(t, "tok-secret", plain)
}

func TestRebindReusesStoredCredential(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Bind(ctx, "p1", "u1", bindReq())
	require.NoError(t, err)

	// Retry without the credential: the stored ciphertext is decrypted and
	// the platform is called with the original token.
	req := bindReq()
	req.Credential = ""
	_, err = f.svc.Bind(ctx, "p1", "u1", req)
	require.NoError(t, err)

	require.Len(t, f.platform.calls, 2)
	assert.Equal(t, "tok-secret", f.platform.calls[1].credential)

	// The stored ciphertext survives the re-bind unchanged in plaintext.
	plain, err := f.enc.DecryptString(f.store.connections["p1"].Credential)
	require.NoError(t, err)
	assert.Equal(t, "tok-secret", plain)
}

func TestFirstBindRequiresCredential(t *testing.T) {
	f := newFixture(t)

	req := bindReq()
	req.Credential = ""
	_, err := f.svc.Bind(context.Background(), "p1", "u1", req)
	require.Error(t, err)
	appErr, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 422, appErr.Code)
	assert.Contains(t, appErr.Message, "credential")
	assert.Empty(t, f.registrar.calls)
	assert.Empty(t, f.platform.calls)
}

func TestUnbindRemovesBindingKeepsConnection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Bind(ctx, "p1", "u1", bindReq())
	require.NoError(t, err)
	require.True(t, f.store.connections["p1"].Connected)

	require.NoError(t, f.svc.Unbind(ctx, "p1", "u1"))

	view, err := f.svc.View(ctx, "p1", "u1")
	require.NoError(t, err)
	assert.Nil(t, view.Binding)
	require.NotNil(t, view.Connection)
	assert.False(t, view.Connection.Connected)
}

func TestUnbindWithoutBinding(t *testing.T) {
	f := newFixture(t)

	err := f.svc.Unbind(context.Background(), "p1", "u1")
	appErr, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 404, appErr.Code)
}

func TestUnbindOwnership(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Bind(context.Background(), "p1", "u1", bindReq())
	require.NoError(t, err)

	err = f.svc.Unbind(context.Background(), "p1", "intruder")
	appErr, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 401, appErr.Code)
}

func TestViewOwnership(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.View(context.Background(), "p1", "intruder")
	appErr, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 401, appErr.Code)
}

func TestConcurrentBindsSerializePerPurchase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Bind(ctx, "p1", "u1", bindReq())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Still exactly one row of each.
	assert.Len(t, f.store.connections, 1)
	assert.Len(t, f.store.bindings, 1)
}
