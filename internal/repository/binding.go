package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/subslot/backend/internal/domain"
)

// ErrLabelTaken reports that another purchase already holds the requested
// label under the same base domain.
var ErrLabelTaken = errors.New("subdomain label already taken for this base domain")

// ErrNoBinding reports that a purchase has no CNAME binding to operate on.
var ErrNoBinding = errors.New("no cname binding for purchase")

const pgUniqueViolation = "23505"

// ConnectionParams are the project-connection fields written on upsert.
// Credential must already be encrypted by the caller.
type ConnectionParams struct {
	OwnerID     string
	Platform    string
	Credential  string
	ProjectID   string
	ProjectName string
	DeployedURL string
}

// BindingParams are the cname-binding fields written on upsert. Target is
// the normalized FQDN form.
type BindingParams struct {
	BaseDomainID string
	Label        string
	Target       string
}

// BindingRepository is the binding store. Every multi-row write runs in a
// transaction that first locks the purchase row, serializing concurrent
// Bind/Unbind calls for the same purchase at the store layer.
type BindingRepository struct {
	db *pgxpool.Pool
}

// NewBindingRepository creates a new BindingRepository.
func NewBindingRepository(db *pgxpool.Pool) *BindingRepository {
	return &BindingRepository{db: db}
}

// UpsertBinding creates or updates the purchase's project connection and
// cname binding in one transaction. At most one row of each ever exists per
// purchase; re-binding updates in place. A label held by another purchase
// under the same base domain rolls the transaction back with ErrLabelTaken.
func (r *BindingRepository) UpsertBinding(ctx context.Context, purchaseID string, conn ConnectionParams, bind BindingParams) (*domain.ProjectConnection, *domain.CnameBinding, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockPurchase(ctx, tx, purchaseID); err != nil {
		return nil, nil, err
	}

	connection, err := upsertConnection(ctx, tx, purchaseID, conn)
	if err != nil {
		return nil, nil, err
	}

	binding, err := upsertCname(ctx, tx, purchaseID, connection.ID, bind)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to commit binding upsert: %w", err)
	}
	return connection, binding, nil
}

// SetConnected flips the connection's connected flag after the external
// calls settle.
func (r *BindingRepository) SetConnected(ctx context.Context, purchaseID string, connected bool) error {
	_, err := r.db.Exec(ctx,
		`UPDATE project_connections SET connected = $1, updated_at = NOW() WHERE purchase_id = $2`,
		connected, purchaseID,
	)
	if err != nil {
		return fmt.Errorf("failed to set connected flag: %w", err)
	}
	return nil
}

// DeleteCnameBinding removes the purchase's binding and clears the
// connection's connected flag in one transaction. The connection row itself
// survives. Returns ErrNoBinding when the purchase has no binding.
func (r *BindingRepository) DeleteCnameBinding(ctx context.Context, purchaseID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockPurchase(ctx, tx, purchaseID); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `DELETE FROM cname_bindings WHERE purchase_id = $1`, purchaseID)
	if err != nil {
		return fmt.Errorf("failed to delete cname binding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoBinding
	}

	_, err = tx.Exec(ctx,
		`UPDATE project_connections SET connected = FALSE, updated_at = NOW() WHERE purchase_id = $1`,
		purchaseID,
	)
	if err != nil {
		return fmt.Errorf("failed to clear connected flag: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit binding delete: %w", err)
	}
	return nil
}

// GetBindingView returns the purchase with its connection and binding, if
// any. Connection and Binding are nil when absent.
func (r *BindingRepository) GetBindingView(ctx context.Context, purchaseID string) (*domain.BindingView, error) {
	view := &domain.BindingView{}

	row := r.db.QueryRow(ctx, `
		SELECT id, buyer_id, base_domain_id, price_cents, status, created_at
		FROM purchases WHERE id = $1
	`, purchaseID)
	var p domain.Purchase
	err := row.Scan(&p.ID, &p.BuyerID, &p.BaseDomainID, &p.PriceCents, &p.Status, &p.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find purchase: %w", err)
	}
	view.Purchase = &p

	row = r.db.QueryRow(ctx, `
		SELECT id, purchase_id, owner_id, platform, credential, project_id, project_name,
		       deployed_url, connected, created_at, updated_at
		FROM project_connections WHERE purchase_id = $1
	`, purchaseID)
	var c domain.ProjectConnection
	err = row.Scan(&c.ID, &c.PurchaseID, &c.OwnerID, &c.Platform, &c.Credential,
		&c.ProjectID, &c.ProjectName, &c.DeployedURL, &c.Connected, &c.CreatedAt, &c.UpdatedAt)
	if err != nil && err != pgx.ErrNoRows {
		return nil, fmt.Errorf("failed to find project connection: %w", err)
	}
	if err == nil {
		view.Connection = &c
	}

	row = r.db.QueryRow(ctx, `
		SELECT id, purchase_id, connection_id, base_domain_id, label, target, created_at, updated_at
		FROM cname_bindings WHERE purchase_id = $1
	`, purchaseID)
	var b domain.CnameBinding
	err = row.Scan(&b.ID, &b.PurchaseID, &b.ConnectionID, &b.BaseDomainID,
		&b.Label, &b.Target, &b.CreatedAt, &b.UpdatedAt)
	if err != nil && err != pgx.ErrNoRows {
		return nil, fmt.Errorf("failed to find cname binding: %w", err)
	}
	if err == nil {
		view.Binding = &b
	}

	return view, nil
}

// lockPurchase takes a row lock on the purchase, making the surrounding
// transaction the per-purchase critical section.
func lockPurchase(ctx context.Context, tx pgx.Tx, purchaseID string) error {
	var id string
	err := tx.QueryRow(ctx, `SELECT id FROM purchases WHERE id = $1 FOR UPDATE`, purchaseID).Scan(&id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return fmt.Errorf("purchase %s not found", purchaseID)
		}
		return fmt.Errorf("failed to lock purchase: %w", err)
	}
	return nil
}

func upsertConnection(ctx context.Context, tx pgx.Tx, purchaseID string, params ConnectionParams) (*domain.ProjectConnection, error) {
	now := time.Now()
	query := `
		INSERT INTO project_connections
			(id, purchase_id, owner_id, platform, credential, project_id, project_name,
			 deployed_url, connected, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, $9, $9)
		ON CONFLICT (purchase_id) DO UPDATE SET
			platform     = EXCLUDED.platform,
			credential   = EXCLUDED.credential,
			project_id   = EXCLUDED.project_id,
			project_name = EXCLUDED.project_name,
			deployed_url = EXCLUDED.deployed_url,
			updated_at   = EXCLUDED.updated_at
		RETURNING id, purchase_id, owner_id, platform, credential, project_id, project_name,
		          deployed_url, connected, created_at, updated_at
	`
	row := tx.QueryRow(ctx, query,
		domain.NewID(), purchaseID, params.OwnerID, params.Platform, params.Credential,
		params.ProjectID, params.ProjectName, params.DeployedURL, now,
	)

	var c domain.ProjectConnection
	err := row.Scan(&c.ID, &c.PurchaseID, &c.OwnerID, &c.Platform, &c.Credential,
		&c.ProjectID, &c.ProjectName, &c.DeployedURL, &c.Connected, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert project connection: %w", err)
	}
	return &c, nil
}

func upsertCname(ctx context.Context, tx pgx.Tx, purchaseID, connectionID string, params BindingParams) (*domain.CnameBinding, error) {
	now := time.Now()
	query := `
		INSERT INTO cname_bindings
			(id, purchase_id, connection_id, base_domain_id, label, target, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (purchase_id) DO UPDATE SET
			connection_id = EXCLUDED.connection_id,
			label         = EXCLUDED.label,
			target        = EXCLUDED.target,
			updated_at    = EXCLUDED.updated_at
		RETURNING id, purchase_id, connection_id, base_domain_id, label, target, created_at, updated_at
	`
	row := tx.QueryRow(ctx, query,
		domain.NewID(), purchaseID, connectionID, params.BaseDomainID,
		params.Label, params.Target, now,
	)

	var b domain.CnameBinding
	err := row.Scan(&b.ID, &b.PurchaseID, &b.ConnectionID, &b.BaseDomainID,
		&b.Label, &b.Target, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if isLabelConflict(err) {
			return nil, ErrLabelTaken
		}
		return nil, fmt.Errorf("failed to upsert cname binding: %w", err)
	}
	return &b, nil
}

// isLabelConflict matches the unique violation raised by the
// (base_domain_id, label) index when another purchase holds the label.
func isLabelConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgUniqueViolation &&
		pgErr.ConstraintName == "cname_bindings_base_domain_label_key"
}
