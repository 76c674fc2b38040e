package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/subslot/backend/internal/domain"
)

// PurchaseRepository handles database operations for purchases.
type PurchaseRepository struct {
	db *pgxpool.Pool
}

// NewPurchaseRepository creates a new PurchaseRepository.
func NewPurchaseRepository(db *pgxpool.Pool) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

// Create inserts a new purchase. Purchases are never deleted.
func (r *PurchaseRepository) Create(ctx context.Context, p *domain.Purchase) error {
	query := `
		INSERT INTO purchases (id, buyer_id, base_domain_id, price_cents, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		p.ID, p.BuyerID, p.BaseDomainID, p.PriceCents, p.Status, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create purchase: %w", err)
	}
	return nil
}

// FindByID returns a purchase by ID.
func (r *PurchaseRepository) FindByID(ctx context.Context, id string) (*domain.Purchase, error) {
	query := `
		SELECT id, buyer_id, base_domain_id, price_cents, status, created_at
		FROM purchases WHERE id = $1
	`
	row := r.db.QueryRow(ctx, query, id)

	var p domain.Purchase
	err := row.Scan(&p.ID, &p.BuyerID, &p.BaseDomainID, &p.PriceCents, &p.Status, &p.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find purchase: %w", err)
	}
	return &p, nil
}

// FindAllByBuyer returns all purchases for a buyer, newest first.
func (r *PurchaseRepository) FindAllByBuyer(ctx context.Context, buyerID string) ([]*domain.Purchase, error) {
	query := `
		SELECT id, buyer_id, base_domain_id, price_cents, status, created_at
		FROM purchases WHERE buyer_id = $1 ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, buyerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query purchases: %w", err)
	}
	defer rows.Close()

	var purchases []*domain.Purchase
	for rows.Next() {
		var p domain.Purchase
		if err := rows.Scan(&p.ID, &p.BuyerID, &p.BaseDomainID, &p.PriceCents, &p.Status, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		purchases = append(purchases, &p)
	}
	if purchases == nil {
		purchases = []*domain.Purchase{}
	}
	return purchases, nil
}

// UpdateStatus transitions a purchase's status (pending/paid/failed).
func (r *PurchaseRepository) UpdateStatus(ctx context.Context, id, status string) error {
	_, err := r.db.Exec(ctx, `UPDATE purchases SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update purchase status: %w", err)
	}
	return nil
}
