package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/subslot/backend/internal/domain"
)

// ErrDomainExists reports that a base domain with the same name is already
// listed.
var ErrDomainExists = errors.New("base domain already listed")

// BaseDomainRepository handles database operations for listed base domains.
type BaseDomainRepository struct {
	db *pgxpool.Pool
}

// NewBaseDomainRepository creates a new BaseDomainRepository.
func NewBaseDomainRepository(db *pgxpool.Pool) *BaseDomainRepository {
	return &BaseDomainRepository{db: db}
}

// Create inserts a new base domain listing.
func (r *BaseDomainRepository) Create(ctx context.Context, d *domain.BaseDomain) error {
	query := `
		INSERT INTO base_domains (id, name, seller_id, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.Exec(ctx, query, d.ID, d.Name, d.SellerID, d.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDomainExists
		}
		return fmt.Errorf("failed to create base domain: %w", err)
	}
	return nil
}

// FindByID returns a base domain by ID.
func (r *BaseDomainRepository) FindByID(ctx context.Context, id string) (*domain.BaseDomain, error) {
	query := `SELECT id, name, seller_id, created_at FROM base_domains WHERE id = $1`
	row := r.db.QueryRow(ctx, query, id)

	var d domain.BaseDomain
	err := row.Scan(&d.ID, &d.Name, &d.SellerID, &d.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find base domain: %w", err)
	}
	return &d, nil
}

// ListAll returns all listed base domains ordered by name.
func (r *BaseDomainRepository) ListAll(ctx context.Context) ([]*domain.BaseDomain, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, seller_id, created_at FROM base_domains ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list base domains: %w", err)
	}
	defer rows.Close()

	var domains []*domain.BaseDomain
	for rows.Next() {
		var d domain.BaseDomain
		if err := rows.Scan(&d.ID, &d.Name, &d.SellerID, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan base domain: %w", err)
		}
		domains = append(domains, &d)
	}
	if domains == nil {
		domains = []*domain.BaseDomain{}
	}
	return domains, nil
}
