// Package repository provides data access for the product catalog.
package repository

import (
	"context"
	"errors"
	"time"

	"quotebuilder_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Product is a catalog row.
type Product struct {
	ID         uuid.UUID
	OwnerID    uuid.UUID
	Name       string
	Category   string
	Unit       string
	PriceCents int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CreateProductParams holds fields for inserting a product.
type CreateProductParams struct {
	OwnerID    uuid.UUID
	Name       string
	Category   string
	Unit       string
	PriceCents int64
}

// UpdateProductParams holds optional fields for updating a product.
type UpdateProductParams struct {
	ID         uuid.UUID
	OwnerID    uuid.UUID
	Name       *string
	Category   *string
	Unit       *string
	PriceCents *int64
}

// Repository is the catalog data access contract.
type Repository interface {
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (Product, error)
	ListAll(ctx context.Context, ownerID uuid.UUID) ([]Product, error)
	Create(ctx context.Context, params CreateProductParams) (Product, error)
	Update(ctx context.Context, params UpdateProductParams) (Product, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// New creates a Postgres-backed catalog repository.
func New(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const productColumns = `id, owner_id, name, category, unit, price_cents, created_at, updated_at`

func (r *pgRepository) GetByID(ctx context.Context, ownerID, id uuid.UUID) (Product, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1 AND owner_id = $2`, id, ownerID)

	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, apperr.NotFound("product not found")
		}
		return Product{}, err
	}
	return product, nil
}

func (r *pgRepository) ListAll(ctx context.Context, ownerID uuid.UUID) ([]Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE owner_id = $1 ORDER BY category, name`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

func (r *pgRepository) Create(ctx context.Context, params CreateProductParams) (Product, error) {
	now := time.Now()
	id := uuid.New()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO products (id, owner_id, name, category, unit, price_cents, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		id, params.OwnerID, params.Name, params.Category, params.Unit, params.PriceCents, now)
	if err != nil {
		return Product{}, err
	}

	return Product{
		ID:         id,
		OwnerID:    params.OwnerID,
		Name:       params.Name,
		Category:   params.Category,
		Unit:       params.Unit,
		PriceCents: params.PriceCents,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (r *pgRepository) Update(ctx context.Context, params UpdateProductParams) (Product, error) {
	product, err := r.GetByID(ctx, params.OwnerID, params.ID)
	if err != nil {
		return Product{}, err
	}

	if params.Name != nil {
		product.Name = *params.Name
	}
	if params.Category != nil {
		product.Category = *params.Category
	}
	if params.Unit != nil {
		product.Unit = *params.Unit
	}
	if params.PriceCents != nil {
		product.PriceCents = *params.PriceCents
	}
	product.UpdatedAt = time.Now()

	_, err = r.pool.Exec(ctx,
		`UPDATE products SET name = $3, category = $4, unit = $5, price_cents = $6, updated_at = $7
		 WHERE id = $1 AND owner_id = $2`,
		product.ID, product.OwnerID, product.Name, product.Category, product.Unit, product.PriceCents, product.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	return product, nil
}

func (r *pgRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM products WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("product not found")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Category, &p.Unit, &p.PriceCents, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
