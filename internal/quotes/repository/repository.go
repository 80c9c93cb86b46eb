// Package repository provides data access for quotes.
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

// Quote is a persisted quote row.
type Quote struct {
	ID            uuid.UUID
	OwnerID       uuid.UUID
	Name          string
	ClientName    string
	Status        string
	LaborCents    int64
	MarkupPercent float64
	SubtotalCents int64
	TotalCents    int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// QuoteItem is a persisted line item row.
type QuoteItem struct {
	ID             uuid.UUID
	QuoteID        uuid.UUID
	ProductID      *uuid.UUID
	Name           string
	Qty            float64
	UnitPriceCents int64
	SortOrder      int
	CreatedAt      time.Time
}

// Repository provides Postgres access to quotes and their items.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new quotes repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const quoteColumns = `id, owner_id, name, client_name, status, labor_cents, markup_percent, subtotal_cents, total_cents, created_at, updated_at`

// Create inserts a new quote without items.
func (r *Repository) Create(ctx context.Context, quote *Quote) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO quotes (`+quoteColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		quote.ID, quote.OwnerID, quote.Name, quote.ClientName, quote.Status,
		quote.LaborCents, quote.MarkupPercent, quote.SubtotalCents, quote.TotalCents,
		quote.CreatedAt, quote.UpdatedAt)
	return err
}

// UpdateWithItems updates the quote row and, when replaceItems is set,
// replaces its line items in the same transaction.
func (r *Repository) UpdateWithItems(ctx context.Context, quote *Quote, items []QuoteItem, replaceItems bool) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE quotes SET name = $3, client_name = $4, status = $5, labor_cents = $6,
		        markup_percent = $7, subtotal_cents = $8, total_cents = $9, updated_at = $10
		 WHERE id = $1 AND owner_id = $2`,
		quote.ID, quote.OwnerID, quote.Name, quote.ClientName, quote.Status,
		quote.LaborCents, quote.MarkupPercent, quote.SubtotalCents, quote.TotalCents, quote.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("quote not found")
	}

	if replaceItems {
		if _, err := tx.Exec(ctx, `DELETE FROM quote_items WHERE quote_id = $1`, quote.ID); err != nil {
			return err
		}
		for _, item := range items {
			_, err := tx.Exec(ctx,
				`INSERT INTO quote_items (id, quote_id, product_id, name, qty, unit_price_cents, sort_order, created_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				item.ID, item.QuoteID, item.ProductID, item.Name, item.Qty, item.UnitPriceCents, item.SortOrder, item.CreatedAt)
			if err != nil {
				return err
			}
		}
	}

	return tx.Commit(ctx)
}

// GetByID retrieves a quote by ID scoped to its owner.
func (r *Repository) GetByID(ctx context.Context, id, ownerID uuid.UUID) (*Quote, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+quoteColumns+` FROM quotes WHERE id = $1 AND owner_id = $2`, id, ownerID)

	var q Quote
	err := row.Scan(&q.ID, &q.OwnerID, &q.Name, &q.ClientName, &q.Status,
		&q.LaborCents, &q.MarkupPercent, &q.SubtotalCents, &q.TotalCents,
		&q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("quote not found")
		}
		return nil, err
	}
	return &q, nil
}

// GetItemsByQuoteID returns the quote's line items in sort order.
func (r *Repository) GetItemsByQuoteID(ctx context.Context, quoteID uuid.UUID) ([]QuoteItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, quote_id, product_id, name, qty, unit_price_cents, sort_order, created_at
		 FROM quote_items WHERE quote_id = $1 ORDER BY sort_order`, quoteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []QuoteItem
	for rows.Next() {
		var item QuoteItem
		if err := rows.Scan(&item.ID, &item.QuoteID, &item.ProductID, &item.Name,
			&item.Qty, &item.UnitPriceCents, &item.SortOrder, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// List returns all quotes for the owner, newest first.
func (r *Repository) List(ctx context.Context, ownerID uuid.UUID) ([]Quote, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+quoteColumns+` FROM quotes WHERE owner_id = $1 ORDER BY updated_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quotes []Quote
	for rows.Next() {
		var q Quote
		if err := rows.Scan(&q.ID, &q.OwnerID, &q.Name, &q.ClientName, &q.Status,
			&q.LaborCents, &q.MarkupPercent, &q.SubtotalCents, &q.TotalCents,
			&q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

// Delete removes a quote and its line items.
func (r *Repository) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM quote_items WHERE quote_id = $1`, id); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `DELETE FROM quotes WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("quote not found")
	}

	return tx.Commit(ctx)
}

// DeleteStaleEmptyDrafts removes draft quotes with no items that have not
// been touched since the cutoff. Used by the maintenance scheduler.
func (r *Repository) DeleteStaleEmptyDrafts(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM quotes q
		 WHERE q.status = 'Draft'
		   AND q.updated_at < $1
		   AND NOT EXISTS (SELECT 1 FROM quote_items i WHERE i.quote_id = q.id)`,
		before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
