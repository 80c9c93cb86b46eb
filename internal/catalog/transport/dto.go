package transport

import (
	"time"

	"github.com/google/uuid"
)

// ── Requests ──────────────────────────────────────────────────────────────────

// CreateProductRequest is the request body for creating a catalog product.
type CreateProductRequest struct {
	Name       string `json:"name" validate:"required,min=1,max=200"`
	Category   string `json:"category" validate:"max=100"`
	Unit       string `json:"unit" validate:"max=50"`
	PriceCents int64  `json:"priceCents" validate:"min=0"`
}

// UpdateProductRequest is the request body for updating a catalog product.
type UpdateProductRequest struct {
	Name       *string `json:"name" validate:"omitempty,min=1,max=200"`
	Category   *string `json:"category" validate:"omitempty,max=100"`
	Unit       *string `json:"unit" validate:"omitempty,max=50"`
	PriceCents *int64  `json:"priceCents" validate:"omitempty,min=0"`
}

// SearchRequest is the query contract for a catalog text lookup.
type SearchRequest struct {
	Query    string `form:"q" validate:"required,min=1"`
	Category string `form:"category"`
	Limit    int    `form:"limit" validate:"min=0,max=25"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

// ProductResponse is a single catalog product.
type ProductResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	Unit       string    `json:"unit"`
	PriceCents int64     `json:"priceCents"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ProductListResponse is the catalog listing payload.
type ProductListResponse struct {
	Items      []ProductResponse `json:"items"`
	Categories []string          `json:"categories"`
}

// SearchResponse carries the pre-formatted search summary.
type SearchResponse struct {
	Summary string `json:"summary"`
}
