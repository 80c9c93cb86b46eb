package transport

import (
	"time"

	"github.com/google/uuid"
)

// QuoteStatus defines the status of a quote
type QuoteStatus string

const (
	QuoteStatusDraft    QuoteStatus = "Draft"
	QuoteStatusSent     QuoteStatus = "Sent"
	QuoteStatusAccepted QuoteStatus = "Accepted"
	QuoteStatusRejected QuoteStatus = "Rejected"
)

// ── Requests ──────────────────────────────────────────────────────────────────

// QuoteItemRequest is the input for a single line item
type QuoteItemRequest struct {
	ProductID      *uuid.UUID `json:"productId,omitempty"`
	Name           string     `json:"name" validate:"required,min=1,max=500"`
	Qty            float64    `json:"qty" validate:"gt=0"`
	UnitPriceCents int64      `json:"unitPriceCents" validate:"min=0"`
}

// CreateQuoteRequest is the request body for creating a new quote
type CreateQuoteRequest struct {
	Name       string `json:"name" validate:"max=300"`
	ClientName string `json:"clientName" validate:"max=300"`
}

// UpdateQuoteRequest is the request body for updating a quote.
// Nil fields are left unchanged; a non-nil Items slice replaces all items.
type UpdateQuoteRequest struct {
	Name          *string             `json:"name" validate:"omitempty,max=300"`
	ClientName    *string             `json:"clientName" validate:"omitempty,max=300"`
	Status        *QuoteStatus        `json:"status" validate:"omitempty,oneof=Draft Sent Accepted Rejected"`
	LaborCents    *int64              `json:"laborCents" validate:"omitempty,min=0"`
	MarkupPercent *float64            `json:"markupPercent" validate:"omitempty,min=0,max=1000"`
	Items         *[]QuoteItemRequest `json:"items" validate:"omitempty,dive"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

// QuoteItemResponse is a single line item with its computed line total.
type QuoteItemResponse struct {
	ID             uuid.UUID  `json:"id"`
	ProductID      *uuid.UUID `json:"productId,omitempty"`
	Name           string     `json:"name"`
	Qty            float64    `json:"qty"`
	UnitPriceCents int64      `json:"unitPriceCents"`
	LineTotalCents int64      `json:"lineTotalCents"`
}

// QuoteResponse is the full quote payload.
type QuoteResponse struct {
	ID            uuid.UUID           `json:"id"`
	Name          string              `json:"name"`
	ClientName    string              `json:"clientName"`
	Status        QuoteStatus         `json:"status"`
	LaborCents    int64               `json:"laborCents"`
	MarkupPercent float64             `json:"markupPercent"`
	SubtotalCents int64               `json:"subtotalCents"`
	TotalCents    int64               `json:"totalCents"`
	Items         []QuoteItemResponse `json:"items"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

// QuoteListResponse is the quote listing payload.
type QuoteListResponse struct {
	Items []QuoteResponse `json:"items"`
	Total int             `json:"total"`
}
