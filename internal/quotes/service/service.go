// Package service provides business logic for quotes.
package service

import (
	"context"
	"strings"
	"time"

	"quotebuilder_backend/internal/quotes/repository"
	"quotebuilder_backend/internal/quotes/transport"
	"quotebuilder_backend/platform/logger"

	"github.com/google/uuid"
)

// Service provides business logic for quotes
type Service struct {
	repo *repository.Repository
	log  *logger.Logger
}

// New creates a new quotes service
func New(repo *repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Create creates a new quote without items. Items, labor, and markup arrive
// later via Update — the wizard commits in a create-then-update sequence.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, req transport.CreateQuoteRequest) (*transport.QuoteResponse, error) {
	now := time.Now()
	quote := repository.Quote{
		ID:         uuid.New(),
		OwnerID:    ownerID,
		Name:       strings.TrimSpace(req.Name),
		ClientName: strings.TrimSpace(req.ClientName),
		Status:     string(transport.QuoteStatusDraft),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.Create(ctx, &quote); err != nil {
		return nil, err
	}

	s.log.Info("quote created", "id", quote.ID, "name", quote.Name)
	return buildResponse(&quote, nil), nil
}

// Update applies partial updates and recalculates totals server-side.
func (s *Service) Update(ctx context.Context, id, ownerID uuid.UUID, req transport.UpdateQuoteRequest) (*transport.QuoteResponse, error) {
	quote, err := s.repo.GetByID(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		quote.Name = strings.TrimSpace(*req.Name)
	}
	if req.ClientName != nil {
		quote.ClientName = strings.TrimSpace(*req.ClientName)
	}
	if req.Status != nil {
		quote.Status = string(*req.Status)
	}
	if req.LaborCents != nil {
		quote.LaborCents = *req.LaborCents
	}
	if req.MarkupPercent != nil {
		quote.MarkupPercent = *req.MarkupPercent
	}

	var items []repository.QuoteItem
	replaceItems := req.Items != nil
	if replaceItems {
		now := time.Now()
		items = make([]repository.QuoteItem, len(*req.Items))
		for i, it := range *req.Items {
			items[i] = repository.QuoteItem{
				ID:             uuid.New(),
				QuoteID:        quote.ID,
				ProductID:      it.ProductID,
				Name:           it.Name,
				Qty:            it.Qty,
				UnitPriceCents: it.UnitPriceCents,
				SortOrder:      i,
				CreatedAt:      now,
			}
		}
	} else {
		existing, err := s.repo.GetItemsByQuoteID(ctx, quote.ID)
		if err != nil {
			return nil, err
		}
		items = existing
	}

	totals := ComputeTotals(totalsInput(quote, items))
	quote.SubtotalCents = totals.SubtotalCents
	quote.TotalCents = totals.TotalCents
	quote.UpdatedAt = time.Now()

	if err := s.repo.UpdateWithItems(ctx, quote, items, replaceItems); err != nil {
		return nil, err
	}

	return buildResponse(quote, items), nil
}

// GetByID retrieves a quote with its line items
func (s *Service) GetByID(ctx context.Context, id, ownerID uuid.UUID) (*transport.QuoteResponse, error) {
	quote, err := s.repo.GetByID(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.GetItemsByQuoteID(ctx, id)
	if err != nil {
		return nil, err
	}

	return buildResponse(quote, items), nil
}

// List retrieves all of the owner's quotes.
func (s *Service) List(ctx context.Context, ownerID uuid.UUID) (*transport.QuoteListResponse, error) {
	quotes, err := s.repo.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	items := make([]transport.QuoteResponse, len(quotes))
	for i, q := range quotes {
		qItems, _ := s.repo.GetItemsByQuoteID(ctx, q.ID)
		items[i] = *buildResponse(&q, qItems)
	}

	return &transport.QuoteListResponse{Items: items, Total: len(items)}, nil
}

// Delete removes a quote and its line items
func (s *Service) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	return s.repo.Delete(ctx, id, ownerID)
}

func totalsInput(quote *repository.Quote, items []repository.QuoteItem) TotalsInput {
	input := TotalsInput{
		Items:         make([]TotalsItem, len(items)),
		LaborCents:    quote.LaborCents,
		MarkupPercent: quote.MarkupPercent,
	}
	for i, item := range items {
		input.Items[i] = TotalsItem{Qty: item.Qty, UnitPriceCents: item.UnitPriceCents}
	}
	return input
}

func buildResponse(q *repository.Quote, items []repository.QuoteItem) *transport.QuoteResponse {
	totals := ComputeTotals(totalsInput(q, items))

	respItems := make([]transport.QuoteItemResponse, len(items))
	for i, it := range items {
		respItems[i] = transport.QuoteItemResponse{
			ID:             it.ID,
			ProductID:      it.ProductID,
			Name:           it.Name,
			Qty:            it.Qty,
			UnitPriceCents: it.UnitPriceCents,
			LineTotalCents: totals.LineTotalsCents[i],
		}
	}

	return &transport.QuoteResponse{
		ID:            q.ID,
		Name:          q.Name,
		ClientName:    q.ClientName,
		Status:        transport.QuoteStatus(q.Status),
		LaborCents:    q.LaborCents,
		MarkupPercent: q.MarkupPercent,
		SubtotalCents: totals.SubtotalCents,
		TotalCents:    totals.TotalCents,
		Items:         respItems,
		CreatedAt:     q.CreatedAt,
		UpdatedAt:     q.UpdatedAt,
	}
}
