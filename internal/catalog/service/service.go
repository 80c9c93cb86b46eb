// Package service provides business logic for the product catalog, including
// the snapshot-backed text search consumed by the quote wizard.
package service

import (
	"context"
	"strings"

	"quotebuilder_backend/internal/catalog/repository"
	"quotebuilder_backend/internal/catalog/transport"
	"quotebuilder_backend/platform/logger"

	"github.com/google/uuid"
)

// Service provides business logic for catalog.
type Service struct {
	repo      repository.Repository
	log       *logger.Logger
	snapshots *snapshotCache
}

// New creates a new catalog service.
func New(repo repository.Repository, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		log:       log,
		snapshots: newSnapshotCache(repo),
	}
}

// GetByID retrieves a product by ID.
func (s *Service) GetByID(ctx context.Context, ownerID, id uuid.UUID) (transport.ProductResponse, error) {
	product, err := s.repo.GetByID(ctx, ownerID, id)
	if err != nil {
		return transport.ProductResponse{}, err
	}
	return toProductResponse(product), nil
}

// List retrieves all products for the owner along with the category list.
func (s *Service) List(ctx context.Context, ownerID uuid.UUID) (transport.ProductListResponse, error) {
	products, err := s.repo.ListAll(ctx, ownerID)
	if err != nil {
		return transport.ProductListResponse{}, err
	}

	items := make([]transport.ProductResponse, len(products))
	for i, p := range products {
		items[i] = toProductResponse(p)
	}

	return transport.ProductListResponse{
		Items:      items,
		Categories: collectCategories(products),
	}, nil
}

// Create creates a new product and invalidates the owner's snapshot.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, req transport.CreateProductRequest) (transport.ProductResponse, error) {
	product, err := s.repo.Create(ctx, repository.CreateProductParams{
		OwnerID:    ownerID,
		Name:       strings.TrimSpace(req.Name),
		Category:   strings.TrimSpace(req.Category),
		Unit:       strings.TrimSpace(req.Unit),
		PriceCents: req.PriceCents,
	})
	if err != nil {
		return transport.ProductResponse{}, err
	}

	s.snapshots.Invalidate(ownerID)
	s.log.Info("product created", "id", product.ID, "name", product.Name)
	return toProductResponse(product), nil
}

// Update updates an existing product and invalidates the owner's snapshot.
func (s *Service) Update(ctx context.Context, ownerID, id uuid.UUID, req transport.UpdateProductRequest) (transport.ProductResponse, error) {
	product, err := s.repo.Update(ctx, repository.UpdateProductParams{
		ID:         id,
		OwnerID:    ownerID,
		Name:       trimPtr(req.Name),
		Category:   trimPtr(req.Category),
		Unit:       trimPtr(req.Unit),
		PriceCents: req.PriceCents,
	})
	if err != nil {
		return transport.ProductResponse{}, err
	}

	s.snapshots.Invalidate(ownerID)
	s.log.Info("product updated", "id", product.ID, "name", product.Name)
	return toProductResponse(product), nil
}

// Delete deletes a product and invalidates the owner's snapshot.
func (s *Service) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, ownerID, id); err != nil {
		return err
	}

	s.snapshots.Invalidate(ownerID)
	s.log.Info("product deleted", "id", id)
	return nil
}

// Snapshot returns the owner's loaded catalog snapshot, read-only.
// A nil snapshot means the load has not completed yet.
func (s *Service) Snapshot(ctx context.Context, ownerID uuid.UUID) *Snapshot {
	return s.snapshots.Get(ctx, ownerID)
}

// Search runs a free-text lookup against the owner's catalog snapshot and
// returns a pre-formatted summary string. It never fails and never blocks
// the caller: a cold cache yields a deterministic notice while the load
// runs in the background.
func (s *Service) Search(ctx context.Context, ownerID uuid.UUID, query, category string, limit int) string {
	snap := s.snapshots.Peek(ownerID)
	if snap == nil {
		s.snapshots.LoadAsync(ownerID)
		return SearchNotReadyMessage
	}
	return snap.Search(query, category, limit)
}

func collectCategories(products []repository.Product) []string {
	seen := make(map[string]struct{}, len(products))
	categories := make([]string, 0)
	for _, p := range products {
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		categories = append(categories, p.Category)
	}
	return categories
}

func trimPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}

func toProductResponse(product repository.Product) transport.ProductResponse {
	return transport.ProductResponse{
		ID:         product.ID,
		Name:       product.Name,
		Category:   product.Category,
		Unit:       product.Unit,
		PriceCents: product.PriceCents,
		CreatedAt:  product.CreatedAt,
		UpdatedAt:  product.UpdatedAt,
	}
}
