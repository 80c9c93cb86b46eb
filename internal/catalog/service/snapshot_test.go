package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"quotebuilder_backend/internal/catalog/repository"
	"quotebuilder_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeRepo struct {
	products []repository.Product
	failList bool
	block    chan struct{}
}

func (f *fakeRepo) GetByID(ctx context.Context, ownerID, id uuid.UUID) (repository.Product, error) {
	for _, p := range f.products {
		if p.ID == id {
			return p, nil
		}
	}
	return repository.Product{}, errors.New("not found")
}

func (f *fakeRepo) ListAll(ctx context.Context, ownerID uuid.UUID) ([]repository.Product, error) {
	if f.block != nil {
		<-f.block
	}
	if f.failList {
		return nil, errors.New("catalog unavailable")
	}
	return f.products, nil
}

func (f *fakeRepo) Create(ctx context.Context, params repository.CreateProductParams) (repository.Product, error) {
	return repository.Product{}, errors.New("not implemented")
}

func (f *fakeRepo) Update(ctx context.Context, params repository.UpdateProductParams) (repository.Product, error) {
	return repository.Product{}, errors.New("not implemented")
}

func (f *fakeRepo) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	return errors.New("not implemented")
}

func testProducts() []repository.Product {
	now := time.Now()
	mk := func(name, category, unit string, cents int64) repository.Product {
		return repository.Product{
			ID: uuid.New(), OwnerID: uuid.Nil,
			Name: name, Category: category, Unit: unit, PriceCents: cents,
			CreatedAt: now, UpdatedAt: now,
		}
	}
	return []repository.Product{
		mk("Ceramic Tile", "Flooring", "sq ft", 450),
		mk("Porcelain Tile", "Flooring", "sq ft", 720),
		mk("Tile Adhesive", "Flooring", "bag", 1850),
		mk("Toilet", "Bathroom", "each", 14900),
		mk("Subway Tile Backsplash", "Kitchen", "sq ft", 950),
	}
}

func TestSearch_RanksPrefixAboveSubstring(t *testing.T) {
	snap := &Snapshot{Products: testProducts()}

	out := snap.Search("tile", "", 5)

	lines := strings.Split(out, "\n")
	if len(lines) != 5 {
		t.Fatalf("expected header plus 4 matches, got %d lines:\n%s", len(lines), out)
	}
	// Prefix matches ("Tile Adhesive") outrank word matches ("Ceramic Tile"),
	// which outrank embedded substrings.
	if !strings.Contains(lines[1], "Tile Adhesive") {
		t.Fatalf("expected Tile Adhesive first, got %q", lines[1])
	}
}

func TestSearch_CategoryFilter(t *testing.T) {
	snap := &Snapshot{Products: testProducts()}

	out := snap.Search("tile", "Kitchen", 5)

	if !strings.Contains(out, "Subway Tile Backsplash") {
		t.Fatalf("expected kitchen match, got:\n%s", out)
	}
	if strings.Contains(out, "Ceramic Tile") {
		t.Fatalf("category filter leaked flooring products:\n%s", out)
	}
}

func TestSearch_LimitApplied(t *testing.T) {
	snap := &Snapshot{Products: testProducts()}

	out := snap.Search("tile", "", 2)

	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 matches, got %d lines:\n%s", len(lines), out)
	}
}

func TestSearch_NoMatches(t *testing.T) {
	snap := &Snapshot{Products: testProducts()}

	out := snap.Search("granite countertop", "", 5)

	if !strings.Contains(out, "No catalog products match") {
		t.Fatalf("expected no-match message, got %q", out)
	}
}

func TestSearch_SnapshotNotLoaded(t *testing.T) {
	repo := &fakeRepo{failList: true}
	svc := New(repo, logger.New("development"))

	out := svc.Search(context.Background(), uuid.New(), "tile", "", 5)

	if out != SearchNotReadyMessage {
		t.Fatalf("expected not-ready message, got %q", out)
	}

	// Identical call must produce the identical string.
	again := svc.Search(context.Background(), uuid.New(), "tile", "", 5)
	if again != out {
		t.Fatalf("not-ready message is not deterministic: %q vs %q", out, again)
	}
}

func TestSearch_ViaServiceUsesSnapshot(t *testing.T) {
	repo := &fakeRepo{products: testProducts()}
	svc := New(repo, logger.New("development"))
	owner := uuid.New()

	if snap := svc.Snapshot(context.Background(), owner); snap == nil {
		t.Fatal("snapshot load failed")
	}

	out := svc.Search(context.Background(), owner, "toilet", "", 5)

	if !strings.Contains(out, "Toilet") || !strings.Contains(out, "$149.00") {
		t.Fatalf("expected toilet with price, got:\n%s", out)
	}
}

func TestSearch_ColdCacheDoesNotBlock(t *testing.T) {
	repo := &fakeRepo{products: testProducts(), block: make(chan struct{})}
	svc := New(repo, logger.New("development"))
	owner := uuid.New()

	done := make(chan string, 1)
	go func() {
		done <- svc.Search(context.Background(), owner, "tile", "", 5)
	}()

	select {
	case out := <-done:
		if out != SearchNotReadyMessage {
			t.Fatalf("expected not-ready message on a cold cache, got %q", out)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("search blocked on the initial catalog load")
	}

	// Once the background load finishes, the same query serves real results.
	close(repo.block)
	deadline := time.Now().Add(2 * time.Second)
	for {
		out := svc.Search(context.Background(), owner, "tile", "", 5)
		if strings.Contains(out, "Ceramic Tile") {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("background load never completed, last result: %q", out)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
