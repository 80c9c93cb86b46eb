package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"quotebuilder_backend/internal/catalog/repository"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// SearchNotReadyMessage is returned verbatim while the catalog snapshot is
// still loading. The reasoning service reads it and may re-ask later.
const SearchNotReadyMessage = "The product catalog has not finished loading yet. No results are available right now; try the search again shortly."

// DefaultSearchLimit caps results when the caller passes no limit.
const DefaultSearchLimit = 5

// Snapshot is a read-only, in-memory view of one owner's catalog.
type Snapshot struct {
	Products   []repository.Product
	Categories []string
	LoadedAt   time.Time
}

// snapshotCache holds per-owner snapshots, loaded lazily and deduplicated
// with singleflight so concurrent first lookups trigger a single query.
type snapshotCache struct {
	repo  repository.Repository
	mu    sync.RWMutex
	byown map[uuid.UUID]*Snapshot
	group singleflight.Group
}

func newSnapshotCache(repo repository.Repository) *snapshotCache {
	return &snapshotCache{
		repo:  repo,
		byown: make(map[uuid.UUID]*Snapshot),
	}
}

// Get returns the cached snapshot, loading it synchronously on first use.
// Returns nil only when the load fails; the caller degrades gracefully.
func (c *snapshotCache) Get(ctx context.Context, ownerID uuid.UUID) *Snapshot {
	c.mu.RLock()
	snap, ok := c.byown[ownerID]
	c.mu.RUnlock()
	if ok {
		return snap
	}

	result, err, _ := c.group.Do(ownerID.String(), func() (interface{}, error) {
		return c.load(ctx, ownerID)
	})
	if err != nil {
		return nil
	}
	return result.(*Snapshot)
}

// Peek returns the cached snapshot without triggering a load, or nil when
// the owner's catalog has not been loaded yet.
func (c *snapshotCache) Peek(ownerID uuid.UUID) *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byown[ownerID]
}

// LoadAsync starts a background load without blocking the caller.
func (c *snapshotCache) LoadAsync(ownerID uuid.UUID) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_, _, _ = c.group.Do(ownerID.String(), func() (interface{}, error) {
			return c.load(ctx, ownerID)
		})
	}()
}

// Invalidate drops the owner's snapshot so the next lookup reloads it.
func (c *snapshotCache) Invalidate(ownerID uuid.UUID) {
	c.mu.Lock()
	delete(c.byown, ownerID)
	c.mu.Unlock()
}

func (c *snapshotCache) load(ctx context.Context, ownerID uuid.UUID) (*Snapshot, error) {
	products, err := c.repo.ListAll(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Products:   products,
		Categories: collectCategories(products),
		LoadedAt:   time.Now(),
	}

	c.mu.Lock()
	c.byown[ownerID] = snap
	c.mu.Unlock()
	return snap, nil
}

// Search matches products by case-insensitive substring over name and
// category, ranked prefix > whole word > substring, and formats the matches
// as a readable list. The output is injected into the wizard transcript as
// plain text, never parsed back.
func (s *Snapshot) Search(query, category string, limit int) string {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return "No search query was given."
	}

	type scored struct {
		product repository.Product
		rank    int
	}

	var matches []scored
	for _, p := range s.Products {
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		rank := matchRank(strings.ToLower(p.Name), needle)
		if rank == 0 {
			rank = matchRank(strings.ToLower(p.Category), needle)
		}
		if rank > 0 {
			matches = append(matches, scored{product: p, rank: rank})
		}
	}

	if len(matches) == 0 {
		return fmt.Sprintf("No catalog products match %q.", query)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].rank != matches[j].rank {
			return matches[i].rank > matches[j].rank
		}
		return matches[i].product.Name < matches[j].product.Name
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d matching product(s) for %q:\n", len(matches), query)
	for _, m := range matches {
		p := m.product
		unit := p.Unit
		if unit == "" {
			unit = "each"
		}
		fmt.Fprintf(&b, "- %s (id: %s) — $%.2f per %s", p.Name, p.ID, float64(p.PriceCents)/100, unit)
		if p.Category != "" {
			fmt.Fprintf(&b, " [%s]", p.Category)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// matchRank scores how well haystack matches the needle:
// 3 = prefix, 2 = word start, 1 = substring, 0 = no match.
func matchRank(haystack, needle string) int {
	idx := strings.Index(haystack, needle)
	if idx < 0 {
		return 0
	}
	if idx == 0 {
		return 3
	}
	if haystack[idx-1] == ' ' {
		return 2
	}
	return 1
}
