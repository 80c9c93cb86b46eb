package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, ttl), mr
}

func TestStoreRoundTrip(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)
	ctx := context.Background()
	id := uuid.New()
	payload := []byte(`{"id":"` + id.String() + `","transcript":[]}`)

	if err := store.Save(ctx, id, payload); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("payload round trip mismatch: %s vs %s", got, payload)
	}
}

func TestStoreMissingSession(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)

	_, err := store.Get(context.Background(), uuid.New())
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestStoreSaveSetsTTL(t *testing.T) {
	store, mr := newTestStore(t, 30*time.Minute)
	id := uuid.New()

	if err := store.Save(context.Background(), id, []byte("{}")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	ttl := mr.TTL(keyPrefix + id.String())
	if ttl != 30*time.Minute {
		t.Fatalf("expected a 30m TTL, got %v", ttl)
	}
}

func TestStoreExpiredSessionIsGone(t *testing.T) {
	store, mr := newTestStore(t, time.Minute)
	id := uuid.New()

	if err := store.Save(context.Background(), id, []byte("{}")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	_, err := store.Get(context.Background(), id)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected expired session to be gone, got %v", err)
	}
}

func TestStoreDelete(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)
	ctx := context.Background()
	id := uuid.New()

	if err := store.Save(ctx, id, []byte("{}")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, id); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected session gone after delete, got %v", err)
	}

	// Deleting again is a no-op, not an error.
	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("double delete errored: %v", err)
	}
}

func TestSweepExpiredRemovesPersistentKeys(t *testing.T) {
	store, mr := newTestStore(t, time.Hour)
	ctx := context.Background()

	// A key with no TTL should never exist; the sweep removes it.
	leaked := keyPrefix + uuid.NewString()
	mr.Set(leaked, "{}")

	healthy := uuid.New()
	if err := store.Save(ctx, healthy, []byte("{}")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	removed, err := store.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("SweepExpired failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 leaked key removed, got %d", removed)
	}
	if _, err := store.Get(ctx, healthy); err != nil {
		t.Fatalf("healthy session must survive the sweep: %v", err)
	}
}
