package checkpoint

import (
	"context"
	"testing"

	"github.com/clusterfs/plockd/pkg/rangelock"
	badger "github.com/dgraph-io/badger/v4"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenWithOptions(badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR))
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestStore_RoundTrip exercises spec.md §8's checkpoint round-trip
// property: storing a group and retrieving it reproduces the same
// locks and waiters.
func TestStore_RoundTrip(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	engine := rangelock.NewEngine()
	if err := engine.DoLock("group1", rangelock.LockRequest{
		Identity: rangelock.Identity{NodeID: 1, Owner: 1},
		Number:   10, Start: 0, End: 99, Exclusive: true,
	}); err != nil {
		t.Fatalf("DoLock: %v", err)
	}

	blocked := rangelock.LockRequest{
		Identity: rangelock.Identity{NodeID: 2, Owner: 2},
		Number:   10, Start: 50, End: 60, Exclusive: true, Wait: true,
	}
	if err := engine.DoLock("group1", blocked); err != rangelock.ErrWouldBlock {
		t.Fatalf("DoLock wait: %v", err)
	}

	original := engine.Group("group1")
	if err := s.Store(ctx, original); err != nil {
		t.Fatalf("Store: %v", err)
	}

	restored, err := s.Retrieve(ctx, "group1")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}

	if restored.Dump() != original.Dump() {
		t.Fatalf("round-trip mismatch:\noriginal:\n%s\nrestored:\n%s", original.Dump(), restored.Dump())
	}
}

// TestStore_RetrieveMissingGroupIsEmpty ensures restoring a group that
// was never checkpointed yields an empty, valid group rather than an
// error.
func TestStore_RetrieveMissingGroupIsEmpty(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	g, err := s.Retrieve(context.Background(), "never-checkpointed")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(g.Resources()) != 0 {
		t.Fatalf("expected empty group, got resources %v", g.Resources())
	}
}

// TestStore_SkipsEmptyResources verifies garbage-collected (empty)
// resources are never written as sections, mirroring store_plocks's
// skip-if-nothing-to-write behavior.
func TestStore_SkipsEmptyResources(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	engine := rangelock.NewEngine()
	req := rangelock.LockRequest{
		Identity: rangelock.Identity{NodeID: 1, Owner: 1},
		Number:   5, Start: 0, End: 10, Exclusive: true,
	}
	if err := engine.DoLock("group1", req); err != nil {
		t.Fatalf("DoLock: %v", err)
	}
	if err := engine.DoUnlock("group1", req); err != nil {
		t.Fatalf("DoUnlock: %v", err)
	}

	if err := s.Store(ctx, engine.Group("group1")); err != nil {
		t.Fatalf("Store: %v", err)
	}

	restored, err := s.Retrieve(ctx, "group1")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(restored.Resources()) != 0 {
		t.Fatalf("expected no resources restored, got %v", restored.Resources())
	}
}

// TestStore_SkipsWhenAlreadyCurrent verifies a group with no plock
// activity since its last checkpoint is not rewritten, mirroring
// store_plocks's "ckpt uptodate" skip (spec.md §4.5).
func TestStore_SkipsWhenAlreadyCurrent(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	engine := rangelock.NewEngine()
	req := rangelock.LockRequest{
		Identity: rangelock.Identity{NodeID: 1, Owner: 1},
		Number:   30, Start: 0, End: 9, Exclusive: true,
	}
	if err := engine.DoLock("group1", req); err != nil {
		t.Fatalf("DoLock: %v", err)
	}

	g := engine.Group("group1")
	if err := s.Store(ctx, g); err != nil {
		t.Fatalf("Store: %v", err)
	}
	firstCheckpoint := g.LastCheckpointTime
	if firstCheckpoint.IsZero() {
		t.Fatal("expected LastCheckpointTime to be set after Store")
	}

	if err := s.Store(ctx, g); err != nil {
		t.Fatalf("second Store: %v", err)
	}
	if !g.LastCheckpointTime.Equal(firstCheckpoint) {
		t.Fatal("expected Store to skip rewriting an already-current checkpoint")
	}
}

// TestStore_RetrieveRejectsOversizedSection verifies a section larger
// than the configured bound is refused rather than silently decoded.
func TestStore_RetrieveRejectsOversizedSection(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	engine := rangelock.NewEngine()
	for i := uint64(0); i < 10; i++ {
		req := rangelock.LockRequest{
			Identity: rangelock.Identity{NodeID: 1, Owner: i + 1},
			Number:   20, Start: i * 10, End: i*10 + 5, Exclusive: false,
		}
		if err := engine.DoLock("group1", req); err != nil {
			t.Fatalf("DoLock: %v", err)
		}
	}
	if err := s.Store(ctx, engine.Group("group1")); err != nil {
		t.Fatalf("Store: %v", err)
	}

	s.SetMaxSectionSize(1)
	if _, err := s.Retrieve(ctx, "group1"); err == nil {
		t.Fatal("expected Retrieve to reject an oversized section")
	}
}
