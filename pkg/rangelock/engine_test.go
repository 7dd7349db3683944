package rangelock

import "testing"

func req(nodeID uint32, owner uint64, number, start, end uint64, ex bool) LockRequest {
	return LockRequest{
		Identity:  Identity{NodeID: nodeID, Owner: owner},
		Number:    number,
		Start:     start,
		End:       end,
		Exclusive: ex,
	}
}

func TestDoLock_NoConflict(t *testing.T) {
	t.Parallel()
	e := NewEngine()

	if err := e.DoLock("g1", req(1, 1, 10, 0, 99, true)); err != nil {
		t.Fatalf("DoLock: %v", err)
	}

	r, ok := e.Group("g1").Resource(10)
	if !ok || len(r.Locks) != 1 {
		t.Fatalf("expected 1 lock, got resource=%v ok=%v", r, ok)
	}
}

func TestDoLock_ConflictRejected(t *testing.T) {
	t.Parallel()
	e := NewEngine()

	if err := e.DoLock("g1", req(1, 1, 10, 0, 99, true)); err != nil {
		t.Fatalf("first DoLock: %v", err)
	}

	err := e.DoLock("g1", req(2, 2, 10, 50, 60, true))
	if err != ErrConflict {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestDoLock_SharedLocksDoNotConflict(t *testing.T) {
	t.Parallel()
	e := NewEngine()

	if err := e.DoLock("g1", req(1, 1, 10, 0, 99, false)); err != nil {
		t.Fatalf("first DoLock: %v", err)
	}
	if err := e.DoLock("g1", req(2, 2, 10, 0, 99, false)); err != nil {
		t.Fatalf("second shared DoLock: %v", err)
	}

	r, _ := e.Group("g1").Resource(10)
	if len(r.Locks) != 2 {
		t.Fatalf("expected 2 shared locks, got %d", len(r.Locks))
	}
}

func TestDoLock_SameOwnerNeverConflicts(t *testing.T) {
	t.Parallel()
	e := NewEngine()

	if err := e.DoLock("g1", req(1, 1, 10, 0, 99, true)); err != nil {
		t.Fatalf("first DoLock: %v", err)
	}
	// same identity, overlapping, exclusive: must not conflict with itself
	if err := e.DoLock("g1", req(1, 1, 10, 50, 199, true)); err != nil {
		t.Fatalf("same-owner DoLock: %v", err)
	}
}

func TestDoLock_WaitQueuesOnConflict(t *testing.T) {
	t.Parallel()
	e := NewEngine()

	if err := e.DoLock("g1", req(1, 1, 10, 0, 99, true)); err != nil {
		t.Fatalf("first DoLock: %v", err)
	}

	blocked := req(2, 2, 10, 50, 60, true)
	blocked.Wait = true
	if err := e.DoLock("g1", blocked); err != ErrWouldBlock {
		t.Fatalf("expected ErrWouldBlock, got %v", err)
	}

	r, _ := e.Group("g1").Resource(10)
	if len(r.Waiters) != 1 {
		t.Fatalf("expected 1 waiter, got %d", len(r.Waiters))
	}
}

func TestDoUnlock_WakesWaiter(t *testing.T) {
	t.Parallel()
	e := NewEngine()

	if err := e.DoLock("g1", req(1, 1, 10, 0, 99, true)); err != nil {
		t.Fatalf("first DoLock: %v", err)
	}

	blocked := req(2, 2, 10, 50, 60, true)
	blocked.Wait = true
	if err := e.DoLock("g1", blocked); err != ErrWouldBlock {
		t.Fatalf("expected ErrWouldBlock, got %v", err)
	}

	if err := e.DoUnlock("g1", req(1, 1, 10, 0, 99, true)); err != nil {
		t.Fatalf("DoUnlock: %v", err)
	}

	r, ok := e.Group("g1").Resource(10)
	if !ok {
		t.Fatal("resource was garbage collected while a lock should be held")
	}
	if len(r.Waiters) != 0 {
		t.Fatalf("expected waiter to have been granted, got %d still queued", len(r.Waiters))
	}
	if len(r.Locks) != 1 || r.Locks[0].Identity != (Identity{NodeID: 2, Owner: 2}) {
		t.Fatalf("expected the former waiter's lock to be held, got %+v", r.Locks)
	}
}

func TestDoUnlock_GarbageCollectsEmptyResource(t *testing.T) {
	t.Parallel()
	e := NewEngine()

	if err := e.DoLock("g1", req(1, 1, 10, 0, 99, true)); err != nil {
		t.Fatalf("DoLock: %v", err)
	}
	if err := e.DoUnlock("g1", req(1, 1, 10, 0, 99, true)); err != nil {
		t.Fatalf("DoUnlock: %v", err)
	}

	if _, ok := e.Group("g1").Resource(10); ok {
		t.Fatal("expected resource to be garbage collected after last lock released")
	}
}

func TestDoUnlock_NoSuchResource(t *testing.T) {
	t.Parallel()
	e := NewEngine()

	err := e.DoUnlock("g1", req(1, 1, 10, 0, 99, true))
	if err != ErrNoSuchResource {
		t.Fatalf("expected ErrNoSuchResource, got %v", err)
	}
}

// TestLockInternal_CaseInsideSplitsSameOwnerLock exercises overlap case 2
// (new range strictly inside an existing same-owner lock, differing
// mode): the held lock must split into before/after fragments that
// retain the old mode, with the new mode applied only to the middle.
func TestLockInternal_CaseInsideSplitsSameOwnerLock(t *testing.T) {
	t.Parallel()
	e := NewEngine()

	if err := e.DoLock("g1", req(1, 1, 10, 0, 99, false)); err != nil {
		t.Fatalf("first DoLock: %v", err)
	}
	if err := e.DoLock("g1", req(1, 1, 10, 40, 60, true)); err != nil {
		t.Fatalf("second DoLock: %v", err)
	}

	r, _ := e.Group("g1").Resource(10)
	if len(r.Locks) != 3 {
		t.Fatalf("expected 3 fragments after split, got %d: %+v", len(r.Locks), r.Locks)
	}

	var total uint64
	for _, lk := range r.Locks {
		total += lk.End - lk.Start + 1
		if lk.Start == 40 && lk.End == 60 && !lk.Exclusive {
			t.Fatal("middle fragment should be exclusive")
		}
	}
	if total != 100 {
		t.Fatalf("fragments must cover the original range exactly, total=%d", total)
	}
}

// TestLockInternal_CaseCoversDeletesSubsumedLock exercises overlap case 3
// (new range fully covers an existing same-owner lock): the old lock is
// replaced, not left behind as a stale fragment.
func TestLockInternal_CaseCoversDeletesSubsumedLock(t *testing.T) {
	t.Parallel()
	e := NewEngine()

	if err := e.DoLock("g1", req(1, 1, 10, 20, 30, false)); err != nil {
		t.Fatalf("first DoLock: %v", err)
	}
	if err := e.DoLock("g1", req(1, 1, 10, 0, 99, true)); err != nil {
		t.Fatalf("second DoLock: %v", err)
	}

	r, _ := e.Group("g1").Resource(10)
	if len(r.Locks) != 1 {
		t.Fatalf("expected the covering lock to subsume the old fragment, got %d locks: %+v", len(r.Locks), r.Locks)
	}
	if r.Locks[0].Start != 0 || r.Locks[0].End != 99 || !r.Locks[0].Exclusive {
		t.Fatalf("unexpected surviving lock: %+v", r.Locks[0])
	}
}

func TestDoGet_AlwaysStub(t *testing.T) {
	t.Parallel()
	e := NewEngine()
	if err := e.DoLock("g1", req(1, 1, 10, 0, 99, true)); err != nil {
		t.Fatalf("DoLock: %v", err)
	}

	if _, ok := e.DoGet("g1", req(2, 2, 10, 0, 99, true)); ok {
		t.Fatal("DoGet must remain a stub per DESIGN.md OQ-3")
	}
}

func TestMountGroup_Dump(t *testing.T) {
	t.Parallel()
	e := NewEngine()
	if err := e.DoLock("g1", req(1, 1, 10, 0, 99, true)); err != nil {
		t.Fatalf("DoLock: %v", err)
	}

	blocked := req(2, 2, 10, 50, 60, true)
	blocked.Wait = true
	if err := e.DoLock("g1", blocked); err != ErrWouldBlock {
		t.Fatalf("DoLock wait: %v", err)
	}

	out := e.Group("g1").Dump()
	if out == "" {
		t.Fatal("expected non-empty dump")
	}
}
