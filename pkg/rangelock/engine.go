package rangelock

import "time"

// Engine is the single-threaded lock coordinator core. It owns no
// internal synchronization: callers (pkg/daemon, pkg/cluster.Protocol)
// are responsible for guaranteeing that only one goroutine drives an
// Engine at a time, per spec.md §5.
type Engine struct {
	groups map[string]*MountGroup
}

// NewEngine returns an empty Engine with no mount groups.
func NewEngine() *Engine {
	return &Engine{groups: make(map[string]*MountGroup)}
}

// Group returns the named mount group, creating it on first use.
func (e *Engine) Group(name string) *MountGroup {
	g, ok := e.groups[name]
	if !ok {
		g = NewMountGroup(name)
		e.groups[name] = g
	}
	return g
}

// Groups returns the names of all mount groups currently tracked.
func (e *Engine) Groups() []string {
	names := make([]string, 0, len(e.groups))
	for n := range e.groups {
		names = append(names, n)
	}
	return names
}

// isConflict reports whether req conflicts with any lock already held
// on r by a different identity, mirroring the original's is_conflict:
// same-owner locks never conflict with each other, and a conflict
// requires range overlap plus at least one side being exclusive.
func isConflict(r *Resource, req LockRequest) bool {
	for _, lk := range r.Locks {
		if lk.Identity == req.Identity {
			continue
		}
		if lk.Overlaps(req.Start, req.End) && (req.Exclusive || lk.Exclusive) {
			return true
		}
	}
	return false
}

// DoLock applies a LOCK request to the named group, mirroring the
// original's do_lock: find-or-create the resource, check for conflict
// against other identities, and either apply the lock, queue it as a
// waiter (Wait == true), or reject it outright.
func (e *Engine) DoLock(group string, req LockRequest) error {
	g := e.Group(group)
	r := g.resource(req.Number, true)

	if isConflict(r, req) {
		if req.Wait {
			r.Waiters = append(r.Waiters, &Waiter{Request: req})
			g.LastPlockTime = time.Now()
			return ErrWouldBlock
		}
		g.putResource(r)
		return ErrConflict
	}

	e.lockInternal(r, req)
	e.doWaiters(r)
	g.putResource(r)
	g.LastPlockTime = time.Now()
	return nil
}

// DoUnlock applies an UNLOCK request, mirroring the original's
// do_unlock: shrink/split/remove the requester's own locks to remove
// the unlocked range, then drain waiters that can now proceed.
func (e *Engine) DoUnlock(group string, req LockRequest) error {
	g := e.Group(group)
	r, ok := g.Resource(req.Number)
	if !ok {
		return ErrNoSuchResource
	}

	e.unlockInternal(r, req)
	e.doWaiters(r)
	g.putResource(r)
	g.LastPlockTime = time.Now()
	return nil
}

// DoGet answers a GET (query) request. The original leaves GET as a
// stub that never resolves against live lock state (OQ-3 in
// DESIGN.md); this mirrors that behavior rather than inventing F_GETLK
// semantics the spec never asked for.
func (e *Engine) DoGet(group string, req LockRequest) (PosixLock, bool) {
	return PosixLock{}, false
}

// lockInternal applies req to r once isConflict has already cleared
// it against other identities. It scans r's own-identity locks for
// overlaps with req and resolves each per the overlap_type algebra
// (see algebra.go and DESIGN.md OQ-1), then appends req as a new lock
// unless an earlier case already terminated the scan.
func (e *Engine) lockInternal(r *Resource, req LockRequest) {
	for i := 0; i < len(r.Locks); i++ {
		po := r.Locks[i]
		if po.Identity != req.Identity {
			continue
		}

		switch overlapType(req.Start, req.End, po.Start, po.End) {
		case caseDisjoint:
			continue

		case caseSame:
			if sameMode(req.Exclusive, po.Exclusive) {
				return
			}
			po.Exclusive = req.Exclusive
			po.PID = req.PID
			return

		case caseShareEdge:
			if sameMode(req.Exclusive, po.Exclusive) {
				return
			}
			e.lockCase1(r, po, req)
			return

		case caseInside:
			if sameMode(req.Exclusive, po.Exclusive) {
				return
			}
			e.lockCase2(r, po, req)
			return

		case caseCovers:
			// req fully covers po under the same identity: po is
			// redundant once req is added. Delete and keep scanning
			// (OQ-1) in case another fragment under this identity also
			// overlaps req.
			r.Locks = append(r.Locks[:i], r.Locks[i+1:]...)
			i--
			continue

		case caseCross:
			if ns, ne, ok := shrinkRange2(po.Start, po.End, req.Start, req.End); ok {
				po.Start, po.End = ns, ne
			}
			continue
		}
	}

	e.addLock(r, req)
}

// lockCase1 resolves a share-edge overlap with a differing mode: po
// shrinks to the fragment req does not cover, and req is added in
// full.
func (e *Engine) lockCase1(r *Resource, po *PosixLock, req LockRequest) {
	if po.Start == req.Start {
		po.Start = req.End + 1
	} else {
		po.End = req.Start - 1
	}
	e.addLock(r, req)
}

// lockCase2 resolves req landing strictly inside po with a differing
// mode: po splits into a before-fragment (kept in place) and an
// after-fragment (appended), both retaining po's mode, and req is
// added in full over the middle.
func (e *Engine) lockCase2(r *Resource, po *PosixLock, req LockRequest) {
	after := &PosixLock{Identity: po.Identity, Start: req.End + 1, End: po.End, Exclusive: po.Exclusive, PID: po.PID}
	po.End = req.Start - 1
	r.Locks = append(r.Locks, after)
	e.addLock(r, req)
}

func (e *Engine) addLock(r *Resource, req LockRequest) {
	r.Locks = append(r.Locks, &PosixLock{
		Identity:  req.Identity,
		Start:     req.Start,
		End:       req.End,
		Exclusive: req.Exclusive,
		PID:       req.PID,
	})
}

// unlockInternal removes req's range from the requester's own locks on
// r, mirroring the original's unlock_internal. Unlike lockInternal it
// never adds a new lock — an unlock only ever shrinks, splits, or
// removes existing coverage.
func (e *Engine) unlockInternal(r *Resource, req LockRequest) {
	for i := 0; i < len(r.Locks); i++ {
		po := r.Locks[i]
		if po.Identity != req.Identity {
			continue
		}

		switch overlapType(req.Start, req.End, po.Start, po.End) {
		case caseDisjoint:
			continue

		case caseSame:
			r.Locks = append(r.Locks[:i], r.Locks[i+1:]...)
			return

		case caseShareEdge:
			if po.Start == req.Start {
				po.Start = req.End + 1
			} else {
				po.End = req.Start - 1
			}
			return

		case caseInside:
			after := &PosixLock{Identity: po.Identity, Start: req.End + 1, End: po.End, Exclusive: po.Exclusive, PID: po.PID}
			po.End = req.Start - 1
			r.Locks = append(r.Locks, after)
			return

		case caseCovers:
			r.Locks = append(r.Locks[:i], r.Locks[i+1:]...)
			i--
			continue

		case caseCross:
			if ns, ne, ok := shrinkRange2(po.Start, po.End, req.Start, req.End); ok {
				po.Start, po.End = ns, ne
			}
			continue
		}
	}
}

// doWaiters drains r's FIFO waiter queue, applying every waiter whose
// request no longer conflicts and leaving the rest queued in their
// original relative order, mirroring the original's do_waiters.
func (e *Engine) doWaiters(r *Resource) {
	remaining := r.Waiters[:0]
	for _, w := range r.Waiters {
		if isConflict(r, w.Request) {
			remaining = append(remaining, w)
			continue
		}
		e.lockInternal(r, w.Request)
	}
	r.Waiters = remaining
}
