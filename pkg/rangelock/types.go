// Package rangelock implements cluster-wide POSIX advisory byte-range
// locking over a single resource namespace: range overlap algebra, the
// lock/unlock engine, FIFO waiter retry, and the diagnostic dump format.
//
// Everything in this package is pure in-memory state machine logic. It
// is deliberately free of I/O, networking, and persistence — those live
// in pkg/cluster, pkg/checkpoint and pkg/devchannel, which drive an
// Engine from the outside. The engine assumes single-threaded mutation
// (see SPEC_FULL.md §5); it holds no internal lock of its own.
package rangelock

import (
	"fmt"
	"sort"
	"time"
)

// Unbounded is the sentinel end-of-range value meaning "to the end of
// the file", mirroring POSIX's use of 0 as an unbounded length and the
// original's use of OFFSET_MAX for end-of-file ranges.
const Unbounded = ^uint64(0)

// Identity pairs a cluster node and the owning process's lock owner
// token. Two locks with the same Identity are treated as held by the
// same holder: they coalesce instead of conflicting.
type Identity struct {
	NodeID uint32
	Owner  uint64
}

func (id Identity) String() string {
	return fmt.Sprintf("%d/%x", id.NodeID, id.Owner)
}

// PosixLock is one held byte-range lock on a Resource.
type PosixLock struct {
	Identity
	Start     uint64
	End       uint64
	Exclusive bool
	PID       uint32
}

// Overlaps reports whether the lock's range intersects [start, end].
func (l PosixLock) Overlaps(start, end uint64) bool {
	return l.Start <= end && start <= l.End
}

// Waiter is a blocked lock request queued FIFO on a Resource.
type Waiter struct {
	Request LockRequest
}

// LockRequest is the normalized form of an incoming LOCK/UNLOCK/GET
// operation once it has been decoded off the wire (pkg/devchannel) and
// is ready to be handed to the Engine.
type LockRequest struct {
	Identity
	Number    uint64 // resource number (spec.md §3)
	Start     uint64
	End       uint64
	Exclusive bool
	PID       uint32
	Wait      bool // caller is willing to block (F_SETLKW semantics)
}

// Resource holds all locks and waiters for one lockable object (e.g.
// one file, keyed by its resource number within a MountGroup).
type Resource struct {
	Number  uint64
	Locks   []*PosixLock
	Waiters []*Waiter
}

// Empty reports whether the resource has no locks and no waiters and
// can be garbage collected from its MountGroup.
func (r *Resource) Empty() bool {
	return len(r.Locks) == 0 && len(r.Waiters) == 0
}

// MountGroup is the set of resources under lock management for one
// clustered filesystem mount, keyed by resource number. It is the unit
// of checkpointing (one checkpoint section set per group, spec.md §4.5).
//
// LastPlockTime and LastCheckpointTime mirror the original's
// mg->last_plock_time/mg->last_checkpoint_time: pkg/checkpoint.Store
// compares them to skip writing a checkpoint that is already current
// (spec.md §4.5).
type MountGroup struct {
	Name               string
	LastPlockTime      time.Time
	LastCheckpointTime time.Time
	resources          map[uint64]*Resource
}

// NewMountGroup creates an empty group.
func NewMountGroup(name string) *MountGroup {
	return &MountGroup{Name: name, resources: make(map[uint64]*Resource)}
}

// resource returns the Resource for number, creating it if create is
// true and it does not already exist.
func (g *MountGroup) resource(number uint64, create bool) *Resource {
	r, ok := g.resources[number]
	if ok {
		return r
	}
	if !create {
		return nil
	}
	r = &Resource{Number: number}
	g.resources[number] = r
	return r
}

// putResource garbage-collects an empty resource after an operation,
// mirroring the original's put_resource reference-counting cleanup.
func (g *MountGroup) putResource(r *Resource) {
	if r.Empty() {
		delete(g.resources, r.Number)
	}
}

// Resources returns the group's resource numbers in ascending order.
func (g *MountGroup) Resources() []uint64 {
	nums := make([]uint64, 0, len(g.resources))
	for n := range g.resources {
		nums = append(nums, n)
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
	return nums
}

// Resource looks up a resource by number without creating it.
func (g *MountGroup) Resource(number uint64) (*Resource, bool) {
	r, ok := g.resources[number]
	return r, ok
}

// GetOrCreateResource returns the resource for number, creating an
// empty one if it does not already exist. Exported for pkg/checkpoint,
// which restores resources directly rather than through the Engine.
func (g *MountGroup) GetOrCreateResource(number uint64) *Resource {
	return g.resource(number, true)
}
