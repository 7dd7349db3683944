package rangelock

import (
	"fmt"
	"strings"
)

// Dump renders a mount group's full lock/waiter state in the exact
// text format spec.md §6 mandates: one line per held lock and one line
// per queued waiter, grouped by resource number in ascending order.
//
//	<number> <WR|RD> <start>-<end> nodeid <n> pid <p> owner <hex>
//	<number> WAITING <WR|RD> <start>-<end> nodeid <n> pid <p> owner <hex>
//
// Each waiter line reports the waiter's own range and mode (see
// DESIGN.md OQ-2 — the original has a copy-paste bug here that reuses
// the preceding lock-loop variable instead; this implementation does
// not reproduce it).
func (g *MountGroup) Dump() string {
	var b strings.Builder
	for _, num := range g.Resources() {
		r := g.resources[num]
		for _, lk := range r.Locks {
			fmt.Fprintf(&b, "%d %s %d-%d nodeid %d pid %d owner %x\n",
				num, modeString(lk.Exclusive), lk.Start, lk.End, lk.NodeID, lk.PID, lk.Owner)
		}
		for _, w := range r.Waiters {
			req := w.Request
			fmt.Fprintf(&b, "%d WAITING %s %d-%d nodeid %d pid %d owner %x\n",
				num, modeString(req.Exclusive), req.Start, req.End, req.NodeID, req.PID, req.Owner)
		}
	}
	return b.String()
}

// modeString renders a lock's exclusivity as the WR|RD token spec.md
// §6 specifies.
func modeString(exclusive bool) string {
	if exclusive {
		return "WR"
	}
	return "RD"
}
