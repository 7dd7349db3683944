package cluster

import (
	"context"
	"sync"

	"github.com/clusterfs/plockd/pkg/rangelock"
)

// loopbackHub is the shared sequencer behind a set of LoopbackTransport
// handles: a single mutex gives every Broadcast call a total order,
// and fan-out to every handle's channel
// happens while still holding the lock so no handle can observe two
// broadcasts in different relative orders.
type loopbackHub struct {
	mu      sync.Mutex
	handles []*LoopbackTransport
}

// NewLoopbackCluster creates nodeCount LoopbackTransport handles
// sharing one sequencer, suitable for simulating a cluster of that many
// nodes in a single process — the reference transport used by daemon
// tests and by single-host multi-node deployments (SPEC_FULL.md §4.4).
func NewLoopbackCluster(nodeCount int) []*LoopbackTransport {
	hub := &loopbackHub{}
	handles := make([]*LoopbackTransport, nodeCount)
	for i := range handles {
		lt := &LoopbackTransport{
			hub: hub,
			ch:  make(chan Message, 256),
		}
		handles[i] = lt
		hub.handles = append(hub.handles, lt)
	}
	return handles
}

// LoopbackTransport is an in-process Transport handle attached to a
// loopbackHub. It never actually leaves the process; its only job is
// to deliver every Broadcast to every handle in the same order.
type LoopbackTransport struct {
	hub *loopbackHub
	ch  chan Message
}

var _ Transport = (*LoopbackTransport)(nil)

// Broadcast delivers req to every handle sharing this transport's hub,
// in the order Broadcast calls arrive across all handles.
func (lt *LoopbackTransport) Broadcast(ctx context.Context, group string, hdr Header, req rangelock.LockRequest) error {
	msg := Message{From: hdr.NodeID, Header: hdr, Group: group, Request: req}

	lt.hub.mu.Lock()
	defer lt.hub.mu.Unlock()

	for _, h := range lt.hub.handles {
		select {
		case h.ch <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Messages returns this handle's delivery channel.
func (lt *LoopbackTransport) Messages() <-chan Message {
	return lt.ch
}

// Close detaches this handle. The hub itself has no explicit teardown;
// remaining handles keep working.
func (lt *LoopbackTransport) Close() error {
	lt.hub.mu.Lock()
	defer lt.hub.mu.Unlock()

	for i, h := range lt.hub.handles {
		if h == lt {
			lt.hub.handles = append(lt.hub.handles[:i], lt.hub.handles[i+1:]...)
			break
		}
	}
	close(lt.ch)
	return nil
}
