package cluster

import (
	"context"

	"github.com/clusterfs/plockd/pkg/rangelock"
)

// Transport delivers Messages to every node of a mount group's cluster
// membership in a single total order. A real implementation (corosync
// totem, a Raft log, or similar) sits behind this interface; plockd
// ships only LoopbackTransport, an in-process reference implementation,
// since the broadcaster itself is an external collaborator (see the
// package doc comment).
type Transport interface {
	// Broadcast wraps req as a Message with the given Header and group,
	// and delivers it to every attached handle — including the sender's
	// own — in the same relative order everywhere. This mirrors the
	// original's rule that the origin wraps its local request in a
	// group message and processes it exactly like every other delivered
	// message, rather than applying it locally first.
	Broadcast(ctx context.Context, group string, hdr Header, req rangelock.LockRequest) error

	// Messages returns the channel this handle's node receives delivered
	// Messages on, in cluster-wide total order.
	Messages() <-chan Message

	// Close detaches this handle from the transport.
	Close() error
}
