// Package cluster carries LOCK/UNLOCK/GET requests across every node of
// a mount group's cluster membership in a single total order, so every
// node's pkg/rangelock.Engine replays the identical sequence of
// operations and converges on identical state (spec.md §4.4/§8).
//
// The group-messaging substrate itself — the thing that actually gets
// bytes from one node's kernel to every other node's — is an external
// collaborator outside this spec's scope (spec.md §1 Non-goals). This
// package models it as the Transport interface and ships one reference
// implementation, LoopbackTransport, for in-process and single-host
// deployments and for tests.
package cluster

import "github.com/clusterfs/plockd/pkg/rangelock"

// MessageType identifies the kind of plock operation carried by a
// Message, mirroring the original's PLOCK_OP_LOCK/UNLOCK/GET.
type MessageType uint8

const (
	MessageLock MessageType = iota
	MessageUnlock
	MessageGet
)

func (t MessageType) String() string {
	switch t {
	case MessageLock:
		return "LOCK"
	case MessageUnlock:
		return "UNLOCK"
	case MessageGet:
		return "GET"
	default:
		return "UNKNOWN"
	}
}

// Header carries the envelope fields the original's receive_plock
// validates before ever looking at the payload: the node claimed to
// have originated the request, and the kind of operation.
type Header struct {
	NodeID uint32
	Type   MessageType
}

// Message is one group-broadcast plock operation: the header plus the
// normalized lock request and the mount group it applies to. Every
// node in the group receives every Message in the same order.
type Message struct {
	// From is the node the transport itself attributes the message to.
	// receive_plock requires this to match Header.NodeID and the
	// request's own NodeID before processing — see Protocol.Deliver.
	From    uint32
	Header  Header
	Group   string
	Request rangelock.LockRequest
}
