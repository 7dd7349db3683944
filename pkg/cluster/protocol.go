package cluster

import (
	"context"
	"fmt"

	"github.com/clusterfs/plockd/internal/logger"
	"github.com/clusterfs/plockd/internal/telemetry"
	"github.com/clusterfs/plockd/pkg/rangelock"
	"go.opentelemetry.io/otel/trace"
)

// ReplyFunc delivers a completed operation's result back to whatever
// originated it locally (pkg/devchannel's request channel, in
// production). It is only ever called for messages this node itself
// originated — every other node only updates its own Engine state and
// never replies, matching the original's "only the sending node writes
// the kernel reply" rule.
type ReplyFunc func(req rangelock.LockRequest, err error)

// Protocol drives one node's rangelock.Engine from a Transport's
// delivered Message stream, mirroring the original's receive_plock.
type Protocol struct {
	nodeID    uint32
	engine    *rangelock.Engine
	transport Transport
	reply     ReplyFunc
}

// NewProtocol builds a Protocol bound to nodeID, applying delivered
// messages to engine and invoking reply only for messages this node
// originated.
func NewProtocol(nodeID uint32, engine *rangelock.Engine, transport Transport, reply ReplyFunc) *Protocol {
	return &Protocol{nodeID: nodeID, engine: engine, transport: transport, reply: reply}
}

// Submit wraps req as a group message from this node and broadcasts it.
// The result is delivered asynchronously through ReplyFunc once the
// message comes back around through Run's delivery loop — mirroring
// the original, which never applies a request locally before it has
// gone through the group.
func (p *Protocol) Submit(ctx context.Context, group string, req rangelock.LockRequest, msgType MessageType) error {
	req.NodeID = p.nodeID
	hdr := Header{NodeID: p.nodeID, Type: msgType}
	return p.transport.Broadcast(ctx, group, hdr, req)
}

// Run processes delivered messages until ctx is canceled or the
// transport's channel closes. It is a convenience loop for callers
// that have no other event source to multiplex against (see the
// two-node convergence test); pkg/daemon's event loop instead reads
// Messages() directly so it can select on the transport and its own
// checkpoint ticker from one goroutine, per SPEC_FULL.md §5.
func (p *Protocol) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-p.transport.Messages():
			if !ok {
				return nil
			}
			p.Deliver(msg)
		}
	}
}

// Messages returns the channel of delivered Messages this node's
// Protocol consumes from, letting a caller fold message delivery into
// its own select loop instead of calling Run.
func (p *Protocol) Messages() <-chan Message {
	return p.transport.Messages()
}

// Deliver applies one delivered Message to the engine. Exported so
// pkg/daemon's event loop can call it directly from its own select
// alongside Messages(), rather than handing delivery off to Run on a
// separate goroutine.
func (p *Protocol) Deliver(msg Message) {
	p.deliver(msg)
}

// deliver applies one delivered Message, mirroring receive_plock's
// validation and dispatch. A message whose transport-level sender
// doesn't match its own claimed origin, or whose origin doesn't match
// the request identity's node, is dropped rather than applied — these
// would indicate transport corruption or a forged origin, never a
// legitimate operation.
func (p *Protocol) deliver(msg Message) {
	if msg.From != msg.Header.NodeID || msg.Header.NodeID != msg.Request.NodeID {
		logger.Warn("dropping malformed cluster message",
			logger.NodeID(msg.From), logger.Group(msg.Group))
		return
	}

	ctx, span := telemetry.StartSpan(context.Background(), telemetry.SpanLockDeliver, trace.WithAttributes(
		telemetry.Operation(msg.Header.Type.String()), telemetry.Group(msg.Group),
		telemetry.ResourceNumber(msg.Request.Number), telemetry.NodeID(msg.Header.NodeID),
	))
	defer span.End()

	var err error
	switch msg.Header.Type {
	case MessageLock:
		err = p.engine.DoLock(msg.Group, msg.Request)
	case MessageUnlock:
		err = p.engine.DoUnlock(msg.Group, msg.Request)
	case MessageGet:
		p.engine.DoGet(msg.Group, msg.Request)
	default:
		logger.Warn("dropping cluster message with unknown type", logger.MessageType(fmt.Sprint(msg.Header.Type)))
		return
	}
	if err != nil && err != rangelock.ErrWouldBlock {
		telemetry.RecordError(ctx, err)
	}

	if msg.Header.NodeID == p.nodeID && p.reply != nil {
		p.reply(msg.Request, err)
	}
}
