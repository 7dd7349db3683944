// Package daemon wires pkg/rangelock, pkg/cluster, pkg/checkpoint and
// pkg/devchannel together into the single-threaded cooperative event
// loop spec.md §5 describes: one goroutine, no locking inside the
// engine, every external input multiplexed through one select.
//
// spec.md §9 notes the original keeps its per-process state (the
// control fd, the checkpoint handle, an online flag, a reusable
// section buffer, this node's id) as module-level C globals. Here they
// are fields of Daemon instead — the idiomatic Go translation of "one
// instance's mutable state" — so nothing prevents running more than
// one Daemon in a test process.
package daemon

import (
	"context"
	"time"

	"github.com/clusterfs/plockd/internal/logger"
	"github.com/clusterfs/plockd/internal/telemetry"
	"github.com/clusterfs/plockd/pkg/checkpoint"
	"github.com/clusterfs/plockd/pkg/cluster"
	"github.com/clusterfs/plockd/pkg/devchannel"
	"github.com/clusterfs/plockd/pkg/metrics"
	"github.com/clusterfs/plockd/pkg/rangelock"
)

// Config holds the tunables a Daemon needs beyond its collaborators.
type Config struct {
	NodeID            uint32
	GroupName         string
	CheckpointInterval time.Duration
}

// Daemon is one node's instance of the coordinator: it owns an Engine,
// drives a cluster.Protocol from a Transport, periodically checkpoints
// its group through a checkpoint.Store, and (in production) services a
// devchannel device node. The online flag mirrors the original's
// plocks_online: requests are only serviced once initial recovery
// (restoring the last checkpoint) has completed.
type Daemon struct {
	cfg     Config
	engine  *rangelock.Engine
	proto   *cluster.Protocol
	store   *checkpoint.Store
	metrics metrics.LockMetrics

	online bool

	// dev is nil in tests that drive the Daemon purely through Submit;
	// production wiring supplies an open device node.
	dev Device
}

// Device is the minimal surface daemon needs from an open device node,
// satisfied by *os.File via the thin adapter in pkg/devchannel; kept as
// an interface so tests can supply an in-memory stand-in.
type Device interface {
	ReadRequest() (devchannel.WireRequest, error)
	WriteReply(devchannel.WireRequest) error
}

// New builds a Daemon with no device node attached; SetDevice attaches
// one. A Daemon that is only ever driven via Submit (as in tests) never
// needs one.
func New(cfg Config, engine *rangelock.Engine, transport cluster.Transport, store *checkpoint.Store, m metrics.LockMetrics) *Daemon {
	d := &Daemon{cfg: cfg, engine: engine, store: store, metrics: m}
	d.proto = cluster.NewProtocol(cfg.NodeID, engine, transport, d.handleReply)
	return d
}

// Recover restores the daemon's mount group from its last checkpoint
// before going online, mirroring the original's startup sequence of
// retrieve_plocks before accepting new requests.
func (d *Daemon) Recover(ctx context.Context) error {
	g, err := d.store.Retrieve(ctx, d.cfg.GroupName)
	if err != nil {
		return err
	}
	restored := d.engine.Group(d.cfg.GroupName)
	for _, num := range g.Resources() {
		r, _ := g.Resource(num)
		dst := restored.GetOrCreateResource(num)
		dst.Locks = r.Locks
		dst.Waiters = r.Waiters
	}
	d.online = true
	logger.Info("recovered checkpoint", "group", d.cfg.GroupName, "resources", len(g.Resources()))
	return nil
}

// Online reports whether recovery has completed and new requests
// should be serviced, mirroring the original's plocks_online check.
func (d *Daemon) Online() bool {
	return d.online
}

// SetDevice attaches the device node this daemon services. Called once
// during production startup; left nil in tests that drive the Daemon
// purely through Submit.
func (d *Daemon) SetDevice(dev Device) {
	d.dev = dev
}

// ServeDevice reads requests off the device node until ctx is canceled
// or the read fails, submitting each one through the cluster protocol.
// It runs on its own goroutine alongside Run's event loop; only Run
// (via cluster.Protocol) ever mutates Engine state, so ServeDevice is
// safe to run concurrently with it.
func (d *Daemon) ServeDevice(ctx context.Context) error {
	if d.dev == nil {
		return nil
	}
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		wreq, err := d.dev.ReadRequest()
		if err != nil {
			return err
		}
		if !d.online {
			continue
		}

		req := wreq.ToLockRequest()
		var op cluster.MessageType
		switch wreq.Op {
		case devchannel.OpLock:
			op = cluster.MessageLock
		case devchannel.OpUnlock:
			op = cluster.MessageUnlock
		default:
			op = cluster.MessageGet
		}
		if err := d.Submit(ctx, req, op); err != nil {
			logger.Error("failed to submit device channel request", "error", err)
		}
	}
}

// Submit is the entry point for a normalized LockRequest arriving off
// the device channel (or, in tests, directly): it is broadcast through
// the cluster protocol rather than applied locally, matching the
// original's rule that even the origin only sees its own request again
// once it comes back through the group.
func (d *Daemon) Submit(ctx context.Context, req rangelock.LockRequest, op cluster.MessageType) error {
	ctx, span := telemetry.StartLockSpan(ctx, op.String(), d.cfg.GroupName, req.Number, req.Owner, telemetry.Exclusive(req.Exclusive))
	defer span.End()

	err := d.proto.Submit(ctx, d.cfg.GroupName, req, op)
	if err != nil && err != rangelock.ErrWouldBlock {
		telemetry.RecordError(ctx, err)
	}
	return err
}

// handleReply is invoked by cluster.Protocol once a request this node
// originated has come back around the group and been applied by this
// node; it writes the device-channel reply when a device is attached.
func (d *Daemon) handleReply(req rangelock.LockRequest, err error) {
	verdict := "granted"
	switch err {
	case nil:
	case rangelock.ErrConflict:
		verdict = "conflict"
	case rangelock.ErrWouldBlock:
		verdict = "queued"
	default:
		verdict = "error"
	}
	if d.metrics != nil {
		d.metrics.ObserveLockRequest("lock", verdict)
	}

	if d.dev == nil {
		return
	}
	reply := devchannel.FromLockRequest(devchannel.OpLock, req)
	if err != nil && err != rangelock.ErrWouldBlock {
		reply.Result = -1
	}
	if writeErr := d.dev.WriteReply(reply); writeErr != nil {
		logger.Error("failed to write device channel reply", "error", writeErr)
	}
}

// Run drives the cluster protocol's delivery loop and a periodic
// checkpoint tick until ctx is canceled. This is the daemon's single
// cooperative event loop (spec.md §5): the only goroutine that ever
// calls into Engine. Message delivery (which mutates Engine state via
// DoLock/DoUnlock) and checkpointNow (which reads that state to pack
// it) are both driven from this one select, rather than from
// independent goroutines, so the two never run concurrently.
func (d *Daemon) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.CheckpointInterval)
	defer ticker.Stop()

	messages := d.proto.Messages()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			d.proto.Deliver(msg)
		case <-ticker.C:
			d.checkpointNow(ctx)
		}
	}
}

// checkpointNow writes the current group state to the checkpoint store,
// recording duration via metrics and logging (not failing the event
// loop) on error, matching spec.md §7's "log and continue" policy for
// non-fatal background failures.
func (d *Daemon) checkpointNow(ctx context.Context) {
	start := time.Now()
	g := d.engine.Group(d.cfg.GroupName)
	if err := d.store.Store(ctx, g); err != nil {
		logger.Error("checkpoint failed", "group", d.cfg.GroupName, "error", err)
		return
	}
	if d.metrics != nil {
		d.metrics.ObserveCheckpointDuration(d.cfg.GroupName, time.Since(start).Seconds())
	}
}
