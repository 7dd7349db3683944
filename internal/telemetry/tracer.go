package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for lock coordinator spans, following OpenTelemetry's
// dotted-namespace attribute convention.
const (
	AttrNodeID         = "plock.node_id"
	AttrGroup          = "plock.group"
	AttrResourceNumber = "plock.resource"
	AttrOwner          = "plock.owner"
	AttrOffset         = "plock.offset"
	AttrLength         = "plock.length"
	AttrExclusive      = "plock.exclusive"
	AttrWaiterCount    = "plock.waiter_count"
	AttrOperation      = "plock.operation" // LOCK, UNLOCK, GET

	AttrCheckpointGroup = "checkpoint.group"
	AttrSectionCount    = "checkpoint.section_count"
)

// Span names for the coordinator's two instrumented subsystems: the
// lock engine's request handling (submission at the origin, and
// delivery on every node), and the checkpoint store's background
// persistence.
const (
	SpanLockSubmit         = "plock.submit"
	SpanLockDeliver        = "plock.deliver"
	SpanCheckpointStore    = "checkpoint.store"
	SpanCheckpointRetrieve = "checkpoint.retrieve"
)

// NodeID returns an attribute for a cluster node identifier.
func NodeID(id uint32) attribute.KeyValue {
	return attribute.Int64(AttrNodeID, int64(id))
}

// Group returns an attribute for a mount group name.
func Group(name string) attribute.KeyValue {
	return attribute.String(AttrGroup, name)
}

// ResourceNumber returns an attribute for a resource (inode) number.
func ResourceNumber(n uint64) attribute.KeyValue {
	return attribute.Int64(AttrResourceNumber, int64(n))
}

// Owner returns an attribute for a lock owner token, formatted as hex
// to match its on-wire representation.
func Owner(owner uint64) attribute.KeyValue {
	return attribute.String(AttrOwner, fmt.Sprintf("%x", owner))
}

// Offset returns an attribute for a lock range start.
func Offset(off uint64) attribute.KeyValue {
	return attribute.Int64(AttrOffset, int64(off))
}

// Length returns an attribute for a lock range length.
func Length(length uint64) attribute.KeyValue {
	return attribute.Int64(AttrLength, int64(length))
}

// Exclusive returns an attribute for whether a lock request is exclusive.
func Exclusive(ex bool) attribute.KeyValue {
	return attribute.Bool(AttrExclusive, ex)
}

// WaiterCount returns an attribute for a resource's queued waiter count.
func WaiterCount(n int) attribute.KeyValue {
	return attribute.Int(AttrWaiterCount, n)
}

// Operation returns an attribute for the lock operation kind.
func Operation(op string) attribute.KeyValue {
	return attribute.String(AttrOperation, op)
}

// SectionCount returns an attribute for the number of resource
// sections a checkpoint operation touched.
func SectionCount(n int) attribute.KeyValue {
	return attribute.Int(AttrSectionCount, n)
}

// StartLockSpan starts a span around the origin node's submission of
// one LOCK/UNLOCK/GET request to the group. The span lasts until the
// caller ends it; pkg/daemon ends it once the broadcast call returns,
// before the request is applied.
func StartLockSpan(ctx context.Context, op string, group string, resource, owner uint64, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		Operation(op),
		Group(group),
		ResourceNumber(resource),
		Owner(owner),
	}
	allAttrs = append(allAttrs, attrs...)
	return StartSpan(ctx, SpanLockSubmit, trace.WithAttributes(allAttrs...))
}

// StartCheckpointSpan starts a span around a checkpoint store or
// retrieve operation for one mount group.
func StartCheckpointSpan(ctx context.Context, spanName string, group string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		attribute.String(AttrCheckpointGroup, group),
	}
	allAttrs = append(allAttrs, attrs...)
	return StartSpan(ctx, spanName, trace.WithAttributes(allAttrs...))
}
