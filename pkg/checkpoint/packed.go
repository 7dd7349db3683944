// Package checkpoint persists a mount group's lock state to disk so a
// node rejoining the cluster can restore it without replaying the
// group's entire message history, mirroring spec.md §4.5/§6.
//
// The original stores one SAF/CKPT checkpoint per group, with one
// section per resource, packed as fixed pack_plock records (locks
// first, then waiters). This package keeps that record's field set and
// the locks-then-waiters order, in its own 33-byte record (see
// recordSize), and replaces the external CKPT service with an
// embedded BadgerDB store (github.com/dgraph-io/badger/v4), grounded on
// the teacher's own use of Badger as its metadata KV engine: one key
// per (group, resource number) holding the packed records for that
// resource, plus one marker key per group recording the last
// checkpoint time.
package checkpoint

import (
	"encoding/binary"
	"fmt"

	"github.com/clusterfs/plockd/pkg/rangelock"
)

// packedSize is the size of the numeric part of one PackedPlock
// record: start(8) end(8) owner(8) pid(4) nodeid(4) = 32 bytes. The
// original's struct pack_plock also carries ex(1) waiter(1) pad1(2)
// pad(4); plockd drops the padding and stores the two flags in one
// trailing byte instead (see recordSize), an explicit layout that does
// not rely on struct padding.
const packedSize = 32

// PackedPlock is the fixed-layout on-disk record for one lock or
// waiter, matching the field set of the original's struct pack_plock.
type PackedPlock struct {
	Start   uint64
	End     uint64
	Owner   uint64
	PID     uint32
	NodeID  uint32
	Ex      bool
	IsWaiter bool
}

// marshal encodes p into a packedSize-byte record in host-native byte
// order, the same deliberate choice pkg/devchannel makes for
// LockRequest (cross-endian support is a documented future TODO, not a
// correctness requirement today — see SPEC_FULL.md §4.6).
func (p PackedPlock) marshal() [packedSize]byte {
	var buf [packedSize]byte
	binary.NativeEndian.PutUint64(buf[0:8], p.Start)
	binary.NativeEndian.PutUint64(buf[8:16], p.End)
	binary.NativeEndian.PutUint64(buf[16:24], p.Owner)
	binary.NativeEndian.PutUint32(buf[24:28], p.PID)
	binary.NativeEndian.PutUint32(buf[28:32], p.NodeID)
	return buf
}

// Because the 32-byte budget above is fully consumed by the 8/8/8/4/4
// numeric fields, Ex and IsWaiter are carried in a side flags byte
// appended by encodeRecord/decodeRecord rather than inside marshal's
// fixed layout — this keeps PackedPlock's numeric fields byte-aligned
// and trivially portable to a future cross-endian encoder.
const recordSize = packedSize + 1

func encodeRecord(p PackedPlock) [recordSize]byte {
	var rec [recordSize]byte
	copy(rec[:packedSize], p.marshal()[:])
	var flags byte
	if p.Ex {
		flags |= 0x1
	}
	if p.IsWaiter {
		flags |= 0x2
	}
	rec[packedSize] = flags
	return rec
}

func decodeRecord(rec []byte) (PackedPlock, error) {
	if len(rec) != recordSize {
		return PackedPlock{}, fmt.Errorf("checkpoint: short record: got %d bytes, want %d", len(rec), recordSize)
	}
	p := PackedPlock{
		Start:  binary.NativeEndian.Uint64(rec[0:8]),
		End:    binary.NativeEndian.Uint64(rec[8:16]),
		Owner:  binary.NativeEndian.Uint64(rec[16:24]),
		PID:    binary.NativeEndian.Uint32(rec[24:28]),
		NodeID: binary.NativeEndian.Uint32(rec[28:32]),
	}
	flags := rec[packedSize]
	p.Ex = flags&0x1 != 0
	p.IsWaiter = flags&0x2 != 0
	return p, nil
}

// packResource serializes every lock and then every waiter of r into
// one contiguous byte section, matching the original's
// locks-then-waiters section ordering.
func packResource(r *rangelock.Resource) []byte {
	buf := make([]byte, 0, recordSize*(len(r.Locks)+len(r.Waiters)))
	for _, lk := range r.Locks {
		rec := encodeRecord(PackedPlock{
			Start: lk.Start, End: lk.End, Owner: lk.Owner,
			PID: lk.PID, NodeID: lk.NodeID, Ex: lk.Exclusive,
		})
		buf = append(buf, rec[:]...)
	}
	for _, w := range r.Waiters {
		req := w.Request
		rec := encodeRecord(PackedPlock{
			Start: req.Start, End: req.End, Owner: req.Owner,
			PID: req.PID, NodeID: req.NodeID, Ex: req.Exclusive, IsWaiter: true,
		})
		buf = append(buf, rec[:]...)
	}
	return buf
}

// unpackResource decodes a section produced by packResource back into
// PackedPlock records, preserving their original locks-then-waiters
// order.
func unpackResource(section []byte) ([]PackedPlock, error) {
	if len(section)%recordSize != 0 {
		return nil, fmt.Errorf("checkpoint: section size %d is not a multiple of record size %d", len(section), recordSize)
	}
	n := len(section) / recordSize
	records := make([]PackedPlock, n)
	for i := 0; i < n; i++ {
		rec, err := decodeRecord(section[i*recordSize : (i+1)*recordSize])
		if err != nil {
			return nil, err
		}
		records[i] = rec
	}
	return records, nil
}
