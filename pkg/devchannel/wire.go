// Package devchannel is the request channel between the kernel's
// plock upcall and this daemon: a misc character device that delivers
// fixed-size binary LockRequest records and receives them back with a
// result code filled in, mirroring spec.md §4.6.
//
// Byte order is deliberately host-native (encoding/binary.NativeEndian)
// rather than a portable wire format: this matches the original's
// memcpy-based packing of struct gdlm_plock_info across the device, and
// spec.md §4.6/§9 calls out cross-endian support as a documented future
// TODO rather than a requirement today. See DESIGN.md for why this
// rules out reusing the pack's XDR library here, which would force
// big-endian encoding.
package devchannel

import (
	"encoding/binary"
	"fmt"

	"github.com/clusterfs/plockd/pkg/rangelock"
)

// OpCode mirrors the original's GDLM_PLOCK_OP_* constants carried in
// each LockRequest record.
type OpCode uint8

const (
	OpLock OpCode = iota
	OpUnlock
	OpGet
)

// recordSize is the fixed on-wire size of one WireRequest: optype(1) +
// ex(1) + wait(1) + pad(1) + number(8) + start(8) + end(8) + owner(8) +
// pid(4) + nodeid(4) + result(4) = 48 bytes.
const recordSize = 48

// WireRequest is the fixed-layout record exchanged over the device
// node, before (decoding) and after (encoding) conversion to/from
// rangelock.LockRequest.
type WireRequest struct {
	Op        OpCode
	Number    uint64
	Start     uint64
	End       uint64
	Owner     uint64
	PID       uint32
	NodeID    uint32
	Exclusive bool
	Wait      bool
	Result    int32 // filled in on the reply leg; 0 == success
}

// Encode packs w into a fixed recordSize-byte record in host-native
// byte order.
func Encode(w WireRequest) [recordSize]byte {
	var buf [recordSize]byte
	buf[0] = byte(w.Op)
	if w.Exclusive {
		buf[1] = 1
	}
	if w.Wait {
		buf[2] = 1
	}
	binary.NativeEndian.PutUint64(buf[4:12], w.Number)
	binary.NativeEndian.PutUint64(buf[12:20], w.Start)
	binary.NativeEndian.PutUint64(buf[20:28], w.End)
	binary.NativeEndian.PutUint64(buf[28:36], w.Owner)
	binary.NativeEndian.PutUint32(buf[36:40], w.PID)
	binary.NativeEndian.PutUint32(buf[40:44], w.NodeID)
	binary.NativeEndian.PutUint32(buf[44:48], uint32(w.Result))
	return buf
}

// Decode unpacks a recordSize-byte record into a WireRequest.
func Decode(rec []byte) (WireRequest, error) {
	if len(rec) != recordSize {
		return WireRequest{}, fmt.Errorf("devchannel: short record: got %d bytes, want %d", len(rec), recordSize)
	}
	return WireRequest{
		Op:        OpCode(rec[0]),
		Exclusive: rec[1] != 0,
		Wait:      rec[2] != 0,
		Number:    binary.NativeEndian.Uint64(rec[4:12]),
		Start:     binary.NativeEndian.Uint64(rec[12:20]),
		End:       binary.NativeEndian.Uint64(rec[20:28]),
		Owner:     binary.NativeEndian.Uint64(rec[28:36]),
		PID:       binary.NativeEndian.Uint32(rec[36:40]),
		NodeID:    binary.NativeEndian.Uint32(rec[40:44]),
		Result:    int32(binary.NativeEndian.Uint32(rec[44:48])),
	}, nil
}

// ToLockRequest converts a decoded WireRequest into the normalized form
// pkg/rangelock.Engine and pkg/cluster.Protocol operate on.
func (w WireRequest) ToLockRequest() rangelock.LockRequest {
	return rangelock.LockRequest{
		Identity:  rangelock.Identity{NodeID: w.NodeID, Owner: w.Owner},
		Number:    w.Number,
		Start:     w.Start,
		End:       w.End,
		Exclusive: w.Exclusive,
		PID:       w.PID,
		Wait:      w.Wait,
	}
}

// FromLockRequest builds a WireRequest ready to Encode from a
// normalized LockRequest and the operation it represents.
func FromLockRequest(op OpCode, req rangelock.LockRequest) WireRequest {
	return WireRequest{
		Op: op, Number: req.Number, Start: req.Start, End: req.End,
		Owner: req.Owner, PID: req.PID, NodeID: req.NodeID,
		Exclusive: req.Exclusive, Wait: req.Wait,
	}
}
