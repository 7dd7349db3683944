package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging. Use these keys
// consistently across all log statements for log aggregation and
// querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Cluster & Lock Domain
	// ========================================================================
	KeyNodeID         = "node_id"         // Cluster node identifier
	KeyGroup          = "group"           // Mount group name
	KeyResourceNumber = "resource"        // Resource (inode) number within a group
	KeyMessageType    = "message_type"    // Cluster message type: LOCK, UNLOCK, GET, UNKNOWN
	KeyWaiterCount    = "waiter_count"    // Queued waiter count on a resource

	// ========================================================================
	// Locking
	// ========================================================================
	KeyLockType   = "lock_type"   // Lock type: read, write, exclusive
	KeyLockOffset = "lock_offset" // Lock range start
	KeyLockLength = "lock_length" // Lock range length
	KeyLockOwner  = "lock_owner"  // Lock owner identifier

	// ========================================================================
	// Client Identification
	// ========================================================================
	KeyClientIP   = "client_ip"   // Client IP address
	KeyClientPort = "client_port" // Client source port

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorCode  = "error_code"  // Numeric error code
	KeySource     = "source"      // Data source: checkpoint, device, cluster
	KeyOperation  = "operation"   // Sub-operation type for complex operations
	KeyAttempt    = "attempt"     // Retry attempt number
	KeyMaxRetries = "max_retries" // Maximum retry attempts
	KeyPath       = "path"        // Filesystem path (device node, checkpoint dir, config file)
	KeySize       = "size"        // Byte size
)

// ----------------------------------------------------------------------------
// Distributed Tracing
// ----------------------------------------------------------------------------

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// ----------------------------------------------------------------------------
// Cluster & Lock Domain
// ----------------------------------------------------------------------------

// NodeID returns a slog.Attr for a cluster node identifier.
func NodeID(id uint32) slog.Attr {
	return slog.Any(KeyNodeID, id)
}

// Group returns a slog.Attr for a mount group name.
func Group(name string) slog.Attr {
	return slog.String(KeyGroup, name)
}

// ResourceNumber returns a slog.Attr for a resource (inode) number.
func ResourceNumber(n uint64) slog.Attr {
	return slog.Uint64(KeyResourceNumber, n)
}

// MessageType returns a slog.Attr for a cluster message type.
func MessageType(t string) slog.Attr {
	return slog.String(KeyMessageType, t)
}

// WaiterCount returns a slog.Attr for a resource's queued waiter count.
func WaiterCount(n int) slog.Attr {
	return slog.Int(KeyWaiterCount, n)
}

// ----------------------------------------------------------------------------
// Client Identification
// ----------------------------------------------------------------------------

// ClientIP returns a slog.Attr for client IP address
func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

// ClientPort returns a slog.Attr for client source port
func ClientPort(port int) slog.Attr {
	return slog.Int(KeyClientPort, port)
}

// ----------------------------------------------------------------------------
// Operation Metadata
// ----------------------------------------------------------------------------

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for numeric error code
func ErrorCode(code int) slog.Attr {
	return slog.Int(KeyErrorCode, code)
}

// Source returns a slog.Attr for data source
func Source(src string) slog.Attr {
	return slog.String(KeySource, src)
}

// Operation returns a slog.Attr for sub-operation type
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Attempt returns a slog.Attr for retry attempt number
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// MaxRetries returns a slog.Attr for maximum retry attempts
func MaxRetries(n int) slog.Attr {
	return slog.Int(KeyMaxRetries, n)
}

// Path returns a slog.Attr for a filesystem path.
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Size returns a slog.Attr for a byte size.
func Size(s uint64) slog.Attr {
	return slog.Uint64(KeySize, s)
}

// ----------------------------------------------------------------------------
// Locking
// ----------------------------------------------------------------------------

// LockType returns a slog.Attr for lock type
func LockType(t string) slog.Attr {
	return slog.String(KeyLockType, t)
}

// LockOffset returns a slog.Attr for lock range start
func LockOffset(off uint64) slog.Attr {
	return slog.Uint64(KeyLockOffset, off)
}

// LockLength returns a slog.Attr for lock range length
func LockLength(length uint64) slog.Attr {
	return slog.Uint64(KeyLockLength, length)
}

// LockOwner returns a slog.Attr for lock owner identifier
func LockOwner(owner string) slog.Attr {
	return slog.String(KeyLockOwner, owner)
}

// LockOwnerHex returns a slog.Attr for a numeric lock owner, formatted
// as hex to match the owner token's on-wire representation.
func LockOwnerHex(owner uint64) slog.Attr {
	return slog.String(KeyLockOwner, fmt.Sprintf("%x", owner))
}
