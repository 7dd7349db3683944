package rangelock

import "errors"

// Errors returned by Engine operations, mirroring the original's POSIX
// errno results (EAGAIN/TRY_AGAIN semantics live one layer up in
// pkg/daemon, since the engine itself never blocks or retries).
var (
	// ErrConflict is returned by DoLock when the request conflicts with
	// a held lock and the caller did not ask to wait (spec.md §4.2).
	ErrConflict = errors.New("rangelock: conflicting lock held")

	// ErrWouldBlock is returned by DoLock when the request conflicts and
	// the caller asked to wait; the request has been queued as a waiter.
	ErrWouldBlock = errors.New("rangelock: queued as waiter")

	// ErrNoSuchResource is returned by DoUnlock when the resource has no
	// locks at all, matching find_resource(0) failing in the original.
	ErrNoSuchResource = errors.New("rangelock: no such resource")
)
