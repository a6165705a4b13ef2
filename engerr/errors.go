// Package engerr defines the closed error taxonomy shared by every engine
// component: NotInitialized, BadInput, TransientFailure, IOError,
// ResourceLimit, and Inconsistency. Call sites that need to distinguish a
// category use errors.Is against these sentinels; call sites that only need
// a boolean or a count discard the error entirely, matching the "no
// exception-style control flow" policy.
package engerr

import "errors"

var (
	// ErrNotInitialized is returned when an operation is attempted before
	// the owning component's Initialize has run. Callers should log at
	// Warning and fall back to a conservative neutral value.
	ErrNotInitialized = errors.New("voxelterrain: not initialized")

	// ErrBadInput marks an invalid coordinate, out-of-range local position,
	// or malformed brush parameters. The offending call fails outright; any
	// auto-started operation must be cancelled by the caller.
	ErrBadInput = errors.New("voxelterrain: bad input")

	// ErrTransientFailure marks a noise or mesh generation failure that the
	// chunk should retry later. The chunk reverts to its prior lifecycle
	// state rather than advancing.
	ErrTransientFailure = errors.New("voxelterrain: transient failure")

	// ErrIOError marks a file read/write failure during edit persistence.
	ErrIOError = errors.New("voxelterrain: io error")

	// ErrResourceLimit marks an expected, non-exceptional capacity bound
	// (e.g. the undo stack dropping its oldest entry). Rarely propagated;
	// mostly used internally to choose silent-drop behavior.
	ErrResourceLimit = errors.New("voxelterrain: resource limit")

	// ErrInconsistency marks a queue entry whose state changed since it was
	// enqueued. Skipped silently wherever encountered; never logged above
	// Verbose.
	ErrInconsistency = errors.New("voxelterrain: inconsistency")
)
