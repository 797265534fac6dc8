// Package session coordinates the lifecycle of one external shell session per
// terminal pane: spawn or reattach, output streaming, debounced resize, and
// teardown. It is the synchronization point between asynchronous PTY output
// and user-driven structural operations on the pane tree.
package session

import (
	"context"
	"errors"
)

// ErrBufferUnavailable is returned by Backend.Reattach when no scrollback is
// retained for the session. Callers treat it as an empty buffer, not a
// failure.
var ErrBufferUnavailable = errors.New("no buffered output for session")

// Dimensions are the negotiated terminal dimensions of a session.
type Dimensions struct {
	Cols int
	Rows int
}

// Backend abstracts the external PTY execution layer. Implementations may be
// a local PTY, an IPC bridge, or anything that can run shells; the
// coordinator only depends on this surface.
type Backend interface {
	// Spawn starts a new shell session and returns its negotiated
	// dimensions. Blocking; honors ctx cancellation.
	Spawn(ctx context.Context, sessionID, shell, distro, cwd string) (Dimensions, error)

	// Reattach binds to an already-running session and returns its buffered
	// output for replay. Returns ErrBufferUnavailable when no scrollback is
	// retained; the session itself is still considered live.
	Reattach(ctx context.Context, sessionID string) ([]byte, error)

	// Write delivers user keystrokes. Fire-and-forget.
	Write(sessionID string, p []byte)

	// Resize adjusts the PTY dimensions. Best-effort; a missed resize
	// self-corrects on the next layout change.
	Resize(sessionID string, cols, rows int) error

	// Terminate tears the session down. Best-effort and idempotent.
	Terminate(sessionID string)

	// Subscribe returns a stream of output chunks for the session. The
	// channel closes when the session ends or ctx is cancelled.
	Subscribe(ctx context.Context, sessionID string) <-chan []byte
}
