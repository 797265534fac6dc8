// Package pty runs shell sessions on local pseudo-terminals. It is the
// default session.Backend: sessions outlive the panes that display them, so
// a pane detached from one window can reattach from another and replay the
// scrollback it missed.
package pty

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/creack/pty"

	"github.com/loomterm/loom/internal/cachemanager"
	"github.com/loomterm/loom/internal/log"
	"github.com/loomterm/loom/internal/session"
)

const (
	// DefaultScrollbackLimit caps the per-session replay buffer.
	DefaultScrollbackLimit = 1 << 20 // 1 MiB

	// DefaultDetachTTL bounds how long an exited session's scrollback is
	// retained for a late reattach.
	DefaultDetachTTL = 10 * time.Minute

	defaultCols = 80
	defaultRows = 24
)

// LocalBackend implements session.Backend over creack/pty. One entry per
// live session; scrollback of exited sessions moves to a TTL cache so a
// reattach that arrives after the shell died can still replay its tail.
type LocalBackend struct {
	mu       sync.Mutex
	sessions map[string]*ptySession

	// exited holds scrollback for sessions whose process ended while
	// detached.
	exited cachemanager.CacheManager[string, []byte]

	scrollbackLimit int
	env             []string
}

// Option configures a LocalBackend.
type Option func(*LocalBackend)

// WithScrollbackLimit caps the per-session replay buffer in bytes.
func WithScrollbackLimit(n int) Option {
	return func(b *LocalBackend) { b.scrollbackLimit = n }
}

// WithDetachTTL sets how long scrollback of an exited session is retained.
func WithDetachTTL(ttl time.Duration) Option {
	return func(b *LocalBackend) {
		b.exited = cachemanager.NewInMemoryCacheManager[string, []byte]("scrollback", ttl, ttl/2)
	}
}

// WithEnv appends extra environment variables to every spawned shell.
func WithEnv(env []string) Option {
	return func(b *LocalBackend) { b.env = env }
}

// NewLocalBackend creates a backend with no live sessions.
func NewLocalBackend(opts ...Option) *LocalBackend {
	b := &LocalBackend{
		sessions:        make(map[string]*ptySession),
		exited:          cachemanager.NewInMemoryCacheManager[string, []byte]("scrollback", DefaultDetachTTL, DefaultDetachTTL/2),
		scrollbackLimit: DefaultScrollbackLimit,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Spawn starts shell on a fresh PTY. The session id must not collide with a
// live session.
func (b *LocalBackend) Spawn(ctx context.Context, sessionID, shell, distro, cwd string) (session.Dimensions, error) {
	if err := ctx.Err(); err != nil {
		return session.Dimensions{}, err
	}

	b.mu.Lock()
	if _, exists := b.sessions[sessionID]; exists {
		b.mu.Unlock()
		return session.Dimensions{}, fmt.Errorf("spawn %s: session already running", sessionID)
	}
	b.mu.Unlock()

	cmd := buildCommand(sessionID, shell, distro, cwd, b.env)
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return session.Dimensions{}, fmt.Errorf("spawn %s: %w", sessionID, err)
	}
	if err := pty.Setsize(ptmx, &pty.Winsize{Cols: defaultCols, Rows: defaultRows}); err != nil {
		log.Warn(log.CatPTY, "initial resize failed", "session", sessionID, "error", err.Error())
	}

	s := newPTYSession(sessionID, ptmx, cmd, b.scrollbackLimit)
	b.mu.Lock()
	b.sessions[sessionID] = s
	b.mu.Unlock()

	go func() {
		s.readLoop()
		b.retire(s)
	}()

	log.Info(log.CatPTY, "session spawned", "session", sessionID, "shell", cmd.Path, "cwd", cwd)
	return session.Dimensions{Cols: defaultCols, Rows: defaultRows}, nil
}

// Reattach returns the scrollback of a session for replay. A live session
// returns its current ring; an exited one returns the retained tail until
// the TTL expires. ErrBufferUnavailable when neither has anything.
func (b *LocalBackend) Reattach(ctx context.Context, sessionID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	s, live := b.sessions[sessionID]
	b.mu.Unlock()

	if live {
		buf := s.scrollback()
		if len(buf) == 0 {
			return nil, session.ErrBufferUnavailable
		}
		log.Debug(log.CatPTY, "reattach replaying scrollback", "session", sessionID, "bytes", len(buf))
		return buf, nil
	}

	if buf, ok := b.exited.Get(sessionID); ok {
		if len(buf) == 0 {
			return nil, session.ErrBufferUnavailable
		}
		log.Debug(log.CatPTY, "reattach replaying retained scrollback", "session", sessionID, "bytes", len(buf))
		return buf, nil
	}

	return nil, session.ErrBufferUnavailable
}

// Write delivers keystrokes to the session's PTY. Unknown sessions are
// dropped silently; keystrokes race with teardown.
func (b *LocalBackend) Write(sessionID string, p []byte) {
	b.mu.Lock()
	s, ok := b.sessions[sessionID]
	b.mu.Unlock()
	if !ok {
		return
	}
	if _, err := s.ptmx.Write(p); err != nil {
		log.Warn(log.CatPTY, "pty write failed", "session", sessionID, "error", err.Error())
	}
}

// Resize adjusts the PTY window size.
func (b *LocalBackend) Resize(sessionID string, cols, rows int) error {
	b.mu.Lock()
	s, ok := b.sessions[sessionID]
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("resize %s: no such session", sessionID)
	}
	return pty.Setsize(s.ptmx, &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)})
}

// Terminate tears a session down. Idempotent; unknown ids are no-ops.
// Scrollback is dropped: terminate means the pane is gone for good.
func (b *LocalBackend) Terminate(sessionID string) {
	b.mu.Lock()
	s, ok := b.sessions[sessionID]
	delete(b.sessions, sessionID)
	b.mu.Unlock()
	if !ok {
		b.exited.Delete(sessionID)
		return
	}
	s.terminate()
	log.Info(log.CatPTY, "session terminated", "session", sessionID)
}

// Subscribe returns the session's output stream. The channel closes when the
// shell exits or ctx is cancelled. Subscribing to an unknown session returns
// an already-closed channel.
func (b *LocalBackend) Subscribe(ctx context.Context, sessionID string) <-chan []byte {
	b.mu.Lock()
	s, ok := b.sessions[sessionID]
	b.mu.Unlock()
	if !ok {
		ch := make(chan []byte)
		close(ch)
		return ch
	}
	return s.subscribe(ctx)
}

// Shutdown terminates every live session.
func (b *LocalBackend) Shutdown() {
	b.mu.Lock()
	sessions := make([]*ptySession, 0, len(b.sessions))
	for id, s := range b.sessions {
		delete(b.sessions, id)
		sessions = append(sessions, s)
	}
	b.mu.Unlock()

	for _, s := range sessions {
		s.terminate()
	}
	b.exited.Flush()
}

// retire moves an exited session's scrollback into the TTL cache. A pane may
// still be displaying it; the tail stays replayable until the TTL runs out.
func (b *LocalBackend) retire(s *ptySession) {
	b.mu.Lock()
	current, ok := b.sessions[s.id]
	if ok && current == s {
		delete(b.sessions, s.id)
	}
	b.mu.Unlock()

	if s.wasTerminated() {
		return
	}
	if tail := s.scrollback(); len(tail) > 0 {
		b.exited.Set(s.id, tail, 0)
	}
	log.Info(log.CatPTY, "session exited", "session", s.id)
}
