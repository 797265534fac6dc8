package pty

import (
	"context"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

const readBufSize = 4096

// termGrace is how long terminate waits after SIGTERM before SIGKILL.
const termGrace = 3 * time.Second

// ptySession is one live shell on a PTY. The read loop is the only writer of
// the scrollback ring; subscribers receive copies of each chunk.
type ptySession struct {
	id   string
	ptmx *os.File
	cmd  *exec.Cmd

	mu         sync.Mutex
	subs       map[chan []byte]struct{}
	ring       []byte
	done       chan struct{}
	terminated bool

	limit     int
	closeOnce sync.Once
}

func newPTYSession(id string, ptmx *os.File, cmd *exec.Cmd, limit int) *ptySession {
	return &ptySession{
		id:    id,
		ptmx:  ptmx,
		cmd:   cmd,
		subs:  make(map[chan []byte]struct{}),
		done:  make(chan struct{}),
		limit: limit,
	}
}

// readLoop pumps PTY output into the ring and to subscribers until the shell
// exits. Runs on its own goroutine; returns when the PTY read fails, which
// covers both shell exit and terminate closing the ptmx.
func (s *ptySession) readLoop() {
	buf := make([]byte, readBufSize)
	for {
		n, err := s.ptmx.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			s.deliver(chunk)
		}
		if err != nil {
			break
		}
	}
	s.finish()
}

func (s *ptySession) deliver(chunk []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ring = appendScrollback(s.ring, chunk, s.limit)
	for sub := range s.subs {
		select {
		case sub <- chunk:
		default:
			// Full buffer: the subscriber catches up from scrollback on
			// reattach; never block the read loop.
		}
	}
}

// finish marks the session exited and closes every subscriber. Safe to call
// more than once.
func (s *ptySession) finish() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		close(s.done)
		for sub := range s.subs {
			close(sub)
		}
		s.subs = nil
		s.mu.Unlock()

		if s.cmd.Process != nil {
			_ = s.cmd.Wait()
		}
	})
}

// terminate asks the shell to exit and forces it after a grace period.
func (s *ptySession) terminate() {
	s.mu.Lock()
	s.terminated = true
	s.mu.Unlock()

	if p := s.cmd.Process; p != nil {
		_ = p.Signal(syscall.SIGTERM)
		go func() {
			// Force down a shell that ignores SIGTERM. Kill on an
			// already-exited process is a harmless error.
			time.Sleep(termGrace)
			_ = p.Kill()
		}()
	}
	// Closing the ptmx unblocks the read loop, which runs finish.
	_ = s.ptmx.Close()
}

// subscribe registers an output channel, removed when ctx is cancelled or
// the shell exits.
func (s *ptySession) subscribe(ctx context.Context) <-chan []byte {
	s.mu.Lock()
	select {
	case <-s.done:
		s.mu.Unlock()
		ch := make(chan []byte)
		close(ch)
		return ch
	default:
	}

	sub := make(chan []byte, 64)
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-s.done:
			return // finish closed the channel
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		select {
		case <-s.done:
			return
		default:
		}
		delete(s.subs, sub)
		close(sub)
	}()

	return sub
}

// wasTerminated reports whether terminate ran; retained scrollback is only
// for sessions that exited on their own.
func (s *ptySession) wasTerminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminated
}

// scrollback returns a copy of the replay ring.
func (s *ptySession) scrollback() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.ring))
	copy(out, s.ring)
	return out
}

// appendScrollback appends chunk to ring, keeping only the last limit bytes.
func appendScrollback(ring, chunk []byte, limit int) []byte {
	if limit <= 0 {
		return nil
	}
	if len(chunk) >= limit {
		return append(ring[:0], chunk[len(chunk)-limit:]...)
	}
	ring = append(ring, chunk...)
	if over := len(ring) - limit; over > 0 {
		ring = append(ring[:0], ring[over:]...)
	}
	return ring
}
