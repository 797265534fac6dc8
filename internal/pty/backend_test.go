package pty

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomterm/loom/internal/session"
)

// pipeSession builds a ptySession whose "ptmx" is the read end of a pipe, so
// tests can feed output without allocating a real PTY.
func pipeSession(t *testing.T, id string, limit int) (*ptySession, *os.File) {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = r.Close()
		_ = w.Close()
	})
	return newPTYSession(id, r, exec.Command("true"), limit), w
}

// ============================================================================
// Scrollback Ring
// ============================================================================

func TestAppendScrollback(t *testing.T) {
	tests := []struct {
		name  string
		ring  string
		chunk string
		limit int
		want  string
	}{
		{name: "append under limit", ring: "abc", chunk: "def", limit: 10, want: "abcdef"},
		{name: "exact fit", ring: "abc", chunk: "def", limit: 6, want: "abcdef"},
		{name: "overflow drops oldest", ring: "abcdef", chunk: "ghij", limit: 6, want: "efghij"},
		{name: "chunk larger than limit keeps tail", ring: "abc", chunk: "0123456789", limit: 4, want: "6789"},
		{name: "zero limit retains nothing", ring: "abc", chunk: "def", limit: 0, want: ""},
		{name: "empty ring", ring: "", chunk: "hi", limit: 8, want: "hi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := appendScrollback([]byte(tt.ring), []byte(tt.chunk), tt.limit)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

// ============================================================================
// Command Construction
// ============================================================================

func TestBuildCommand_DirectShell(t *testing.T) {
	cmd := buildCommand("s1", "/bin/bash", "", "", nil)

	assert.Equal(t, "/bin/bash", cmd.Path)
	assert.Contains(t, cmd.Env, "LOOM_SESSION_ID=s1")
	assert.Contains(t, cmd.Env, "TERM=xterm-256color")
}

func TestBuildCommand_DistroWrapsWithDistrobox(t *testing.T) {
	cmd := buildCommand("s1", "/bin/zsh", "arch", "", nil)

	require.GreaterOrEqual(t, len(cmd.Args), 5)
	assert.Equal(t, "distrobox", cmd.Args[0])
	assert.Equal(t, []string{"enter", "arch", "--", "/bin/zsh"}, cmd.Args[1:5])
}

func TestBuildCommand_MissingCwdIgnored(t *testing.T) {
	cmd := buildCommand("s1", "/bin/sh", "", "/no/such/dir", nil)

	assert.Empty(t, cmd.Dir, "nonexistent cwd falls back to inherited dir")
}

func TestBuildCommand_ValidCwdUsed(t *testing.T) {
	dir := t.TempDir()

	cmd := buildCommand("s1", "/bin/sh", "", dir, nil)

	assert.Equal(t, dir, cmd.Dir)
}

func TestBuildCommand_ExtraEnvAppended(t *testing.T) {
	cmd := buildCommand("s1", "/bin/sh", "", "", []string{"LOOM_THEME=dark"})

	assert.Contains(t, cmd.Env, "LOOM_THEME=dark")
}

// ============================================================================
// Session Read Loop
// ============================================================================

func TestSession_DeliversOutputAndRecordsScrollback(t *testing.T) {
	s, w := pipeSession(t, "s1", DefaultScrollbackLimit)
	go s.readLoop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := s.subscribe(ctx)

	_, err := w.Write([]byte("hello pane"))
	require.NoError(t, err)

	select {
	case chunk := <-out:
		assert.Equal(t, "hello pane", string(chunk))
	case <-time.After(time.Second):
		t.Fatal("no output delivered")
	}
	assert.Equal(t, "hello pane", string(s.scrollback()))
}

func TestSession_SubscriberClosedOnExit(t *testing.T) {
	s, w := pipeSession(t, "s1", DefaultScrollbackLimit)
	go s.readLoop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := s.subscribe(ctx)

	require.NoError(t, w.Close())

	select {
	case _, open := <-out:
		assert.False(t, open, "channel should close when the shell exits")
	case <-time.After(time.Second):
		t.Fatal("subscriber never closed")
	}
}

func TestSession_SubscribeAfterExitReturnsClosedChannel(t *testing.T) {
	s, w := pipeSession(t, "s1", DefaultScrollbackLimit)
	go s.readLoop()
	require.NoError(t, w.Close())

	require.Eventually(t, func() bool {
		select {
		case <-s.done:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	out := s.subscribe(context.Background())
	_, open := <-out
	assert.False(t, open)
}

func TestSession_ScrollbackCapped(t *testing.T) {
	s, w := pipeSession(t, "s1", 8)
	go s.readLoop()

	_, err := w.Write([]byte("0123456789abcdef"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return string(s.scrollback()) == "89abcdef"
	}, time.Second, 5*time.Millisecond)
}

// ============================================================================
// Backend Reattach Retention
// ============================================================================

func TestReattach_UnknownSession(t *testing.T) {
	b := NewLocalBackend()

	_, err := b.Reattach(context.Background(), "ghost")

	require.ErrorIs(t, err, session.ErrBufferUnavailable)
}

func TestReattach_LiveSessionReturnsRing(t *testing.T) {
	b := NewLocalBackend()
	s, w := pipeSession(t, "s1", DefaultScrollbackLimit)
	b.sessions["s1"] = s
	go s.readLoop()

	_, err := w.Write([]byte("replay me"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return len(s.scrollback()) > 0
	}, time.Second, 5*time.Millisecond)

	buf, err := b.Reattach(context.Background(), "s1")

	require.NoError(t, err)
	assert.Equal(t, "replay me", string(buf))
}

func TestReattach_ExitedSessionServedFromRetention(t *testing.T) {
	b := NewLocalBackend()
	s, w := pipeSession(t, "s1", DefaultScrollbackLimit)
	b.sessions["s1"] = s

	_, err := w.Write([]byte("last words"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	s.readLoop() // runs to completion once the pipe closes
	b.retire(s)

	buf, err := b.Reattach(context.Background(), "s1")

	require.NoError(t, err)
	assert.Equal(t, "last words", string(buf))
	_, live := b.sessions["s1"]
	assert.False(t, live)
}

func TestReattach_TerminatedSessionNotRetained(t *testing.T) {
	b := NewLocalBackend()
	s, w := pipeSession(t, "s1", DefaultScrollbackLimit)
	b.sessions["s1"] = s

	go s.readLoop()
	_, err := w.Write([]byte("doomed"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return len(s.scrollback()) > 0
	}, time.Second, 5*time.Millisecond)

	b.Terminate("s1")
	b.retire(s)

	_, err = b.Reattach(context.Background(), "s1")
	require.ErrorIs(t, err, session.ErrBufferUnavailable)
}

func TestTerminate_UnknownSessionIsNoop(t *testing.T) {
	b := NewLocalBackend()

	b.Terminate("ghost")
}

// ============================================================================
// Real PTY Round Trip
// ============================================================================

func TestLocalBackend_ShellRoundTrip(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	if _, err := os.Stat("/dev/ptmx"); err != nil {
		t.Skip("no PTY support")
	}

	b := NewLocalBackend()
	defer b.Shutdown()

	dims, err := b.Spawn(context.Background(), "rt-1", "sh", "", "")
	require.NoError(t, err)
	assert.Equal(t, 80, dims.Cols)
	assert.Equal(t, 24, dims.Rows)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := b.Subscribe(ctx, "rt-1")

	b.Write("rt-1", []byte("echo loom-marker\n"))

	var seen bytes.Buffer
	require.Eventually(t, func() bool {
		for {
			select {
			case chunk, open := <-out:
				if !open {
					return strings.Contains(seen.String(), "loom-marker")
				}
				seen.Write(chunk)
			default:
				return strings.Contains(seen.String(), "loom-marker")
			}
		}
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, b.Resize("rt-1", 120, 40))
	b.Terminate("rt-1")
}
