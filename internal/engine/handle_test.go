package engine

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// cat echoes stdin to stdout line by line, which is exactly the shape of a
// conformant engine from the transport's point of view.
func newCatHandle(t *testing.T, opts Options) *Handle {
	t.Helper()
	opts.Command = "cat"
	h := NewHandle(opts, zaptest.NewLogger(t))
	require.NoError(t, h.Start())
	t.Cleanup(func() { _ = h.Shutdown(false) })
	return h
}

func TestHandleWriteReadRoundTrip(t *testing.T) {
	h := newCatHandle(t, Options{})

	assert.True(t, h.IsAlive())

	require.NoError(t, h.WriteLine(`{"cmd":"state"}`+"\n"))
	line, err := h.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, `{"cmd":"state"}`+"\n", line)
}

func TestHandleGracefulShutdown(t *testing.T) {
	h := newCatHandle(t, Options{})

	// Closing stdin makes cat exit on its own within the grace period.
	require.NoError(t, h.Shutdown(true))
	assert.False(t, h.IsAlive())
	assert.NoError(t, h.ExitError())

	// Idempotent after exit.
	require.NoError(t, h.Shutdown(true))
	require.NoError(t, h.Shutdown(false))
}

func TestHandleWriteAfterShutdown(t *testing.T) {
	h := newCatHandle(t, Options{})
	require.NoError(t, h.Shutdown(false))

	err := h.WriteLine(`{"cmd":"state"}` + "\n")
	assert.ErrorIs(t, err, ErrProcessUnavailable)
}

func TestHandleReadAfterProcessExit(t *testing.T) {
	h := NewHandle(Options{Command: "sh", Args: []string{"-c", "exit 0"}}, zaptest.NewLogger(t))
	require.NoError(t, h.Start())

	assert.Eventually(t, func() bool { return !h.IsAlive() }, 5*time.Second, 10*time.Millisecond)

	_, err := h.ReadLine()
	assert.ErrorIs(t, err, ErrNoResponse)
}

func TestHandleReadTimeout(t *testing.T) {
	h := NewHandle(Options{
		Command:     "sleep",
		Args:        []string{"10"},
		ReadTimeout: 50 * time.Millisecond,
	}, zaptest.NewLogger(t))
	require.NoError(t, h.Start())
	t.Cleanup(func() { _ = h.Shutdown(false) })

	start := time.Now()
	_, err := h.ReadLine()
	assert.ErrorIs(t, err, ErrReadTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestHandleReadTimeoutRetiresHandle(t *testing.T) {
	// An engine that answers the first command only after the deadline. The
	// late reply must never surface as the answer to a later command.
	h := NewHandle(Options{
		Command:     "sh",
		Args:        []string{"-c", `read line; sleep 1; echo "reply-to:$line"`},
		ReadTimeout: 100 * time.Millisecond,
	}, zaptest.NewLogger(t))
	require.NoError(t, h.Start())
	t.Cleanup(func() { _ = h.Shutdown(false) })

	require.NoError(t, h.WriteLine("first\n"))
	_, err := h.ReadLine()
	require.ErrorIs(t, err, ErrReadTimeout)

	// Correlation is lost, so the handle refuses everything afterwards.
	assert.ErrorIs(t, h.WriteLine("second\n"), ErrProcessUnavailable)
	_, err = h.ReadLine()
	assert.ErrorIs(t, err, ErrProcessUnavailable)

	assert.Eventually(t, func() bool { return !h.IsAlive() }, 5*time.Second, 10*time.Millisecond)
	_, err = h.ReadLine()
	assert.ErrorIs(t, err, ErrProcessUnavailable, "the stale reply must stay buried after process exit")

	require.NoError(t, h.Shutdown(true))
}

func TestHandleUnsolicitedLinesDoNotStrandPump(t *testing.T) {
	before := runtime.NumGoroutine()

	h := NewHandle(Options{
		Command: "sh",
		Args:    []string{"-c", "echo a; echo b; echo c; sleep 10"},
	}, zaptest.NewLogger(t))
	require.NoError(t, h.Start())

	line, err := h.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "a\n", line)

	// Two lines remain unread: one buffered, one blocking the pump. Killing
	// the process must release the pump goroutine.
	require.NoError(t, h.Shutdown(false))
	assert.Eventually(t, func() bool { return runtime.NumGoroutine() <= before+1 },
		5*time.Second, 20*time.Millisecond)
}

func TestHandleNotStarted(t *testing.T) {
	h := NewHandle(Options{Command: "cat"}, zaptest.NewLogger(t))

	assert.False(t, h.IsAlive())
	assert.ErrorIs(t, h.WriteLine("x\n"), ErrProcessUnavailable)
	assert.NoError(t, h.Shutdown(true))
}

func TestHandleStartFailures(t *testing.T) {
	h := NewHandle(Options{Command: "/nonexistent/engine-binary"}, zaptest.NewLogger(t))
	require.Error(t, h.Start())

	started := newCatHandle(t, Options{})
	assert.Error(t, started.Start(), "double start must fail")
}

func TestHandleDefaultGrace(t *testing.T) {
	h := NewHandle(Options{Command: "cat"}, nil)
	assert.Equal(t, DefaultShutdownGrace, h.opts.ShutdownGrace)
}
