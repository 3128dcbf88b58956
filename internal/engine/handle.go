package engine

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Transport-level failure conditions. The session layer classifies these into
// its caller-facing error taxonomy.
var (
	// ErrProcessUnavailable reports that the engine process is not running
	// or its streams are closed.
	ErrProcessUnavailable = errors.New("engine process unavailable")
	// ErrNoResponse reports that the response stream closed before a line
	// was produced.
	ErrNoResponse = errors.New("no response from engine")
	// ErrReadTimeout reports that the configured read deadline elapsed while
	// waiting for a response line. The handle is desynchronized afterwards:
	// the late reply could otherwise be matched to a later command, so the
	// process is killed and every subsequent operation fails with
	// ErrProcessUnavailable.
	ErrReadTimeout = errors.New("engine response timed out")
)

// DefaultShutdownGrace bounds how long a graceful shutdown waits for the
// engine to exit on its own before it is killed.
const DefaultShutdownGrace = 2 * time.Second

// Options configures an engine process handle.
type Options struct {
	// Command is the engine executable, e.g. "node".
	Command string
	// Args are the executable's arguments, e.g. the bridge server script.
	Args []string
	// Dir is the working directory for the child process. Empty means the
	// parent's working directory.
	Dir string
	// ReadTimeout bounds each ReadLine call. Zero disables the deadline and
	// ReadLine blocks until a line arrives or the stream closes. A deadline
	// failure kills the process: without request identifiers a late reply
	// cannot be told apart from the next command's reply.
	ReadTimeout time.Duration
	// ShutdownGrace bounds the graceful-shutdown wait. Zero selects
	// DefaultShutdownGrace.
	ShutdownGrace time.Duration
}

// Handle owns the engine child process and its three byte streams: one for
// writing commands, one for reading responses, one for reading diagnostics.
// A single reader goroutine pumps response lines so that ReadLine can honor
// an optional deadline and observe process death.
type Handle struct {
	logger *zap.Logger
	opts   Options

	mu        sync.Mutex
	started   bool
	desynced  bool
	cmd       *exec.Cmd
	stdin     io.WriteCloser

	lines   chan lineResult
	exited  chan struct{}
	waitErr error
}

type lineResult struct {
	text string
	err  error
}

// NewHandle creates a handle for the configured engine command. The process
// is not launched until Start.
func NewHandle(opts Options, logger *zap.Logger) *Handle {
	if opts.ShutdownGrace <= 0 {
		opts.ShutdownGrace = DefaultShutdownGrace
	}
	return &Handle{
		logger: logger,
		opts:   opts,
		// One-in-flight discipline means at most one response line is ever
		// outstanding; the buffer keeps the pump from blocking on shutdown.
		lines:  make(chan lineResult, 1),
		exited: make(chan struct{}),
	}
}

// Start launches the engine as a child process with line-buffered pipes for
// commands, responses, and diagnostics. Failure here is fatal to session
// creation: the session cannot exist without its engine.
func (h *Handle) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.started {
		return fmt.Errorf("engine already started")
	}

	cmd := exec.Command(h.opts.Command, h.opts.Args...)
	cmd.Dir = h.opts.Dir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open command stream: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("open response stream: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("open diagnostic stream: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start engine %s: %w", h.opts.Command, err)
	}

	h.cmd = cmd
	h.stdin = stdin
	h.started = true

	go h.pumpResponses(stdout)
	go h.pumpDiagnostics(stderr)
	go func() {
		err := cmd.Wait()
		h.mu.Lock()
		h.waitErr = err
		h.mu.Unlock()
		close(h.exited)
		if h.logger != nil {
			h.logger.Info("engine process exited", zap.Error(err))
		}
	}()

	if h.logger != nil {
		h.logger.Info("engine process started",
			zap.String("command", h.opts.Command),
			zap.Strings("args", h.opts.Args),
			zap.Int("pid", cmd.Process.Pid),
		)
	}
	return nil
}

// pumpResponses delivers complete response lines to ReadLine. A partial line
// followed by EOF is still delivered; the codec will reject it if truncated
// mid-object.
func (h *Handle) pumpResponses(stdout io.Reader) {
	reader := bufio.NewReader(stdout)
	for {
		text, err := reader.ReadString('\n')
		if len(text) > 0 {
			select {
			case h.lines <- lineResult{text: text}:
			default:
				// A full buffer means an unsolicited line nobody is waiting
				// for. Keep it pending, but only for as long as the process
				// lives so a stopped session does not strand this goroutine.
				select {
				case h.lines <- lineResult{text: text}:
				case <-h.exited:
					return
				}
			}
		}
		if err != nil {
			close(h.lines)
			return
		}
	}
}

// pumpDiagnostics forwards the engine's stderr to the logger line by line.
func (h *Handle) pumpDiagnostics(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if h.logger != nil {
			h.logger.Debug("engine diagnostic", zap.String("line", scanner.Text()))
		}
	}
}

// IsAlive reports whether the engine process is running.
func (h *Handle) IsAlive() bool {
	h.mu.Lock()
	started := h.started
	h.mu.Unlock()
	if !started {
		return false
	}
	select {
	case <-h.exited:
		return false
	default:
		return true
	}
}

// WriteLine writes one command line to the engine. The pipe is unbuffered on
// the parent side, so the write is visible to the child without an explicit
// flush.
func (h *Handle) WriteLine(line string) error {
	if !h.IsAlive() {
		return ErrProcessUnavailable
	}
	h.mu.Lock()
	stdin := h.stdin
	desynced := h.desynced
	h.mu.Unlock()
	if desynced || stdin == nil {
		return ErrProcessUnavailable
	}
	if _, err := io.WriteString(stdin, line); err != nil {
		return fmt.Errorf("%w: %v", ErrProcessUnavailable, err)
	}
	return nil
}

// ReadLine blocks until a full response line is available or the response
// stream closes. With a configured ReadTimeout the wait is bounded and a
// deadline failure is returned as ErrReadTimeout.
func (h *Handle) ReadLine() (string, error) {
	h.mu.Lock()
	desynced := h.desynced
	h.mu.Unlock()
	if desynced {
		return "", ErrProcessUnavailable
	}

	var deadline <-chan time.Time
	if h.opts.ReadTimeout > 0 {
		timer := time.NewTimer(h.opts.ReadTimeout)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case result, ok := <-h.lines:
		if !ok {
			return "", ErrNoResponse
		}
		return result.text, result.err
	case <-deadline:
		h.desync()
		return "", ErrReadTimeout
	}
}

// desync retires the handle after a missed read deadline. The still-pending
// reply must never be matched to a later command, so the process is killed
// and the handle refuses all further use.
func (h *Handle) desync() {
	h.mu.Lock()
	if h.desynced {
		h.mu.Unlock()
		return
	}
	h.desynced = true
	cmd := h.cmd
	h.mu.Unlock()

	if h.logger != nil {
		h.logger.Error("engine response deadline missed, killing desynchronized process")
	}
	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}

// Shutdown terminates the engine process. If graceful, it closes the command
// stream and waits up to the shutdown grace period for a natural exit before
// killing; otherwise it kills immediately. Shutdown is idempotent and never
// fails if the process has already exited.
func (h *Handle) Shutdown(graceful bool) error {
	h.mu.Lock()
	if !h.started {
		h.mu.Unlock()
		return nil
	}
	stdin := h.stdin
	h.stdin = nil
	cmd := h.cmd
	grace := h.opts.ShutdownGrace
	h.mu.Unlock()

	if stdin != nil {
		_ = stdin.Close()
	}

	select {
	case <-h.exited:
		return nil
	default:
	}

	if graceful {
		select {
		case <-h.exited:
			if h.logger != nil {
				h.logger.Info("engine shut down gracefully")
			}
			return nil
		case <-time.After(grace):
			if h.logger != nil {
				h.logger.Warn("engine did not exit within grace period, killing",
					zap.Duration("grace", grace),
				)
			}
		}
	}

	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	<-h.exited
	return nil
}

// ExitError returns the process exit error after the engine has exited, or
// nil while it is still running or if it exited cleanly.
func (h *Handle) ExitError() error {
	select {
	case <-h.exited:
	default:
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.waitErr
}
