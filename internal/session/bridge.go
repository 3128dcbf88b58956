package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/earthwater/bridge-server-go/internal/engine"
	"github.com/earthwater/bridge-server-go/internal/protocol"
)

// Transport abstracts the engine process handle: write-line/read-line
// primitives, a liveness check, and termination. *engine.Handle satisfies it;
// tests substitute a scripted engine stub.
type Transport interface {
	IsAlive() bool
	WriteLine(line string) error
	ReadLine() (string, error)
	Shutdown(graceful bool) error
}

// Bridge owns one engine session: it sequences one command at a time over the
// transport, correlates each write with the next read, classifies the
// outcome, and maintains the authoritative state mirror between turns.
//
// The protocol has no request identifiers, so correctness depends on strict
// one-in-flight discipline; the session mutex serializes every exchange.
// Callers sharing a bridge across goroutines get that serialization for
// free, but responses still belong to whichever caller holds the lock.
type Bridge struct {
	id        string
	logger    *zap.Logger
	transport Transport
	observer  Observer

	mu    sync.Mutex
	state sessionState
}

// Option configures a bridge at construction.
type Option func(*Bridge)

// WithObserver attaches an exchange observer, typically the event log.
func WithObserver(observer Observer) Option {
	return func(b *Bridge) { b.observer = observer }
}

// WithID overrides the generated session identifier.
func WithID(id string) Option {
	return func(b *Bridge) { b.id = id }
}

// NewBridge creates a session bridge over a started transport. The logger is
// injected rather than ambient so logging lifecycle is scoped to the session.
func NewBridge(transport Transport, logger *zap.Logger, opts ...Option) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bridge{
		id:        uuid.New().String(),
		logger:    logger,
		transport: transport,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ID returns the session identifier.
func (b *Bridge) ID() string { return b.id }

// exchange performs one atomic request/response round trip and classifies
// the outcome. Callers must hold b.mu.
func (b *Bridge) exchange(cmd protocol.Command) (protocol.Response, *Error) {
	line, err := protocol.EncodeCommand(cmd)
	if err != nil {
		return protocol.Response{}, newError(FailureMalformedResponse, "", err)
	}

	if err := b.transport.WriteLine(line); err != nil {
		return protocol.Response{}, classifyTransport(err)
	}

	replyLine, err := b.transport.ReadLine()
	if err != nil {
		return protocol.Response{}, classifyTransport(err)
	}

	resp, err := protocol.DecodeResponse(replyLine)
	if err != nil {
		return protocol.Response{}, newError(FailureMalformedResponse, "", err)
	}

	if !resp.Success {
		return resp, newError(FailureDomain, resp.Error, nil)
	}
	return resp, nil
}

// classifyTransport maps handle-level failures onto the caller-facing
// taxonomy.
func classifyTransport(err error) *Error {
	switch {
	case errors.Is(err, engine.ErrNoResponse):
		return newError(FailureNoResponse, "", err)
	case errors.Is(err, engine.ErrReadTimeout):
		return newError(FailureNoResponse, "engine response timed out", err)
	default:
		return newError(FailureProcessUnavailable, "", err)
	}
}

// observe forwards an exchange record to the observer, if any.
func (b *Bridge) observe(verb string, cmd protocol.Command, success bool, errText string, snapshot *protocol.Snapshot) {
	if b.observer == nil {
		return
	}
	x := Exchange{
		SessionID: b.id,
		Verb:      verb,
		Success:   success,
		ErrorText: errText,
		Snapshot:  snapshot,
		TurnIndex: b.state.turnIndex,
		Timestamp: time.Now(),
	}
	if verb == protocol.CmdAction && cmd.Args != nil {
		x.Player = cmd.Args.Player
		x.Action = cmd.Args.Action
		x.Arg = cmd.Args.Arg
	}
	b.observer.ObserveExchange(x)
}

// Setup starts a new game. On success the snapshot is replaced wholesale, the
// turn index resets to 0 and the history is cleared. On failure any prior
// session content is left untouched.
func (b *Bridge) Setup(seed *int64, scenario string, options map[string]any) (*protocol.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cmd := protocol.NewSetupCommand(seed, scenario, options)
	resp, xerr := b.exchange(cmd)
	if xerr != nil {
		b.logger.Error("setup failed",
			zap.String("scenario", scenario),
			zap.String("kind", string(xerr.Kind)),
			zap.Error(xerr),
		)
		b.observe(protocol.CmdSetup, cmd, false, xerr.Error(), nil)
		return nil, xerr
	}

	b.state.reset(resp.GameState)
	if resp.GameState == nil {
		b.logger.Warn("setup succeeded but engine returned no state")
	} else {
		b.logger.Info("game initialized",
			zap.String("scenario", scenario),
			zap.String("active_player", resp.GameState.ActivePlayer),
			zap.String("prompt", resp.GameState.Prompt),
		)
	}
	b.observe(protocol.CmdSetup, cmd, true, "", b.state.snapshot)
	return b.state.snapshot, nil
}

// QueryState re-reads the engine's current state without touching the turn
// index or history. Useful for re-synchronizing after an external change.
func (b *Bridge) QueryState() (*protocol.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cmd := protocol.NewStateCommand()
	resp, xerr := b.exchange(cmd)
	if xerr != nil {
		b.logger.Warn("state query failed", zap.String("kind", string(xerr.Kind)), zap.Error(xerr))
		b.observe(protocol.CmdState, cmd, false, xerr.Error(), nil)
		return nil, xerr
	}

	b.state.replace(resp.GameState)
	b.observe(protocol.CmdState, cmd, true, "", b.state.snapshot)
	return b.state.snapshot, nil
}

// ListActions extracts the action map from the locally held snapshot; it
// performs no engine exchange. Unless includeUndo is set, the "undo" entry is
// removed. Fails with a no-active-session error before any successful setup.
func (b *Bridge) ListActions(includeUndo bool) (map[string]protocol.ActionSpec, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.state.hasState {
		return nil, newError(FailureNoActiveSession, "no game has been set up", nil)
	}

	actions := make(map[string]protocol.ActionSpec, len(b.state.snapshot.Actions))
	for name, spec := range b.state.snapshot.Actions {
		if name == "undo" && !includeUndo {
			continue
		}
		actions[name] = spec
	}
	return actions, nil
}

// ExecuteAction sends one player action. On success the turn index advances
// by exactly one and a turn record with before/after snapshots is appended;
// on failure the session keeps its last-known-good state (a failed attempt is
// not a turn). The command is always sent regardless of prior game-over
// state; checking IsGameOver first is the caller's responsibility.
func (b *Bridge) ExecuteAction(player, actionID string, arg any) (*protocol.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cmd := protocol.NewActionCommand(player, actionID, arg)
	resp, xerr := b.exchange(cmd)
	if xerr != nil {
		b.logger.Warn("action rejected",
			zap.String("player", player),
			zap.String("action", actionID),
			zap.Any("arg", arg),
			zap.String("kind", string(xerr.Kind)),
			zap.Error(xerr),
		)
		b.observe(protocol.CmdAction, cmd, false, xerr.Error(), nil)
		return nil, xerr
	}

	record := b.state.advance(player, actionID, arg, resp.GameState, time.Now())
	b.logger.Info("action executed",
		zap.Int("turn", record.Turn),
		zap.String("player", player),
		zap.String("action", actionID),
		zap.Any("arg", arg),
	)
	if b.state.snapshot != nil && b.state.snapshot.GameOver {
		winner := b.state.snapshot.Winner
		if winner == "" {
			winner = "Draw"
		}
		b.logger.Info("game over", zap.String("winner", winner), zap.Int("turns", b.state.turnIndex))
	}
	b.observe(protocol.CmdAction, cmd, true, "", b.state.snapshot)
	return b.state.snapshot, nil
}

// Shutdown requests graceful termination: a quit command is sent if the
// engine is still alive, then the transport waits out its grace period
// before forcing. Safe to call multiple times and from deferred cleanup,
// regardless of whether the process already died.
func (b *Bridge) Shutdown() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.transport.IsAlive() {
		if line, err := protocol.EncodeCommand(protocol.NewQuitCommand()); err == nil {
			// Best effort; the engine may already be gone.
			_ = b.transport.WriteLine(line)
		}
		b.observe(protocol.CmdQuit, protocol.NewQuitCommand(), true, "", nil)
	}
	if err := b.transport.Shutdown(true); err != nil {
		b.logger.Warn("engine shutdown", zap.Error(err))
		return err
	}
	b.logger.Info("session shut down", zap.String("session_id", b.id))
	return nil
}
