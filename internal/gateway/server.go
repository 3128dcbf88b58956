// Package gateway exposes the session bridge verb set over WebSocket so a
// browser UI or remote agent can drive a game. Each connection owns exactly
// one session and therefore one engine process; closing the connection shuts
// the session down.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/earthwater/bridge-server-go/internal/protocol"
	"github.com/earthwater/bridge-server-go/internal/session"
)

// SessionFactory creates a fresh bridge with a live engine process. The
// returned cleanup releases everything the session acquired (event log,
// process) and must be safe to call after Shutdown.
type SessionFactory func() (*session.Bridge, func(), error)

// Server serves the controller gateway.
type Server struct {
	addr       string
	logger     *zap.Logger
	newSession SessionFactory
	upgrader   websocket.Upgrader
}

// NewServer creates a gateway server listening on addr.
func NewServer(addr string, factory SessionFactory, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		addr:       addr,
		logger:     logger,
		newSession: factory,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Run serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)

	srv := &http.Server{Addr: s.addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("gateway listening", zap.String("address", s.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	bridge, cleanup, err := s.newSession()
	if err != nil {
		s.logger.Error("session creation failed", zap.Error(err))
		_ = conn.WriteJSON(Response{Type: "result", Error: err.Error(), Kind: string(session.FailureProcessUnavailable)})
		return
	}
	defer cleanup()
	defer func() {
		_ = bridge.Shutdown()
	}()

	s.logger.Info("controller connected",
		zap.String("session_id", bridge.ID()),
		zap.String("remote", r.RemoteAddr),
	)

	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("controller read failed", zap.Error(err))
			}
			return
		}

		resp := s.dispatch(bridge, req)
		if err := conn.WriteJSON(resp); err != nil {
			s.logger.Warn("controller write failed", zap.Error(err))
			return
		}
		if req.Type == "quit" {
			return
		}
	}
}

// dispatch maps one gateway request onto the bridge verb set.
func (s *Server) dispatch(bridge *session.Bridge, req Request) Response {
	switch req.Type {
	case "setup":
		snapshot, err := bridge.Setup(req.Seed, req.Scenario, req.Options)
		return s.result(bridge, snapshot, err)
	case "state":
		snapshot, err := bridge.QueryState()
		return s.result(bridge, snapshot, err)
	case "actions":
		actions, err := bridge.ListActions(req.IncludeUndo)
		resp := s.result(bridge, nil, err)
		resp.Actions = actions
		return resp
	case "action":
		snapshot, err := bridge.ExecuteAction(req.Player, req.Action, normalizeArg(req.Arg))
		return s.result(bridge, snapshot, err)
	case "quit":
		err := bridge.Shutdown()
		return s.result(bridge, nil, err)
	default:
		return Response{Type: "result", Error: "unknown request type: " + req.Type, Kind: "bad_request"}
	}
}

func (s *Server) result(bridge *session.Bridge, snapshot *protocol.Snapshot, err error) Response {
	resp := Response{
		Type: "result",
		OK:   err == nil,
		Turn: bridge.TurnIndex(),
	}
	if err != nil {
		resp.Error = err.Error()
		if kind, ok := session.KindOf(err); ok {
			resp.Kind = string(kind)
		}
		return resp
	}
	resp.Snapshot = snapshot
	if bridge.IsGameOver() {
		resp.GameOver = true
		resp.Winner, _ = bridge.Winner()
	}
	return resp
}

// normalizeArg converts decoded JSON numbers to ints so the engine sees the
// same string|int union a native caller would send.
func normalizeArg(arg any) any {
	if f, ok := arg.(float64); ok && f == float64(int(f)) {
		return int(f)
	}
	return arg
}
