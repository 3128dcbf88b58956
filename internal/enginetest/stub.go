// Package enginetest provides an in-process stand-in for the external rules
// engine. It speaks the real wire protocol through the session transport
// interface so bridge behavior can be tested without a child process.
package enginetest

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/earthwater/bridge-server-go/internal/engine"
	"github.com/earthwater/bridge-server-go/internal/protocol"
)

func decodeCommand(line string, cmd *protocol.Command) error {
	return json.Unmarshal([]byte(strings.TrimRight(line, "\r\n")), cmd)
}

// Handler computes the engine's reply to one decoded command.
type Handler func(cmd protocol.Command) protocol.Response

// Stub implements session.Transport with scripted behavior. Each WriteLine
// queues the reply the next ReadLine returns, preserving the protocol's
// strict one-in-flight request/response correlation.
type Stub struct {
	mu       sync.Mutex
	alive    bool
	handler  Handler
	queue    []string
	raw      []string
	requests []protocol.Command
}

// NewStub creates a live stub backed by the given handler. A quit command is
// acknowledged and marks the engine as exited, like the real bridge server.
func NewStub(handler Handler) *Stub {
	return &Stub{alive: true, handler: handler}
}

// QueueRawLine overrides the next response with a raw line, bypassing the
// handler. Used to script malformed responses.
func (s *Stub) QueueRawLine(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = append(s.raw, line)
}

// Kill simulates the process dying externally.
func (s *Stub) Kill() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alive = false
}

// Requests returns the decoded commands received so far.
func (s *Stub) Requests() []protocol.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]protocol.Command, len(s.requests))
	copy(out, s.requests)
	return out
}

// IsAlive implements session.Transport.
func (s *Stub) IsAlive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive
}

// WriteLine implements session.Transport.
func (s *Stub) WriteLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.alive {
		return engine.ErrProcessUnavailable
	}

	var cmd protocol.Command
	if err := decodeCommand(line, &cmd); err != nil {
		return nil
	}
	s.requests = append(s.requests, cmd)

	if len(s.raw) > 0 {
		s.queue = append(s.queue, s.raw[0])
		s.raw = s.raw[1:]
		return nil
	}

	if cmd.Cmd == protocol.CmdQuit {
		s.alive = false
		return nil
	}

	if s.handler != nil {
		reply, err := protocol.EncodeResponse(s.handler(cmd))
		if err == nil {
			s.queue = append(s.queue, reply)
		}
	}
	return nil
}

// ReadLine implements session.Transport.
func (s *Stub) ReadLine() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return "", engine.ErrNoResponse
	}
	line := s.queue[0]
	s.queue = s.queue[1:]
	return line, nil
}

// Shutdown implements session.Transport. Idempotent, never fails.
func (s *Stub) Shutdown(graceful bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alive = false
	return nil
}
