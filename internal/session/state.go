package session

import (
	"time"

	"github.com/earthwater/bridge-server-go/internal/protocol"
)

// TurnRecord is one logged, completed player action. Records are appended
// exclusively by the bridge after a successful action exchange and never
// mutated afterward.
type TurnRecord struct {
	// Turn is the 1-based, gapless turn index of this record.
	Turn int
	// Player is the acting player identifier.
	Player string
	// Action is the action identifier.
	Action string
	// Arg is the optional action argument (string or int, nil if absent).
	Arg any
	// Timestamp is the wall-clock time the action completed.
	Timestamp time.Time
	// Before and After are the full state snapshots immediately surrounding
	// the action.
	Before *protocol.Snapshot
	After  *protocol.Snapshot
}

// sessionState is the mirrored game state, turn counter, and append-only
// history. Mutated only by the bridge after successful exchanges.
type sessionState struct {
	snapshot  *protocol.Snapshot
	hasState  bool
	turnIndex int
	history   []TurnRecord
}

// reset installs a fresh snapshot and clears the turn counter and history.
// Called only after a successful setup exchange.
func (s *sessionState) reset(snapshot *protocol.Snapshot) {
	s.snapshot = snapshot
	s.hasState = snapshot != nil
	s.turnIndex = 0
	s.history = nil
}

// replace adopts a new snapshot wholesale without touching the turn counter
// or history. Used by state queries.
func (s *sessionState) replace(snapshot *protocol.Snapshot) {
	if snapshot != nil {
		s.snapshot = snapshot
		s.hasState = true
	}
}

// advance records one completed action: the turn index increments by exactly
// one and a turn record capturing the surrounding snapshots is appended.
func (s *sessionState) advance(player, action string, arg any, after *protocol.Snapshot, at time.Time) TurnRecord {
	before := s.snapshot.Clone()
	s.turnIndex++
	record := TurnRecord{
		Turn:      s.turnIndex,
		Player:    player,
		Action:    action,
		Arg:       arg,
		Timestamp: at,
		Before:    before,
		After:     after.Clone(),
	}
	s.history = append(s.history, record)
	s.replace(after)
	return record
}

// historyCopy returns the full history as an independent slice.
func (s *sessionState) historyCopy() []TurnRecord {
	if len(s.history) == 0 {
		return nil
	}
	out := make([]TurnRecord, len(s.history))
	copy(out, s.history)
	return out
}
