// Package agent holds decision-making policies that drive a game session.
// Agents are callers of the session bridge, not part of it; the bridge never
// depends on any policy.
package agent

import (
	"github.com/earthwater/bridge-server-go/internal/protocol"
)

// Game is the read view of a session an agent decides against.
type Game interface {
	ListActions(includeUndo bool) (map[string]protocol.ActionSpec, error)
	ActivePlayer() string
	TurnIndex() int
}

// Choice is one selected action, with its optional argument.
type Choice struct {
	Action string
	Arg    any
}

// Agent selects actions for one side of a game.
type Agent interface {
	Name() string
	// ChooseAction picks among the currently available actions. ok is false
	// when no selectable action exists.
	ChooseAction(game Game) (choice Choice, ok bool, err error)
	// GameStarted and GameEnded bracket one game for agents that keep
	// per-game state.
	GameStarted(game Game)
	GameEnded(game Game, winner string)
}
