package enginetest

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/earthwater/bridge-server-go/internal/protocol"
)

// Game is a minimal conformant engine: two players, a handful of actions,
// deterministic progression, game over after a fixed number of actions. It
// exists to exercise the bridge end to end, not to model any real rules.
type Game struct {
	mu       sync.Mutex
	setUp    bool
	turn     int
	active   string
	endAfter int
	seed     *int64
}

// NewGame creates a game that ends after endAfter successful actions.
func NewGame(endAfter int) *Game {
	return &Game{endAfter: endAfter}
}

// Handle implements the enginetest Handler contract.
func (g *Game) Handle(cmd protocol.Command) protocol.Response {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch cmd.Cmd {
	case protocol.CmdSetup:
		g.setUp = true
		g.turn = 0
		g.active = "Greece"
		if cmd.Args != nil {
			g.seed = cmd.Args.Seed
		}
		return protocol.Response{Success: true, GameState: g.snapshot()}

	case protocol.CmdState:
		if !g.setUp {
			return protocol.Response{Success: false, Error: "no game in progress"}
		}
		return protocol.Response{Success: true, GameState: g.snapshot()}

	case protocol.CmdAction:
		if !g.setUp {
			return protocol.Response{Success: false, Error: "no game in progress"}
		}
		if g.gameOver() {
			return protocol.Response{Success: false, Error: "game is over"}
		}
		args := cmd.Args
		if args == nil {
			return protocol.Response{Success: false, Error: "missing action arguments"}
		}
		if args.Player != g.active {
			return protocol.Response{Success: false, Error: fmt.Sprintf("not %s's turn", args.Player)}
		}
		switch args.Action {
		case "draw", "undo":
		case "city":
			if args.Arg == nil {
				return protocol.Response{Success: false, Error: "city requires an argument"}
			}
		case "next":
		default:
			return protocol.Response{Success: false, Error: fmt.Sprintf("unknown action: %s", args.Action)}
		}
		g.turn++
		if args.Action == "next" {
			if g.active == "Greece" {
				g.active = "Persia"
			} else {
				g.active = "Greece"
			}
		}
		return protocol.Response{Success: true, GameState: g.snapshot()}

	default:
		return protocol.Response{Success: false, Error: fmt.Sprintf("unknown command: %s", cmd.Cmd)}
	}
}

func (g *Game) gameOver() bool {
	return g.endAfter > 0 && g.turn >= g.endAfter
}

func (g *Game) snapshot() *protocol.Snapshot {
	s := &protocol.Snapshot{
		ActivePlayer: g.active,
		Prompt:       fmt.Sprintf("%s to play", g.active),
		Actions: map[string]protocol.ActionSpec{
			"draw": protocol.FlagSpec(true),
			"city": protocol.ChoiceSpec("Athenai", "Sparta", "Korinthos"),
			"next": protocol.FlagSpec(true),
			"undo": protocol.FlagSpec(true),
		},
		Extra: map[string]json.RawMessage{
			"game_state": mustRaw("operations"),
			"campaign":   mustRaw(1 + g.turn/10),
			"vp":         mustRaw(g.turn % 5),
			"units": mustRaw(map[string][]int{
				"Athenai": {2, 0, 1, 0},
				"Sparta":  {1, 1, 0, 0},
				"Abydos":  {0, 3, 0, 2},
				"reserve": {5, 5, 3, 3},
			}),
		},
	}
	if g.gameOver() {
		s.GameOver = true
		s.Winner = "Greece"
		s.Prompt = "Game over"
		s.Actions = map[string]protocol.ActionSpec{}
	}
	return s
}

func mustRaw(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}
