package agent

import (
	"math/rand"
	"sort"

	"go.uber.org/zap"
)

// RandomAgent picks uniformly among the enabled actions. Not strategic, but
// useful as a baseline opponent, for exercising the bridge, and for
// generating game data. A fixed seed makes its choices reproducible.
type RandomAgent struct {
	name      string
	rng       *rand.Rand
	logger    *zap.Logger
	decisions int
}

// NewRandomAgent creates a random agent with its own seeded source.
func NewRandomAgent(name string, seed int64, logger *zap.Logger) *RandomAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RandomAgent{
		name:   name,
		rng:    rand.New(rand.NewSource(seed)),
		logger: logger,
	}
}

// Name implements Agent.
func (a *RandomAgent) Name() string { return a.name }

// ChooseAction selects a random enabled action and, for list-shaped actions,
// a random argument from its choices. Disabled actions and undo are never
// picked.
func (a *RandomAgent) ChooseAction(game Game) (Choice, bool, error) {
	a.decisions++

	actions, err := game.ListActions(false)
	if err != nil {
		return Choice{}, false, err
	}

	names := make([]string, 0, len(actions))
	for name, spec := range actions {
		if spec.Enabled {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		a.logger.Warn("no selectable actions", zap.String("agent", a.name))
		return Choice{}, false, nil
	}
	// Map iteration order is randomized; sort before drawing so a seeded
	// agent stays reproducible.
	sort.Strings(names)

	name := names[a.rng.Intn(len(names))]
	spec := actions[name]

	choice := Choice{Action: name}
	switch {
	case len(spec.Choices) > 0:
		choice.Arg = spec.Choices[a.rng.Intn(len(spec.Choices))]
	case spec.Value != nil:
		choice.Arg = spec.Value
	}

	a.logger.Info("agent decision",
		zap.String("agent", a.name),
		zap.Int("decision", a.decisions),
		zap.String("action", choice.Action),
		zap.Any("arg", choice.Arg),
		zap.Strings("available", names),
	)
	return choice, true, nil
}

// GameStarted resets the per-game decision counter.
func (a *RandomAgent) GameStarted(game Game) {
	a.decisions = 0
	a.logger.Info("agent ready",
		zap.String("agent", a.name),
		zap.String("active_player", game.ActivePlayer()),
	)
}

// GameEnded logs the outcome.
func (a *RandomAgent) GameEnded(game Game, winner string) {
	a.logger.Info("game ended",
		zap.String("agent", a.name),
		zap.Int("turns", game.TurnIndex()),
		zap.Int("decisions", a.decisions),
		zap.String("winner", winner),
	)
}
