package session

import "github.com/earthwater/bridge-server-go/internal/protocol"

// Read-only accessors over the mirrored session state. All reflect the
// last-known-good state and never trigger an engine exchange.

// Snapshot returns the current game state snapshot, or nil before setup.
func (b *Bridge) Snapshot() *protocol.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.snapshot
}

// IsGameOver reports whether the mirrored snapshot says the game has ended.
// False before setup.
func (b *Bridge) IsGameOver() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.snapshot != nil && b.state.snapshot.GameOver
}

// Winner returns the winner identifier once the game is over. Absent until
// then; a game-over snapshot without an explicit winner reports a draw.
func (b *Bridge) Winner() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state.snapshot == nil || !b.state.snapshot.GameOver {
		return "", false
	}
	if b.state.snapshot.Winner == "" {
		return "Draw", true
	}
	return b.state.snapshot.Winner, true
}

// ActivePlayer returns the active player identifier, empty before setup.
func (b *Bridge) ActivePlayer() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state.snapshot == nil {
		return ""
	}
	return b.state.snapshot.ActivePlayer
}

// Prompt returns the engine's human-readable prompt, empty before setup.
func (b *Bridge) Prompt() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state.snapshot == nil {
		return ""
	}
	return b.state.snapshot.Prompt
}

// TurnIndex returns the number of successfully executed actions since the
// last setup.
func (b *Bridge) TurnIndex() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.turnIndex
}

// History returns a copy of the full turn record sequence for post-game
// analysis.
func (b *Bridge) History() []TurnRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.historyCopy()
}
