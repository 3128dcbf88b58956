package session

import (
	"time"

	"github.com/earthwater/bridge-server-go/internal/protocol"
)

// Exchange is the observer's view of one completed command exchange.
type Exchange struct {
	SessionID string
	Verb      string
	// Player, Action, Arg are set for action exchanges only.
	Player string
	Action string
	Arg    any
	// Success and ErrorText mirror the outcome returned to the caller.
	Success   bool
	ErrorText string
	// Snapshot is the post-exchange state on success, nil otherwise.
	Snapshot  *protocol.Snapshot
	TurnIndex int
	Timestamp time.Time
}

// Observer receives a record of every exchange the bridge performs. It is a
// pure observer: the bridge never reads anything back from it, and a slow or
// failing observer must not affect session correctness.
type Observer interface {
	ObserveExchange(x Exchange)
}
