package gateway

import "github.com/earthwater/bridge-server-go/internal/protocol"

// Request is one controller message. Type selects the bridge verb; the other
// fields are verb-specific.
type Request struct {
	Type        string         `json:"type"`
	Seed        *int64         `json:"seed,omitempty"`
	Scenario    string         `json:"scenario,omitempty"`
	Options     map[string]any `json:"options,omitempty"`
	Player      string         `json:"player,omitempty"`
	Action      string         `json:"action,omitempty"`
	Arg         any            `json:"arg,omitempty"`
	IncludeUndo bool           `json:"include_undo,omitempty"`
}

// Response is the gateway's reply to one request.
type Response struct {
	Type     string                         `json:"type"`
	OK       bool                           `json:"ok"`
	Kind     string                         `json:"kind,omitempty"`
	Error    string                         `json:"error,omitempty"`
	Turn     int                            `json:"turn"`
	Snapshot *protocol.Snapshot             `json:"snapshot,omitempty"`
	Actions  map[string]protocol.ActionSpec `json:"actions,omitempty"`
	GameOver bool                           `json:"game_over,omitempty"`
	Winner   string                         `json:"winner,omitempty"`
}
