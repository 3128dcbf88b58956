package protocol

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Snapshot is a point-in-time copy of the engine-reported game state. The
// bridge reads only a fixed set of well-known fields defensively; every other
// field is carried untouched in Extra so richer callers (display layers,
// analysis tooling) can reach the full engine state.
type Snapshot struct {
	ActivePlayer string
	Prompt       string
	Actions      map[string]ActionSpec
	GameOver     bool
	Winner       string

	// Extra holds all snapshot fields the bridge does not model, keyed by
	// their wire name (e.g. "units", "campaign", "vp").
	Extra map[string]json.RawMessage
}

// Well-known snapshot field names on the wire.
const (
	fieldActivePlayer = "active_player"
	fieldPrompt       = "prompt"
	fieldActions      = "actions"
	fieldGameOver     = "game_over"
	fieldWinner       = "winner"
)

// UnmarshalJSON decodes the well-known fields and stashes everything else in
// Extra. Unknown shapes in known fields are tolerated: a field that fails to
// decode is left at its zero value rather than failing the whole snapshot.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	*s = Snapshot{Extra: make(map[string]json.RawMessage)}
	for key, raw := range fields {
		switch key {
		case fieldActivePlayer:
			_ = json.Unmarshal(raw, &s.ActivePlayer)
		case fieldPrompt:
			_ = json.Unmarshal(raw, &s.Prompt)
		case fieldActions:
			_ = json.Unmarshal(raw, &s.Actions)
		case fieldGameOver:
			_ = json.Unmarshal(raw, &s.GameOver)
		case fieldWinner:
			_ = json.Unmarshal(raw, &s.Winner)
		default:
			s.Extra[key] = raw
		}
	}
	return nil
}

// MarshalJSON reassembles the full wire form, well-known fields merged with
// the pass-through fields.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	fields := make(map[string]json.RawMessage, len(s.Extra)+5)
	for key, raw := range s.Extra {
		fields[key] = raw
	}

	put := func(key string, value any) error {
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("snapshot field %s: %w", key, err)
		}
		fields[key] = raw
		return nil
	}

	if err := put(fieldActivePlayer, s.ActivePlayer); err != nil {
		return nil, err
	}
	if err := put(fieldPrompt, s.Prompt); err != nil {
		return nil, err
	}
	if s.Actions != nil {
		if err := put(fieldActions, s.Actions); err != nil {
			return nil, err
		}
	}
	if err := put(fieldGameOver, s.GameOver); err != nil {
		return nil, err
	}
	if s.Winner != "" {
		if err := put(fieldWinner, s.Winner); err != nil {
			return nil, err
		}
	}

	return json.Marshal(fields)
}

// Clone returns a deep copy. Turn records keep before/after snapshots that
// must not alias the live session state.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := &Snapshot{
		ActivePlayer: s.ActivePlayer,
		Prompt:       s.Prompt,
		GameOver:     s.GameOver,
		Winner:       s.Winner,
	}
	if s.Actions != nil {
		out.Actions = make(map[string]ActionSpec, len(s.Actions))
		for name, spec := range s.Actions {
			out.Actions[name] = spec.clone()
		}
	}
	if s.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(s.Extra))
		for key, raw := range s.Extra {
			cp := make(json.RawMessage, len(raw))
			copy(cp, raw)
			out.Extra[key] = cp
		}
	}
	return out
}

// ActionNames returns the sorted action identifiers in the snapshot's action
// map, regardless of enablement.
func (s *Snapshot) ActionNames() []string {
	if s == nil || len(s.Actions) == 0 {
		return nil
	}
	names := make([]string, 0, len(s.Actions))
	for name := range s.Actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Units decodes the snapshot's per-location unit arrays from the pass-through
// fields. Returns nil if the snapshot carries no unit data.
func (s *Snapshot) Units() map[string][]int {
	if s == nil {
		return nil
	}
	raw, ok := s.Extra["units"]
	if !ok {
		return nil
	}
	var units map[string][]int
	if err := json.Unmarshal(raw, &units); err != nil {
		return nil
	}
	return units
}

// ExtraInt reads an integer pass-through field such as "campaign" or "vp".
func (s *Snapshot) ExtraInt(key string) (int, bool) {
	if s == nil {
		return 0, false
	}
	raw, ok := s.Extra[key]
	if !ok {
		return 0, false
	}
	var value int
	if err := json.Unmarshal(raw, &value); err != nil {
		return 0, false
	}
	return value, true
}

// ExtraString reads a string pass-through field such as "game_state".
func (s *Snapshot) ExtraString(key string) (string, bool) {
	if s == nil {
		return "", false
	}
	raw, ok := s.Extra[key]
	if !ok {
		return "", false
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", false
	}
	return value, true
}
