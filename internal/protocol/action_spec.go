package protocol

import (
	"encoding/json"
	"fmt"
)

// ActionSpec is the value side of a snapshot's action map. The engine encodes
// it as one of three shapes: an enablement flag (boolean or 0/1 integer), a
// scalar argument the action carries implicitly, or an ordered list of valid
// argument choices ("pick one").
type ActionSpec struct {
	// Enabled reports whether the action is currently selectable.
	Enabled bool
	// Value is the scalar argument for actions whose wire value is a bare
	// string or a non-flag integer. Nil otherwise.
	Value any
	// Choices is the ordered argument list for list-shaped actions. Nil for
	// flag- and scalar-shaped actions.
	Choices []any

	// raw preserves the exact wire form for lossless re-encoding.
	raw json.RawMessage
}

// FlagSpec builds an enablement-flag spec. Used by engine stubs and tests.
func FlagSpec(enabled bool) ActionSpec {
	return ActionSpec{Enabled: enabled}
}

// ChoiceSpec builds a list-shaped spec from the given argument choices.
func ChoiceSpec(choices ...any) ActionSpec {
	return ActionSpec{Enabled: len(choices) > 0, Choices: choices}
}

// UnmarshalJSON accepts the three wire shapes. Unknown shapes decode as a
// disabled action rather than failing the snapshot.
func (a *ActionSpec) UnmarshalJSON(data []byte) error {
	*a = ActionSpec{raw: append(json.RawMessage(nil), data...)}

	var flag bool
	if err := json.Unmarshal(data, &flag); err == nil {
		a.Enabled = flag
		return nil
	}

	var num int64
	if err := json.Unmarshal(data, &num); err == nil {
		switch num {
		case 0:
			// disabled flag
		case 1:
			a.Enabled = true
		default:
			a.Enabled = true
			a.Value = int(num)
		}
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		a.Enabled = true
		a.Value = str
		return nil
	}

	var list []any
	if err := json.Unmarshal(data, &list); err == nil {
		a.Enabled = len(list) > 0
		a.Choices = normalizeArgs(list)
		return nil
	}

	return nil
}

// MarshalJSON re-emits the original wire form when known, falling back to a
// canonical encoding for specs constructed in Go.
func (a ActionSpec) MarshalJSON() ([]byte, error) {
	if a.raw != nil {
		return a.raw, nil
	}
	switch {
	case a.Choices != nil:
		return json.Marshal(a.Choices)
	case a.Value != nil:
		return json.Marshal(a.Value)
	case a.Enabled:
		return json.Marshal(1)
	default:
		return json.Marshal(0)
	}
}

func (a ActionSpec) clone() ActionSpec {
	out := a
	if a.Choices != nil {
		out.Choices = append([]any(nil), a.Choices...)
	}
	if a.raw != nil {
		out.raw = append(json.RawMessage(nil), a.raw...)
	}
	return out
}

// String renders the spec for menus and logs.
func (a ActionSpec) String() string {
	switch {
	case a.Choices != nil:
		return fmt.Sprintf("choices %v", a.Choices)
	case a.Value != nil:
		return fmt.Sprintf("arg %v", a.Value)
	case a.Enabled:
		return "enabled"
	default:
		return "disabled"
	}
}

// normalizeArgs converts decoded JSON numbers to ints so argument choices
// round-trip as the string|int union the engine expects.
func normalizeArgs(list []any) []any {
	out := make([]any, len(list))
	for i, v := range list {
		if f, ok := v.(float64); ok && f == float64(int(f)) {
			out[i] = int(f)
			continue
		}
		out[i] = v
	}
	return out
}
