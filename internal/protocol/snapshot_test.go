package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotUnmarshalKnownAndExtra(t *testing.T) {
	data := []byte(`{
		"active_player": "Greece",
		"prompt": "Greek operations",
		"actions": {"draw": 1, "next": 0},
		"game_over": false,
		"units": {"Athenai": [2,0,1,0], "reserve": [5,5,3,3]},
		"campaign": 2,
		"vp": -1,
		"game_state": "operations",
		"deck_size": 7
	}`)

	var s Snapshot
	require.NoError(t, json.Unmarshal(data, &s))

	assert.Equal(t, "Greece", s.ActivePlayer)
	assert.Equal(t, "Greek operations", s.Prompt)
	assert.False(t, s.GameOver)
	assert.Empty(t, s.Winner)

	require.Len(t, s.Actions, 2)
	assert.True(t, s.Actions["draw"].Enabled)
	assert.False(t, s.Actions["next"].Enabled)

	// Everything unmodeled rides along untouched.
	assert.Len(t, s.Extra, 5)
	campaign, ok := s.ExtraInt("campaign")
	require.True(t, ok)
	assert.Equal(t, 2, campaign)
	vp, ok := s.ExtraInt("vp")
	require.True(t, ok)
	assert.Equal(t, -1, vp)
	phase, ok := s.ExtraString("game_state")
	require.True(t, ok)
	assert.Equal(t, "operations", phase)

	units := s.Units()
	require.NotNil(t, units)
	assert.Equal(t, []int{2, 0, 1, 0}, units["Athenai"])
	assert.Equal(t, []int{5, 5, 3, 3}, units["reserve"])
}

func TestSnapshotUnmarshalToleratesUnknownShapes(t *testing.T) {
	// A malformed known field must not sink the whole snapshot.
	data := []byte(`{"active_player": 42, "prompt": "still here", "game_over": true, "winner": "Persia"}`)

	var s Snapshot
	require.NoError(t, json.Unmarshal(data, &s))
	assert.Empty(t, s.ActivePlayer)
	assert.Equal(t, "still here", s.Prompt)
	assert.True(t, s.GameOver)
	assert.Equal(t, "Persia", s.Winner)
}

func TestSnapshotCloneIsDeep(t *testing.T) {
	var s Snapshot
	require.NoError(t, json.Unmarshal([]byte(`{
		"active_player": "Greece",
		"actions": {"city": ["Athenai", "Sparta"]},
		"units": {"Athenai": [1,0,0,0]}
	}`), &s))

	clone := s.Clone()
	require.NotNil(t, clone)

	clone.ActivePlayer = "Persia"
	clone.Extra["units"] = json.RawMessage(`{}`)
	clone.Actions["city"].Choices[0] = "Korinthos"

	assert.Equal(t, "Greece", s.ActivePlayer)
	assert.Equal(t, json.RawMessage(`{"Athenai": [1,0,0,0]}`), s.Extra["units"])
	assert.Equal(t, "Athenai", s.Actions["city"].Choices[0])
}

func TestSnapshotActionNames(t *testing.T) {
	var s Snapshot
	require.NoError(t, json.Unmarshal([]byte(`{"actions": {"next": 1, "draw": 0, "city": ["Athenai"]}}`), &s))
	assert.Equal(t, []string{"city", "draw", "next"}, s.ActionNames())

	var empty Snapshot
	assert.Nil(t, empty.ActionNames())
	assert.Nil(t, (*Snapshot)(nil).ActionNames())
}

func TestActionSpecShapes(t *testing.T) {
	tests := []struct {
		name    string
		wire    string
		enabled bool
		value   any
		choices []any
	}{
		{"flag true", `true`, true, nil, nil},
		{"flag false", `false`, false, nil, nil},
		{"flag one", `1`, true, nil, nil},
		{"flag zero", `0`, false, nil, nil},
		{"scalar int", `5`, true, 5, nil},
		{"scalar string", `"Athenai"`, true, "Athenai", nil},
		{"choice strings", `["Athenai","Sparta"]`, true, nil, []any{"Athenai", "Sparta"}},
		{"choice ints", `[2,3,5]`, true, nil, []any{2, 3, 5}},
		{"empty list", `[]`, false, nil, []any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var spec ActionSpec
			require.NoError(t, json.Unmarshal([]byte(tt.wire), &spec))
			assert.Equal(t, tt.enabled, spec.Enabled)
			assert.Equal(t, tt.value, spec.Value)
			assert.Equal(t, tt.choices, spec.Choices)

			// Lossless re-encode of the exact wire form.
			out, err := json.Marshal(spec)
			require.NoError(t, err)
			assert.JSONEq(t, tt.wire, string(out))
		})
	}
}

func TestActionSpecConstructors(t *testing.T) {
	assert.True(t, FlagSpec(true).Enabled)
	assert.False(t, FlagSpec(false).Enabled)

	spec := ChoiceSpec("a", "b")
	assert.True(t, spec.Enabled)
	assert.Equal(t, []any{"a", "b"}, spec.Choices)
	assert.False(t, ChoiceSpec().Enabled)

	out, err := json.Marshal(FlagSpec(true))
	require.NoError(t, err)
	assert.Equal(t, "1", string(out))
}

func TestActionSpecString(t *testing.T) {
	assert.Equal(t, "enabled", FlagSpec(true).String())
	assert.Equal(t, "disabled", FlagSpec(false).String())
	assert.Equal(t, "choices [a b]", ChoiceSpec("a", "b").String())
}
