package eventlog

import (
	"bufio"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/earthwater/bridge-server-go/internal/protocol"
	"github.com/earthwater/bridge-server-go/internal/session"
)

func snapshotFromJSON(t *testing.T, data string) *protocol.Snapshot {
	t.Helper()
	var s protocol.Snapshot
	require.NoError(t, json.Unmarshal([]byte(data), &s))
	return &s
}

func TestDigestSnapshot(t *testing.T) {
	s := snapshotFromJSON(t, `{
		"active_player": "Persia",
		"game_state": "movement",
		"campaign": 3,
		"vp": -2,
		"actions": {"next": 1, "city": ["Abydos"]},
		"units": {
			"Athenai": [2, 0, 1, 0],
			"Sparta":  [1, 1, 0, 0],
			"Abydos":  [0, 3, 0, 2],
			"Ephesos": [0, 2],
			"reserve": [9, 9, 9, 9]
		}
	}`)

	d := DigestSnapshot(s)
	assert.Equal(t, "Persia", d.ActivePlayer)
	assert.Equal(t, "movement", d.Phase)
	assert.Equal(t, 3, d.Campaign)
	assert.Equal(t, -2, d.Score)
	assert.Equal(t, []string{"city", "next"}, d.Actions)

	// Reserve excluded; short arrays contribute armies only.
	assert.Equal(t, 3, d.GreekArmies)
	assert.Equal(t, 6, d.PersianArmies)
	assert.Equal(t, 1, d.GreekFleets)
	assert.Equal(t, 2, d.PersianFleets)
}

func TestDigestSnapshotEmpty(t *testing.T) {
	assert.Equal(t, Digest{}, DigestSnapshot(nil))

	d := DigestSnapshot(&protocol.Snapshot{ActivePlayer: "Greece"})
	assert.Equal(t, "Greece", d.ActivePlayer)
	assert.Zero(t, d.GreekArmies)
	assert.Nil(t, d.Actions)
}

func TestLogWritesExchangeRecords(t *testing.T) {
	dir := t.TempDir()
	log, err := New(dir)
	require.NoError(t, err)

	assert.FileExists(t, log.Path())

	log.ObserveExchange(session.Exchange{
		SessionID: "s-1",
		Verb:      protocol.CmdSetup,
		Success:   true,
		Snapshot:  snapshotFromJSON(t, `{"active_player":"Greece","campaign":1}`),
	})
	log.ObserveExchange(session.Exchange{
		SessionID: "s-1",
		Verb:      protocol.CmdAction,
		Player:    "Greece",
		Action:    "city",
		Arg:       "Athenai",
		Success:   true,
		TurnIndex: 1,
		Snapshot:  snapshotFromJSON(t, `{"active_player":"Persia","game_over":true,"winner":"Greece"}`),
	})
	log.ObserveExchange(session.Exchange{
		SessionID: "s-1",
		Verb:      protocol.CmdAction,
		Player:    "Persia",
		Action:    "fly",
		Success:   false,
		ErrorText: "unknown action: fly",
		TurnIndex: 1,
	})
	require.NoError(t, log.Close())

	file, err := os.Open(log.Path())
	require.NoError(t, err)
	defer file.Close()

	var entries []map[string]any
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		entries = append(entries, entry)
	}
	require.NoError(t, scanner.Err())
	require.Len(t, entries, 3)

	setup := entries[0]
	assert.Equal(t, "exchange", setup["msg"])
	assert.Equal(t, "s-1", setup["session_id"])
	assert.Equal(t, "setup", setup["verb"])
	assert.Equal(t, true, setup["success"])
	assert.Equal(t, float64(1), setup["campaign"])

	action := entries[1]
	assert.Equal(t, "action", action["verb"])
	assert.Equal(t, "Greece", action["player"])
	assert.Equal(t, "city", action["action"])
	assert.Equal(t, "Athenai", action["arg"])
	assert.Equal(t, float64(1), action["turn"])
	assert.Equal(t, true, action["game_over"])
	assert.Equal(t, "Greece", action["winner"])

	failed := entries[2]
	assert.Equal(t, "exchange failed", failed["msg"])
	assert.Equal(t, "warn", failed["level"])
	assert.Equal(t, "unknown action: fly", failed["error"])
}

func TestLogFilesAreDistinctPerSession(t *testing.T) {
	dir := t.TempDir()

	first, err := New(dir)
	require.NoError(t, err)
	defer first.Close()

	// Same-second creation still yields a usable log; paths may collide only
	// within the same timestamp, which append mode tolerates.
	assert.Contains(t, first.Path(), "game_")
	assert.Contains(t, first.Path(), ".log")
}
