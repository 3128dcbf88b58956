package eventlog

import "github.com/earthwater/bridge-server-go/internal/protocol"

// Digest is the condensed per-exchange state summary written to the event
// log: who is to play, where the game stands, and force totals derived from
// the snapshot's per-city unit arrays.
type Digest struct {
	ActivePlayer  string
	Phase         string
	Campaign      int
	Score         int
	GreekArmies   int
	GreekFleets   int
	PersianArmies int
	PersianFleets int
	Actions       []string
}

// DigestSnapshot summarizes a snapshot. Unit arrays are laid out per city as
// [greek armies, persian armies, greek fleets, persian fleets]; the reserve
// pool is excluded from totals.
func DigestSnapshot(s *protocol.Snapshot) Digest {
	if s == nil {
		return Digest{}
	}

	d := Digest{
		ActivePlayer: s.ActivePlayer,
		Actions:      s.ActionNames(),
	}
	d.Phase, _ = s.ExtraString("game_state")
	d.Campaign, _ = s.ExtraInt("campaign")
	d.Score, _ = s.ExtraInt("vp")

	for city, counts := range s.Units() {
		if city == "reserve" {
			continue
		}
		if len(counts) >= 2 {
			d.GreekArmies += counts[0]
			d.PersianArmies += counts[1]
		}
		if len(counts) >= 4 {
			d.GreekFleets += counts[2]
			d.PersianFleets += counts[3]
		}
	}
	return d
}
