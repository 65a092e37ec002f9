package engine

import (
	"fmt"

	"github.com/talgya/stickersim/internal/agents"
	"github.com/talgya/stickersim/internal/config"
	"github.com/talgya/stickersim/internal/entropy"
	"github.com/talgya/stickersim/internal/markers"
)

// SnapshotVersion is bumped whenever Snapshot changes shape.
const SnapshotVersion = 1

// Snapshot is the full resumable state of a simulation. The locale is not
// stored; it is regenerated from the seed.
type Snapshot struct {
	Version      int
	Config       *config.Config
	Seed         uint64
	Day          int
	RNG          []byte
	Players      []*agents.Player
	Markers      []*markers.Marker
	History      []DailyStats
	Event        EventWindow
	Viral        ViralState
	Totals       Totals
	NextPlayerID agents.PlayerID
}

// Snapshot captures the simulation between days. The snapshot shares
// players and markers with the simulation; encode it before stepping again.
func (s *Simulation) Snapshot() (*Snapshot, error) {
	state, err := s.rng.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal rng: %w", err)
	}
	return &Snapshot{
		Version:      SnapshotVersion,
		Config:       s.Config,
		Seed:         s.Seed,
		Day:          s.Day,
		RNG:          state,
		Players:      s.Players,
		Markers:      s.Markers,
		History:      s.History,
		Event:        s.Event,
		Viral:        s.Viral,
		Totals:       s.Totals,
		NextPlayerID: s.Spawner.NextID(),
	}, nil
}

// Restore rebuilds a simulation from a snapshot. Stepping the restored
// simulation produces the same days the original would have.
func Restore(snap *Snapshot, opts Options) (*Simulation, error) {
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snap.Version, SnapshotVersion)
	}
	if snap.Config == nil {
		return nil, fmt.Errorf("snapshot has no config")
	}
	if err := snap.Config.Validate(); err != nil {
		return nil, fmt.Errorf("snapshot config: %w", err)
	}

	s := newSimulation(snap.Config, snap.Seed, opts)
	s.rng = entropy.NewStream(snap.Seed)
	if err := s.rng.UnmarshalBinary(snap.RNG); err != nil {
		return nil, fmt.Errorf("restore rng: %w", err)
	}
	s.Day = snap.Day
	s.History = snap.History
	s.Event = snap.Event
	s.Viral = snap.Viral
	s.Totals = snap.Totals
	s.Spawner.SetNextID(snap.NextPlayerID)

	for _, p := range snap.Players {
		if p.Ledger.LastScan == nil {
			p.Ledger.LastScan = make(map[uint64]int)
		}
		s.index(p)
	}
	for i, m := range snap.Markers {
		if m.ID != markers.MarkerID(i+1) {
			return nil, fmt.Errorf("snapshot marker %d out of order at index %d", m.ID, i)
		}
		s.Locale.AddMarker(uint64(m.ID), m.Location)
		s.Markers = append(s.Markers, m)
	}
	return s, nil
}
