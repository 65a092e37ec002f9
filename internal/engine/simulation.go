// Package engine runs one economy simulation: a day-by-day loop over the
// player population, the marker field and the growth processes.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/talgya/stickersim/internal/agents"
	"github.com/talgya/stickersim/internal/config"
	"github.com/talgya/stickersim/internal/economy"
	"github.com/talgya/stickersim/internal/entropy"
	"github.com/talgya/stickersim/internal/logging"
	"github.com/talgya/stickersim/internal/markers"
	"github.com/talgya/stickersim/internal/world"
)

// localeSeedSalt separates the locale noise seed from the run stream.
const localeSeedSalt = 0x5deece66d

// Options adjusts how a simulation reports progress.
type Options struct {
	Logger *slog.Logger     // defaults to slog.Default()
	OnDay  func(DailyStats) // called after every completed day
}

// Simulation holds the complete state of one run.
type Simulation struct {
	Config *config.Config
	Seed   uint64
	Day    int // last completed day; 0 before the first Step

	Players []*agents.Player  // ID order
	Markers []*markers.Marker // ID order, marker ID = index + 1
	History []DailyStats

	Event  EventWindow
	Viral  ViralState
	Totals Totals

	Locale  *world.Locale
	Spawner *agents.Spawner

	rng         *entropy.Stream
	profiles    agents.Profiles
	scorer      *markers.Scorer
	shop        *economy.Shop
	playerIndex map[agents.PlayerID]*agents.Player
	markerCap   int
	today       dayCounters
	log         *slog.Logger
	onDay       func(DailyStats)
}

// New validates cfg and creates a simulation with the starting population.
// The simulation keeps its own copy of cfg.
func New(cfg *config.Config, seed uint64, opts Options) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := newSimulation(cfg.Clone(), seed, opts)
	s.rng = entropy.NewStream(seed)

	for _, p := range s.Spawner.SpawnPopulation(s.Config.StartingPlayerCount, s.Config.StartingTypeRatios, 0, s.rng) {
		s.index(p)
	}

	s.log.Debug("simulation created",
		"seed", seed,
		"players", len(s.Players),
		"locale", s.Locale.String(),
		"marker_capacity", s.markerCap,
		"population_cap", s.Config.PopulationCap(),
	)
	return s, nil
}

// newSimulation wires the derived components shared by New and Restore.
func newSimulation(cfg *config.Config, seed uint64, opts Options) *Simulation {
	gen := world.DefaultGenConfig()
	gen.SizeMeters = cfg.LocaleSizeMeters
	gen.CellMeters = cfg.LocaleCellMeters
	gen.HubCount = cfg.SocialHubCount
	gen.Seed = int64(seed ^ localeSeedSalt)
	locale := world.GenerateLocale(gen)

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Simulation{
		Config:      cfg,
		Seed:        seed,
		Event:       EventWindow{Start: agents.NoWindow, End: agents.NoWindow},
		Viral:       ViralState{LastEventDay: agents.NoWindow},
		Locale:      locale,
		Spawner:     agents.NewSpawner(cfg, locale),
		profiles:    agents.NewProfiles(cfg),
		scorer:      markers.NewScorer(cfg),
		shop:        economy.NewShop(cfg),
		playerIndex: make(map[agents.PlayerID]*agents.Player),
		markerCap:   cfg.MarkerCapacity(),
		log:         logger,
		onDay:       opts.OnDay,
	}
}

// index appends a player and registers it for lookup.
func (s *Simulation) index(p *agents.Player) {
	s.Players = append(s.Players, p)
	s.playerIndex[p.ID] = p
}

// Player returns the player with id, or nil.
func (s *Simulation) Player(id agents.PlayerID) *agents.Player {
	return s.playerIndex[id]
}

// Marker returns the marker with id, or nil.
func (s *Simulation) Marker(id markers.MarkerID) *markers.Marker {
	if id == 0 || int(id) > len(s.Markers) {
		return nil
	}
	return s.Markers[id-1]
}

// ActiveCount returns the number of players who have not churned.
func (s *Simulation) ActiveCount() int {
	n := 0
	for _, p := range s.Players {
		if p.IsActive() {
			n++
		}
	}
	return n
}

// Step advances the simulation by one day. The phases run in a fixed order
// so that identical state and stream always produce the identical day.
func (s *Simulation) Step() (DailyStats, error) {
	s.Day++
	day := s.Day
	s.today = dayCounters{eventActive: s.Event.Covers(day)}
	if s.today.eventActive {
		s.scorer.SetEventMultiplier(s.Config.EventBonusMultiplier)
	} else {
		s.scorer.SetEventMultiplier(1)
	}

	s.decayMarkers(day)
	plans := s.planDay(day)
	s.resolveScans(plans, day)
	if err := s.rollChurn(day); err != nil {
		return DailyStats{}, err
	}
	s.grow(day)
	s.updateEvents(day)

	stats := s.collectStats(day)
	if err := s.checkInvariants(day); err != nil {
		return stats, err
	}
	s.History = append(s.History, stats)

	s.log.Log(context.Background(), logging.LevelTrace, "day complete",
		"day", day,
		"active", stats.ActivePlayers,
		"new", stats.NewPlayers,
		"churned", stats.ChurnedPlayers,
		"scans", stats.Scans,
		"revenue", fmt.Sprintf("%.2f", stats.Revenue),
	)
	if s.onDay != nil {
		s.onDay(stats)
	}
	return stats, nil
}

// RunTo steps until lastDay has completed, or forever when lastDay is 0.
// The context is checked between days only; a cancelled context returns
// its error with every completed day kept in History.
func (s *Simulation) RunTo(ctx context.Context, lastDay int) error {
	for lastDay == 0 || s.Day < lastDay {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.Step(); err != nil {
			return err
		}
	}
	return nil
}
