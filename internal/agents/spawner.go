package agents

import (
	"github.com/talgya/stickersim/internal/config"
	"github.com/talgya/stickersim/internal/entropy"
	"github.com/talgya/stickersim/internal/world"
)

// Spawner creates players and issues their IDs.
type Spawner struct {
	cfg    *config.Config
	locale *world.Locale
	nextID PlayerID
}

// NewSpawner creates a spawner whose first player gets ID 1.
func NewSpawner(cfg *config.Config, locale *world.Locale) *Spawner {
	return &Spawner{cfg: cfg, locale: locale, nextID: 1}
}

// NextID returns the ID the next spawned player will receive.
func (s *Spawner) NextID() PlayerID {
	return s.nextID
}

// SetNextID sets the next player ID to be issued (used when restoring).
func (s *Spawner) SetNextID(id PlayerID) {
	s.nextID = id
}

// Spawn creates a player of type t joining on day. Home and work are drawn
// from the foot-traffic field; the player starts at home with the
// new-player packs and starting points.
func (s *Spawner) Spawn(t PlayerType, day int, rng *entropy.Stream) *Player {
	p := NewPlayer(s.nextID, t, day)
	s.nextID++

	p.Home = s.locale.SampleTrafficPoint(rng)
	p.Work = s.locale.SampleTrafficPoint(rng)
	p.Current = p.Home
	p.Inventory = s.cfg.NewPlayerFreePacks * s.cfg.StickersPerPack
	p.Points = s.cfg.StartingPoints
	return p
}

// SpawnRandom creates a player whose type is drawn from ratios.
func (s *Spawner) SpawnRandom(ratios config.TypeRatios, day int, rng *entropy.Stream) *Player {
	idx := rng.WeightedIndex(TypeWeights(ratios))
	if idx < 0 {
		idx = int(Casual)
	}
	return s.Spawn(PlayerType(idx), day, rng)
}

// SpawnPopulation creates count players typed by ratios.
func (s *Spawner) SpawnPopulation(count int, ratios config.TypeRatios, day int, rng *entropy.Stream) []*Player {
	players := make([]*Player, 0, count)
	for i := 0; i < count; i++ {
		players = append(players, s.SpawnRandom(ratios, day, rng))
	}
	return players
}
