package markers

import (
	"github.com/talgya/stickersim/internal/agents"
	"github.com/talgya/stickersim/internal/config"
	"github.com/talgya/stickersim/internal/entropy"
	"github.com/talgya/stickersim/internal/world"
)

// placementJitter is how far from the player a sticker lands, in meters.
const placementJitter = 25

// PickVenue draws a venue category using the configured weights.
func PickVenue(cfg *config.Config, rng *entropy.Stream) string {
	idx := rng.WeightedIndex(cfg.VenueTypeWeights)
	if idx < 0 || idx >= len(cfg.VenueTypes) {
		return ""
	}
	return cfg.VenueTypes[idx]
}

// Place puts one of owner's stickers into the locale near the owner's
// current location and indexes it spatially.
func Place(locale *world.Locale, id MarkerID, owner *agents.Player, day int, cfg *config.Config, rng *entropy.Stream) *Marker {
	at := locale.Scatter(owner.Current, placementJitter, rng)
	cell := locale.AddMarker(uint64(id), at)
	m := NewMarker(id, owner.ID, at, cell, PickVenue(cfg, rng), day)
	m.InHub = locale.InHub(at, cfg.SocialHubRadius)

	owner.Inventory--
	owner.MarkersPlaced++
	owner.LastPlacementDay = day
	return m
}
