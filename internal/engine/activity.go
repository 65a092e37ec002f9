package engine

import (
	"github.com/talgya/stickersim/internal/agents"
	"github.com/talgya/stickersim/internal/economy"
	"github.com/talgya/stickersim/internal/markers"
)

// scanPlan is one player's resolved scan targets for the day.
type scanPlan struct {
	player  *agents.Player
	targets []*markers.Marker
}

// decayMarkers lowers the value of every marker that went without a unique
// scan yesterday.
func (s *Simulation) decayMarkers(day int) {
	for _, m := range s.Markers {
		if m.NeedsDecay(day) {
			m.Decay(s.Config.StickerDecayRate, s.Config.StickerMinValue)
		}
	}
}

// planDay draws every active player's plan in ID order, performing
// placement and purchases immediately and choosing scan targets for the
// resolution phase.
func (s *Simulation) planDay(day int) []scanPlan {
	var plans []scanPlan
	for _, p := range s.Players {
		if !p.IsActive() {
			continue
		}
		prof := s.profiles.For(p.Type)
		plan := agents.DrawPlan(p, prof, day, s.Config, s.rng)
		if !plan.Active {
			p.MarkInactive()
			continue
		}
		p.Move(prof, s.Locale, s.Config.SocialHubRadius, s.rng)

		placed := false
		if plan.Place && len(s.Markers) < s.markerCap {
			s.place(p, day)
			placed = true
		}

		s.book(p, s.shop.Monetize(p, prof, s.rng))

		targets := s.pickTargets(p, plan.Scans, day)
		p.MarkActive(day, len(targets) > 0, placed, s.Config)
		if len(targets) > 0 {
			plans = append(plans, scanPlan{player: p, targets: targets})
		}
	}
	return plans
}

// place creates a marker from one of p's stickers.
func (s *Simulation) place(p *agents.Player, day int) {
	id := markers.MarkerID(len(s.Markers) + 1)
	m := markers.Place(s.Locale, id, p, day, s.Config, s.rng)
	s.Markers = append(s.Markers, m)
	s.today.placed++
}

// pickTargets chooses up to n distinct scannable markers within reach of
// the player's current location.
func (s *Simulation) pickTargets(p *agents.Player, n, day int) []*markers.Marker {
	if n <= 0 {
		return nil
	}
	near := s.Locale.Nearby(p.Current, s.Config.MaxScanDistance)
	candidates := make([]*markers.Marker, 0, len(near))
	for _, pl := range near {
		m := s.Marker(markers.MarkerID(pl.ID))
		if m == nil || m.OwnerID == p.ID || !p.Ledger.CanScan(pl.ID, day, s.Config.ScanCooldownHours) {
			continue
		}
		candidates = append(candidates, m)
	}
	n = min(n, len(candidates))
	for i := 0; i < n; i++ {
		j := i + s.rng.IntN(len(candidates)-i)
		candidates[i], candidates[j] = candidates[j], candidates[i]
	}
	return candidates[:n]
}

// resolveScans runs the planned scans round-robin, one scan per player per
// round, so early players do not take every full-rate scan of a marker.
func (s *Simulation) resolveScans(plans []scanPlan, day int) {
	for round := 0; ; round++ {
		pending := false
		for _, sp := range plans {
			if round >= len(sp.targets) {
				continue
			}
			pending = true
			m := sp.targets[round]
			owner := s.playerIndex[m.OwnerID]
			res := s.scorer.Resolve(markers.ScanEvent{
				Scanner:  sp.player,
				Owner:    owner,
				Marker:   m,
				Day:      day,
				Location: sp.player.Current,
			})
			s.recordScan(res, sp.player, owner)
		}
		if !pending {
			return
		}
	}
}

func (s *Simulation) recordScan(res markers.ScanResult, scanner, owner *agents.Player) {
	if res.Cooldown || res.SelfScan {
		return
	}
	s.today.scans++
	s.today.pointsDistributed += res.Credited()
	s.today.pointsDiscarded += res.Discarded
	if res.Sneeze {
		s.today.sneezes++
	}
	if res.ScannerLevelUps > 0 {
		s.reinvest(scanner)
	}
	if res.OwnerLevelUps > 0 && owner != nil {
		s.reinvest(owner)
	}
}

// reinvest lets profiles that reinvest on level up turn points into packs.
func (s *Simulation) reinvest(p *agents.Player) {
	prof := s.profiles.For(p.Type)
	if !prof.ReinvestOnLevelUp {
		return
	}
	if n := s.shop.Reinvest(p, prof.ReinvestFraction); n > 0 {
		s.book(p, economy.Receipt{Reinvested: n})
	}
}

// book adds a receipt to today's counters and the run totals.
func (s *Simulation) book(p *agents.Player, r economy.Receipt) {
	if r.Revenue == 0 && r.Packs() == 0 {
		return
	}
	s.today.receipt.Add(r)
	ts := &s.today.byType[p.Type]
	ts.Revenue += r.Revenue
	ts.Purchases += r.Packs()

	s.Totals.Revenue += r.Revenue
	s.Totals.PointPacks += r.PointPacks + r.Reinvested
	s.Totals.DollarPacks += r.DollarPacks
	s.Totals.PurchasesByType[p.Type] += r.Packs()
	s.Totals.RevenueByType[p.Type] += r.Revenue
}
