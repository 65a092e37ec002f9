// Package entropy supplies the random streams that drive a simulation.
// Every run owns one Stream seeded from its run seed; nothing in the engine
// draws from a shared generator.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand/v2"
)

// streamIncrement decorrelates the PCG increment from the seed.
const streamIncrement = 0x9e3779b97f4a7c15

// Stream is a deterministic random source whose state can be captured and
// restored, so a resumed run continues the exact same sequence.
type Stream struct {
	*mrand.Rand
	src *mrand.PCG
}

// NewStream creates a stream for seed.
func NewStream(seed uint64) *Stream {
	src := mrand.NewPCG(seed, seed^streamIncrement)
	return &Stream{Rand: mrand.New(src), src: src}
}

// MarshalBinary captures the generator state.
func (s *Stream) MarshalBinary() ([]byte, error) {
	return s.src.MarshalBinary()
}

// UnmarshalBinary restores state captured by MarshalBinary.
func (s *Stream) UnmarshalBinary(data []byte) error {
	return s.src.UnmarshalBinary(data)
}

// Bernoulli returns true with probability p.
func (s *Stream) Bernoulli(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return s.Float64() < p
}

// Uniform returns a float64 in [lo, hi).
func (s *Stream) Uniform(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + s.Float64()*(hi-lo)
}

// IntBetween returns an int in [lo, hi], inclusive.
func (s *Stream) IntBetween(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.IntN(hi-lo+1)
}

// Binomial draws the number of successes in n independent trials.
func (s *Stream) Binomial(n int, p float64) int {
	if n <= 0 || p <= 0 {
		return 0
	}
	if p >= 1 {
		return n
	}
	k := 0
	for i := 0; i < n; i++ {
		if s.Float64() < p {
			k++
		}
	}
	return k
}

// WeightedIndex picks an index with probability proportional to its weight.
// Returns -1 when every weight is zero.
func (s *Stream) WeightedIndex(weights []float64) int {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return -1
	}
	r := s.Float64() * total
	last := -1
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		last = i
		r -= w
		if r < 0 {
			return i
		}
	}
	return last
}

// DeriveSeeds draws n distinct, non-zero seeds from master. The same master
// always yields the same seeds.
func DeriveSeeds(master uint64, n int) []uint64 {
	s := NewStream(master)
	seen := make(map[uint64]bool, n)
	seeds := make([]uint64, 0, n)
	for len(seeds) < n {
		v := s.Uint64()
		if v == 0 || seen[v] {
			continue
		}
		seen[v] = true
		seeds = append(seeds, v)
	}
	return seeds
}

// MasterSeed returns a fresh non-zero seed from crypto/rand, for runs where
// the caller did not pin one.
func MasterSeed() uint64 {
	var buf [8]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			// crypto/rand does not fail on supported platforms.
			return 0x5eed
		}
		if v := binary.LittleEndian.Uint64(buf[:]); v != 0 {
			return v
		}
	}
}
