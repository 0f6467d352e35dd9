package field

import (
	"math"
	"math/rand/v2"
)

// Neighbor is a single live item near the cell being resampled, expressed
// as an offset from that cell.
type Neighbor struct {
	Type   int
	DX, DY int64
}

// EmptyType is the pseudo item-type index representing "no item" in the
// K+1-option enumeration described in spec.md §4.2.
const EmptyType = -1

// Sampler performs single-cell Gibbs updates against a fixed Config and
// RadiusCache. It holds no mutable state: all randomness is threaded
// through the caller-supplied *rand.Rand, which is what makes a sequence
// of updates deterministic for a given seed (spec.md §4.2 Determinism).
type Sampler struct {
	Config Config
	Radii  *RadiusCache
}

// NewSampler builds a Sampler for cfg, computing its radius cache.
func NewSampler(cfg Config) *Sampler {
	return &Sampler{Config: cfg, Radii: BuildRadiusCache(cfg)}
}

// SampleCell enumerates the K+1 options {empty, type 0, ..., type K-1} at a
// cell given its live neighbors, computes each option's log-density
// contribution (intensity plus interaction with every neighbor inside that
// option's cached interaction radius), normalizes by log-sum-exp, and
// draws one option categorically from rng. It returns EmptyType or a valid
// item type index.
func (s *Sampler) SampleCell(rng *rand.Rand, neighbors []Neighbor) int {
	k := len(s.Config.ItemTypes)
	logWeights := make([]float64, k+1) // index 0 = empty, index t+1 = type t
	logWeights[0] = 0
	for t := 0; t < k; t++ {
		logWeights[t+1] = s.logDensity(t, neighbors)
	}
	probs := softmax(logWeights)
	idx := categorical(rng, probs)
	if idx == 0 {
		return EmptyType
	}
	return idx - 1
}

// logDensity computes the unnormalized log-density contribution of placing
// an item of type candidate at the cell, given its neighbors.
func (s *Sampler) logDensity(candidate int, neighbors []Neighbor) float64 {
	total := s.Config.ItemTypes[candidate].Intensity.Eval()
	for _, nb := range neighbors {
		if nb.Type < 0 || nb.Type >= len(s.Config.ItemTypes) {
			continue
		}
		r := s.Radii.Radius(candidate, nb.Type)
		if chebyshev(nb.DX, nb.DY) > float64(r) {
			continue
		}
		gij := s.Config.ItemTypes[candidate].Interaction[nb.Type]
		gji := s.Config.ItemTypes[nb.Type].Interaction[candidate]
		total += PairEnergy(gij, gji, nb.DX, nb.DY)
	}
	return total
}

// softmax normalizes log-weights into a probability distribution using the
// standard log-sum-exp shift for numerical stability.
func softmax(logWeights []float64) []float64 {
	max := logWeights[0]
	for _, w := range logWeights[1:] {
		if w > max {
			max = w
		}
	}
	sum := 0.0
	probs := make([]float64, len(logWeights))
	for i, w := range logWeights {
		e := math.Exp(w - max)
		probs[i] = e
		sum += e
	}
	if sum > 0 {
		for i := range probs {
			probs[i] /= sum
		}
	}
	return probs
}

// categorical draws an index in [0, len(probs)) with the given
// probabilities, consuming exactly one float64 from rng.
func categorical(rng *rand.Rand, probs []float64) int {
	u := rng.Float64()
	cum := 0.0
	for i, p := range probs {
		cum += p
		if u < cum {
			return i
		}
	}
	return len(probs) - 1
}
