package world

import "math"

// DiffusionConfig parameterizes the scent diffusion equation of spec.md
// §4.4: S(x,y,t+1) = decay*S(x,y,t) + C(x,y,t+1) + diffusion*(sum of the
// four axis neighbors of S(.,.,t)).
type DiffusionConfig struct {
	ScentDimension      int
	Decay               float64
	Diffusion           float64
	DeletedItemLifetime int64
	// Tolerance is the representation tolerance below which a decayed
	// contribution is considered negligible. Defaults to 1e-4 if zero.
	Tolerance float64
}

// horizon returns how many ticks back a query must integrate before the
// contribution of a single impulse has decayed below Tolerance, capped at
// DeletedItemLifetime (spec.md §4.4: "the deleted-item retention window
// bounds how long deleted items are kept; beyond it their contribution
// must have decayed below representation tolerance" — the two are meant
// to agree, so the smaller of the two bounds wins).
func (dc DiffusionConfig) horizon() int64 {
	tol := dc.Tolerance
	if tol <= 0 {
		tol = 1e-4
	}
	factor := dc.Decay + 4*dc.Diffusion
	var h int64 = 1
	switch {
	case factor <= 0:
		h = 1
	case factor >= 1:
		h = dc.DeletedItemLifetime
		if h <= 0 {
			h = 1
		}
	default:
		h = int64(math.Ceil(math.Log(tol) / math.Log(factor)))
		if h < 1 {
			h = 1
		}
	}
	if dc.DeletedItemLifetime > 0 && h > dc.DeletedItemLifetime {
		h = dc.DeletedItemLifetime
	}
	return h
}

// ScentWindow returns the scent vector at every cell within Chebyshev
// radius of center at time t, as if the diffusion equation had been
// integrated from time 0 using the full known item creation/deletion
// history (spec.md §4.4 contract). Correctness under late deletions falls
// out of recomputing C(x,y,tau) fresh at every simulated tau rather than
// caching it, so an item collected after this call was last made but
// before time t is reflected exactly.
//
// Callers are expected to have already forced every patch that could
// influence the window to be fixed (spec.md §4.6 step 6 calls
// get_fixed_neighborhood before rendering); ScentWindow treats any
// unmaterialized patch in its window as empty.
func (m *Map) ScentWindow(center Position, radius int64, t int64, dc DiffusionConfig) map[Position][]float64 {
	h := dc.horizon()
	t0 := t - h
	if t0 < 0 {
		h = t
		t0 = 0
	}
	if h < 0 {
		h = 0
	}
	winR := radius + h
	side := int(2*winR + 1)

	cur := make([][]float64, side*side)
	for i := range cur {
		cur[i] = make([]float64, dc.ScentDimension)
	}
	idx := func(dx, dy int64) int {
		return int(dx+winR)*side + int(dy+winR)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	creationAt := func(pos Position, tau int64) []float64 {
		p, ok := m.patchAtLocked(patchCoordOf(pos, m.cfg.PatchSize))
		if !ok {
			return nil
		}
		var out []float64
		for _, it := range p.items {
			if it.Location != pos || !it.LiveAt(tau) {
				continue
			}
			sc := m.cfg.ItemTypes[it.Type].Scent
			if out == nil {
				out = make([]float64, dc.ScentDimension)
			}
			for i := 0; i < dc.ScentDimension && i < len(sc); i++ {
				out[i] += sc[i]
			}
		}
		return out
	}

	for step := int64(1); step <= h; step++ {
		tau := t0 + step
		next := make([][]float64, side*side)
		for i := range next {
			next[i] = make([]float64, dc.ScentDimension)
		}
		// A cell within winR-step of center depends only on cells within
		// winR-step+1 at the previous step, so the valid region shrinks by
		// one cell per step and ends at radius.
		validR := winR - step
		for dx := -validR; dx <= validR; dx++ {
			for dy := -validR; dy <= validR; dy++ {
				self := cur[idx(dx, dy)]
				var xMinus, xPlus, yMinus, yPlus []float64
				if dx-1 >= -winR {
					xMinus = cur[idx(dx-1, dy)]
				}
				if dx+1 <= winR {
					xPlus = cur[idx(dx+1, dy)]
				}
				if dy-1 >= -winR {
					yMinus = cur[idx(dx, dy-1)]
				}
				if dy+1 <= winR {
					yPlus = cur[idx(dx, dy+1)]
				}
				c := creationAt(center.Add(dx, dy), tau)
				out := next[idx(dx, dy)]
				for i := 0; i < dc.ScentDimension; i++ {
					v := dc.Decay*self[i] + comp(c, i)
					v += dc.Diffusion * (comp(xMinus, i) + comp(xPlus, i) + comp(yMinus, i) + comp(yPlus, i))
					out[i] = v
				}
			}
		}
		cur = next
	}

	result := make(map[Position][]float64, (2*radius+1)*(2*radius+1))
	for dx := -radius; dx <= radius; dx++ {
		for dy := -radius; dy <= radius; dy++ {
			v := make([]float64, dc.ScentDimension)
			copy(v, cur[idx(dx, dy)])
			result[center.Add(dx, dy)] = v
		}
	}
	return result
}

// ScentAt returns the scent vector at a single cell and time.
func (m *Map) ScentAt(pos Position, t int64, dc DiffusionConfig) []float64 {
	w := m.ScentWindow(pos, 0, t, dc)
	return w[pos]
}

func comp(v []float64, i int) float64 {
	if v == nil || i >= len(v) {
		return 0
	}
	return v[i]
}
