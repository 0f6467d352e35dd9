package field

// ItemType is the subset of an item type's static record that the energy
// functions and sampler need: its log-intensity and its per-partner
// log-interaction. The scent/color/collection metadata described in
// spec.md §3 lives alongside this in world.ItemType; field only needs the
// energy parameters, keeping this package independent of world.
type ItemType struct {
	Name        string
	Intensity   Intensity
	Interaction []Interaction // Interaction[j] is g(this, j, Delta)
}

// Config is the full energy specification for a simulation: one ItemType
// per index, in the same order agents report collected_items.
type Config struct {
	ItemTypes []ItemType
}

// RadiusCache precomputes, for each ordered pair of item types, the
// effective interaction radius, and the overall maximum radius across all
// pairs. This lets the sampler enumerate only nearby candidate neighbors
// (C2 "Cache") and lets the map classify cells as interior/boundary
// relative to that radius.
type RadiusCache struct {
	radius [][]int64
	max    int64
}

// BuildRadiusCache computes the radius cache for cfg.
func BuildRadiusCache(cfg Config) *RadiusCache {
	n := len(cfg.ItemTypes)
	rc := &RadiusCache{radius: make([][]int64, n)}
	for i := range cfg.ItemTypes {
		rc.radius[i] = make([]int64, n)
		for j := range cfg.ItemTypes {
			r := cfg.ItemTypes[i].Interaction[j].Radius()
			if rj := cfg.ItemTypes[j].Interaction[i].Radius(); rj > r {
				r = rj
			}
			rc.radius[i][j] = r
			if r > rc.max {
				rc.max = r
			}
		}
	}
	return rc
}

// Radius returns the effective interaction radius between item types i and j.
func (rc *RadiusCache) Radius(i, j int) int64 {
	if rc == nil || i < 0 || j < 0 || i >= len(rc.radius) || j >= len(rc.radius[i]) {
		return 0
	}
	return rc.radius[i][j]
}

// MaxRadius returns the largest interaction radius over all type pairs.
// A cell more than MaxRadius away from every patch boundary is "interior"
// relative to that patch: its Gibbs conditional cannot be influenced by
// items outside the patch.
func (rc *RadiusCache) MaxRadius() int64 {
	if rc == nil {
		return 0
	}
	return rc.max
}
