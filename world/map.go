package world

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/brentp/intintmap"
	"github.com/eaplatanios/jbw-go/field"
)

// Config is the subset of the simulator configuration (spec.md §6) that
// the procedural map needs to sample and store patches.
type Config struct {
	ItemTypes      []ItemType
	PatchSize      int32
	MCMCIterations int
	Seed           uint64
	Log            *slog.Logger
}

func (c Config) fieldConfig() field.Config {
	types := make([]field.ItemType, len(c.ItemTypes))
	for i, it := range c.ItemTypes {
		types[i] = field.ItemType{Name: it.Name, Intensity: it.Intensity, Interaction: it.Interaction}
	}
	return field.Config{ItemTypes: types}
}

// Map is the sparse, lazily-populated collection of patches covering the
// infinite lattice (C3). It exclusively owns every Patch it materializes.
type Map struct {
	mu sync.Mutex

	cfg     Config
	log     *slog.Logger
	sampler *field.Sampler

	index   *intintmap.Map // PatchCoord.pack() -> index into patches
	patches []*Patch

	pcg *rand.PCG
	rng *rand.Rand
}

// NewMap constructs an empty Map. No patches are materialized until a
// query demands them.
func NewMap(cfg Config) *Map {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	pcg := rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)
	return &Map{
		cfg:     cfg,
		log:     log,
		sampler: field.NewSampler(cfg.fieldConfig()),
		index:   intintmap.New(1024, 0.75),
		pcg:     pcg,
		rng:     rand.New(pcg),
	}
}

// RNGState returns the marshaled state of the map's internal Gibbs-sampling
// PRNG, for inclusion in a simulator snapshot (spec.md §6 "Snapshot file
// layout").
func (m *Map) RNGState() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pcg.MarshalBinary()
}

// RestoreRNGState replaces the map's PRNG state with previously marshaled
// state, so that a simulator reloaded from a snapshot continues sampling
// new patches exactly as the original run would have.
func (m *Map) RestoreRNGState(state []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pcg.UnmarshalBinary(state)
}

// AllPatches returns every materialized patch, in the stable order they
// were first created, for use by the snapshot writer.
func (m *Map) AllPatches() []*Patch {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Patch, len(m.patches))
	copy(out, m.patches)
	return out
}

// RestorePatch installs a patch loaded from a snapshot, recreating its
// index entry. It must only be called on a freshly constructed Map before
// any other query reaches it.
func (m *Map) RestorePatch(p *Patch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := int64(len(m.patches))
	m.patches = append(m.patches, p)
	m.index.Put(p.Coord.pack(), idx)
}

// PruneDeletedBefore permanently drops every materialized patch's items
// whose deletion time is older than cutoff, per spec.md §3 Lifecycles'
// deleted_item_lifetime.
func (m *Map) PruneDeletedBefore(cutoff int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.patches {
		p.pruneDeletedBefore(cutoff)
	}
}

// PatchAt returns the already-materialized patch at coord, if any.
func (m *Map) PatchAt(coord PatchCoord) (*Patch, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.patchAtLocked(coord)
}

func (m *Map) patchAtLocked(coord PatchCoord) (*Patch, bool) {
	idx, ok := m.index.Get(coord.pack())
	if !ok {
		return nil, false
	}
	return m.patches[idx], true
}

// ensurePatchLocked returns the patch at coord, materializing it (empty, or
// warm-started from a uniformly sampled existing patch) if it does not yet
// exist. The caller must hold m.mu.
func (m *Map) ensurePatchLocked(coord PatchCoord) *Patch {
	if p, ok := m.patchAtLocked(coord); ok {
		return p
	}
	p := newPatch(coord, m.cfg.PatchSize)
	if len(m.patches) > 0 {
		src := m.patches[m.rng.IntN(len(m.patches))]
		m.warmStart(p, src)
	}
	idx := int64(len(m.patches))
	m.patches = append(m.patches, p)
	m.index.Put(coord.pack(), idx)
	return p
}

// warmStart copies src's items into dst, translated by the offset between
// their patch origins, giving the sampler a warm start (spec.md §4.3).
func (m *Map) warmStart(dst, src *Patch) {
	srcMinX, srcMinY, _, _ := src.Bounds()
	dstMinX, dstMinY, _, _ := dst.Bounds()
	offX, offY := dstMinX-srcMinX, dstMinY-srcMinY
	for _, it := range src.items {
		loc := Position{X: it.Location.X + offX, Y: it.Location.Y + offY}
		if !dst.Contains(loc) {
			continue
		}
		dst.add(ItemInstance{Type: it.Type, Location: loc, CreationTime: 0})
	}
}

// coreQuadrant picks the 2x2 block of patch coordinates whose union covers
// a V+1 half-window around pos, per spec.md §4.3: the quadrant is chosen by
// which half of its own patch pos falls in along each axis.
func (m *Map) coreQuadrant(pos Position) [4]PatchCoord {
	n := int64(m.cfg.PatchSize)
	base := patchCoordOf(pos, m.cfg.PatchSize)
	localX := pos.X - int64(base.X)*n
	localY := pos.Y - int64(base.Y)*n
	dx := int32(-1)
	if localX >= n/2 {
		dx = 1
	}
	dy := int32(-1)
	if localY >= n/2 {
		dy = 1
	}
	return [4]PatchCoord{
		base,
		{X: base.X + dx, Y: base.Y},
		{X: base.X, Y: base.Y + dy},
		{X: base.X + dx, Y: base.Y + dy},
	}
}

// GetNeighborhood returns up to four patches covering a half-window around
// pos without creating or sampling anything (spec.md §4.3 query 1).
func (m *Map) GetNeighborhood(pos Position) []*Patch {
	m.mu.Lock()
	defer m.mu.Unlock()
	quad := m.coreQuadrant(pos)
	out := make([]*Patch, 0, 4)
	for _, c := range quad {
		if p, ok := m.patchAtLocked(c); ok {
			out = append(out, p)
		}
	}
	return out
}

// GetFixedNeighborhood returns the four core patches around pos, extending
// the sampled region and running Gibbs updates as needed so that every one
// of them is fixed on return (spec.md §4.3 query 2, the "fix neighborhood"
// protocol).
func (m *Map) GetFixedNeighborhood(pos Position) ([]*Patch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	core := m.coreQuadrant(pos)

	needsFix := false
	for _, c := range core {
		if p, ok := m.patchAtLocked(c); !ok || !p.fixed {
			needsFix = true
			break
		}
	}
	if !needsFix {
		out := make([]*Patch, 4)
		for i, c := range core {
			out[i], _ = m.patchAtLocked(c)
		}
		return out, nil
	}

	union := map[PatchCoord]struct{}{}
	for _, c := range core {
		if p, ok := m.patchAtLocked(c); ok && p.fixed {
			union[c] = struct{}{}
			continue
		}
		for ddx := int32(-1); ddx <= 1; ddx++ {
			for ddy := int32(-1); ddy <= 1; ddy++ {
				union[PatchCoord{X: c.X + ddx, Y: c.Y + ddy}] = struct{}{}
			}
		}
	}

	coords := make([]PatchCoord, 0, len(union))
	for c := range union {
		coords = append(coords, c)
	}
	sort.Slice(coords, func(i, j int) bool {
		if coords[i].X != coords[j].X {
			return coords[i].X < coords[j].X
		}
		return coords[i].Y < coords[j].Y
	})
	for _, c := range coords {
		m.ensurePatchLocked(c)
	}

	toSweep := coords[:0:0]
	for _, c := range coords {
		p, _ := m.patchAtLocked(c)
		if !p.fixed {
			toSweep = append(toSweep, c)
		}
	}
	if err := m.gibbsSweepLocked(toSweep); err != nil {
		return nil, err
	}

	out := make([]*Patch, 4)
	for i, c := range core {
		p := m.ensurePatchLocked(c)
		p.fixed = true
		out[i] = p
	}
	return out, nil
}

// gibbsSweepLocked runs cfg.MCMCIterations single-cell Gibbs sweeps over
// every cell of every patch named in coords, reading boundary context from
// any materialized neighboring patch (fixed or not). The caller must hold
// m.mu.
func (m *Map) gibbsSweepLocked(coords []PatchCoord) error {
	if len(coords) == 0 || len(m.cfg.ItemTypes) == 0 {
		return nil
	}
	n := m.cfg.PatchSize
	radius := m.sampler.Radii.MaxRadius()
	for sweep := 0; sweep < m.cfg.MCMCIterations; sweep++ {
		for _, c := range coords {
			p, ok := m.patchAtLocked(c)
			if !ok {
				return fmt.Errorf("world: gibbs sweep target patch %v not materialized", c)
			}
			minX, minY, _, _ := p.Bounds()
			for lx := int32(0); lx < n; lx++ {
				for ly := int32(0); ly < n; ly++ {
					pos := Position{X: minX + int64(lx), Y: minY + int64(ly)}
					neighbors := m.collectNeighborsLocked(pos, radius)
					chosen := m.sampler.SampleCell(m.rng, neighbors)
					m.applySampleLocked(p, pos, chosen)
				}
			}
		}
	}
	return nil
}

// collectNeighborsLocked gathers every live item within Chebyshev radius of
// pos, excluding pos itself, across however many patches that window
// spans. Patches that have not been materialized are treated as empty:
// correctness of the fixed result depends on the extension rule in
// GetFixedNeighborhood having already materialized every patch that could
// hold an influencing neighbor.
func (m *Map) collectNeighborsLocked(pos Position, radius int64) []field.Neighbor {
	if radius <= 0 {
		return nil
	}
	minCoord := patchCoordOf(pos.Add(-radius, -radius), m.cfg.PatchSize)
	maxCoord := patchCoordOf(pos.Add(radius, radius), m.cfg.PatchSize)
	var out []field.Neighbor
	for cx := minCoord.X; cx <= maxCoord.X; cx++ {
		for cy := minCoord.Y; cy <= maxCoord.Y; cy++ {
			p, ok := m.patchAtLocked(PatchCoord{X: cx, Y: cy})
			if !ok {
				continue
			}
			for _, it := range p.items {
				if it.Type < 0 || !it.LiveAt(0) {
					continue
				}
				dx, dy := it.Location.X-pos.X, it.Location.Y-pos.Y
				if abs64(dx) > radius || abs64(dy) > radius {
					continue
				}
				if dx == 0 && dy == 0 {
					continue
				}
				out = append(out, field.Neighbor{Type: it.Type, DX: dx, DY: dy})
			}
		}
	}
	return out
}

// applySampleLocked records the outcome of a single-cell Gibbs update.
// Cells are provisional until their patch is marked fixed, so a changed
// outcome simply replaces the prior tentative occupant rather than
// recording a deletion event.
func (m *Map) applySampleLocked(p *Patch, pos Position, chosen int) {
	idx, hasLive := p.liveIndexAt(pos, 0)
	if chosen == field.EmptyType {
		if hasLive {
			p.items = append(p.items[:idx], p.items[idx+1:]...)
		}
		return
	}
	if hasLive {
		if p.items[idx].Type == chosen {
			return
		}
		p.items = append(p.items[:idx], p.items[idx+1:]...)
	}
	p.add(ItemInstance{Type: chosen, Location: pos, CreationTime: 0})
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
