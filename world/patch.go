package world

import "sort"

// Patch is an n x n block of cells, the unit of map storage (GLOSSARY).
// A Patch exclusively owns its item instances; the Map exclusively owns
// the set of Patches.
type Patch struct {
	Coord PatchCoord
	Size  int32

	// items is the ordered sequence of item instances ever placed in this
	// patch, live and historical (retained until DeletedItemLifetime has
	// elapsed past deletion, per spec.md §3 Lifecycles). Ordering is
	// insertion order, which is also the stable "render order" §4.5 falls
	// back to.
	items []ItemInstance

	fixed bool
}

func newPatch(coord PatchCoord, size int32) *Patch {
	return &Patch{Coord: coord, Size: size}
}

// NewPatch reconstructs a patch from its persisted state (snapshot load).
// Items are installed via add, so a corrupt snapshot naming an out-of-bounds
// item location panics rather than silently accepting bad state.
func NewPatch(coord PatchCoord, size int32, fixed bool, items []ItemInstance) *Patch {
	p := newPatch(coord, size)
	p.fixed = fixed
	for _, it := range items {
		p.add(it)
	}
	return p
}

// Bounds returns the inclusive world-coordinate bounds of the patch.
func (p *Patch) Bounds() (minX, minY, maxX, maxY int64) {
	minX = int64(p.Coord.X) * int64(p.Size)
	minY = int64(p.Coord.Y) * int64(p.Size)
	return minX, minY, minX + int64(p.Size) - 1, minY + int64(p.Size) - 1
}

// Contains reports whether pos falls inside the patch's world bounds.
func (p *Patch) Contains(pos Position) bool {
	minX, minY, maxX, maxY := p.Bounds()
	return pos.X >= minX && pos.X <= maxX && pos.Y >= minY && pos.Y <= maxY
}

// Fixed reports whether the patch has been sealed by get_fixed_neighborhood.
func (p *Patch) Fixed() bool {
	return p.fixed
}

// Items returns every item instance ever recorded in the patch, live and
// historical. Callers that need only live items should filter with
// ItemInstance.LiveAt.
func (p *Patch) Items() []ItemInstance {
	out := make([]ItemInstance, len(p.items))
	copy(out, p.items)
	return out
}

// LiveItemsAt returns the items live at time t, sorted by cell for stable
// iteration.
func (p *Patch) LiveItemsAt(t int64) []ItemInstance {
	out := make([]ItemInstance, 0, len(p.items))
	for _, it := range p.items {
		if it.LiveAt(t) {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Location.Less(out[j].Location) })
	return out
}

// add appends a new item instance. It panics if the location falls outside
// the patch's bounds: that would violate invariant (i) of spec.md §3 and
// indicates a caller bug (the map is responsible for routing to the right
// patch), not a condition the patch itself should recover from.
func (p *Patch) add(it ItemInstance) {
	if !p.Contains(it.Location) {
		panic("world: item location outside patch bounds")
	}
	p.items = append(p.items, it)
}

// liveIndexAt reports whether location has a live item at time t, and if so
// returns its index into p.items.
func (p *Patch) liveIndexAt(location Position, t int64) (int, bool) {
	for i := len(p.items) - 1; i >= 0; i-- {
		it := p.items[i]
		if it.Location == location && it.LiveAt(t) {
			return i, true
		}
	}
	return -1, false
}

// FindLiveIndexAt is the exported form of liveIndexAt.
func (p *Patch) FindLiveIndexAt(location Position, t int64) (int, bool) {
	return p.liveIndexAt(location, t)
}

// DeleteAt is the exported form of markDeleted.
func (p *Patch) DeleteAt(idx int, deletionTime int64) {
	p.markDeleted(idx, deletionTime)
}

// markDeleted sets the deletion time of the item at idx. Creation/deletion
// events per cell must remain monotone in time (invariant ii): callers are
// expected to pass a deletionTime >= the item's CreationTime, and markDeleted
// does not re-open an already-deleted item.
func (p *Patch) markDeleted(idx int, deletionTime int64) {
	if p.items[idx].DeletionTime == 0 {
		p.items[idx].DeletionTime = deletionTime
	}
}

// pruneDeletedBefore drops items whose deletion time is old enough that
// deleted_item_lifetime has elapsed; scent diffusion no longer needs their
// history once their contribution has decayed past representation
// tolerance (spec.md §4.4). Every deleted item whose DeletionTime is before
// cutoff is dropped, whatever its CreationTime; items never deleted are
// kept.
func (p *Patch) pruneDeletedBefore(cutoff int64) {
	if len(p.items) == 0 {
		return
	}
	kept := p.items[:0]
	for _, it := range p.items {
		if it.Deleted() && it.DeletionTime < cutoff {
			continue
		}
		kept = append(kept, it)
	}
	p.items = kept
}
