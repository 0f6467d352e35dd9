package world

import "github.com/eaplatanios/jbw-go/field"

// ItemType is the static, immutable record for one kind of item in the
// world, as described in spec.md §3 "Item type".
type ItemType struct {
	Name string

	// Scent and Color are fixed-length real vectors, of dimension S and C
	// respectively (sim.Config.ScentDimension / ColorDimension).
	Scent []float64
	Color []float64

	// RequiredCounts and RequiredCosts gate automatic collection: an agent
	// may collect an item of this type only once its collected_items meets
	// RequiredCounts, and doing so subtracts RequiredCosts from it.
	RequiredCounts []int
	RequiredCosts  []int

	BlocksMovement bool

	// VisualOcclusion is the alpha this item type contributes when blended
	// into a cell's rendered color (§4.5).
	VisualOcclusion float64

	// AutomaticallyCollected marks item types that are removed and credited
	// to collected_items the instant an agent passes through their cell
	// (§4.6 tick step 4). Item types that gate on counts an agent can never
	// reach (e.g. walls) are effectively uncollectable regardless of this
	// flag, since the requirement check will never pass.
	AutomaticallyCollected bool

	Intensity   field.Intensity
	Interaction []field.Interaction // one per item type index, aligned with Config.ItemTypes
}

// ItemInstance is a single placed item, as described in spec.md §3 "Item
// instance". CreationTime == 0 means the item existed from t=0.
// DeletionTime == 0 means the item has never been deleted.
type ItemInstance struct {
	Type         int
	Location     Position
	CreationTime int64
	DeletionTime int64
}

// LiveAt reports whether the instance is present at time t: created at or
// before t, and either never deleted or deleted strictly after t.
func (it ItemInstance) LiveAt(t int64) bool {
	if it.CreationTime > t {
		return false
	}
	return it.DeletionTime == 0 || it.DeletionTime > t
}

// Deleted reports whether the instance has ever been deleted, regardless
// of time.
func (it ItemInstance) Deleted() bool {
	return it.DeletionTime != 0
}

// requirementsMet reports whether counts (an agent's collected_items) meet
// the item type's RequiredCounts gate.
func requirementsMet(t ItemType, counts []int) bool {
	for i, req := range t.RequiredCounts {
		if i >= len(counts) || counts[i] < req {
			return false
		}
	}
	return true
}

// RequirementsMet is the exported form of requirementsMet, used by the
// simulator when deciding whether an agent may collect an item.
func RequirementsMet(t ItemType, counts []int) bool {
	return requirementsMet(t, counts)
}
