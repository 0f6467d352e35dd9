package world

import "testing"

func TestScentDecaysBelowToleranceAfterLifetime(t *testing.T) {
	m := NewMap(bananaMapConfig())
	// Force the origin patch to exist so the item can be placed.
	if _, err := m.GetFixedNeighborhood(Position{0, 0}); err != nil {
		t.Fatal(err)
	}
	p, ok := m.PatchAt(patchCoordOf(Position{0, 0}, m.cfg.PatchSize))
	if !ok {
		t.Fatal("origin patch missing")
	}
	// Inject a single collected item directly, deleted at time 1.
	p.items = append(p.items, ItemInstance{Type: 0, Location: Position{0, 0}, CreationTime: 0, DeletionTime: 1})

	dc := DiffusionConfig{ScentDimension: 3, Decay: 0.4, Diffusion: 0.14, DeletedItemLifetime: 1000, Tolerance: 1e-4}
	h := dc.horizon()

	late := m.ScentAt(Position{0, 0}, h+10, dc)
	for i, v := range late {
		if v > 1e-3 {
			t.Fatalf("scent component %d did not decay: %v", i, v)
		}
	}
}

func TestScentRoundTripSameCellTwiceWithoutChangesIsIdentical(t *testing.T) {
	m := NewMap(bananaMapConfig())
	if _, err := m.GetFixedNeighborhood(Position{0, 0}); err != nil {
		t.Fatal(err)
	}
	dc := DiffusionConfig{ScentDimension: 3, Decay: 0.4, Diffusion: 0.14, DeletedItemLifetime: 1000}
	a := m.ScentAt(Position{1, 1}, 5, dc)
	b := m.ScentAt(Position{1, 1}, 5, dc)
	if len(a) != len(b) {
		t.Fatalf("length mismatch")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("scent not repeatable at %d: %v != %v", i, a[i], b[i])
		}
	}
}
