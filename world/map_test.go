package world

import (
	"testing"

	"github.com/eaplatanios/jbw-go/field"
)

func bananaMapConfig() Config {
	return Config{
		PatchSize:      32,
		MCMCIterations: 1,
		Seed:           0,
		ItemTypes: []ItemType{
			{
				Name:  "banana",
				Scent: []float64{0, 1, 0},
				Color: []float64{0, 1, 0},
				Intensity: field.Intensity{
					Kind: field.IntensityConstant, Theta: []float64{-5.3},
				},
				Interaction: []field.Interaction{
					{Kind: field.InteractionPiecewiseBox, Params: []float64{10, 200, 0, -6}},
				},
			},
		},
	}
}

func TestGetFixedNeighborhoodFixesFourPatches(t *testing.T) {
	m := NewMap(bananaMapConfig())
	patches, err := m.GetFixedNeighborhood(Position{0, 0})
	if err != nil {
		t.Fatalf("GetFixedNeighborhood: %v", err)
	}
	if len(patches) != 4 {
		t.Fatalf("expected 4 patches, got %d", len(patches))
	}
	for _, p := range patches {
		if !p.Fixed() {
			t.Fatalf("patch %v not fixed", p.Coord)
		}
		for _, it := range p.Items() {
			if !p.Contains(it.Location) {
				t.Fatalf("item %+v outside patch %v bounds", it, p.Coord)
			}
		}
	}
}

func TestGetFixedNeighborhoodIsStableAcrossDistantFixings(t *testing.T) {
	m := NewMap(bananaMapConfig())
	first, err := m.GetFixedNeighborhood(Position{0, 0})
	if err != nil {
		t.Fatal(err)
	}
	before := make(map[PatchCoord][]ItemInstance, 4)
	for _, p := range first {
		before[p.Coord] = p.Items()
	}

	far := Position{X: 10 * int64(m.cfg.PatchSize), Y: 0}
	second, err := m.GetFixedNeighborhood(far)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range second {
		if _, isFirst := before[p.Coord]; isFirst {
			t.Fatalf("second fixing reused a patch from the first: %v", p.Coord)
		}
	}

	for coord, items := range before {
		p, ok := m.PatchAt(coord)
		if !ok {
			t.Fatalf("patch %v disappeared", coord)
		}
		after := p.Items()
		if len(after) != len(items) {
			t.Fatalf("patch %v item count changed: %d -> %d", coord, len(items), len(after))
		}
		for i := range items {
			if items[i] != after[i] {
				t.Fatalf("patch %v item %d changed: %+v -> %+v", coord, i, items[i], after[i])
			}
		}
	}
}

func TestCoreQuadrantCoversPosition(t *testing.T) {
	m := NewMap(bananaMapConfig())
	quad := m.coreQuadrant(Position{5, 5})
	found := false
	for _, c := range quad {
		if c == patchCoordOf(Position{5, 5}, m.cfg.PatchSize) {
			found = true
		}
	}
	if !found {
		t.Fatalf("quadrant %v does not include position's own patch", quad)
	}
}
