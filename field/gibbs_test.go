package field

import (
	"math/rand/v2"
	"testing"
)

func bananaConfig() Config {
	return Config{ItemTypes: []ItemType{
		{
			Name:      "banana",
			Intensity: Intensity{Kind: IntensityConstant, Theta: []float64{-5.3}},
			Interaction: []Interaction{
				{Kind: InteractionPiecewiseBox, Params: []float64{10, 200, 0, -6}},
			},
		},
	}}
}

func TestSampleCellDeterministic(t *testing.T) {
	cfg := bananaConfig()
	s := NewSampler(cfg)
	seed := uint64(42)
	run := func() []int {
		rng := rand.New(rand.NewPCG(seed, seed))
		out := make([]int, 50)
		for i := range out {
			out[i] = s.SampleCell(rng, nil)
		}
		return out
	}
	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sampling not deterministic at index %d: %d != %d", i, a[i], b[i])
		}
	}
}

func TestSampleCellRespectsInteractionRadius(t *testing.T) {
	cfg := bananaConfig()
	s := NewSampler(cfg)
	if got := s.Radii.Radius(0, 0); got != 200 {
		t.Fatalf("expected radius 200, got %d", got)
	}
	// A neighbor far outside the radius must not affect the conditional.
	rng1 := rand.New(rand.NewPCG(1, 1))
	withFarNeighbor := s.SampleCell(rng1, []Neighbor{{Type: 0, DX: 1000, DY: 1000}})
	rng2 := rand.New(rand.NewPCG(1, 1))
	withoutNeighbor := s.SampleCell(rng2, nil)
	if withFarNeighbor != withoutNeighbor {
		t.Fatalf("far neighbor outside radius changed the sampled outcome")
	}
}

func TestPairEnergySymmetrized(t *testing.T) {
	g := Interaction{Kind: InteractionPiecewiseBox, Params: []float64{1, 2, 3, 4}}
	got := PairEnergy(g, g, 1, 0)
	want := g.Eval(1, 0) + g.Eval(-1, 0)
	if got != want {
		t.Fatalf("PairEnergy = %v, want %v", got, want)
	}
}
