package world

import "testing"

func TestVisionHasExpectedLength(t *testing.T) {
	m := NewMap(bananaMapConfig())
	pos := Position{0, 0}
	if _, err := m.GetFixedNeighborhood(pos); err != nil {
		t.Fatal(err)
	}
	cfg := VisionConfig{ColorDimension: 3, VisionRange: 5, AgentColor: []float64{1, 1, 1}, FieldOfView: 2 * 3.14159}
	out := m.Vision(pos, Up, 0, cfg)
	want := (2*5 + 1) * (2*5 + 1) * 3
	if len(out) != want {
		t.Fatalf("vision length = %d, want %d", len(out), want)
	}
}

func TestVisionSameCellTwiceWithoutRotationIsIdentical(t *testing.T) {
	m := NewMap(bananaMapConfig())
	pos := Position{3, -2}
	if _, err := m.GetFixedNeighborhood(pos); err != nil {
		t.Fatal(err)
	}
	cfg := VisionConfig{ColorDimension: 3, VisionRange: 5, AgentColor: []float64{1, 1, 1}, FieldOfView: 2 * 3.14159}
	a := m.Vision(pos, Up, 0, cfg)
	b := m.Vision(pos, Up, 0, cfg)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("vision differs at %d: %v != %v", i, a[i], b[i])
		}
	}
}

func TestVisionAgentCellRendersAgentColor(t *testing.T) {
	m := NewMap(bananaMapConfig())
	pos := Position{0, 0}
	if _, err := m.GetFixedNeighborhood(pos); err != nil {
		t.Fatal(err)
	}
	cfg := VisionConfig{ColorDimension: 3, VisionRange: 2, AgentColor: []float64{0.5, 0.25, 0.1}, FieldOfView: 2 * 3.14159}
	out := m.Vision(pos, Up, 0, cfg)
	side := 2*2 + 1
	center := (side/2*side + side/2) * 3
	got := out[center : center+3]
	for i, want := range cfg.AgentColor {
		if got[i] != want {
			t.Fatalf("agent cell color[%d] = %v, want %v", i, got[i], want)
		}
	}
}
