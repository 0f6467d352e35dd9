package proto

import (
	"bytes"
	"testing"
)

func TestAgentStateRoundTrip(t *testing.T) {
	want := AgentState{
		ID:             7,
		Position:       Position{X: -3, Y: 42},
		Facing:         2,
		Scent:          []float64{0.1, 0.2, 0.3},
		Vision:         []float64{1, 2, 3, 4},
		CollectedItems: []int{1, 0, 5},
		Active:         true,
	}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.WriteAgentState(want)
	if err := w.Err(); err != nil {
		t.Fatalf("write: %v", err)
	}

	r := NewReader(&buf)
	got := r.ReadAgentState()
	if err := r.Err(); err != nil {
		t.Fatalf("read: %v", err)
	}

	if got.ID != want.ID || got.Position != want.Position || got.Facing != want.Facing || got.Active != want.Active {
		t.Fatalf("scalar fields mismatch: got %+v, want %+v", got, want)
	}
	for i := range want.Scent {
		if got.Scent[i] != want.Scent[i] {
			t.Fatalf("scent[%d] = %v, want %v", i, got.Scent[i], want.Scent[i])
		}
	}
	for i := range want.CollectedItems {
		if got.CollectedItems[i] != want.CollectedItems[i] {
			t.Fatalf("collected[%d] = %v, want %v", i, got.CollectedItems[i], want.CollectedItems[i])
		}
	}
}

func TestPatchStateRoundTrip(t *testing.T) {
	want := PatchState{
		Coord: PatchCoord{X: -2, Y: 5},
		Fixed: true,
		Items: []ItemState{
			{Type: 0, Location: Position{X: 1, Y: 2}, CreationTime: 0, DeletionTime: 0},
			{Type: 1, Location: Position{X: 3, Y: 4}, CreationTime: 10, DeletionTime: 20},
		},
	}
	var buf bytes.Buffer
	NewWriter(&buf).WritePatchState(want)
	got := NewReader(&buf).ReadPatchState()
	if got.Coord != want.Coord || got.Fixed != want.Fixed || len(got.Items) != len(want.Items) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	for i := range want.Items {
		if got.Items[i] != want.Items[i] {
			t.Fatalf("item %d: got %+v, want %+v", i, got.Items[i], want.Items[i])
		}
	}
}

func TestStringRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.String("banana")
	r := NewReader(&buf)
	if got := r.String(); got != "banana" {
		t.Fatalf("got %q, want %q", got, "banana")
	}
}
