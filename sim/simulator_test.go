package sim

import (
	"math"
	"testing"

	"github.com/eaplatanios/jbw-go/field"
	"github.com/eaplatanios/jbw-go/world"
)

func testConfig(itemTypes []world.ItemType, seed uint64) Config {
	allAllowed := [4]Permission{Allowed, Allowed, Allowed, Allowed}
	return Config{
		MaxStepsPerMovement:       1,
		ScentDimension:            3,
		ColorDimension:            3,
		VisionRange:               1,
		AllowedMovementDirections: allAllowed,
		AllowedRotations:          allAllowed,
		NoOpAllowed:               true,
		PatchSize:                 8,
		MCMCIterations:            1,
		ItemTypes:                 itemTypes,
		AgentColor:                []float64{1, 0, 0},
		AgentFieldOfView:          2 * math.Pi,
		CollisionPolicy:           FirstComeFirstServed,
		DecayParam:                0.5,
		DiffusionParam:            0.1,
		DeletedItemLifetime:       100,
		Seed:                      seed,
	}
}

// injectItem overwrites the patch covering loc with one containing a single
// fixed item, bypassing Gibbs sampling so tests get a deterministic layout
// instead of depending on the field sampler's random outcome.
func injectItem(t *testing.T, s *Simulator, loc world.Position, itemType int) {
	t.Helper()
	coord := world.PatchCoordOf(loc, s.cfg.PatchSize)
	p := world.NewPatch(coord, s.cfg.PatchSize, true, []world.ItemInstance{
		{Type: itemType, Location: loc, CreationTime: 0, DeletionTime: 0},
	})
	s.Map().RestorePatch(p)
}

func TestMoveAndCollectBanana(t *testing.T) {
	banana := world.ItemType{
		Name:                   "banana",
		Scent:                  []float64{0, 1, 0},
		Color:                  []float64{0, 1, 0},
		AutomaticallyCollected: true,
		Interaction:            []field.Interaction{{Kind: field.InteractionZero}},
	}
	s := New(testConfig([]world.ItemType{banana}, 1), nil)
	id, err := s.AddAgent()
	if err != nil {
		t.Fatalf("AddAgent: %v", err)
	}
	injectItem(t, s, world.Position{X: 1, Y: 0}, 0)

	if err := s.RequestAction(id, Action{Kind: ActionMove, Direction: world.Right}); err != nil {
		t.Fatalf("RequestAction: %v", err)
	}

	snap, err := s.AgentState(id)
	if err != nil {
		t.Fatalf("AgentState: %v", err)
	}
	if snap.Position != (world.Position{X: 1, Y: 0}) {
		t.Fatalf("position = %v, want (1, 0)", snap.Position)
	}
	if snap.CollectedItems[0] != 1 {
		t.Fatalf("collected[0] = %d, want 1", snap.CollectedItems[0])
	}
	if s.Time() != 1 {
		t.Fatalf("time = %d, want 1", s.Time())
	}
}

func TestWallBlocksMovement(t *testing.T) {
	wall := world.ItemType{
		Name:           "wall",
		BlocksMovement: true,
		Interaction:    []field.Interaction{{Kind: field.InteractionZero}},
	}
	s := New(testConfig([]world.ItemType{wall}, 2), nil)
	id, err := s.AddAgent()
	if err != nil {
		t.Fatalf("AddAgent: %v", err)
	}
	injectItem(t, s, world.Position{X: 1, Y: 0}, 0)

	if err := s.RequestAction(id, Action{Kind: ActionMove, Direction: world.Right}); err != nil {
		t.Fatalf("RequestAction: %v", err)
	}

	snap, err := s.AgentState(id)
	if err != nil {
		t.Fatalf("AgentState: %v", err)
	}
	if snap.Position != (world.Position{X: 0, Y: 0}) {
		t.Fatalf("position = %v, want (0, 0): wall should have blocked the move", snap.Position)
	}
}

func TestCollisionFirstComeFirstServed(t *testing.T) {
	s := New(testConfig(nil, 3), nil)
	id1, err := s.AddAgent()
	if err != nil {
		t.Fatalf("AddAgent 1: %v", err)
	}
	id2, err := s.AddAgent()
	if err != nil {
		t.Fatalf("AddAgent 2: %v", err)
	}
	s.agents[id2].Position = world.Position{X: 2, Y: 0}

	if err := s.RequestAction(id1, Action{Kind: ActionMove, Direction: world.Right}); err != nil {
		t.Fatalf("RequestAction 1: %v", err)
	}
	if err := s.RequestAction(id2, Action{Kind: ActionMove, Direction: world.Left}); err != nil {
		t.Fatalf("RequestAction 2: %v", err)
	}

	snap1, _ := s.AgentState(id1)
	snap2, _ := s.AgentState(id2)
	if snap1.Position != (world.Position{X: 1, Y: 0}) {
		t.Fatalf("agent 1 (first to act) = %v, want to have won the collision at (1, 0)", snap1.Position)
	}
	if snap2.Position != (world.Position{X: 2, Y: 0}) {
		t.Fatalf("agent 2 (second to act) = %v, want to have been denied and stayed at (2, 0)", snap2.Position)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	banana := world.ItemType{
		Name:                   "banana",
		Scent:                  []float64{0, 1, 0},
		Color:                  []float64{0, 1, 0},
		AutomaticallyCollected: true,
		Interaction:            []field.Interaction{{Kind: field.InteractionZero}},
	}
	s := New(testConfig([]world.ItemType{banana}, 4), nil)
	id, err := s.AddAgent()
	if err != nil {
		t.Fatalf("AddAgent: %v", err)
	}
	injectItem(t, s, world.Position{X: 1, Y: 0}, 0)
	if err := s.RequestAction(id, Action{Kind: ActionMove, Direction: world.Right}); err != nil {
		t.Fatalf("RequestAction: %v", err)
	}

	dir := t.TempDir()
	if err := s.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(dir, testConfig([]world.ItemType{banana}, 4), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if loaded.Time() != s.Time() {
		t.Fatalf("time = %d, want %d", loaded.Time(), s.Time())
	}
	wantSnap, _ := s.AgentState(id)
	gotSnap, err := loaded.AgentState(id)
	if err != nil {
		t.Fatalf("AgentState after load: %v", err)
	}
	if gotSnap.Position != wantSnap.Position || gotSnap.Facing != wantSnap.Facing || gotSnap.Active != wantSnap.Active {
		t.Fatalf("agent state after load = %+v, want %+v", gotSnap, wantSnap)
	}
	for i := range wantSnap.CollectedItems {
		if gotSnap.CollectedItems[i] != wantSnap.CollectedItems[i] {
			t.Fatalf("collected[%d] = %d, want %d", i, gotSnap.CollectedItems[i], wantSnap.CollectedItems[i])
		}
	}

	wantPatches := s.Map().AllPatches()
	gotPatches := loaded.Map().AllPatches()
	if len(gotPatches) != len(wantPatches) {
		t.Fatalf("patch count = %d, want %d", len(gotPatches), len(wantPatches))
	}
	for i := range wantPatches {
		if gotPatches[i].Coord != wantPatches[i].Coord || gotPatches[i].Fixed() != wantPatches[i].Fixed() {
			t.Fatalf("patch %d = %+v/%v, want %+v/%v", i, gotPatches[i].Coord, gotPatches[i].Fixed(), wantPatches[i].Coord, wantPatches[i].Fixed())
		}
		wantItems, gotItems := wantPatches[i].Items(), gotPatches[i].Items()
		if len(gotItems) != len(wantItems) {
			t.Fatalf("patch %d item count = %d, want %d", i, len(gotItems), len(wantItems))
		}
		for j := range wantItems {
			if gotItems[j] != wantItems[j] {
				t.Fatalf("patch %d item %d = %+v, want %+v", i, j, gotItems[j], wantItems[j])
			}
		}
	}
}

func TestRequestActionRejectsDoubleAction(t *testing.T) {
	s := New(testConfig(nil, 5), nil)
	id1, err := s.AddAgent()
	if err != nil {
		t.Fatalf("AddAgent 1: %v", err)
	}
	if _, err := s.AddAgent(); err != nil {
		t.Fatalf("AddAgent 2: %v", err)
	}

	if err := s.RequestAction(id1, Action{Kind: ActionDoNothing}); err != nil {
		t.Fatalf("first RequestAction: %v", err)
	}
	if err := s.RequestAction(id1, Action{Kind: ActionDoNothing}); err != ErrAgentAlreadyActed {
		t.Fatalf("second RequestAction before tick: got %v, want ErrAgentAlreadyActed", err)
	}
}
