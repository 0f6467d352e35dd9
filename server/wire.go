package server

import (
	"github.com/eaplatanios/jbw-go/proto"
	"github.com/eaplatanios/jbw-go/sim"
	"github.com/eaplatanios/jbw-go/world"
)

func itemTypeToWire(t world.ItemType) proto.ItemTypeConfig {
	return proto.ItemTypeConfig{
		Name:                   t.Name,
		Scent:                  t.Scent,
		Color:                  t.Color,
		RequiredCounts:         t.RequiredCounts,
		RequiredCosts:          t.RequiredCosts,
		BlocksMovement:         t.BlocksMovement,
		VisualOcclusion:        t.VisualOcclusion,
		AutomaticallyCollected: t.AutomaticallyCollected,
	}
}

func snapshotToWire(snap sim.Snapshot) proto.AgentState {
	return proto.AgentState{
		ID:             snap.ID,
		Position:       proto.Position{X: snap.Position.X, Y: snap.Position.Y},
		Facing:         proto.Direction(snap.Facing),
		Scent:          snap.Scent,
		Vision:         snap.Vision,
		CollectedItems: snap.CollectedItems,
		Active:         snap.Active,
	}
}

func patchToWire(p *world.Patch, t int64) proto.PatchState {
	items := p.LiveItemsAt(t)
	ps := proto.PatchState{
		Coord: proto.PatchCoord{X: p.Coord.X, Y: p.Coord.Y},
		Fixed: p.Fixed(),
		Items: make([]proto.ItemState, len(items)),
	}
	for i, it := range items {
		ps.Items[i] = proto.ItemState{
			Type:         uint32(it.Type),
			Location:     proto.Position{X: it.Location.X, Y: it.Location.Y},
			CreationTime: uint64(it.CreationTime),
			DeletionTime: uint64(it.DeletionTime),
		}
	}
	return ps
}
