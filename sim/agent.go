package sim

import (
	"sync"

	"github.com/eaplatanios/jbw-go/world"
)

// ActionKind names the three action shapes an agent may request per tick
// (spec.md §4.6: "A move/turn/no-op request").
type ActionKind uint8

const (
	ActionMove ActionKind = iota
	ActionTurn
	ActionDoNothing
)

// Action is a single pending request, as stored while an agent is in the
// ActionRequested state.
type Action struct {
	Kind ActionKind
	// Direction is the absolute travel direction for ActionMove, or the
	// target facing for ActionTurn. Ignored for ActionDoNothing.
	Direction world.Direction
}

// agentState is the per-agent tick state machine of spec.md §4.6:
// Idle -> ActionRequested -> Committed.
type agentState uint8

const (
	stateIdle agentState = iota
	stateActionRequested
	stateCommitted
)

// Agent is one embodied participant in the simulation (spec.md §3).
//
// The mutex guards only the pending-action slot and its state, per
// spec.md §5 ("Each agent has a lock guarding its pending-action slot").
// The snapshot fields below it are owned by the simulator and only ever
// mutated while the simulator's tick lock is held, so reads of them from
// outside a tick (e.g. AgentState) take a copy under the tick lock rather
// than the agent's own mutex.
type Agent struct {
	ID uint64

	mu      sync.Mutex
	state   agentState
	pending Action
	seq     int64

	Position       world.Position
	Facing         world.Direction
	Scent          []float64
	Vision         []float64
	CollectedItems []int
	Active         bool
}

// Snapshot is an immutable copy of an agent's externally visible state,
// the shape carried by step responses and GET_AGENT_STATES (spec.md §6).
type Snapshot struct {
	ID             uint64
	Position       world.Position
	Facing         world.Direction
	Scent          []float64
	Vision         []float64
	CollectedItems []int
	Active         bool
}

// snapshotLocked must be called with the simulator's tick lock held.
func (a *Agent) snapshotLocked() Snapshot {
	return Snapshot{
		ID:             a.ID,
		Position:       a.Position,
		Facing:         a.Facing,
		Scent:          append([]float64(nil), a.Scent...),
		Vision:         append([]float64(nil), a.Vision...),
		CollectedItems: append([]int(nil), a.CollectedItems...),
		Active:         a.Active,
	}
}
