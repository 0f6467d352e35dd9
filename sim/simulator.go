package sim

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/eaplatanios/jbw-go/internal/txguard"
	"github.com/eaplatanios/jbw-go/world"
)

// Metrics is a point-in-time snapshot of simulator activity counters
// (spec.md §4.11, ambient). It holds counts only; no tick rate is computed.
type Metrics struct {
	Time         int64
	ActiveAgents int
	TotalAgents  int
	// GibbsSweeps is not populated by Metrics and is always zero.
	GibbsSweeps   uint64
	TicksExecuted uint64
}

// StepFunc is invoked once per tick with every agent's updated state
// (spec.md §4.6 step 7). It runs synchronously on whichever goroutine
// executed the tick; it must not call back into the Simulator's action
// API (see internal/txguard and spec.md §9).
type StepFunc func(agents map[uint64]Snapshot)

// Simulator owns the agents and the procedural map, and advances time in
// discrete ticks once every active agent has committed an action
// (spec.md §4.6, the "Simulator core").
type Simulator struct {
	cfg Config
	mp  *world.Map
	log *slog.Logger

	tickMu sync.Mutex
	guard  txguard.Guard

	agentsMu sync.RWMutex
	agents   map[uint64]*Agent
	nextID   uint64

	time int64
	pcg  *rand.PCG
	rng  *rand.Rand
	seq  atomic.Int64

	onStep StepFunc

	ticksSinceSave int64
	ticksExecuted  atomic.Uint64
}

// New constructs a Simulator from cfg. onStep may be nil.
func New(cfg Config, onStep StepFunc) *Simulator {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	pcg := rand.NewPCG(cfg.Seed^0xa5a5a5a5, cfg.Seed)
	return &Simulator{
		cfg:    cfg,
		mp:     world.NewMap(cfg.worldConfig()),
		log:    log,
		agents: make(map[uint64]*Agent),
		pcg:    pcg,
		rng:    rand.New(pcg),
		onStep: onStep,
	}
}

// Map exposes the underlying procedural map, e.g. for GET_MAP requests.
func (s *Simulator) Map() *world.Map { return s.mp }

// Time returns the current tick count.
func (s *Simulator) Time() int64 {
	s.guard.Check()
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	return s.time
}

// AddAgent creates a new active agent at the world origin and returns its
// id. Vision and scent are computed immediately so the first observation
// an owner receives is already valid.
func (s *Simulator) AddAgent() (uint64, error) {
	s.guard.Check()
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	s.agentsMu.Lock()
	id := s.nextID
	s.nextID++
	a := &Agent{
		ID:             id,
		Position:       world.Position{X: 0, Y: 0},
		Facing:         world.Up,
		Active:         true,
		CollectedItems: make([]int, len(s.cfg.ItemTypes)),
	}
	s.agents[id] = a
	s.agentsMu.Unlock()

	if err := s.refreshPerception(a); err != nil {
		return 0, err
	}
	return id, nil
}

// SetActive toggles whether an agent participates in the all-requested
// predicate that drives ticks.
func (s *Simulator) SetActive(id uint64, active bool) error {
	s.guard.Check()
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	s.agentsMu.Lock()
	defer s.agentsMu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return ErrUnknownAgent
	}
	a.Active = active
	return nil
}

// IsActive reports whether an agent is currently active.
func (s *Simulator) IsActive(id uint64) (bool, error) {
	s.agentsMu.RLock()
	defer s.agentsMu.RUnlock()
	a, ok := s.agents[id]
	if !ok {
		return false, ErrUnknownAgent
	}
	return a.Active, nil
}

// AgentIDs returns every known agent id in ascending order.
func (s *Simulator) AgentIDs() []uint64 {
	s.agentsMu.RLock()
	defer s.agentsMu.RUnlock()
	ids := make([]uint64, 0, len(s.agents))
	for id := range s.agents {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// AgentState returns a snapshot of a single agent's externally visible
// state.
func (s *Simulator) AgentState(id uint64) (Snapshot, error) {
	s.guard.Check()
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	s.agentsMu.RLock()
	a, ok := s.agents[id]
	s.agentsMu.RUnlock()
	if !ok {
		return Snapshot{}, ErrUnknownAgent
	}
	return a.snapshotLocked(), nil
}

// AgentStates returns a snapshot of every agent.
func (s *Simulator) AgentStates() map[uint64]Snapshot {
	s.guard.Check()
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	s.agentsMu.RLock()
	defer s.agentsMu.RUnlock()
	out := make(map[uint64]Snapshot, len(s.agents))
	for id, a := range s.agents {
		out[id] = a.snapshotLocked()
	}
	return out
}

// Metrics returns a point-in-time activity snapshot.
func (s *Simulator) Metrics() Metrics {
	s.agentsMu.RLock()
	active := 0
	for _, a := range s.agents {
		if a.Active {
			active++
		}
	}
	total := len(s.agents)
	s.agentsMu.RUnlock()
	return Metrics{
		Time:          s.Time(),
		ActiveAgents:  active,
		TotalAgents:   total,
		TicksExecuted: s.ticksExecuted.Load(),
	}
}

// RequestAction records a pending action for id and, if it is the last
// active agent to act this tick, executes the tick (spec.md §4.6, §5).
// It returns ErrUnknownAgent, ErrAgentAlreadyActed, or ErrPermission
// without modifying simulator state on failure.
func (s *Simulator) RequestAction(id uint64, action Action) error {
	if action.Kind == ActionDoNothing && !s.cfg.NoOpAllowed {
		return fmt.Errorf("%w: no-op actions disabled", ErrPermission)
	}
	if err := s.checkPermission(action); err != nil {
		return err
	}

	s.agentsMu.RLock()
	a, ok := s.agents[id]
	s.agentsMu.RUnlock()
	if !ok {
		return ErrUnknownAgent
	}

	a.mu.Lock()
	if a.state == stateActionRequested {
		a.mu.Unlock()
		return ErrAgentAlreadyActed
	}
	a.pending = action
	a.state = stateActionRequested
	a.seq = s.seq.Add(1)
	a.mu.Unlock()

	if s.allActiveRequested() {
		s.guard.Check()
		s.tickMu.Lock()
		if s.allActiveRequested() {
			s.runTick()
		}
		s.tickMu.Unlock()
	}
	return nil
}

func (s *Simulator) checkPermission(action Action) error {
	switch action.Kind {
	case ActionMove:
		if s.cfg.AllowedMovementDirections[action.Direction] == Disallowed {
			return ErrPermission
		}
	case ActionTurn:
		if s.cfg.AllowedRotations[action.Direction] == Disallowed {
			return ErrPermission
		}
	}
	return nil
}

func (s *Simulator) allActiveRequested() bool {
	s.agentsMu.RLock()
	defer s.agentsMu.RUnlock()
	any := false
	for _, a := range s.agents {
		if !a.Active {
			continue
		}
		any = true
		a.mu.Lock()
		requested := a.state == stateActionRequested
		a.mu.Unlock()
		if !requested {
			return false
		}
	}
	return any
}

// pendingMove is the resolved outcome of planning one agent's movement,
// before collision resolution.
type pendingMove struct {
	agent     *Agent
	seq       int64
	isMover   bool
	origin    world.Position
	target    world.Position
	traversed []world.Position
}

// runTick executes the full tick procedure of spec.md §4.6. The caller
// must hold s.tickMu.
func (s *Simulator) runTick() {
	s.agentsMu.RLock()
	ids := make([]uint64, 0, len(s.agents))
	for id := range s.agents {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	actives := make([]*Agent, 0, len(ids))
	for _, id := range ids {
		if a := s.agents[id]; a.Active {
			actives = append(actives, a)
		}
	}
	s.agentsMu.RUnlock()

	// 1. Freeze the set of pending actions.
	moves := make([]*pendingMove, 0, len(actives))
	for _, a := range actives {
		a.mu.Lock()
		action := a.pending
		seq := a.seq
		a.mu.Unlock()

		pm := &pendingMove{agent: a, seq: seq, origin: a.Position, target: a.Position}
		if action.Kind == ActionMove {
			s.planMove(a, action.Direction, pm)
		}
		if action.Kind == ActionTurn {
			if s.cfg.AllowedRotations[action.Direction] != Ignored {
				a.Facing = action.Direction
			}
		}
		moves = append(moves, pm)
	}

	// 2+3. Plan tentative positions, then resolve collisions.
	s.resolveCollisions(moves)

	// 4. Collect items along every successful mover's transited cells.
	for _, pm := range moves {
		if !pm.isMover {
			continue
		}
		pm.agent.Position = pm.target
		for _, cell := range pm.traversed {
			s.collectAt(pm.agent, cell)
		}
	}

	// 5. Advance time.
	s.time++

	// 5a. Permanently drop items whose deletion has aged past
	// DeletedItemLifetime: no live query can depend on their history any
	// longer (spec.md §3 Lifecycles).
	if s.cfg.DeletedItemLifetime > 0 {
		s.mp.PruneDeletedBefore(s.time - s.cfg.DeletedItemLifetime)
	}

	// 6. Recompute vision and scent for every active agent.
	for _, a := range actives {
		if err := s.refreshPerception(a); err != nil {
			s.log.Error("failed to refresh agent perception", "agent", a.ID, "error", err)
		}
	}

	// 7. Invoke the step callback.
	if s.onStep != nil {
		snapshots := make(map[uint64]Snapshot, len(s.agents))
		s.agentsMu.RLock()
		for id, a := range s.agents {
			snapshots[id] = a.snapshotLocked()
		}
		s.agentsMu.RUnlock()
		cb := s.onStep
		if ok := s.guard.Run(func() { cb(snapshots) }); !ok {
			s.log.Warn("step callback re-entered the simulator and was aborted")
		}
	}

	// 8. Periodic snapshotting.
	if s.cfg.SaveFrequency > 0 && s.cfg.SaveDirectory != "" {
		s.ticksSinceSave++
		if s.ticksSinceSave >= s.cfg.SaveFrequency {
			s.ticksSinceSave = 0
			if err := s.saveLocked(s.cfg.SaveDirectory); err != nil {
				s.log.Error("periodic snapshot failed", "error", err)
			}
		}
	}

	// 9. Reset every agent to Idle.
	for _, a := range actives {
		a.mu.Lock()
		a.state = stateIdle
		a.mu.Unlock()
	}

	s.ticksExecuted.Add(1)
}

// planMove resolves the tentative target of a move action: up to
// MaxStepsPerMovement cells in direction dir, stopping at the first
// blocks_movement item (spec.md §4.6 step 2).
func (s *Simulator) planMove(a *Agent, dir world.Direction, pm *pendingMove) {
	if s.cfg.AllowedMovementDirections[dir] == Ignored {
		return
	}
	dx, dy := dir.Delta()
	pos := a.Position
	traversed := make([]world.Position, 0, s.cfg.MaxStepsPerMovement)
	for step := 0; step < s.cfg.MaxStepsPerMovement; step++ {
		next := pos.Add(dx, dy)
		if s.blocksMovement(next) {
			break
		}
		pos = next
		traversed = append(traversed, pos)
	}
	if pos == a.Position {
		return
	}
	pm.isMover = true
	pm.target = pos
	pm.traversed = traversed
}

func (s *Simulator) blocksMovement(pos world.Position) bool {
	patches, err := s.mp.GetFixedNeighborhood(pos)
	if err != nil {
		s.log.Error("failed to fix neighborhood while planning movement", "pos", pos, "error", err)
		return true
	}
	for _, p := range patches {
		if p == nil || !p.Contains(pos) {
			continue
		}
		for _, it := range p.Items() {
			if it.Location == pos && it.LiveAt(s.time) && s.cfg.ItemTypes[it.Type].BlocksMovement {
				return true
			}
		}
	}
	return false
}

// resolveCollisions applies s.cfg.CollisionPolicy to every group of
// pendingMoves that would end on the same cell (spec.md §4.6 step 3).
func (s *Simulator) resolveCollisions(moves []*pendingMove) {
	groups := make(map[world.Position][]*pendingMove)
	for _, pm := range moves {
		groups[pm.target] = append(groups[pm.target], pm)
	}
	keys := make([]world.Position, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	for _, k := range keys {
		group := groups[k]
		if len(group) <= 1 {
			continue
		}
		stationary := false
		var movers []*pendingMove
		for _, pm := range group {
			if pm.isMover {
				movers = append(movers, pm)
			} else {
				stationary = true
			}
		}
		if len(movers) == 0 {
			continue
		}
		if stationary {
			for _, pm := range movers {
				s.deny(pm)
			}
			continue
		}
		switch s.cfg.CollisionPolicy {
		case NoCollisions:
			for _, pm := range movers {
				s.deny(pm)
			}
		case Random:
			winner := movers[s.rng.IntN(len(movers))]
			for _, pm := range movers {
				if pm != winner {
					s.deny(pm)
				}
			}
		default: // FirstComeFirstServed
			sort.Slice(movers, func(i, j int) bool { return movers[i].seq < movers[j].seq })
			for _, pm := range movers[1:] {
				s.deny(pm)
			}
		}
	}
}

func (s *Simulator) deny(pm *pendingMove) {
	pm.isMover = false
	pm.target = pm.origin
	pm.traversed = nil
}

// collectAt deletes the live automatically-collected item at cell (if its
// requirements are met) and credits the agent (spec.md §4.6 step 4).
func (s *Simulator) collectAt(a *Agent, cell world.Position) {
	p, ok := s.mp.PatchAt(world.PatchCoordOf(cell, s.cfg.PatchSize))
	if !ok {
		return
	}
	idx, ok := p.FindLiveIndexAt(cell, s.time)
	if !ok {
		return
	}
	it := p.Items()[idx]
	ty := s.cfg.ItemTypes[it.Type]
	if !ty.AutomaticallyCollected {
		return
	}
	if !world.RequirementsMet(ty, a.CollectedItems) {
		return
	}
	p.DeleteAt(idx, s.time+1)
	a.CollectedItems[it.Type]++
	for i, cost := range ty.RequiredCosts {
		if i >= len(a.CollectedItems) {
			continue
		}
		a.CollectedItems[i] -= cost
		if a.CollectedItems[i] < 0 {
			a.CollectedItems[i] = 0
		}
	}
}

// refreshPerception recomputes an agent's vision and scent, forcing the
// patches it can see to be fixed first (spec.md §4.6 step 6).
func (s *Simulator) refreshPerception(a *Agent) error {
	if _, err := s.mp.GetFixedNeighborhood(a.Position); err != nil {
		return fmt.Errorf("sim: refresh perception: %w", err)
	}
	a.Vision = s.mp.Vision(a.Position, a.Facing, s.time, s.cfg.visionConfig())
	a.Scent = s.mp.ScentAt(a.Position, s.time, s.cfg.diffusionConfig())
	return nil
}
