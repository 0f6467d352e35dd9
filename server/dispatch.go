package server

import (
	"errors"

	"github.com/eaplatanios/jbw-go/proto"
	"github.com/eaplatanios/jbw-go/sim"
	"github.com/eaplatanios/jbw-go/world"
)

// dispatch reads one request's payload (kind having already been read from
// r), executes it against the simulator, and writes a response frame. It
// reports whether the session should keep serving.
func (sess *session) dispatch(kind proto.Kind, r *proto.Reader) bool {
	perm, respKind, ok := permissionFor(kind)
	if ok && !sess.perms[perm] {
		return sess.writeCode(respKind, proto.PermissionError)
	}

	switch kind {
	case proto.KindAddAgent:
		return sess.handleAddAgent()
	case proto.KindMove:
		return sess.handleAction(r, proto.KindMoveResponse, func(id uint64, dir world.Direction) error {
			return sess.srv.sim.RequestAction(id, sim.Action{Kind: sim.ActionMove, Direction: dir})
		})
	case proto.KindTurn:
		return sess.handleAction(r, proto.KindTurnResponse, func(id uint64, dir world.Direction) error {
			return sess.srv.sim.RequestAction(id, sim.Action{Kind: sim.ActionTurn, Direction: dir})
		})
	case proto.KindDoNothing:
		return sess.handleDoNothing(r)
	case proto.KindGetMap:
		return sess.handleGetMap(r)
	case proto.KindGetAgentIDs:
		return sess.handleGetAgentIDs()
	case proto.KindGetAgentStates:
		return sess.handleGetAgentStates(r)
	case proto.KindSetActive:
		return sess.handleSetActive(r)
	case proto.KindIsActive:
		return sess.handleIsActive(r)
	default:
		return sess.writeCode(proto.KindAddAgentResponse, proto.ServerParseMessageError)
	}
}

// permissionFor maps a request Kind to the PermissionRequest that gates it
// and the response Kind a denial should be reported on (spec.md §4.8).
// manage_clients has no request of its own: it gates reconnection during
// the handshake instead (see handshake.go), so it is never returned here.
func permissionFor(kind proto.Kind) (perm PermissionRequest, respKind proto.Kind, ok bool) {
	switch kind {
	case proto.KindAddAgent:
		return PermAddAgent, proto.KindAddAgentResponse, true
	case proto.KindMove:
		return PermMove, proto.KindMoveResponse, true
	case proto.KindTurn:
		return PermTurn, proto.KindTurnResponse, true
	case proto.KindDoNothing:
		return PermDoNothing, proto.KindDoNothingResponse, true
	case proto.KindGetMap:
		return PermGetMap, proto.KindGetMapResponse, true
	case proto.KindGetAgentIDs:
		return PermGetAgentIDs, proto.KindGetAgentIDsResponse, true
	case proto.KindGetAgentStates:
		return PermGetAgentStates, proto.KindGetAgentStatesResponse, true
	case proto.KindSetActive:
		return PermSetActive, proto.KindSetActiveResponse, true
	case proto.KindIsActive:
		return PermIsActive, proto.KindIsActiveResponse, true
	default:
		return 0, 0, false
	}
}

func (sess *session) handleAddAgent() bool {
	id, err := sess.srv.sim.AddAgent()
	if err != nil {
		return sess.writeCode(proto.KindAddAgentResponse, errToCode(err))
	}
	sess.own(id)
	snap, err := sess.srv.sim.AgentState(id)
	if err != nil {
		return sess.writeCode(proto.KindAddAgentResponse, errToCode(err))
	}

	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()
	w := proto.NewWriter(sess.conn)
	w.U64(uint64(proto.KindAddAgentResponse))
	w.U8(uint8(proto.Success))
	w.WriteAgentState(snapshotToWire(snap))
	return w.Err() == nil
}

func (sess *session) handleAction(r *proto.Reader, respKind proto.Kind, do func(id uint64, dir world.Direction) error) bool {
	id := r.U64()
	dir := world.Direction(r.U8())
	if err := r.Err(); err != nil {
		return false
	}
	code := proto.Success
	if !sess.owns(id) {
		code = proto.PermissionError
	} else if err := do(id, dir); err != nil {
		code = errToCode(err)
	}
	return sess.writeCode(respKind, code)
}

func (sess *session) handleDoNothing(r *proto.Reader) bool {
	id := r.U64()
	if err := r.Err(); err != nil {
		return false
	}
	code := proto.Success
	if !sess.owns(id) {
		code = proto.PermissionError
	} else if err := sess.srv.sim.RequestAction(id, sim.Action{Kind: sim.ActionDoNothing}); err != nil {
		code = errToCode(err)
	}
	return sess.writeCode(proto.KindDoNothingResponse, code)
}

func (sess *session) handleGetMap(r *proto.Reader) bool {
	center := r.ReadPosition()
	if err := r.Err(); err != nil {
		return false
	}
	patches := sess.srv.sim.Map().GetNeighborhood(world.Position{X: center.X, Y: center.Y})
	t := sess.srv.sim.Time()

	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()
	w := proto.NewWriter(sess.conn)
	w.U64(uint64(proto.KindGetMapResponse))
	w.U8(uint8(proto.Success))
	w.U64(uint64(len(patches)))
	for _, p := range patches {
		w.WritePatchState(patchToWire(p, t))
	}
	return w.Err() == nil
}

func (sess *session) handleGetAgentIDs() bool {
	ids := sess.srv.sim.AgentIDs()

	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()
	w := proto.NewWriter(sess.conn)
	w.U64(uint64(proto.KindGetAgentIDsResponse))
	w.U8(uint8(proto.Success))
	w.U64(uint64(len(ids)))
	for _, id := range ids {
		w.U64(id)
	}
	return w.Err() == nil
}

func (sess *session) handleGetAgentStates(r *proto.Reader) bool {
	n := r.U64()
	ids := make([]uint64, n)
	for i := range ids {
		ids[i] = r.U64()
	}
	if err := r.Err(); err != nil {
		return false
	}

	states := make([]sim.Snapshot, 0, len(ids))
	for _, id := range ids {
		if snap, err := sess.srv.sim.AgentState(id); err == nil {
			states = append(states, snap)
		}
	}

	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()
	w := proto.NewWriter(sess.conn)
	w.U64(uint64(proto.KindGetAgentStatesResponse))
	w.U8(uint8(proto.Success))
	w.U64(uint64(len(states)))
	for _, snap := range states {
		w.WriteAgentState(snapshotToWire(snap))
	}
	return w.Err() == nil
}

func (sess *session) handleSetActive(r *proto.Reader) bool {
	id := r.U64()
	active := r.Bool()
	if err := r.Err(); err != nil {
		return false
	}
	code := proto.Success
	if !sess.owns(id) {
		code = proto.PermissionError
	} else if err := sess.srv.sim.SetActive(id, active); err != nil {
		code = errToCode(err)
	}
	return sess.writeCode(proto.KindSetActiveResponse, code)
}

func (sess *session) handleIsActive(r *proto.Reader) bool {
	id := r.U64()
	if err := r.Err(); err != nil {
		return false
	}
	active, err := sess.srv.sim.IsActive(id)
	code := proto.Success
	if err != nil {
		code = errToCode(err)
	}

	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()
	w := proto.NewWriter(sess.conn)
	w.U64(uint64(proto.KindIsActiveResponse))
	w.U8(uint8(code))
	w.Bool(active)
	return w.Err() == nil
}

func (sess *session) writeCode(kind proto.Kind, code proto.ResponseCode) bool {
	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()
	w := proto.NewWriter(sess.conn)
	w.U64(uint64(kind))
	w.U8(uint8(code))
	return w.Err() == nil
}

func errToCode(err error) proto.ResponseCode {
	switch {
	case errors.Is(err, sim.ErrUnknownAgent):
		return proto.InvalidAgentID
	case errors.Is(err, sim.ErrAgentAlreadyActed):
		return proto.AgentAlreadyActed
	case errors.Is(err, sim.ErrPermission):
		return proto.PermissionError
	default:
		return proto.Failure
	}
}
