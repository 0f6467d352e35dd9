package server

import (
	"net"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/eaplatanios/jbw-go/proto"
	"github.com/eaplatanios/jbw-go/sim"
)

// session owns one client connection: the set of agents it has permission
// to act on, the request-kind permission record gating its requests
// (spec.md §4.8), and the read loop dispatching its requests against the
// Server's Simulator (spec.md §4.9).
type session struct {
	srv      *Server
	conn     net.Conn
	clientID uuid.UUID
	perms    Permissions

	// writeMu serializes writes to conn: request responses (from serve) and
	// step pushes (from the tick goroutine, via pushStep) both write to the
	// same connection.
	writeMu sync.Mutex

	agentsMu sync.RWMutex
	agents   map[uint64]struct{}
}

func (sess *session) ownedAgents() map[uint64]struct{} {
	sess.agentsMu.RLock()
	defer sess.agentsMu.RUnlock()
	out := make(map[uint64]struct{}, len(sess.agents))
	for id := range sess.agents {
		out[id] = struct{}{}
	}
	return out
}

func (sess *session) own(id uint64) {
	sess.agentsMu.Lock()
	sess.agents[id] = struct{}{}
	sess.agentsMu.Unlock()
}

func (sess *session) owns(id uint64) bool {
	sess.agentsMu.RLock()
	defer sess.agentsMu.RUnlock()
	_, ok := sess.agents[id]
	return ok
}

// serve blocks reading request frames until the connection errors or
// closes, the per-connection stand-in for spec.md §4.8's readiness-event
// wait. Once a message kind is available, the actual decode-and-dispatch
// work is handed to the bounded worker pool and waited on here, so that
// request execution (not connection count) is what Config.WorkerCount
// bounds.
func (sess *session) serve() {
	r := proto.NewReader(sess.conn)
	for {
		kind := proto.Kind(r.U64())
		if err := r.Err(); err != nil {
			return
		}
		result := make(chan bool, 1)
		if !sess.srv.submit(func() { result <- sess.dispatch(kind, r) }) {
			return
		}
		if !<-result {
			return
		}
	}
}

// pushStep writes a STEP_RESPONSE frame carrying the updated state of every
// agent this session owns, in ascending agent-id order (spec.md §8
// Scenario 6). Per spec.md §5, a client that never reads is never timed
// out by the server; a write that nonetheless fails (a genuinely dead
// connection) evicts the session instead of leaving writeMu-guarded
// framing desynced for subsequent writes.
func (sess *session) pushStep(agents map[uint64]sim.Snapshot) {
	owned := sess.ownedAgents()
	if len(owned) == 0 {
		return
	}
	ids := make([]uint64, 0, len(owned))
	for id := range owned {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	states := make([]sim.Snapshot, 0, len(ids))
	for _, id := range ids {
		if snap, ok := agents[id]; ok {
			states = append(states, snap)
		}
	}
	if len(states) == 0 {
		return
	}

	sess.writeMu.Lock()
	w := proto.NewWriter(sess.conn)
	w.U64(uint64(proto.KindStepResponse))
	w.U64(uint64(len(states)))
	for _, snap := range states {
		w.WriteAgentState(snapshotToWire(snap))
	}
	err := w.Err()
	sess.writeMu.Unlock()

	if err != nil {
		sess.conn.Close()
	}
}
