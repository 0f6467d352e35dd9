package server

import (
	"fmt"
	"net"
	"sort"

	"github.com/google/uuid"

	"github.com/eaplatanios/jbw-go/proto"
)

// handshake performs the client-id exchange of spec.md §6 "Handshake": a
// fresh connection sends proto.NilClientID and receives a newly minted id,
// while a reconnecting client presents the id it was given before so the
// server can resume its agent ownership and reports back "current
// simulation time, configuration, and the full current state of every
// agent that client owns" (spec.md §4.8).
func (s *Server) handshake(conn net.Conn) (*session, error) {
	r := proto.NewReader(conn)
	requested := uuid.UUID(r.ReadClientID())
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("server: read handshake request: %w", err)
	}

	perms := s.cfg.permissions()

	id := requested
	var agents map[uint64]struct{}
	if requested != uuid.Nil && perms[PermManageClients] {
		s.mu.RLock()
		prior, ok := s.sessions[requested]
		s.mu.RUnlock()
		if ok {
			agents = prior.ownedAgents()
		}
	}
	if agents == nil {
		id = uuid.New()
		agents = make(map[uint64]struct{})
	}

	sess := &session{srv: s, conn: conn, clientID: id, perms: perms, agents: agents}

	ids := make([]uint64, 0, len(agents))
	for aid := range agents {
		ids = append(ids, aid)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	states := make([]proto.AgentState, 0, len(ids))
	for _, aid := range ids {
		if snap, err := s.sim.AgentState(aid); err == nil {
			states = append(states, snapshotToWire(snap))
		}
	}

	w := proto.NewWriter(conn)
	w.WriteClientID(proto.ClientID(id))
	w.U8(uint8(proto.Success))
	w.U64(uint64(s.sim.Time()))
	w.U32(uint32(len(states)))
	for _, st := range states {
		w.WriteAgentState(st)
	}
	w.WriteSimulatorConfig(s.simulatorConfigWire())
	if err := w.Err(); err != nil {
		return nil, fmt.Errorf("server: write handshake response: %w", err)
	}
	return sess, nil
}

func (s *Server) simulatorConfigWire() proto.SimulatorConfig {
	cfg := s.cfg.Simulator
	types := make([]proto.ItemTypeConfig, len(cfg.ItemTypes))
	for i, t := range cfg.ItemTypes {
		types[i] = itemTypeToWire(t)
	}
	return proto.SimulatorConfig{
		MaxStepsPerMovement: int32(cfg.MaxStepsPerMovement),
		ScentDimension:      int32(cfg.ScentDimension),
		ColorDimension:      int32(cfg.ColorDimension),
		VisionRange:         cfg.VisionRange,
		PatchSize:           cfg.PatchSize,
		ItemTypes:           types,
	}
}
