// Package client implements the simulator's TCP client (C9): connecting,
// the handshake/reconnect handshake, a background frame reader that
// dispatches step pushes to a callback and request responses to whichever
// call is waiting on them, and typed request methods mirroring the
// server's dispatch table (spec.md §4.9).
package client

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/eaplatanios/jbw-go/proto"
	"github.com/eaplatanios/jbw-go/world"
)

// ErrDisconnected is returned by any in-flight or subsequent call once the
// connection to the server has been lost.
var ErrDisconnected = errors.New("client: disconnected")

// Config configures a Connect call.
type Config struct {
	Address string

	// ClientID, if non-nil (proto.NilClientID), requests reconnection to an
	// existing session instead of a fresh one (spec.md §4.9 "Reconnection").
	ClientID proto.ClientID

	// OnStep is invoked from the background reader goroutine whenever the
	// server pushes a step response; it must not block for long or call
	// back into the Client synchronously from the same goroutine.
	OnStep func(agents []proto.AgentState)

	Log *slog.Logger
}

// Client is a connected session to a Server.
type Client struct {
	conn net.Conn
	log  *slog.Logger

	ClientID        proto.ClientID
	SimulatorConfig proto.SimulatorConfig

	// Time and RecoveredAgents are the simulator time and the full current
	// state of every agent this client id already owned, as reported by a
	// reconnect handshake (spec.md §4.8: "reply with current simulation
	// time, configuration, and the full current state of every agent that
	// client owns"). Both are zero/empty for a fresh connection.
	Time            int64
	RecoveredAgents []proto.AgentState

	writeMu sync.Mutex

	// callMu serializes request/response round trips: exactly one request
	// is ever in flight at a time, so the background reader can route every
	// non-step frame to a single-slot channel without correlating ids.
	callMu sync.Mutex
	resp   chan response

	onStep func([]proto.AgentState)

	closeOnce sync.Once
	done      chan struct{}
}

type response struct {
	kind    proto.Kind
	code    proto.ResponseCode
	agent   proto.AgentState
	agents  []proto.AgentState
	patches []proto.PatchState
	ids     []uint64
	active  bool
}

// Connect dials cfg.Address and performs the handshake, returning a ready
// Client.
func Connect(cfg Config) (*Client, error) {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	conn, err := net.Dial("tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("client: dial: %w", err)
	}

	w := proto.NewWriter(conn)
	w.WriteClientID(cfg.ClientID)
	if err := w.Err(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("client: write handshake request: %w", err)
	}

	r := proto.NewReader(conn)
	id := r.ReadClientID()
	code := proto.ResponseCode(r.U8())
	simTime := int64(r.U64())
	n := r.U32()
	recovered := make([]proto.AgentState, n)
	for i := range recovered {
		recovered[i] = r.ReadAgentState()
	}
	simCfg := r.ReadSimulatorConfig()
	if err := r.Err(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("client: read handshake response: %w", err)
	}
	if code != proto.Success {
		conn.Close()
		return nil, fmt.Errorf("client: handshake failed with code %d", code)
	}

	c := &Client{
		conn:            conn,
		log:             log,
		ClientID:        id,
		SimulatorConfig: simCfg,
		Time:            simTime,
		RecoveredAgents: recovered,
		resp:            make(chan response),
		onStep:          cfg.OnStep,
		done:            make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Close terminates the connection and unblocks any call in flight.
func (c *Client) Close() error {
	err := c.conn.Close()
	c.closeOnce.Do(func() { close(c.done) })
	return err
}

func (c *Client) readLoop() {
	defer c.closeOnce.Do(func() { close(c.done) })
	r := proto.NewReader(c.conn)
	for {
		kind := proto.Kind(r.U64())
		if err := r.Err(); err != nil {
			return
		}
		if kind == proto.KindStepResponse {
			n := r.U64()
			agents := make([]proto.AgentState, n)
			for i := range agents {
				agents[i] = r.ReadAgentState()
			}
			if err := r.Err(); err != nil {
				return
			}
			if c.onStep != nil {
				c.onStep(agents)
			}
			continue
		}

		resp := response{kind: kind, code: proto.ResponseCode(r.U8())}
		switch kind {
		case proto.KindAddAgentResponse:
			resp.agent = r.ReadAgentState()
		case proto.KindGetMapResponse:
			n := r.U64()
			resp.patches = make([]proto.PatchState, n)
			for i := range resp.patches {
				resp.patches[i] = r.ReadPatchState()
			}
		case proto.KindGetAgentIDsResponse:
			n := r.U64()
			resp.ids = make([]uint64, n)
			for i := range resp.ids {
				resp.ids[i] = r.U64()
			}
		case proto.KindGetAgentStatesResponse:
			n := r.U64()
			resp.agents = make([]proto.AgentState, n)
			for i := range resp.agents {
				resp.agents[i] = r.ReadAgentState()
			}
		case proto.KindIsActiveResponse:
			resp.active = r.Bool()
		}
		if err := r.Err(); err != nil {
			return
		}

		select {
		case c.resp <- resp:
		case <-c.done:
			return
		}
	}
}

// call writes a request frame and blocks for its matching response. Exactly
// one call may be in flight at a time (callMu enforces this), which is
// what lets the reader loop above avoid correlating responses by id.
func (c *Client) call(kind proto.Kind, write func(w *proto.Writer)) (response, error) {
	c.callMu.Lock()
	defer c.callMu.Unlock()

	select {
	case <-c.done:
		return response{}, ErrDisconnected
	default:
	}

	c.writeMu.Lock()
	w := proto.NewWriter(c.conn)
	w.U64(uint64(kind))
	write(w)
	err := w.Err()
	c.writeMu.Unlock()
	if err != nil {
		return response{}, fmt.Errorf("client: write request: %w", err)
	}

	select {
	case resp := <-c.resp:
		return resp, nil
	case <-c.done:
		return response{}, ErrDisconnected
	}
}

func codeError(code proto.ResponseCode) error {
	if code == proto.Success {
		return nil
	}
	return fmt.Errorf("client: request failed with code %d", code)
}

// AddAgent creates a new agent owned by this client and returns its
// initial state.
func (c *Client) AddAgent() (proto.AgentState, error) {
	resp, err := c.call(proto.KindAddAgent, func(w *proto.Writer) {})
	if err != nil {
		return proto.AgentState{}, err
	}
	return resp.agent, codeError(resp.code)
}

// Move requests that agent id travel in dir this tick.
func (c *Client) Move(id uint64, dir world.Direction) error {
	resp, err := c.call(proto.KindMove, func(w *proto.Writer) {
		w.U64(id)
		w.U8(uint8(dir))
	})
	if err != nil {
		return err
	}
	return codeError(resp.code)
}

// Turn requests that agent id face dir this tick.
func (c *Client) Turn(id uint64, dir world.Direction) error {
	resp, err := c.call(proto.KindTurn, func(w *proto.Writer) {
		w.U64(id)
		w.U8(uint8(dir))
	})
	if err != nil {
		return err
	}
	return codeError(resp.code)
}

// DoNothing requests a no-op action for agent id this tick.
func (c *Client) DoNothing(id uint64) error {
	resp, err := c.call(proto.KindDoNothing, func(w *proto.Writer) { w.U64(id) })
	if err != nil {
		return err
	}
	return codeError(resp.code)
}

// GetMap returns the patches of the half-window around center, without
// forcing the server to fix anything (spec.md §4.3 query 1).
func (c *Client) GetMap(center world.Position) ([]proto.PatchState, error) {
	resp, err := c.call(proto.KindGetMap, func(w *proto.Writer) {
		w.WritePosition(proto.Position{X: center.X, Y: center.Y})
	})
	if err != nil {
		return nil, err
	}
	return resp.patches, codeError(resp.code)
}

// GetAgentIDs returns every agent id known to the server.
func (c *Client) GetAgentIDs() ([]uint64, error) {
	resp, err := c.call(proto.KindGetAgentIDs, func(w *proto.Writer) {})
	if err != nil {
		return nil, err
	}
	return resp.ids, codeError(resp.code)
}

// GetAgentStates returns the current state of every requested agent id
// that the server still knows about.
func (c *Client) GetAgentStates(ids []uint64) ([]proto.AgentState, error) {
	resp, err := c.call(proto.KindGetAgentStates, func(w *proto.Writer) {
		w.U64(uint64(len(ids)))
		for _, id := range ids {
			w.U64(id)
		}
	})
	if err != nil {
		return nil, err
	}
	return resp.agents, codeError(resp.code)
}

// SetActive toggles whether agent id participates in the tick scheduler.
func (c *Client) SetActive(id uint64, active bool) error {
	resp, err := c.call(proto.KindSetActive, func(w *proto.Writer) {
		w.U64(id)
		w.Bool(active)
	})
	if err != nil {
		return err
	}
	return codeError(resp.code)
}

// IsActive reports whether agent id currently participates in the tick
// scheduler.
func (c *Client) IsActive(id uint64) (bool, error) {
	resp, err := c.call(proto.KindIsActive, func(w *proto.Writer) {
		w.U64(id)
	})
	if err != nil {
		return false, err
	}
	return resp.active, codeError(resp.code)
}
