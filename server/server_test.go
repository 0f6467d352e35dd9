package server_test

import (
	"testing"
	"time"

	"github.com/eaplatanios/jbw-go/client"
	"github.com/eaplatanios/jbw-go/proto"
	"github.com/eaplatanios/jbw-go/server"
	"github.com/eaplatanios/jbw-go/sim"
	"github.com/eaplatanios/jbw-go/world"
)

func testServerConfig() server.Config {
	allAllowed := [4]sim.Permission{sim.Allowed, sim.Allowed, sim.Allowed, sim.Allowed}
	return server.Config{
		Address: "127.0.0.1:0",
		Simulator: sim.Config{
			MaxStepsPerMovement:       1,
			ScentDimension:            3,
			ColorDimension:            3,
			VisionRange:               1,
			AllowedMovementDirections: allAllowed,
			AllowedRotations:          allAllowed,
			NoOpAllowed:               true,
			PatchSize:                 8,
			MCMCIterations:            1,
			AgentColor:                []float64{1, 0, 0},
			AgentFieldOfView:          6.28,
			CollisionPolicy:           sim.FirstComeFirstServed,
			DecayParam:                0.5,
			DiffusionParam:            0.1,
			DeletedItemLifetime:       100,
			Seed:                      7,
		},
	}
}

func TestAddAgentAndMoveRoundTrip(t *testing.T) {
	srv, err := server.New(testServerConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer srv.Close()
	go srv.Serve()

	c, err := client.Connect(client.Config{Address: srv.Addr().String()})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	agent, err := c.AddAgent()
	if err != nil {
		t.Fatalf("AddAgent: %v", err)
	}

	if err := c.Move(agent.ID, world.Right); err != nil {
		t.Fatalf("Move: %v", err)
	}

	states, err := c.GetAgentStates([]uint64{agent.ID})
	if err != nil {
		t.Fatalf("GetAgentStates: %v", err)
	}
	if len(states) != 1 {
		t.Fatalf("expected 1 state, got %d", len(states))
	}
	if states[0].Position.X != 1 || states[0].Position.Y != 0 {
		t.Fatalf("position = %+v, want (1, 0)", states[0].Position)
	}
}

func TestStepPushReachesOwningClient(t *testing.T) {
	srv, err := server.New(testServerConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer srv.Close()
	go srv.Serve()

	stepped := make(chan []proto.AgentState, 4)
	c, err := client.Connect(client.Config{
		Address: srv.Addr().String(),
		OnStep: func(agents []proto.AgentState) {
			stepped <- agents
		},
	})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	agent, err := c.AddAgent()
	if err != nil {
		t.Fatalf("AddAgent: %v", err)
	}
	if err := c.DoNothing(agent.ID); err != nil {
		t.Fatalf("DoNothing: %v", err)
	}

	select {
	case agents := <-stepped:
		found := false
		for _, a := range agents {
			if a.ID == agent.ID {
				found = true
			}
		}
		if !found {
			t.Fatalf("step push %v did not include agent %d", agents, agent.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for step push")
	}
}
