// Command jbwd is a minimal illustration of wiring a Server together: one
// item type and a text logger on stdout. It creates no agents itself;
// connecting clients add them. It is not a configurable CLI; real
// deployments construct server.Config themselves.
package main

import (
	"log/slog"
	"os"

	"github.com/eaplatanios/jbw-go/field"
	"github.com/eaplatanios/jbw-go/server"
	"github.com/eaplatanios/jbw-go/sim"
	"github.com/eaplatanios/jbw-go/world"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg := server.Config{
		Address: ":54321",
		Log:     log,
		Simulator: sim.Config{
			MaxStepsPerMovement: 1,
			ScentDimension:      3,
			ColorDimension:      3,
			VisionRange:         5,
			AllowedMovementDirections: [4]sim.Permission{
				sim.Allowed, sim.Allowed, sim.Allowed, sim.Allowed,
			},
			AllowedRotations: [4]sim.Permission{
				sim.Allowed, sim.Allowed, sim.Allowed, sim.Allowed,
			},
			NoOpAllowed:    true,
			PatchSize:      32,
			MCMCIterations: 10,
			ItemTypes: []world.ItemType{
				{
					Name:                   "banana",
					Scent:                  []float64{0, 1, 0},
					Color:                  []float64{0, 1, 0},
					AutomaticallyCollected: true,
					Intensity: field.Intensity{
						Kind: field.IntensityConstant, Theta: []float64{-5.3},
					},
					Interaction: []field.Interaction{
						{Kind: field.InteractionPiecewiseBox, Params: []float64{10, 200, 0, -6}},
					},
				},
			},
			AgentColor:          []float64{1, 0, 0},
			AgentFieldOfView:    6.28,
			CollisionPolicy:     sim.FirstComeFirstServed,
			DecayParam:          0.5,
			DiffusionParam:      0.12,
			DeletedItemLifetime: 2000,
			Seed:                1337,
			SaveFrequency:       1000,
			SaveDirectory:       "./jbwd-snapshots",
			Log:                 log,
		},
	}

	srv, err := server.New(cfg)
	if err != nil {
		log.Error("failed to start server", "error", err)
		os.Exit(1)
	}
	log.Info("listening", "addr", srv.Addr())
	if err := srv.Serve(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}
