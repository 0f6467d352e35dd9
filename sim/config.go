// Package sim implements the simulator core (C6): agent bookkeeping, the
// synchronous tick scheduler, collision resolution, and snapshotting.
package sim

import (
	"log/slog"

	"github.com/eaplatanios/jbw-go/world"
)

// Permission is the three-way gate spec.md §6 defines for each movement
// direction and rotation.
type Permission uint8

const (
	Allowed Permission = iota
	Disallowed
	Ignored
)

// CollisionPolicy selects how the tick scheduler resolves agents whose
// tentative moves would land on the same cell (spec.md §4.6 step 3).
type CollisionPolicy uint8

const (
	FirstComeFirstServed CollisionPolicy = iota
	Random
	NoCollisions
)

// Config enumerates every recognized simulator configuration option from
// spec.md §6.
type Config struct {
	MaxStepsPerMovement int

	ScentDimension int
	ColorDimension int
	VisionRange    int64

	// AllowedMovementDirections and AllowedRotations are indexed by
	// world.Direction (Up, Down, Left, Right).
	AllowedMovementDirections [4]Permission
	AllowedRotations          [4]Permission
	NoOpAllowed               bool

	PatchSize      int32
	MCMCIterations int
	ItemTypes      []world.ItemType

	AgentColor       []float64
	AgentFieldOfView float64

	CollisionPolicy CollisionPolicy

	DecayParam          float64
	DiffusionParam      float64
	DeletedItemLifetime int64

	Seed uint64

	// SaveFrequency, if > 0, writes a snapshot to SaveDirectory every
	// SaveFrequency ticks (spec.md §4.6 step 8). Saving is disabled when
	// SaveFrequency is zero or SaveDirectory is empty.
	SaveFrequency int64
	SaveDirectory string

	Log *slog.Logger
}

func (c Config) worldConfig() world.Config {
	return world.Config{
		ItemTypes:      c.ItemTypes,
		PatchSize:      c.PatchSize,
		MCMCIterations: c.MCMCIterations,
		Seed:           c.Seed,
		Log:            c.Log,
	}
}

func (c Config) diffusionConfig() world.DiffusionConfig {
	return world.DiffusionConfig{
		ScentDimension:      c.ScentDimension,
		Decay:               c.DecayParam,
		Diffusion:           c.DiffusionParam,
		DeletedItemLifetime: c.DeletedItemLifetime,
	}
}

func (c Config) visionConfig() world.VisionConfig {
	return world.VisionConfig{
		ColorDimension: c.ColorDimension,
		VisionRange:    c.VisionRange,
		AgentColor:     c.AgentColor,
		FieldOfView:    c.AgentFieldOfView,
	}
}
