package world

import "math"

// VisionConfig parameterizes the vision renderer (C5, spec.md §4.5).
type VisionConfig struct {
	ColorDimension int
	VisionRange    int64 // V
	AgentColor     []float64
	// FieldOfView, in radians. Values >= 2*pi disable FOV clipping.
	FieldOfView float64
}

// Vision renders the agent's local color field, a square of side 2V+1
// oriented to facing, flattened row-major as (forward, right, color) with
// forward and right each ranging over [-V, V]. Cells beyond the map's
// generated region are not special: callers must have already forced the
// relevant patches fixed via GetFixedNeighborhood (spec.md §4.5 and §4.6
// step 6).
func (m *Map) Vision(agentPos Position, facing Direction, t int64, cfg VisionConfig) []float64 {
	v := cfg.VisionRange
	side := int(2*v + 1)
	out := make([]float64, side*side*cfg.ColorDimension)

	clip := cfg.FieldOfView > 0 && cfg.FieldOfView < 2*math.Pi

	m.mu.Lock()
	defer m.mu.Unlock()

	i := 0
	for fwd := -v; fwd <= v; fwd++ {
		for right := -v; right <= v; right++ {
			base := i * cfg.ColorDimension
			i++

			if clip && (fwd != 0 || right != 0) {
				angle := math.Atan2(float64(right), float64(fwd))
				if math.Abs(angle) > cfg.FieldOfView/2 {
					continue // background stays zero
				}
			}

			if fwd == 0 && right == 0 {
				for c := 0; c < cfg.ColorDimension && c < len(cfg.AgentColor); c++ {
					out[base+c] = cfg.AgentColor[c]
				}
				continue
			}

			worldDX, worldDY := localToWorld(facing, fwd, right)
			pos := agentPos.Add(worldDX, worldDY)
			m.blendCellLocked(pos, t, cfg.ColorDimension, out[base:base+cfg.ColorDimension])
		}
	}
	return out
}

// localToWorld converts agent-relative (forward, right) offsets into world
// (dx, dy) offsets given the agent's facing.
func localToWorld(facing Direction, forward, right int64) (dx, dy int64) {
	switch facing {
	case Up:
		return right, forward
	case Down:
		return -right, -forward
	case Left:
		return -forward, right
	default: // Right
		return forward, -right
	}
}

// blendCellLocked writes the blended color of pos at time t into dst, in
// stable (insertion) order: color_out starts at zero and for each live
// item, in order, color_out = occlusion*item.color + (1-occlusion)*color_out.
func (m *Map) blendCellLocked(pos Position, t int64, colorDim int, dst []float64) {
	p, ok := m.patchAtLocked(patchCoordOf(pos, m.cfg.PatchSize))
	if !ok {
		return
	}
	for _, it := range p.items {
		if it.Location != pos || !it.LiveAt(t) {
			continue
		}
		ty := m.cfg.ItemTypes[it.Type]
		occ := ty.VisualOcclusion
		for c := 0; c < colorDim; c++ {
			var itemColor float64
			if c < len(ty.Color) {
				itemColor = ty.Color[c]
			}
			dst[c] = occ*itemColor + (1-occ)*dst[c]
		}
	}
}
