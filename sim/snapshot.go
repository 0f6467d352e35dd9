package sim

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/eaplatanios/jbw-go/proto"
	"github.com/eaplatanios/jbw-go/world"
)

// snapshotFileName is the single file a save directory holds (spec.md §6
// "Snapshot file layout").
const snapshotFileName = "sim.snapshot"

// Save writes the current simulator state to dir, atomically replacing any
// snapshot already there.
func (s *Simulator) Save(dir string) error {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	return s.saveLocked(dir)
}

// saveLocked serializes the simulator per spec.md §6, extended with the
// tick time, the map's own Gibbs PRNG, and agent state so that Load can
// resume a run exactly rather than only its map. The caller must hold
// s.tickMu.
func (s *Simulator) saveLocked(dir string) error {
	var body bytes.Buffer
	w := proto.NewWriter(&body)

	simRNG, err := s.pcg.MarshalBinary()
	if err != nil {
		return fmt.Errorf("sim: marshal rng state: %w", err)
	}
	w.U64(uint64(len(simRNG)))
	w.Bytes(simRNG)

	w.U32(uint32(s.cfg.PatchSize))
	w.U32(uint32(s.cfg.MCMCIterations))
	w.U32(uint32(s.cfg.Seed))
	w.U64(uint64(s.time))

	mapRNG, err := s.mp.RNGState()
	if err != nil {
		return fmt.Errorf("sim: marshal map rng state: %w", err)
	}
	w.U64(uint64(len(mapRNG)))
	w.Bytes(mapRNG)

	patches := s.mp.AllPatches()
	w.U64(uint64(len(patches)))
	for _, p := range patches {
		ps := proto.PatchState{
			Coord: proto.PatchCoord{X: p.Coord.X, Y: p.Coord.Y},
			Fixed: p.Fixed(),
		}
		for _, it := range p.Items() {
			ps.Items = append(ps.Items, proto.ItemState{
				Type:         uint32(it.Type),
				Location:     proto.Position{X: it.Location.X, Y: it.Location.Y},
				CreationTime: uint64(it.CreationTime),
				DeletionTime: uint64(it.DeletionTime),
			})
		}
		w.WritePatchState(ps)
	}

	s.agentsMu.RLock()
	ids := make([]uint64, 0, len(s.agents))
	for id := range s.agents {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	w.U64(uint64(len(ids)))
	for _, id := range ids {
		a := s.agents[id]
		w.U64(a.ID)
		w.WritePosition(proto.Position{X: a.Position.X, Y: a.Position.Y})
		w.U8(uint8(a.Facing))
		w.IntSlice(a.CollectedItems)
		w.Bool(a.Active)
	}
	s.agentsMu.RUnlock()
	w.U64(s.nextID)

	if err := w.Err(); err != nil {
		return fmt.Errorf("sim: encode snapshot: %w", err)
	}

	var final bytes.Buffer
	final.Write(body.Bytes())
	var chk [8]byte
	binary.LittleEndian.PutUint64(chk[:], xxhash.Sum64(body.Bytes()))
	final.Write(chk[:])

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("sim: create save directory: %w", err)
	}
	tmp := filepath.Join(dir, snapshotFileName+".tmp")
	if err := os.WriteFile(tmp, final.Bytes(), 0o644); err != nil {
		return fmt.Errorf("sim: write snapshot: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, snapshotFileName)); err != nil {
		return fmt.Errorf("sim: install snapshot: %w", err)
	}
	return nil
}

// Load reconstructs a Simulator from the snapshot in dir. cfg supplies the
// item types and tick-time behavioral options the snapshot itself does not
// carry (those live in the handshake's SimulatorConfig, not the save file);
// PatchSize and MCMCIterations are taken from the file, overriding cfg,
// since they determine how existing patches must be interpreted.
//
// A checksum mismatch is refused outright rather than falling back to a
// fresh map, per spec.md §7 "Corruption on reload: refuse to start; do not
// silently reset state".
func Load(dir string, cfg Config, onStep StepFunc) (*Simulator, error) {
	path := filepath.Join(dir, snapshotFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sim: read snapshot: %w", err)
	}
	if len(data) < 8 {
		return nil, fmt.Errorf("sim: snapshot %s is too short to contain a checksum", path)
	}
	body, trailer := data[:len(data)-8], data[len(data)-8:]
	want := binary.LittleEndian.Uint64(trailer)
	if got := xxhash.Sum64(body); got != want {
		return nil, fmt.Errorf("sim: snapshot %s failed checksum: got %x, want %x", path, got, want)
	}

	r := proto.NewReader(bytes.NewReader(body))

	simRNGLen := r.U64()
	simRNG := r.Bytes(int(simRNGLen))

	cfg.PatchSize = int32(r.U32())
	cfg.MCMCIterations = int(r.U32())
	_ = r.U32() // seed: informational only; cfg.Seed seeds New, and both PRNG states are then restored from the file
	t := int64(r.U64())

	mapRNGLen := r.U64()
	mapRNG := r.Bytes(int(mapRNGLen))

	patchCount := r.U64()
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("sim: decode snapshot header: %w", err)
	}

	s := New(cfg, onStep)
	if err := s.pcg.UnmarshalBinary(simRNG); err != nil {
		return nil, fmt.Errorf("sim: restore rng state: %w", err)
	}
	s.rng = rand.New(s.pcg)
	s.time = t

	for i := uint64(0); i < patchCount; i++ {
		ps := r.ReadPatchState()
		items := make([]world.ItemInstance, len(ps.Items))
		for j, it := range ps.Items {
			items[j] = world.ItemInstance{
				Type:         int(it.Type),
				Location:     world.Position{X: it.Location.X, Y: it.Location.Y},
				CreationTime: int64(it.CreationTime),
				DeletionTime: int64(it.DeletionTime),
			}
		}
		p := world.NewPatch(world.PatchCoord{X: ps.Coord.X, Y: ps.Coord.Y}, cfg.PatchSize, ps.Fixed, items)
		s.mp.RestorePatch(p)
	}
	if err := s.mp.RestoreRNGState(mapRNG); err != nil {
		return nil, fmt.Errorf("sim: restore map rng state: %w", err)
	}

	agentCount := r.U64()
	for i := uint64(0); i < agentCount; i++ {
		id := r.U64()
		pos := r.ReadPosition()
		facing := world.Direction(r.U8())
		collected := r.IntSlice()
		active := r.Bool()
		s.agents[id] = &Agent{
			ID:             id,
			Position:       world.Position{X: pos.X, Y: pos.Y},
			Facing:         facing,
			CollectedItems: collected,
			Active:         active,
		}
	}
	s.nextID = r.U64()

	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("sim: decode snapshot body: %w", err)
	}

	for _, a := range s.agents {
		if err := s.refreshPerception(a); err != nil {
			return nil, fmt.Errorf("sim: refresh perception on load: %w", err)
		}
	}

	return s, nil
}
