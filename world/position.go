package world

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Position is a single point on the infinite integer lattice.
type Position struct {
	X, Y int64
}

// Add returns the position offset by dx, dy.
func (p Position) Add(dx, dy int64) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Less reports whether p sorts before o under lexicographic ordering on
// (X, Y). It is used wherever a deterministic processing order over
// positions is required, such as the simulator's collision groups.
func (p Position) Less(o Position) bool {
	if p.X != o.X {
		return p.X < o.X
	}
	return p.Y < o.Y
}

// Hash returns a 64-bit hash of p, for callers that need a stable integer
// key for a position. The patch map's index does not use it; it keys
// patches by PatchCoord.pack.
func (p Position) Hash() uint64 {
	var buf [16]byte
	putI64(buf[0:8], p.X)
	putI64(buf[8:16], p.Y)
	return xxhash.Sum64(buf[:])
}

func putI64(b []byte, v int64) {
	u := uint64(v)
	for i := 0; i < 8; i++ {
		b[i] = byte(u >> (8 * i))
	}
}

func (p Position) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// PatchCoord identifies a patch in the infinite grid of fixed-size patches.
type PatchCoord struct {
	X, Y int32
}

func (c PatchCoord) String() string {
	return fmt.Sprintf("patch(%d, %d)", c.X, c.Y)
}

// patchCoordOf floors-divides a world position by the patch size n to
// obtain the patch that contains it.
func patchCoordOf(pos Position, n int32) PatchCoord {
	return PatchCoord{X: int32(floorDiv(pos.X, int64(n))), Y: int32(floorDiv(pos.Y, int64(n)))}
}

// PatchCoordOf is the exported form of patchCoordOf, used by callers
// outside this package (e.g. sim) that need to map a world position to the
// patch coordinate containing it.
func PatchCoordOf(pos Position, patchSize int32) PatchCoord {
	return patchCoordOf(pos, patchSize)
}

// floorDiv computes floor(a / b) for b > 0, unlike Go's truncating /.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// pack combines a PatchCoord into a single int64 key suitable for use with
// intintmap.Map, which only accepts int64 keys and values.
func (c PatchCoord) pack() int64 {
	return int64(uint64(uint32(c.X))<<32 | uint64(uint32(c.Y)))
}

func unpackPatchCoord(k int64) PatchCoord {
	u := uint64(k)
	return PatchCoord{X: int32(uint32(u >> 32)), Y: int32(uint32(u))}
}
