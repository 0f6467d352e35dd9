// Package proto implements the wire codec (C7): byte-exact, little-endian,
// fixed-width serialization for every message, agent state, patch state,
// and map snapshot described in spec.md §4.7 and §6.
//
// Writer and Reader follow a sticky-error convention: once an operation
// fails, every subsequent operation on the same value is a no-op and the
// original error is returned by Err/Close. This mirrors the
// protocol.Writer/Reader style of the Minecraft networking stack the
// teacher repository is built on, adapted here to a small hand-rolled
// codec instead of a third-party protocol library, since spec.md §4.7
// mandates an explicit from-scratch wire format rather than reuse of an
// existing game protocol.
package proto

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Writer serializes values in the wire format of spec.md §4.7.
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter returns a Writer that writes to w.
func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

// Err returns the first error encountered, if any.
func (w *Writer) Err() error { return w.err }

func (w *Writer) write(b []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.w.Write(b)
}

// U8 writes a single byte.
func (w *Writer) U8(v uint8) { w.write([]byte{v}) }

// Bool writes a byte: 1 for true, 0 for false.
func (w *Writer) Bool(v bool) {
	if v {
		w.U8(1)
	} else {
		w.U8(0)
	}
}

// U32 writes a little-endian uint32.
func (w *Writer) U32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.write(b[:])
}

// U64 writes a little-endian uint64.
func (w *Writer) U64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.write(b[:])
}

// I64 writes a little-endian int64.
func (w *Writer) I64(v int64) { w.U64(uint64(v)) }

// F64 writes a float64 in the host's native byte order, represented here
// as little-endian (spec.md §4.7: "interoperability across hosts requires
// matching endianness (documented constraint)").
func (w *Writer) F64(v float64) { w.U64(math.Float64bits(v)) }

// Bytes writes raw bytes with no length prefix.
func (w *Writer) Bytes(b []byte) { w.write(b) }

// String writes a u64 length prefix followed by the UTF-8 bytes of s.
func (w *Writer) String(s string) {
	w.U64(uint64(len(s)))
	w.write([]byte(s))
}

// F64Slice writes a u64 length prefix followed by each element.
func (w *Writer) F64Slice(v []float64) {
	w.U64(uint64(len(v)))
	for _, f := range v {
		w.F64(f)
	}
}

// IntSlice writes a u64 length prefix followed by each element as an i64.
func (w *Writer) IntSlice(v []int) {
	w.U64(uint64(len(v)))
	for _, i := range v {
		w.I64(int64(i))
	}
}

// Reader deserializes values in the wire format of spec.md §4.7.
type Reader struct {
	r   io.Reader
	err error
}

// NewReader returns a Reader that reads from r.
func NewReader(r io.Reader) *Reader { return &Reader{r: r} }

// Err returns the first error encountered, if any.
func (r *Reader) Err() error { return r.err }

func (r *Reader) read(b []byte) {
	if r.err != nil {
		return
	}
	_, r.err = io.ReadFull(r.r, b)
}

// U8 reads a single byte.
func (r *Reader) U8() uint8 {
	var b [1]byte
	r.read(b[:])
	return b[0]
}

// Bool reads a byte and reports whether it is nonzero.
func (r *Reader) Bool() bool { return r.U8() != 0 }

// U32 reads a little-endian uint32.
func (r *Reader) U32() uint32 {
	var b [4]byte
	r.read(b[:])
	return binary.LittleEndian.Uint32(b[:])
}

// U64 reads a little-endian uint64.
func (r *Reader) U64() uint64 {
	var b [8]byte
	r.read(b[:])
	return binary.LittleEndian.Uint64(b[:])
}

// I64 reads a little-endian int64.
func (r *Reader) I64() int64 { return int64(r.U64()) }

// F64 reads a float64 stored per Writer.F64.
func (r *Reader) F64() float64 { return math.Float64frombits(r.U64()) }

// Bytes reads exactly n raw bytes with no length prefix, the counterpart to
// Writer.Bytes.
func (r *Reader) Bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	b := make([]byte, n)
	r.read(b)
	return b
}

// String reads a u64 length prefix followed by that many bytes.
func (r *Reader) String() string {
	n := r.U64()
	if r.err != nil || n > maxReasonableLength {
		if n > maxReasonableLength {
			r.err = fmt.Errorf("proto: string length %d exceeds sanity limit", n)
		}
		return ""
	}
	b := make([]byte, n)
	r.read(b)
	return string(b)
}

// F64Slice reads a u64 length prefix followed by that many float64s.
func (r *Reader) F64Slice() []float64 {
	n := r.U64()
	if r.err != nil || n > maxReasonableLength {
		if n > maxReasonableLength {
			r.err = fmt.Errorf("proto: slice length %d exceeds sanity limit", n)
		}
		return nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = r.F64()
	}
	return out
}

// IntSlice reads a u64 length prefix followed by that many i64s.
func (r *Reader) IntSlice() []int {
	n := r.U64()
	if r.err != nil || n > maxReasonableLength {
		if n > maxReasonableLength {
			r.err = fmt.Errorf("proto: slice length %d exceeds sanity limit", n)
		}
		return nil
	}
	out := make([]int, n)
	for i := range out {
		out[i] = int(r.I64())
	}
	return out
}

// maxReasonableLength guards against a corrupt or malicious length prefix
// causing an unbounded allocation; it is far larger than any legitimate
// string, vector, or array this protocol ever carries.
const maxReasonableLength = 1 << 32
