// Package txguard protects the simulator's action API from reentrant calls
// made by a step callback. A callback that called back into the simulator
// that invoked it would otherwise self-deadlock on a lock its own caller
// already holds; Guard converts that specific case into a detectable panic
// instead, the same way the teacher's world.Tx converts use of a closed
// transaction into a panic rather than undefined behavior.
package txguard

import (
	"bytes"
	"runtime"
	"strconv"
	"sync/atomic"
)

// ClosedPanicMessage is the panic value a guarded region raises to signal
// "a step callback called back into the simulator that is running it"
// rather than an arbitrary runtime panic.
const ClosedPanicMessage = "sim: re-entrant call into simulator from step callback"

// Guard marks the single goroutine, if any, currently executing inside a
// guarded region. Check panics if called from that same goroutine; calls
// from any other goroutine are unaffected and simply block on whatever
// lock they're after, same as any other legitimate concurrent caller.
type Guard struct {
	gid atomic.Uint64
}

// Run executes fn with the guard entered for the calling goroutine and
// reports ok=false instead of panicking if fn (or anything fn calls)
// raised ClosedPanicMessage via Check. Any other panic is re-raised.
func (g *Guard) Run(fn func()) (ok bool) {
	g.gid.Store(goroutineID())
	defer g.gid.Store(0)
	defer func() {
		if r := recover(); r != nil {
			if msg, isStr := r.(string); isStr && msg == ClosedPanicMessage {
				ok = false
				return
			}
			panic(r)
		}
	}()
	fn()
	return true
}

// Check panics with ClosedPanicMessage if called from the goroutine
// currently executing inside the region most recently entered by Run. A
// reentrant-sensitive method calls this before attempting to acquire a
// lock that goroutine may already hold.
func (g *Guard) Check() {
	if id := goroutineID(); id != 0 && id == g.gid.Load() {
		panic(ClosedPanicMessage)
	}
}

func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := bytes.TrimPrefix(buf[:n], []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}
