// Package server implements the TCP front end (C8): one reader goroutine
// per open connection (so concurrently open clients aren't bounded by a
// fixed pool size), a bounded pool of workers that decode and dispatch the
// messages those readers hand off, per-client handshake and agent
// ownership tracking, and the synchronous step broadcast, all driving a
// single shared sim.Simulator (spec.md §4.8 "Server").
package server

import (
	"log/slog"

	"github.com/eaplatanios/jbw-go/sim"
)

// Config configures a Server.
type Config struct {
	// Address is the TCP address to listen on, e.g. ":54321".
	Address string

	Simulator sim.Config

	// WorkerCount bounds how many connections are decoded/dispatched
	// concurrently by the shared request-handling pool; it does not bound
	// how many connections may be open at once (each gets its own
	// always-reading goroutine, since a session's read loop blocks for the
	// life of the connection).
	WorkerCount int

	// Permissions gates which request kinds a connection may issue
	// (spec.md §4.8). Nil means every kind is allowed.
	Permissions *Permissions

	Log *slog.Logger
}

func (c Config) workerCount() int {
	if c.WorkerCount > 0 {
		return c.WorkerCount
	}
	return 8
}

func (c Config) permissions() Permissions {
	if c.Permissions != nil {
		return *c.Permissions
	}
	return AllAllowed()
}
