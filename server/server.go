package server

import (
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/eaplatanios/jbw-go/sim"
)

// Server accepts TCP connections speaking the wire protocol of spec.md §6
// and dispatches them against a single underlying Simulator.
type Server struct {
	cfg Config
	log *slog.Logger
	sim *sim.Simulator

	ln net.Listener

	// work bounds how many requests are decoded and dispatched at once,
	// across every connection; it does not bound connection count (each
	// connection gets its own goroutine that blocks reading the next
	// message, the Go-idiomatic stand-in for spec.md §4.8's per-OS
	// readiness-event wait).
	work chan func()
	wg   sync.WaitGroup

	mu       sync.RWMutex
	sessions map[uuid.UUID]*session
	closed   bool
}

// New binds a listener on cfg.Address and constructs a Server with a fresh
// Simulator behind it.
func New(cfg Config) (*Server, error) {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	ln, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("server: listen: %w", err)
	}
	srv := &Server{
		cfg:      cfg,
		log:      log,
		ln:       ln,
		work:     make(chan func(), cfg.workerCount()),
		sessions: make(map[uuid.UUID]*session),
	}
	srv.sim = sim.New(cfg.Simulator, srv.broadcastStep)
	for i := 0; i < cfg.workerCount(); i++ {
		srv.wg.Add(1)
		go srv.worker()
	}
	return srv, nil
}

// Addr returns the address the Server is listening on.
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Simulator exposes the underlying Simulator, e.g. for an embedding process
// that wants to drive it directly alongside network clients.
func (s *Server) Simulator() *sim.Simulator { return s.sim }

// Serve accepts connections until Close is called, blocking until the
// listener shuts down. Every accepted connection gets its own goroutine,
// so the number of concurrently open clients is unbounded by
// Config.WorkerCount; that setting only bounds concurrent request
// execution.
func (s *Server) Serve() error {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			s.mu.RLock()
			closed := s.closed
			s.mu.RUnlock()
			if closed {
				return nil
			}
			return fmt.Errorf("server: accept: %w", err)
		}
		go s.handle(conn)
	}
}

func (s *Server) worker() {
	defer s.wg.Done()
	for fn := range s.work {
		fn()
	}
}

// submit enqueues fn for execution by the worker pool, reporting false
// instead of sending if the server is already closed.
func (s *Server) submit(fn func()) bool {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return false
	}
	s.work <- fn
	return true
}

// Close stops accepting new connections and closes every active session.
// It blocks until all worker goroutines have drained.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	sessions := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	err := s.ln.Close()
	for _, sess := range sessions {
		sess.conn.Close()
	}
	close(s.work)
	s.wg.Wait()
	return err
}

func (s *Server) handle(conn net.Conn) {
	sess, err := s.handshake(conn)
	if err != nil {
		s.log.Warn("handshake failed", "remote", conn.RemoteAddr(), "error", err)
		conn.Close()
		return
	}
	s.mu.Lock()
	s.sessions[sess.clientID] = sess
	s.mu.Unlock()

	sess.serve()

	// The session entry is kept after disconnect so that a later handshake
	// presenting this client id can recover its agents.
	conn.Close()
}

// broadcastStep is wired as the Simulator's StepFunc: it fans each agent's
// new state out to whichever session owns it (spec.md §4.8: "on step,
// broadcast a STEP_RESPONSE frame to every connection, containing only
// that client's agents' updated state"). It runs on the tick goroutine
// inside the txguard-guarded callback, so it must not call back into
// s.sim.
func (s *Server) broadcastStep(agents map[uint64]sim.Snapshot) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		sess.pushStep(agents)
	}
}
