package sim

import "errors"

var (
	// ErrUnknownAgent is returned for requests naming an agent id the
	// simulator does not know (wire code INVALID_AGENT_ID).
	ErrUnknownAgent = errors.New("sim: unknown agent id")
	// ErrAgentAlreadyActed is returned when an action is requested for an
	// agent already in the ActionRequested state (wire code
	// AGENT_ALREADY_ACTED).
	ErrAgentAlreadyActed = errors.New("sim: agent already acted this tick")
	// ErrPermission is returned when a requested direction or rotation is
	// Disallowed by the simulator configuration (wire code PERMISSION_ERROR).
	ErrPermission = errors.New("sim: action not permitted")
)
