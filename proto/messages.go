package proto

// Kind identifies the message type of a {u64 kind, payload} frame
// (spec.md §6 "Wire messages").
type Kind uint64

const (
	KindAddAgent Kind = iota
	KindAddAgentResponse
	KindMove
	KindMoveResponse
	KindTurn
	KindTurnResponse
	KindDoNothing
	KindDoNothingResponse
	KindGetMap
	KindGetMapResponse
	KindGetAgentIDs
	KindGetAgentIDsResponse
	KindGetAgentStates
	KindGetAgentStatesResponse
	KindSetActive
	KindSetActiveResponse
	KindIsActive
	KindIsActiveResponse
	KindStepResponse
)

// ResponseCode is the u8 status code every response payload begins with
// (spec.md §6).
type ResponseCode uint8

const (
	Failure ResponseCode = iota
	Success
	InvalidAgentID
	ServerParseMessageError
	ClientParseMessageError
	PermissionError
	AgentAlreadyActed
	OutOfMemory
	MPIError
)

// ClientID is the wire form of a connection's identity: a 16-byte UUID
// (spec.md §6 "Handshake"), issued by the server on first connect and
// presented again on reconnect so the server can restore agent ownership.
type ClientID [16]byte

// NilClientID is the NEW_CLIENT_REQUEST sentinel a connecting client sends
// in place of a previously issued client id.
var NilClientID ClientID

func (w *Writer) WriteClientID(id ClientID) { w.Bytes(id[:]) }

func (r *Reader) ReadClientID() ClientID {
	var id ClientID
	copy(id[:], r.Bytes(16))
	return id
}

// Position mirrors world.Position without depending on the world package,
// keeping this package a leaf with no knowledge of simulation semantics.
type Position struct{ X, Y int64 }

// WritePosition writes a Position: two little-endian i64 fields.
func (w *Writer) WritePosition(p Position) {
	w.I64(p.X)
	w.I64(p.Y)
}

// ReadPosition reads a Position.
func (r *Reader) ReadPosition() Position {
	x := r.I64()
	y := r.I64()
	return Position{X: x, Y: y}
}

// Direction mirrors world.Direction as a single byte.
type Direction uint8

// ItemState is the wire form of a single item instance (spec.md §6
// "Snapshot file layout", Item).
type ItemState struct {
	Type         uint32
	Location     Position
	CreationTime uint64
	DeletionTime uint64
}

func (w *Writer) WriteItemState(it ItemState) {
	w.U32(it.Type)
	w.WritePosition(it.Location)
	w.U64(it.CreationTime)
	w.U64(it.DeletionTime)
}

func (r *Reader) ReadItemState() ItemState {
	var it ItemState
	it.Type = r.U32()
	it.Location = r.ReadPosition()
	it.CreationTime = r.U64()
	it.DeletionTime = r.U64()
	return it
}

// PatchState is the wire form of one patch (spec.md §6, Patch).
type PatchState struct {
	Coord PatchCoord
	Fixed bool
	Items []ItemState
}

// PatchCoord is the wire form of world.PatchCoord.
type PatchCoord struct{ X, Y int32 }

func (w *Writer) WritePatchCoord(c PatchCoord) {
	w.U32(uint32(int32(c.X)))
	w.U32(uint32(int32(c.Y)))
}

func (r *Reader) ReadPatchCoord() PatchCoord {
	x := int32(r.U32())
	y := int32(r.U32())
	return PatchCoord{X: x, Y: y}
}

func (w *Writer) WritePatchState(p PatchState) {
	w.WritePatchCoord(p.Coord)
	w.Bool(p.Fixed)
	w.U64(uint64(len(p.Items)))
	for _, it := range p.Items {
		w.WriteItemState(it)
	}
}

func (r *Reader) ReadPatchState() PatchState {
	var p PatchState
	p.Coord = r.ReadPatchCoord()
	p.Fixed = r.Bool()
	n := r.U64()
	p.Items = make([]ItemState, n)
	for i := range p.Items {
		p.Items[i] = r.ReadItemState()
	}
	return p
}

// AgentState is the wire form of an agent's externally visible state
// (spec.md §3 "Agent").
type AgentState struct {
	ID             uint64
	Position       Position
	Facing         Direction
	Scent          []float64
	Vision         []float64
	CollectedItems []int
	Active         bool
}

func (w *Writer) WriteAgentState(a AgentState) {
	w.U64(a.ID)
	w.WritePosition(a.Position)
	w.U8(uint8(a.Facing))
	w.F64Slice(a.Scent)
	w.F64Slice(a.Vision)
	w.IntSlice(a.CollectedItems)
	w.Bool(a.Active)
}

func (r *Reader) ReadAgentState() AgentState {
	var a AgentState
	a.ID = r.U64()
	a.Position = r.ReadPosition()
	a.Facing = Direction(r.U8())
	a.Scent = r.F64Slice()
	a.Vision = r.F64Slice()
	a.CollectedItems = r.IntSlice()
	a.Active = r.Bool()
	return a
}

// ItemTypeConfig is the wire form of the static item-type configuration
// exchanged during the handshake (spec.md §3 "Item type", §6
// "Simulator configuration").
type ItemTypeConfig struct {
	Name                   string
	Scent                  []float64
	Color                  []float64
	RequiredCounts         []int
	RequiredCosts          []int
	BlocksMovement         bool
	VisualOcclusion        float64
	AutomaticallyCollected bool
}

func (w *Writer) WriteItemTypeConfig(t ItemTypeConfig) {
	w.String(t.Name)
	w.F64Slice(t.Scent)
	w.F64Slice(t.Color)
	w.IntSlice(t.RequiredCounts)
	w.IntSlice(t.RequiredCosts)
	w.Bool(t.BlocksMovement)
	w.F64(t.VisualOcclusion)
	w.Bool(t.AutomaticallyCollected)
}

func (r *Reader) ReadItemTypeConfig() ItemTypeConfig {
	var t ItemTypeConfig
	t.Name = r.String()
	t.Scent = r.F64Slice()
	t.Color = r.F64Slice()
	t.RequiredCounts = r.IntSlice()
	t.RequiredCosts = r.IntSlice()
	t.BlocksMovement = r.Bool()
	t.VisualOcclusion = r.F64()
	t.AutomaticallyCollected = r.Bool()
	return t
}

// SimulatorConfig is the wire form of the handful of simulator
// configuration fields a client needs to validate incoming agent states
// against (spec.md §4.9: "the client holds the server's reported
// simulator_config and validates incoming agent states against its
// dimensions").
type SimulatorConfig struct {
	MaxStepsPerMovement int32
	ScentDimension      int32
	ColorDimension      int32
	VisionRange         int64
	PatchSize           int32
	ItemTypes           []ItemTypeConfig
}

func (w *Writer) WriteSimulatorConfig(c SimulatorConfig) {
	w.U32(uint32(c.MaxStepsPerMovement))
	w.U32(uint32(c.ScentDimension))
	w.U32(uint32(c.ColorDimension))
	w.I64(c.VisionRange)
	w.U32(uint32(c.PatchSize))
	w.U64(uint64(len(c.ItemTypes)))
	for _, t := range c.ItemTypes {
		w.WriteItemTypeConfig(t)
	}
}

func (r *Reader) ReadSimulatorConfig() SimulatorConfig {
	var c SimulatorConfig
	c.MaxStepsPerMovement = int32(r.U32())
	c.ScentDimension = int32(r.U32())
	c.ColorDimension = int32(r.U32())
	c.VisionRange = r.I64()
	c.PatchSize = int32(r.U32())
	n := r.U64()
	c.ItemTypes = make([]ItemTypeConfig, n)
	for i := range c.ItemTypes {
		c.ItemTypes[i] = r.ReadItemTypeConfig()
	}
	return c
}
