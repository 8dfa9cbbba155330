package core

// GridState owns the grid dimensions and the two cell buffers. Buffers are
// addressed by role, never by fixed identity: roles[RoleCurrent] names the
// physical slot that holds the latest committed generation.
type GridState struct {
	grid       Grid
	slots      [2]CellState
	roles      [2]int
	generation uint64
}

// NewGridState allocates both slots for the grid. Slot A starts as current
// and slot B as scratch.
func NewGridState(g Grid) (*GridState, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &GridState{
		grid:  g,
		slots: [2]CellState{NewCellState(g), NewCellState(g)},
		roles: [2]int{0, 1},
	}, nil
}

// Grid returns the grid the state was allocated for.
func (s *GridState) Grid() Grid { return s.grid }

// Dimensions returns the grid width and height.
func (s *GridState) Dimensions() (int, int) { return s.grid.W, s.grid.H }

// Generation returns the number of committed steps.
func (s *GridState) Generation() uint64 { return s.generation }

// Parity selects the authoritative slot; it always equals Generation() % 2.
func (s *GridState) Parity() int { return s.roles[RoleCurrent] }

// Slot reports which physical slot (0 = A, 1 = B) plays the role.
func (s *GridState) Slot(r Role) int { return s.roles[r] }

// SlotBuffer exposes a slot by physical identity. Only seeding and device
// mirroring should need it.
func (s *GridState) SlotBuffer(slot int) CellState { return s.slots[slot&1] }

// Current returns the buffer holding the latest committed generation.
func (s *GridState) Current() CellState { return s.slots[s.roles[RoleCurrent]] }

// Scratch returns the buffer the next generation must be written into.
func (s *GridState) Scratch() CellState { return s.slots[s.roles[RoleScratch]] }

// CurrentBuffer returns the current buffer for an arbitrary parity value.
func (s *GridState) CurrentBuffer(parity int) CellState { return s.slots[parity&1] }

// ScratchBuffer returns the scratch buffer for an arbitrary parity value.
func (s *GridState) ScratchBuffer(parity int) CellState { return s.slots[(parity+1)&1] }

// Commit swaps the roles of the two slots and advances the generation. No
// cell data is copied.
func (s *GridState) Commit() {
	s.roles[RoleCurrent], s.roles[RoleScratch] = s.roles[RoleScratch], s.roles[RoleCurrent]
	s.generation++
}
