package core

// CellState holds one generation of binary cells (0 dead, 1 alive) in
// row-major order.
type CellState []uint8

// NewCellState allocates an all-dead state for the grid.
func NewCellState(g Grid) CellState { return make(CellState, g.Cells()) }

// Alive reports whether the cell at linear index i is alive.
func (c CellState) Alive(i int) bool { return c[i] != 0 }

// Population counts the live cells.
func (c CellState) Population() int {
	n := 0
	for _, v := range c {
		if v != 0 {
			n++
		}
	}
	return n
}

// Clear marks every cell dead.
func (c CellState) Clear() {
	for i := range c {
		c[i] = 0
	}
}

// Clone returns an independent copy.
func (c CellState) Clone() CellState { return append(CellState(nil), c...) }

// Role names the part a buffer plays in the current tick.
type Role int

const (
	// RoleCurrent holds the latest committed generation.
	RoleCurrent Role = iota
	// RoleScratch receives the next generation.
	RoleScratch
)

func (r Role) String() string {
	switch r {
	case RoleCurrent:
		return "current"
	case RoleScratch:
		return "scratch"
	default:
		return "unknown"
	}
}
