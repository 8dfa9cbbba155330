package core

import "fmt"

// Grid describes the dimensions of a toroidal simulation grid. Cells are
// stored in row-major order, so (x, y) lives at index y*W + x.
type Grid struct {
	W, H int
}

// NewGrid validates the dimensions and returns the grid. Non-positive sizes
// are rejected rather than clamped.
func NewGrid(w, h int) (Grid, error) {
	if w <= 0 || h <= 0 {
		return Grid{}, fmt.Errorf("%w: %dx%d", ErrInvalidGrid, w, h)
	}
	return Grid{W: w, H: h}, nil
}

// Validate reports ErrInvalidGrid for grids that were built by hand with
// non-positive dimensions.
func (g Grid) Validate() error {
	if g.W <= 0 || g.H <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidGrid, g.W, g.H)
	}
	return nil
}

// Cells returns the number of cells in the grid.
func (g Grid) Cells() int { return g.W * g.H }

// Index returns the linear slice index for coordinates (x, y). Coordinates are
// wrapped first, so any integer pair is valid.
func (g Grid) Index(x, y int) int {
	x, y = g.Wrap(x, y)
	return y*g.W + x
}

// Coord is the inverse of Index for in-range indices.
func (g Grid) Coord(i int) (int, int) { return i % g.W, i / g.W }

// Wrap applies toroidal wrapping to the provided coordinates.
func (g Grid) Wrap(x, y int) (int, int) {
	x = (x%g.W + g.W) % g.W
	y = (y%g.H + g.H) % g.H
	return x, y
}

func (g Grid) String() string { return fmt.Sprintf("%dx%d", g.W, g.H) }
