package life

import (
	"math/rand/v2"
	"slices"
	"testing"

	"life-gpu/internal/core"
)

func mustGrid(t *testing.T, w, h int) core.Grid {
	t.Helper()
	g, err := core.NewGrid(w, h)
	if err != nil {
		t.Fatalf("NewGrid(%d, %d): %v", w, h, err)
	}
	return g
}

func step(t *testing.T, s Stepper, g core.Grid, cur core.CellState) core.CellState {
	t.Helper()
	next := core.NewCellState(g)
	if err := s.Step(g, cur, next); err != nil {
		t.Fatalf("%s step: %v", s.Name(), err)
	}
	return next
}

func expectAlive(t *testing.T, g core.Grid, cells core.CellState, alive map[[2]int]bool, when string) {
	t.Helper()
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			got := cells[y*g.W+x] == 1
			if got != alive[[2]int{x, y}] {
				t.Fatalf("%s: cell (%d,%d) alive=%v, expected %v", when, x, y, got, !got)
			}
		}
	}
}

func testSteppers(t *testing.T) []Stepper {
	return []Stepper{Reference{}, NewParallel(4), &Parallel{TileW: 3, TileH: 5, Workers: 2}}
}

func TestNextRule(t *testing.T) {
	for n := 0; n <= 8; n++ {
		wantDead := uint8(0)
		if n == 3 {
			wantDead = 1
		}
		wantAlive := uint8(0)
		if n == 2 || n == 3 {
			wantAlive = 1
		}
		if got := Next(0, n); got != wantDead {
			t.Errorf("Next(dead, %d) = %d, want %d", n, got, wantDead)
		}
		if got := Next(1, n); got != wantAlive {
			t.Errorf("Next(alive, %d) = %d, want %d", n, got, wantAlive)
		}
	}
	if Next(1, 9) != 0 || Next(1, -1) != 0 {
		t.Fatal("out of range neighbor counts must produce a dead cell")
	}
}

func TestBlockStillLife(t *testing.T) {
	for _, size := range [][2]int{{4, 4}, {6, 5}, {9, 9}} {
		g := mustGrid(t, size[0], size[1])
		for _, eng := range testSteppers(t) {
			cells := core.NewCellState(g)
			Stamp(g, cells, Block, 1, 1)
			initial := cells.Clone()
			for i := 0; i < 5; i++ {
				cells = step(t, eng, g, cells)
				if !slices.Equal(cells, initial) {
					t.Fatalf("%s on %s: block changed after %d steps", eng.Name(), g, i+1)
				}
			}
		}
	}
}

func TestBlinkerOscillation(t *testing.T) {
	g := mustGrid(t, 5, 5)
	for _, eng := range testSteppers(t) {
		cells := core.NewCellState(g)
		Stamp(g, cells, Blinker, 2, 1)

		cells = step(t, eng, g, cells)
		expectAlive(t, g, cells, map[[2]int]bool{{1, 2}: true, {2, 2}: true, {3, 2}: true}, eng.Name()+" after one step")

		cells = step(t, eng, g, cells)
		expectAlive(t, g, cells, map[[2]int]bool{{2, 1}: true, {2, 2}: true, {2, 3}: true}, eng.Name()+" after two steps")
	}
}

func TestToroidalCornerWrap(t *testing.T) {
	g := mustGrid(t, 6, 4)
	cells := core.NewCellState(g)
	cells[g.Index(0, 0)] = 1

	if n := CountNeighbors(g, cells, g.W-1, g.H-1); n != 1 {
		t.Fatalf("(w-1,h-1) sees %d neighbors, want 1 via corner wrap", n)
	}
	if n := CountNeighbors(g, cells, g.W-1, 0); n != 1 {
		t.Fatalf("(w-1,0) sees %d neighbors, want 1 via horizontal wrap", n)
	}
	if n := CountNeighbors(g, cells, 0, g.H-1); n != 1 {
		t.Fatalf("(0,h-1) sees %d neighbors, want 1 via vertical wrap", n)
	}
	if n := CountNeighbors(g, cells, 3, 2); n != 0 {
		t.Fatalf("(3,2) sees %d neighbors, want 0", n)
	}

	// Three live cells around the corner give birth to the wrapped corner cell.
	cells.Clear()
	cells[g.Index(0, 0)] = 1
	cells[g.Index(1, 0)] = 1
	cells[g.Index(0, 1)] = 1
	next := step(t, Reference{}, g, cells)
	if next[g.Index(1, 1)] != 1 {
		t.Fatal("(1,1) should be born from three neighbors")
	}
	if next[g.Index(g.W-1, g.H-1)] != 0 {
		t.Fatal("(w-1,h-1) has one neighbor and must stay dead")
	}

	// A blinker straddling the right edge oscillates across the wrap.
	cells.Clear()
	Stamp(g, cells, Shape{{-1, 1}, {0, 1}, {1, 1}}, 0, 0)
	next = step(t, Reference{}, g, cells)
	expectAlive(t, g, next, map[[2]int]bool{{0, 0}: true, {0, 1}: true, {0, 2}: true}, "wrapped blinker")
}

// orderedStep evaluates cells in an arbitrary order to show the result does
// not depend on evaluation order.
func orderedStep(g core.Grid, cur, next core.CellState, order []int) {
	for _, i := range order {
		x, y := g.Coord(i)
		stepCell(g, cur, next, x, y)
	}
}

func TestDeterministicAcrossEnginesAndOrder(t *testing.T) {
	g := mustGrid(t, 37, 23)
	cur := core.NewCellState(g)
	Random(cur, 7, DefaultDensity)

	want := step(t, Reference{}, g, cur)
	for _, eng := range testSteppers(t) {
		if got := step(t, eng, g, cur); !slices.Equal(got, want) {
			t.Fatalf("%s disagrees with reference", eng.Name())
		}
	}

	r := rand.New(rand.NewPCG(1, 2))
	order := r.Perm(g.Cells())
	shuffled := core.NewCellState(g)
	orderedStep(g, cur, shuffled, order)
	if !slices.Equal(shuffled, want) {
		t.Fatal("shuffled evaluation order changed the result")
	}
}

func TestGliderReturnsShifted(t *testing.T) {
	g := mustGrid(t, 10, 10)
	cells := core.NewCellState(g)
	Stamp(g, cells, Glider, 0, 0)
	for i := 0; i < 4*g.W; i++ {
		cells = step(t, NewParallel(0), g, cells)
	}
	want := core.NewCellState(g)
	Stamp(g, want, Glider, 0, 0)
	if !slices.Equal(cells, want) {
		t.Fatal("glider should return to its origin after 4*W generations on a square torus")
	}
}

func TestStepRejectsMismatchedBuffers(t *testing.T) {
	g := mustGrid(t, 4, 4)
	if err := (Reference{}).Step(g, make(core.CellState, 15), core.NewCellState(g)); err == nil {
		t.Fatal("expected error for short current buffer")
	}
	if err := NewParallel(1).Step(core.Grid{W: 0, H: 4}, nil, nil); err == nil {
		t.Fatal("expected error for invalid grid")
	}
}

func TestTilesCoverGrid(t *testing.T) {
	g := mustGrid(t, 19, 10)
	seen := make([]int, g.Cells())
	for _, tile := range Tiles(g, 8, 8) {
		for y := tile.Y; y < tile.Y+tile.H; y++ {
			for x := tile.X; x < tile.X+tile.W; x++ {
				seen[y*g.W+x]++
			}
		}
	}
	for i, n := range seen {
		if n != 1 {
			t.Fatalf("cell %d covered %d times", i, n)
		}
	}
	if got := len(Tiles(g, 8, 8)); got != 6 {
		t.Fatalf("got %d tiles, want 6", got)
	}
}

func TestEngineRegistry(t *testing.T) {
	names := Engines()
	for _, want := range []string{"parallel", "reference"} {
		if !slices.Contains(names, want) {
			t.Fatalf("engine %q not registered: %v", want, names)
		}
	}
	eng, err := NewEngine("parallel", map[string]string{"workers": "3"})
	if err != nil {
		t.Fatal(err)
	}
	if p, ok := eng.(*Parallel); !ok || p.Workers != 3 {
		t.Fatalf("unexpected engine %#v", eng)
	}
	if _, err := NewEngine("parallel", map[string]string{"workers": "many"}); err == nil {
		t.Fatal("expected parse error for workers")
	}
	if _, err := NewEngine("hashlife", nil); err == nil {
		t.Fatal("expected error for unknown engine")
	}
}

func TestSeedPatterns(t *testing.T) {
	g := mustGrid(t, 16, 16)
	a, b := core.NewCellState(g), core.NewCellState(g)
	Random(a, 42, DefaultDensity)
	Random(b, 42, DefaultDensity)
	if !slices.Equal(a, b) {
		t.Fatal("random seed is not deterministic")
	}
	if pop := a.Population(); pop == 0 || pop == g.Cells() {
		t.Fatalf("implausible random population %d", pop)
	}

	Alternating(a)
	for i, v := range a {
		if int(v) != i%2 {
			t.Fatalf("alternating cell %d = %d", i, v)
		}
	}

	seed, err := Pattern("blinker")
	if err != nil {
		t.Fatal(err)
	}
	seed(g, a, 0)
	if a.Population() != 3 {
		t.Fatalf("blinker population %d", a.Population())
	}
	if _, err := Pattern("gosper"); err == nil {
		t.Fatal("expected error for unknown pattern")
	}
}
