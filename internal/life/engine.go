package life

import (
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"life-gpu/internal/core"
)

// Stepper computes generation N+1 (next) from generation N (cur). Stepper
// implementations must read only cur and write every cell of next.
type Stepper interface {
	Name() string
	Step(g core.Grid, cur, next core.CellState) error
}

func checkBuffers(g core.Grid, cur, next core.CellState) error {
	if err := g.Validate(); err != nil {
		return err
	}
	if len(cur) != g.Cells() || len(next) != g.Cells() {
		return fmt.Errorf("buffer size mismatch for %s grid: cur=%d next=%d", g, len(cur), len(next))
	}
	return nil
}

// Reference evaluates cells one at a time in row-major order.
type Reference struct{}

// Name returns the engine identifier.
func (Reference) Name() string { return "reference" }

// Step advances the simulation by one generation.
func (Reference) Step(g core.Grid, cur, next core.CellState) error {
	if err := checkBuffers(g, cur, next); err != nil {
		return err
	}
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			stepCell(g, cur, next, x, y)
		}
	}
	return nil
}

// DefaultTileSize matches the 8x8 workgroup used by the compute program.
const DefaultTileSize = 8

// Tile is a rectangular block of cells dispatched as one unit of work. Edge
// tiles may be smaller than the nominal tile size.
type Tile struct {
	X, Y int
	W, H int
}

// Tiles partitions the grid into tiles of at most tw x th cells.
func Tiles(g core.Grid, tw, th int) []Tile {
	if tw <= 0 {
		tw = DefaultTileSize
	}
	if th <= 0 {
		th = DefaultTileSize
	}
	tiles := make([]Tile, 0, ((g.W+tw-1)/tw)*((g.H+th-1)/th))
	for y := 0; y < g.H; y += th {
		for x := 0; x < g.W; x += tw {
			tiles = append(tiles, Tile{X: x, Y: y, W: min(tw, g.W-x), H: min(th, g.H-y)})
		}
	}
	return tiles
}

// Parallel evaluates tiles concurrently. Tiles share nothing but the
// read-only current buffer, so no locking is required.
type Parallel struct {
	TileW, TileH int
	// Workers bounds concurrent tiles; <= 0 uses GOMAXPROCS.
	Workers int
}

// NewParallel returns a Parallel engine with 8x8 tiles.
func NewParallel(workers int) *Parallel {
	return &Parallel{TileW: DefaultTileSize, TileH: DefaultTileSize, Workers: workers}
}

// Name returns the engine identifier.
func (p *Parallel) Name() string { return "parallel" }

// Step advances the simulation by one generation.
func (p *Parallel) Step(g core.Grid, cur, next core.CellState) error {
	if err := checkBuffers(g, cur, next); err != nil {
		return err
	}
	workers := p.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	var eg errgroup.Group
	eg.SetLimit(workers)
	for _, t := range Tiles(g, p.TileW, p.TileH) {
		eg.Go(func() error {
			for y := t.Y; y < t.Y+t.H; y++ {
				for x := t.X; x < t.X+t.W; x++ {
					stepCell(g, cur, next, x, y)
				}
			}
			return nil
		})
	}
	return eg.Wait()
}

// Factory constructs a Stepper using an optional configuration map.
type Factory func(cfg map[string]string) (Stepper, error)

var engines = map[string]Factory{}

// Register adds an engine factory under the provided name.
func Register(name string, f Factory) {
	if name == "" || f == nil {
		return
	}
	engines[name] = f
}

// Engines lists the registered engine names in sorted order.
func Engines() []string {
	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewEngine builds the named engine.
func NewEngine(name string, cfg map[string]string) (Stepper, error) {
	f, ok := engines[name]
	if !ok {
		return nil, fmt.Errorf("unknown engine %q (have %v)", name, Engines())
	}
	return f(cfg)
}

func init() {
	Register("reference", func(map[string]string) (Stepper, error) {
		return Reference{}, nil
	})
	Register("parallel", func(cfg map[string]string) (Stepper, error) {
		workers, err := intOption(cfg, "workers", 0)
		if err != nil {
			return nil, err
		}
		return NewParallel(workers), nil
	})
}
