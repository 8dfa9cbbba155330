package life

import (
	"fmt"
	"sort"
	"strconv"

	"life-gpu/internal/core"
)

// DefaultDensity is the fraction of cells alive in a random seed.
const DefaultDensity = 0.4

// Random fills cells with live cells at the given density using a
// deterministic PCG source.
func Random(cells core.CellState, seed int64, density float64) {
	core.NewRNG(seed).FillChance(cells, density)
}

// Alternating fills cells with the 0,1,0,1... placeholder pattern used for
// the scratch slot before the first step completes.
func Alternating(cells core.CellState) {
	for i := range cells {
		cells[i] = uint8(i % 2)
	}
}

// Shape is a set of live cell offsets relative to a stamp origin.
type Shape [][2]int

var (
	// Block is the 2x2 still life.
	Block = Shape{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
	// Blinker is the period-2 oscillator in its vertical phase.
	Blinker = Shape{{0, 0}, {0, 1}, {0, 2}}
	// Glider travels one cell diagonally every four generations.
	Glider = Shape{{1, 0}, {2, 1}, {0, 2}, {1, 2}, {2, 2}}
)

// Stamp sets the shape's cells alive at (ox, oy) with toroidal wrap.
func Stamp(g core.Grid, cells core.CellState, s Shape, ox, oy int) {
	for _, p := range s {
		cells[g.Index(ox+p[0], oy+p[1])] = 1
	}
}

// Seeder fills a freshly allocated buffer with an initial pattern.
type Seeder func(g core.Grid, cells core.CellState, seed int64)

var patterns = map[string]Seeder{
	"random": func(_ core.Grid, cells core.CellState, seed int64) {
		Random(cells, seed, DefaultDensity)
	},
	"alternating": func(_ core.Grid, cells core.CellState, _ int64) {
		Alternating(cells)
	},
	"block":   centered(Block, 2, 2),
	"blinker": centered(Blinker, 1, 3),
	"glider":  centered(Glider, 3, 3),
}

func centered(s Shape, w, h int) Seeder {
	return func(g core.Grid, cells core.CellState, _ int64) {
		cells.Clear()
		Stamp(g, cells, s, (g.W-w)/2, (g.H-h)/2)
	}
}

// Pattern returns the named seeder.
func Pattern(name string) (Seeder, error) {
	s, ok := patterns[name]
	if !ok {
		return nil, fmt.Errorf("unknown pattern %q (have %v)", name, Patterns())
	}
	return s, nil
}

// Patterns lists the available seed patterns.
func Patterns() []string {
	names := make([]string, 0, len(patterns))
	for name := range patterns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func intOption(cfg map[string]string, key string, def int) (int, error) {
	v, ok := cfg[key]
	if !ok || v == "" {
		return def, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("option %s: %w", key, err)
	}
	return parsed, nil
}
