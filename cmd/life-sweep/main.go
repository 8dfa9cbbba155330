// Command life-sweep steps every registered engine over a matrix of grid
// sizes and seeds, reports throughput and flags any engine whose result
// differs from the reference engine.
package main

import (
	"flag"
	"fmt"
	"hash/fnv"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"life-gpu/internal/core"
	_ "life-gpu/internal/gpu"
	"life-gpu/internal/life"
)

type scenario struct {
	grid   core.Grid
	seed   int64
	engine string
}

func (s scenario) String() string {
	return fmt.Sprintf("grid=%s seed=%d engine=%s", s.grid, s.seed, s.engine)
}

type scenarioResult struct {
	scenario
	steps      int
	elapsed    time.Duration
	population int
	checksum   uint64
	err        error
}

func (r scenarioResult) cellsPerSecond() float64 {
	if r.elapsed <= 0 {
		return 0
	}
	return float64(r.grid.Cells()*r.steps) / r.elapsed.Seconds()
}

func main() {
	steps := flag.Int("steps", 200, "generations to simulate per scenario")
	workers := flag.Int("workers", runtime.NumCPU(), "number of worker goroutines")
	seeds := flag.Int("seeds", 3, "seeds per grid size")
	sizes := flag.String("sizes", "32x32,64x48,127x61,256x256", "comma-separated WxH grid sizes")
	flag.Parse()

	grids, err := parseSizes(*sizes)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	scenarios := buildScenarios(grids, *seeds, life.Engines())

	fmt.Printf("Sweeping %d scenarios (%d workers, %d steps)\n", len(scenarios), *workers, *steps)
	start := time.Now()
	results := sweep(scenarios, *steps, *workers)
	elapsed := time.Since(start)

	failed := false
	for _, res := range results {
		if res.err != nil {
			failed = true
			fmt.Printf("FAIL %s: %v\n", res.scenario, res.err)
		}
	}
	for _, msg := range divergences(results) {
		failed = true
		fmt.Println("DIVERGED", msg)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].cellsPerSecond() > results[j].cellsPerSecond() })
	fmt.Printf("\nThroughput (elapsed %s):\n", elapsed.Round(time.Millisecond))
	for i, res := range results {
		if res.err != nil {
			continue
		}
		fmt.Printf("%2d) %-40s %8.2f Mcells/s alive=%d checksum=%016x\n",
			i+1, res.scenario, res.cellsPerSecond()/1e6, res.population, res.checksum)
	}
	if failed {
		os.Exit(1)
	}
}

func parseSizes(list string) ([]core.Grid, error) {
	var grids []core.Grid
	for _, field := range strings.Split(list, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		ws, hs, ok := strings.Cut(field, "x")
		if !ok {
			return nil, fmt.Errorf("size %q: want WxH", field)
		}
		w, err := strconv.Atoi(ws)
		if err != nil {
			return nil, fmt.Errorf("size %q: %w", field, err)
		}
		h, err := strconv.Atoi(hs)
		if err != nil {
			return nil, fmt.Errorf("size %q: %w", field, err)
		}
		g, err := core.NewGrid(w, h)
		if err != nil {
			return nil, fmt.Errorf("size %q: %w", field, err)
		}
		grids = append(grids, g)
	}
	if len(grids) == 0 {
		return nil, fmt.Errorf("no grid sizes in %q", list)
	}
	return grids, nil
}

func buildScenarios(grids []core.Grid, seeds int, engines []string) []scenario {
	var out []scenario
	for _, g := range grids {
		for seed := 1; seed <= seeds; seed++ {
			for _, engine := range engines {
				out = append(out, scenario{grid: g, seed: int64(seed), engine: engine})
			}
		}
	}
	return out
}

func sweep(scenarios []scenario, steps, workers int) []scenarioResult {
	if workers <= 0 {
		workers = 1
	}
	jobs := make(chan scenario)
	results := make(chan scenarioResult)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sc := range jobs {
				results <- runScenario(sc, steps)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	go func() {
		for _, sc := range scenarios {
			jobs <- sc
		}
		close(jobs)
	}()

	var all []scenarioResult
	for res := range results {
		all = append(all, res)
	}
	return all
}

func runScenario(sc scenario, steps int) scenarioResult {
	res := scenarioResult{scenario: sc, steps: steps}
	engine, err := life.NewEngine(sc.engine, map[string]string{"workers": "1"})
	if err != nil {
		res.err = err
		return res
	}
	state, err := core.NewGridState(sc.grid)
	if err != nil {
		res.err = err
		return res
	}
	life.Random(state.SlotBuffer(0), sc.seed, life.DefaultDensity)

	start := time.Now()
	for i := 0; i < steps; i++ {
		if err := engine.Step(sc.grid, state.Current(), state.Scratch()); err != nil {
			res.err = fmt.Errorf("step %d: %w", i+1, err)
			return res
		}
		state.Commit()
	}
	res.elapsed = time.Since(start)
	res.population = state.Current().Population()
	res.checksum = checksum(state.Current())
	return res
}

func checksum(cells core.CellState) uint64 {
	h := fnv.New64a()
	h.Write(cells)
	return h.Sum64()
}

// divergences compares every engine against the reference engine for the
// same grid and seed.
func divergences(results []scenarioResult) []string {
	type key struct {
		grid core.Grid
		seed int64
	}
	reference := map[key]uint64{}
	for _, res := range results {
		if res.engine == "reference" && res.err == nil {
			reference[key{res.grid, res.seed}] = res.checksum
		}
	}
	var out []string
	for _, res := range results {
		if res.err != nil || res.engine == "reference" {
			continue
		}
		want, ok := reference[key{res.grid, res.seed}]
		if !ok {
			continue
		}
		if res.checksum != want {
			out = append(out, fmt.Sprintf("%s: checksum %016x, reference %016x", res.scenario, res.checksum, want))
		}
	}
	sort.Strings(out)
	return out
}
