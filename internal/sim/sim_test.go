package sim

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"life-gpu/internal/core"
	"life-gpu/internal/gpu"
	"life-gpu/internal/life"
	"life-gpu/internal/render"
)

// manualTicks delivers ticks only when the test sends them.
type manualTicks struct {
	c       chan time.Time
	stopped bool
}

func (m *manualTicks) C() <-chan time.Time { return m.c }
func (m *manualTicks) Stop()               { m.stopped = true }

func withTicks(n int) (*manualTicks, Option) {
	m := &manualTicks{c: make(chan time.Time, n)}
	for i := 0; i < n; i++ {
		m.c <- time.Time{}
	}
	return m, WithTickSource(func(time.Duration) (core.TickSource, error) { return m, nil })
}

type countingRenderer struct {
	calls int
	last  core.CellState
}

func (r *countingRenderer) Render(_ core.Grid, cells core.CellState) error {
	r.calls++
	r.last = cells.Clone()
	return nil
}

var errBoom = errors.New("boom")

type failingStepper struct{}

func (failingStepper) Name() string { return "failing" }

func (failingStepper) Step(core.Grid, core.CellState, core.CellState) error {
	return errBoom
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 12, 9
	cfg.Seed = 7
	return cfg
}

func mustNew(t *testing.T, cfg Config, s life.Stepper, r Renderer, opts ...Option) *Simulation {
	t.Helper()
	sim, err := New(cfg, s, r, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return sim
}

func referenceAfter(t *testing.T, g core.Grid, cells core.CellState, n int) core.CellState {
	t.Helper()
	cur := cells.Clone()
	next := core.NewCellState(g)
	for i := 0; i < n; i++ {
		if err := (life.Reference{}).Step(g, cur, next); err != nil {
			t.Fatal(err)
		}
		cur, next = next, cur
	}
	return cur
}

func TestNewSeedsBothSlots(t *testing.T) {
	cfg := testConfig()
	sim := mustNew(t, cfg, life.Reference{}, nil)

	g := sim.Grid()
	wantA := core.NewCellState(g)
	life.Random(wantA, cfg.Seed, life.DefaultDensity)
	if !slices.Equal(sim.state.SlotBuffer(0), wantA) {
		t.Fatal("slot A is not the random seed")
	}
	for i, v := range sim.state.SlotBuffer(1) {
		if v != uint8(i%2) {
			t.Fatalf("slot B[%d] = %d, want alternating", i, v)
		}
	}
	if sim.Generation() != 0 || sim.state.Parity() != 0 {
		t.Fatal("fresh simulation must start at generation 0 with slot A current")
	}
}

func TestTickKeepsParityInvariant(t *testing.T) {
	cfg := testConfig()
	r := &countingRenderer{}
	sim := mustNew(t, cfg, life.NewParallel(2), r)
	initial := sim.Snapshot()

	for n := 1; n <= 7; n++ {
		if err := sim.Tick(); err != nil {
			t.Fatal(err)
		}
		if sim.Generation() != uint64(n) {
			t.Fatalf("generation %d after %d ticks", sim.Generation(), n)
		}
		if sim.state.Parity() != n%2 {
			t.Fatalf("parity %d after %d ticks", sim.state.Parity(), n)
		}
		want := referenceAfter(t, sim.Grid(), initial, n)
		if !slices.Equal(sim.Snapshot(), want) {
			t.Fatalf("current buffer after %d ticks is not generation %d", n, n)
		}
		if !slices.Equal(r.last, want) {
			t.Fatalf("renderer saw a stale generation after tick %d", n)
		}
	}
	if r.calls != 7 {
		t.Fatalf("renderer called %d times, want 7", r.calls)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"zero width", func(c *Config) { c.Width = 0 }, core.ErrInvalidGrid},
		{"negative height", func(c *Config) { c.Height = -3 }, core.ErrInvalidGrid},
		{"zero interval", func(c *Config) { c.Interval = 0 }, core.ErrInvalidInterval},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			if _, err := New(cfg, life.Reference{}, nil); !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}

	cfg := testConfig()
	cfg.Pattern = "nope"
	if _, err := New(cfg, life.Reference{}, nil); err == nil {
		t.Fatal("unknown pattern accepted")
	}
	if _, err := New(testConfig(), nil, nil); err == nil {
		t.Fatal("nil stepper accepted")
	}
}

func TestStepFailureCommitsNothing(t *testing.T) {
	r := &countingRenderer{}
	sim := mustNew(t, testConfig(), failingStepper{}, r)
	before := sim.Snapshot()

	err := sim.Tick()
	if !errors.Is(err, errBoom) {
		t.Fatalf("got %v, want wrapped errBoom", err)
	}
	if sim.Generation() != 0 || sim.state.Parity() != 0 {
		t.Fatal("failed tick swapped roles")
	}
	if r.calls != 0 {
		t.Fatal("failed tick rendered a frame")
	}
	if !slices.Equal(sim.Snapshot(), before) {
		t.Fatal("failed tick changed the current buffer")
	}
}

func TestLostDeviceStopsRun(t *testing.T) {
	b := gpu.NewSoftwareBackend(gpu.SoftwareOptions{})
	b.Lose()
	_, opt := withTicks(3)
	sim := mustNew(t, testConfig(), gpu.NewStepper(b), nil, opt)

	err := sim.Run(context.Background())
	if !errors.Is(err, core.ErrDeviceLost) {
		t.Fatalf("got %v, want ErrDeviceLost", err)
	}
	if sim.Generation() != 0 {
		t.Fatal("generation advanced on a lost device")
	}
}

func TestRunStopsAtGenerationLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxGenerations = 3
	ticks, opt := withTicks(10)
	sim := mustNew(t, cfg, life.Reference{}, nil, opt)

	if err := sim.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if sim.Generation() != 3 {
		t.Fatalf("generation %d, want 3", sim.Generation())
	}
	if !ticks.stopped {
		t.Fatal("tick source not stopped")
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	ticks, opt := withTicks(0)
	sim := mustNew(t, testConfig(), life.Reference{}, nil, opt)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sim.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if !ticks.stopped {
		t.Fatal("tick source not stopped")
	}
}

func waitRunning(t *testing.T, sim *Simulation) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !sim.Running() {
		if time.Now().After(deadline) {
			t.Fatal("Run never started")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestStop(t *testing.T) {
	cfg := testConfig()
	cfg.MaxGenerations = 2
	ticks := &manualTicks{c: make(chan time.Time, 2)}
	sim := mustNew(t, cfg, life.Reference{}, nil,
		WithTickSource(func(time.Duration) (core.TickSource, error) { return ticks, nil }))

	// Without an active Run, Stop has nothing to end.
	sim.Stop()

	done := make(chan error, 1)
	go func() { done <- sim.Run(context.Background()) }()
	waitRunning(t, sim)
	sim.Stop()
	sim.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
	if sim.Running() {
		t.Fatal("still running after Stop")
	}

	// A stopped simulation runs again.
	ticks.c <- time.Time{}
	ticks.c <- time.Time{}
	if err := sim.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if sim.Generation() != 2 {
		t.Fatalf("generation %d after restart, want 2", sim.Generation())
	}
}

func TestRunRejectsConcurrentRun(t *testing.T) {
	_, opt := withTicks(0)
	sim := mustNew(t, testConfig(), life.Reference{}, nil, opt)
	done := make(chan error, 1)
	go func() { done <- sim.Run(context.Background()) }()
	waitRunning(t, sim)
	defer func() {
		sim.Stop()
		<-done
	}()
	if err := sim.Run(context.Background()); !errors.Is(err, ErrRunning) {
		t.Fatalf("got %v, want ErrRunning", err)
	}
}

func TestReconfigure(t *testing.T) {
	sim := mustNew(t, testConfig(), life.Reference{}, nil)
	for i := 0; i < 3; i++ {
		if err := sim.Tick(); err != nil {
			t.Fatal(err)
		}
	}

	if err := sim.Reconfigure(20, 6); err != nil {
		t.Fatal(err)
	}
	if g := sim.Grid(); g != (core.Grid{W: 20, H: 6}) {
		t.Fatalf("grid %s after reconfigure", g)
	}
	if sim.Generation() != 0 || len(sim.Snapshot()) != 120 {
		t.Fatal("reconfigure did not reallocate a fresh state")
	}
	if err := sim.Tick(); err != nil {
		t.Fatal(err)
	}

	if err := sim.Reconfigure(0, 6); !errors.Is(err, core.ErrInvalidGrid) {
		t.Fatalf("got %v, want ErrInvalidGrid", err)
	}
	if g := sim.Grid(); g != (core.Grid{W: 20, H: 6}) || sim.Generation() != 1 {
		t.Fatal("invalid reconfigure replaced the state")
	}
}

func TestReseedRestartsFromGenerationZero(t *testing.T) {
	sim := mustNew(t, testConfig(), life.Reference{}, nil)
	first := sim.Snapshot()
	if err := sim.Tick(); err != nil {
		t.Fatal(err)
	}

	if err := sim.Reseed(7); err != nil {
		t.Fatal(err)
	}
	if sim.Generation() != 0 || !slices.Equal(sim.Snapshot(), first) {
		t.Fatal("reseeding with the same seed must reproduce the initial state")
	}
	if err := sim.Reseed(8); err != nil {
		t.Fatal(err)
	}
	if sim.Seed() != 8 || slices.Equal(sim.Snapshot(), first) {
		t.Fatal("new seed produced the old state")
	}
}

func TestRendererSeesLatestFrame(t *testing.T) {
	r := render.NewRenderer()
	sim := mustNew(t, testConfig(), life.Reference{}, r)
	if r.Latest(func(*render.Frame) {}) {
		t.Fatal("frame available before the first tick")
	}
	if err := sim.Tick(); err != nil {
		t.Fatal(err)
	}
	want := sim.Snapshot()
	ok := r.Latest(func(f *render.Frame) {
		if f.Grid != sim.Grid() || len(f.Instances) != sim.Grid().Cells() {
			t.Fatalf("frame grid %s with %d instances", f.Grid, len(f.Instances))
		}
		if f.Visible() != want.Population() {
			t.Fatalf("visible instances %d, alive cells %d", f.Visible(), want.Population())
		}
	})
	if !ok {
		t.Fatal("no frame after tick")
	}
}

func TestParameters(t *testing.T) {
	sim := mustNew(t, testConfig(), life.Reference{}, nil)
	if err := sim.Tick(); err != nil {
		t.Fatal(err)
	}
	snap := sim.Parameters()
	for key, want := range map[string]string{
		"w":           "12",
		"h":           "9",
		"interval_ms": "200",
		"generation":  "1",
		"engine":      "reference",
	} {
		p, ok := snap.Lookup(key)
		if !ok || p.Value != want {
			t.Errorf("%s = %q (found %v), want %q", key, p.Value, ok, want)
		}
	}
	if !strings.Contains(snap.String(), "Grid: w=12 h=9") {
		t.Errorf("snapshot text %q", snap.String())
	}
	if p, _ := snap.Lookup("engine"); p.Value != sim.EngineName() {
		t.Errorf("engine parameter %q, EngineName %q", p.Value, sim.EngineName())
	}
}

func TestSetIntParameter(t *testing.T) {
	sim := mustNew(t, testConfig(), life.Reference{}, nil)
	var _ core.IntParameterSetter = sim
	var _ core.ParameterControlsProvider = sim

	if ok, err := sim.SetIntParameter("w", 16); !ok || err != nil {
		t.Fatalf("set w: ok=%v err=%v", ok, err)
	}
	if ok, err := sim.SetIntParameter("h", 4); !ok || err != nil {
		t.Fatalf("set h: ok=%v err=%v", ok, err)
	}
	if g := sim.Grid(); g != (core.Grid{W: 16, H: 4}) {
		t.Fatalf("grid %s", g)
	}
	if ok, _ := sim.SetIntParameter("generation", 3); ok {
		t.Fatal("read-only parameter accepted")
	}
	if _, err := sim.SetIntParameter("w", -1); err == nil {
		t.Fatal("negative width accepted")
	}
}

func TestConfigFromMap(t *testing.T) {
	cfg, err := ConfigFromMap(map[string]string{
		"w":           "64",
		"h":           "48",
		"interval":    "50ms",
		"seed":        "9",
		"pattern":     "glider",
		"generations": "100",
	})
	if err != nil {
		t.Fatal(err)
	}
	want := Config{Width: 64, Height: 48, Interval: 50 * time.Millisecond, Seed: 9, Pattern: "glider", MaxGenerations: 100}
	if cfg != want {
		t.Fatalf("got %+v, want %+v", cfg, want)
	}

	for _, bad := range []map[string]string{
		{"w": "wide"},
		{"h": "0"},
		{"interval": "soon"},
		{"interval": "-1s"},
		{"seed": "x"},
		{"pattern": "spaceship"},
		{"generations": "-4"},
	} {
		if _, err := ConfigFromMap(bad); err == nil {
			t.Errorf("ConfigFromMap(%v) accepted bad input", bad)
		}
	}
}
