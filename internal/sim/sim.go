// Package sim drives the Game of Life at a fixed cadence: every tick steps
// the current buffer into the scratch buffer, swaps their roles and renders
// the new current generation.
package sim

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"life-gpu/internal/core"
	"life-gpu/internal/life"
)

// Renderer consumes the generation committed by a tick.
type Renderer interface {
	Render(g core.Grid, cells core.CellState) error
}

type nopRenderer struct{}

func (nopRenderer) Render(core.Grid, core.CellState) error { return nil }

// ErrRunning is returned by Run when the loop is already running.
var ErrRunning = errors.New("simulation already running")

// Option customizes a Simulation.
type Option func(*Simulation)

// WithTickSource replaces the time.Ticker used by Run.
func WithTickSource(fn func(time.Duration) (core.TickSource, error)) Option {
	return func(s *Simulation) { s.newTicker = fn }
}

// Simulation is the explicit context shared by the loop's components: the
// grid state, the engine that steps it and the renderer that shows it.
type Simulation struct {
	mu       sync.Mutex
	cfg      Config
	state    *core.GridState
	stepper  life.Stepper
	renderer Renderer

	newTicker func(time.Duration) (core.TickSource, error)

	// runMu guards stop, which is non-nil while Run is active.
	runMu sync.Mutex
	stop  chan struct{}
}

// New validates the configuration, allocates both buffers and seeds them:
// slot A with cfg.Pattern, slot B with the alternating placeholder. A nil
// renderer discards frames.
func New(cfg Config, stepper life.Stepper, renderer Renderer, opts ...Option) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if stepper == nil {
		return nil, errors.New("sim: nil stepper")
	}
	if renderer == nil {
		renderer = nopRenderer{}
	}
	s := &Simulation{
		cfg:       cfg,
		stepper:   stepper,
		renderer:  renderer,
		newTicker: core.NewTicker,
	}
	for _, opt := range opts {
		opt(s)
	}
	state, err := s.allocate(cfg.Width, cfg.Height)
	if err != nil {
		return nil, err
	}
	s.state = state
	return s, nil
}

func (s *Simulation) allocate(w, h int) (*core.GridState, error) {
	g, err := core.NewGrid(w, h)
	if err != nil {
		return nil, err
	}
	state, err := core.NewGridState(g)
	if err != nil {
		return nil, err
	}
	seed, err := life.Pattern(s.cfg.Pattern)
	if err != nil {
		return nil, err
	}
	seed(g, state.SlotBuffer(0), s.cfg.Seed)
	life.Alternating(state.SlotBuffer(1))
	return state, nil
}

// Tick runs one generation: step, swap roles, render. If the step fails the
// roles are left untouched and nothing is rendered; the error is fatal.
func (s *Simulation) Tick() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.state.Grid()
	start := time.Now()
	if err := s.stepper.Step(g, s.state.Current(), s.state.Scratch()); err != nil {
		return fmt.Errorf("step generation %d with %s engine: %w", s.state.Generation()+1, s.stepper.Name(), err)
	}
	s.state.Commit()
	if err := s.renderer.Render(g, s.state.Current()); err != nil {
		return fmt.Errorf("render generation %d: %w", s.state.Generation(), err)
	}
	core.Logger().Debug("sim: tick",
		"generation", s.state.Generation(),
		"parity", s.state.Parity(),
		"elapsed", time.Since(start))
	return nil
}

// Run ticks at the configured interval until ctx is cancelled, Stop is
// called, MaxGenerations is reached or a tick fails. Ticks never overlap.
// A Simulation can be run again after Run returns.
func (s *Simulation) Run(ctx context.Context) error {
	stop, err := s.startRun()
	if err != nil {
		return err
	}
	defer s.endRun(stop)

	ticker, err := s.newTicker(s.Interval())
	if err != nil {
		return err
	}
	defer ticker.Stop()

	log := core.Logger()
	log.Info("sim: running", "grid", s.Grid().String(), "interval", s.Interval(), "engine", s.stepper.Name())
	for {
		select {
		case <-ctx.Done():
			log.Info("sim: cancelled", "generation", s.Generation())
			return ctx.Err()
		case <-stop:
			log.Info("sim: stopped", "generation", s.Generation())
			return nil
		case <-ticker.C():
			if err := s.Tick(); err != nil {
				return err
			}
			if limit := s.cfg.MaxGenerations; limit > 0 && s.Generation() >= limit {
				log.Info("sim: generation limit reached", "generation", s.Generation())
				return nil
			}
		}
	}
}

func (s *Simulation) startRun() (chan struct{}, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.stop != nil {
		return nil, ErrRunning
	}
	s.stop = make(chan struct{})
	return s.stop, nil
}

func (s *Simulation) endRun(stop chan struct{}) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.stop == stop {
		s.stop = nil
	}
}

// Running reports whether Run is active.
func (s *Simulation) Running() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.stop != nil
}

// Stop ends the active Run. Without one it does nothing, and it is safe to
// call more than once and from any goroutine.
func (s *Simulation) Stop() {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
}

// Reconfigure replaces the grid with a freshly seeded one of the given size
// and resets the generation counter. Invalid sizes leave the old grid in
// place.
func (s *Simulation) Reconfigure(w, h int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, err := s.allocate(w, h)
	if err != nil {
		return err
	}
	s.state = state
	s.cfg.Width, s.cfg.Height = w, h
	core.Logger().Info("sim: reconfigured", "grid", state.Grid().String())
	return nil
}

// Reseed restarts the current grid from generation zero with a new seed.
func (s *Simulation) Reseed(seed int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.cfg.Seed
	s.cfg.Seed = seed
	state, err := s.allocate(s.cfg.Width, s.cfg.Height)
	if err != nil {
		s.cfg.Seed = prev
		return err
	}
	s.state = state
	core.Logger().Info("sim: reseeded", "seed", seed)
	return nil
}

// Seed returns the seed of the current run.
func (s *Simulation) Seed() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Seed
}

// Grid returns the current grid dimensions.
func (s *Simulation) Grid() core.Grid {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Grid()
}

// Generation returns the number of committed generations.
func (s *Simulation) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Generation()
}

// Interval returns the tick interval.
func (s *Simulation) Interval() time.Duration { return s.cfg.Interval }

// EngineName returns the stepping engine's identifier.
func (s *Simulation) EngineName() string { return s.stepper.Name() }

// Snapshot returns a copy of the current generation.
func (s *Simulation) Snapshot() core.CellState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Current().Clone()
}

// Parameters reports the values shown on the HUD.
func (s *Simulation) Parameters() core.ParameterSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.state.Grid()
	return core.ParameterSnapshot{Groups: []core.ParameterGroup{
		{
			Name: "Grid",
			Params: []core.Parameter{
				intParam("w", "Width", g.W),
				intParam("h", "Height", g.H),
			},
		},
		{
			Name: "Loop",
			Params: []core.Parameter{
				intParam("interval_ms", "Interval (ms)", int(s.cfg.Interval/time.Millisecond)),
				intParam("generation", "Generation", int(s.state.Generation())),
				intParam("alive", "Alive cells", s.state.Current().Population()),
				{Key: "engine", Label: "Engine", Type: core.ParamTypeString, Value: s.stepper.Name()},
			},
		},
	}}
}

// MaxGridSize bounds the HUD's grid-size controls.
const MaxGridSize = 512

// ParameterControls lists the HUD-adjustable parameters.
func (s *Simulation) ParameterControls() []core.ParameterControl {
	return []core.ParameterControl{
		{Key: "w", Label: "Width", Step: 4, Min: 1, Max: MaxGridSize, HasMin: true, HasMax: true},
		{Key: "h", Label: "Height", Step: 4, Min: 1, Max: MaxGridSize, HasMin: true, HasMax: true},
	}
}

// SetIntParameter applies a HUD adjustment. Grid-size changes reconfigure.
func (s *Simulation) SetIntParameter(key string, value int) (bool, error) {
	g := s.Grid()
	switch key {
	case "w":
		return true, s.Reconfigure(value, g.H)
	case "h":
		return true, s.Reconfigure(g.W, value)
	default:
		return false, nil
	}
}

func intParam(key, label string, value int) core.Parameter {
	return core.Parameter{
		Key:   key,
		Label: label,
		Type:  core.ParamTypeInt,
		Value: strconv.Itoa(value),
	}
}
