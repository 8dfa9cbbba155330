// Command life-headless runs the Game of Life without a window and writes
// the final frame as a PNG.
//
// By default the simulation loop steps with the chosen engine and the host
// renderer rasterizes the result. With -resident the cell state stays in the
// device pipeline and every tick is one compute-then-draw submission.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"life-gpu/internal/app"
	"life-gpu/internal/core"
	"life-gpu/internal/gpu"
	"life-gpu/internal/life"
	"life-gpu/internal/render"
	"life-gpu/internal/sim"
)

type options struct {
	*app.Config
	Generations uint64
	Out         string
	Resident    bool
}

func main() {
	opts := options{Config: app.NewConfig()}
	opts.Bind(flag.CommandLine)
	flag.Uint64Var(&opts.Generations, "generations", 50, "stop after this many generations (0 runs until interrupted)")
	flag.StringVar(&opts.Out, "out", "", "write the final frame to this PNG file")
	flag.BoolVar(&opts.Resident, "resident", false, "keep cell state in the device pipeline")
	flag.Parse()

	core.SetLogger(opts.NewLogger(os.Stderr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

// encodeFunc writes the final frame as PNG.
type encodeFunc func(io.Writer) error

func run(ctx context.Context, opts options, stdout io.Writer) error {
	var (
		enc  encodeFunc
		gen  uint64
		live int
		err  error
	)
	if opts.Resident {
		enc, gen, live, err = runResident(ctx, opts)
	} else {
		enc, gen, live, err = runLoop(ctx, opts)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "generation=%d alive=%d\n", gen, live)
	if opts.Out == "" {
		return nil
	}
	return writePNG(opts.Out, enc)
}

func runLoop(ctx context.Context, opts options) (encodeFunc, uint64, int, error) {
	engine, err := life.NewEngine(opts.Engine, opts.EngineOptions())
	if err != nil {
		return nil, 0, 0, err
	}
	cfg := opts.SimConfig()
	cfg.MaxGenerations = opts.Generations
	frames := render.NewRenderer()
	s, err := sim.New(cfg, engine, frames)
	if err != nil {
		return nil, 0, 0, err
	}
	if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return nil, 0, 0, err
	}

	g := s.Grid()
	canvas := render.NewCanvas(g.W*opts.Scale, g.H*opts.Scale)
	canvas.Clear(render.ClearColor)
	var rerr error
	frames.Latest(func(f *render.Frame) { rerr = f.Rasterize(canvas) })
	if rerr != nil {
		return nil, 0, 0, rerr
	}
	return canvas.EncodePNG, s.Generation(), s.Snapshot().Population(), nil
}

func runResident(ctx context.Context, opts options) (encodeFunc, uint64, int, error) {
	cfg := opts.SimConfig()
	if err := cfg.Validate(); err != nil {
		return nil, 0, 0, err
	}
	g, err := core.NewGrid(cfg.Width, cfg.Height)
	if err != nil {
		return nil, 0, 0, err
	}
	b := gpu.NewSoftwareBackend(gpu.SoftwareOptions{
		SurfaceW: g.W * opts.Scale,
		SurfaceH: g.H * opts.Scale,
		Workers:  opts.Workers,
	})
	defer b.Destroy()
	p, err := gpu.NewPipeline(b, g)
	if err != nil {
		return nil, 0, 0, err
	}
	defer p.Release()

	state, err := core.NewGridState(g)
	if err != nil {
		return nil, 0, 0, err
	}
	seed, err := life.Pattern(cfg.Pattern)
	if err != nil {
		return nil, 0, 0, err
	}
	seed(g, state.SlotBuffer(0), cfg.Seed)
	life.Alternating(state.SlotBuffer(1))
	if err := p.Seed(state.SlotBuffer(0), state.SlotBuffer(1)); err != nil {
		return nil, 0, 0, err
	}
	// Show the seed until the first tick lands.
	if err := p.Draw(); err != nil {
		return nil, 0, 0, err
	}

	ticker, err := core.NewTicker(cfg.Interval)
	if err != nil {
		return nil, 0, 0, err
	}
	defer ticker.Stop()

	logger := core.Logger()
	logger.Info("resident: running", "grid", g.String(), "backend", b.Name())
	var gen uint64
loop:
	for opts.Generations == 0 || gen < opts.Generations {
		select {
		case <-ctx.Done():
			logger.Info("resident: cancelled", "generation", gen)
			break loop
		case <-ticker.C():
			if err := p.Tick(); err != nil {
				return nil, gen, 0, fmt.Errorf("tick %d: %w", gen+1, err)
			}
			gen++
			logger.Debug("resident: tick", "generation", gen, "parity", p.Parity())
		}
	}

	current := core.NewCellState(g)
	if err := p.ReadCurrent(current); err != nil {
		return nil, gen, 0, err
	}
	return b.EncodeSurface, gen, current.Population(), nil
}

func writePNG(path string, encode encodeFunc) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return encode(f)
}
