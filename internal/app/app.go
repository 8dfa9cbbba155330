//go:build ebiten

package app

import (
	"image"
	"image/color"
	"time"

	"life-gpu/internal/core"
	"life-gpu/internal/render"
	"life-gpu/internal/sim"
	"life-gpu/internal/ui"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// instancesPerBatch keeps each DrawTriangles call within uint16 indices.
const instancesPerBatch = 4096

// Game adapts a simulation to the ebiten.Game interface. The simulation
// advances from Update at its own interval; Draw shows the latest frame.
type Game struct {
	sim     *sim.Simulation
	frames  *render.Renderer
	step    *core.FixedStep
	hud     *ui.HUD
	overlay *ui.Overlay

	scale    int
	hudWidth int
	paused   bool
	tickOnce bool

	white    *ebiten.Image
	vertices []ebiten.Vertex
	indices  []uint16
}

// New constructs a Game for the provided simulation. frames must be the
// renderer the simulation was created with.
func New(s *sim.Simulation, frames *render.Renderer, scale, hudWidth int) (*Game, error) {
	step, err := core.NewFixedStep(s.Interval())
	if err != nil {
		return nil, err
	}
	if scale <= 0 {
		scale = 1
	}
	white := ebiten.NewImage(3, 3)
	white.Fill(color.White)
	return &Game{
		sim:      s,
		frames:   frames,
		step:     step,
		hud:      ui.NewHUD(s, hudWidth),
		overlay:  ui.NewOverlay(),
		scale:    scale,
		hudWidth: hudWidth,
		white:    white.SubImage(image.Rect(1, 1, 2, 2)).(*ebiten.Image),
	}, nil
}

// Reset restarts the simulation from generation zero with the given seed.
func (g *Game) Reset(seed int64) error {
	g.tickOnce = false
	return g.sim.Reseed(seed)
}

// Update handles per-frame logic and advances the simulation. A failed tick
// ends the game.
func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.paused = !g.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		g.paused = false
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyN) {
		g.tickOnce = true
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		if err := g.Reset(g.sim.Seed()); err != nil {
			return err
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyS) {
		if err := g.Reset(time.Now().UnixNano()); err != nil {
			return err
		}
	}

	if g.overlay != nil {
		g.overlay.Update()
	}
	grid := g.sim.Grid()
	g.hud.Update(grid.W * g.scale)

	if (!g.paused && g.step.ShouldStep()) || g.tickOnce {
		g.tickOnce = false
		if err := g.sim.Tick(); err != nil {
			return err
		}
	}
	return nil
}

// Draw clears the view and draws the latest frame as instanced quads.
func (g *Game) Draw(screen *ebiten.Image) {
	c := render.ToNRGBA(render.ClearColor)
	screen.Fill(c)

	var grid core.Grid
	g.frames.Latest(func(f *render.Frame) {
		grid = f.Grid
		g.drawFrame(screen, f)
		if g.overlay != nil {
			g.overlay.Draw(screen, f, g.scale)
		}
	})
	if grid.W > 0 {
		g.hud.Draw(screen, grid.W*g.scale, grid.H*g.scale)
	}
}

func (g *Game) drawFrame(screen *ebiten.Image, f *render.Frame) {
	w, h := f.Grid.W*g.scale, f.Grid.H*g.scale
	g.vertices = g.vertices[:0]
	g.indices = g.indices[:0]
	flush := func() {
		if len(g.indices) == 0 {
			return
		}
		screen.DrawTriangles(g.vertices, g.indices, g.white, nil)
		g.vertices = g.vertices[:0]
		g.indices = g.indices[:0]
	}
	batched := 0
	for i := range f.Instances {
		in := &f.Instances[i]
		// Dead cells are zero-area quads and cover no pixels.
		if in.Degenerate() {
			continue
		}
		for _, v := range in.Vertices {
			x, y := render.ToPixel(v, w, h)
			g.indices = append(g.indices, uint16(len(g.vertices)))
			g.vertices = append(g.vertices, ebiten.Vertex{
				DstX:   float32(x),
				DstY:   float32(y),
				SrcX:   1,
				SrcY:   1,
				ColorR: in.Color.R,
				ColorG: in.Color.G,
				ColorB: in.Color.B,
				ColorA: in.Color.A,
			})
		}
		batched++
		if batched == instancesPerBatch {
			flush()
			batched = 0
		}
	}
	flush()
}

// Layout returns the logical screen size: the grid view plus the HUD panel.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	s := g.sim.Grid()
	return s.W*g.scale + g.hudWidth, s.H * g.scale
}
