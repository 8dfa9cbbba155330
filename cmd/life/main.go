//go:build ebiten

package main

import (
	"errors"
	"flag"
	"log"
	"os"

	"life-gpu/internal/app"
	"life-gpu/internal/core"
	_ "life-gpu/internal/gpu"
	"life-gpu/internal/life"
	"life-gpu/internal/render"
	"life-gpu/internal/sim"

	"github.com/hajimehoshi/ebiten/v2"
)

func main() {
	cfg := app.NewConfig()
	cfg.Bind(flag.CommandLine)
	flag.Parse()

	core.SetLogger(cfg.NewLogger(os.Stderr))

	engine, err := life.NewEngine(cfg.Engine, cfg.EngineOptions())
	if err != nil {
		log.Fatal(err)
	}
	frames := render.NewRenderer()
	s, err := sim.New(cfg.SimConfig(), engine, frames)
	if err != nil {
		log.Fatal(err)
	}
	game, err := app.New(s, frames, cfg.Scale, cfg.HUDWidth)
	if err != nil {
		log.Fatal(err)
	}

	ebiten.SetWindowTitle("Game of Life - " + s.EngineName())
	ebiten.SetWindowSize(cfg.Width*cfg.Scale+cfg.HUDWidth, cfg.Height*cfg.Scale)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(game); err != nil && !errors.Is(err, ebiten.Termination) {
		log.Fatal(err)
	}
}
