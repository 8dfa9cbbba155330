package app

import (
	"flag"
	"io"
	"log/slog"
	"strconv"
	"time"

	"life-gpu/internal/core"
	"life-gpu/internal/sim"
)

// Config represents the command-line parameters for the application.
type Config struct {
	Width    int
	Height   int
	Interval time.Duration
	Engine   string
	Pattern  string
	Seed     int64
	Workers  int
	Scale    int
	HUDWidth int
	Verbose  bool
}

// NewConfig returns a Config populated with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Width:    32,
		Height:   32,
		Interval: core.DefaultInterval,
		Engine:   "gpu",
		Pattern:  "random",
		Seed:     42,
		Scale:    16,
		HUDWidth: 220,
	}
}

// Bind attaches the configuration to the provided FlagSet.
func (c *Config) Bind(fs *flag.FlagSet) {
	fs.IntVar(&c.Width, "w", c.Width, "grid width in cells")
	fs.IntVar(&c.Height, "h", c.Height, "grid height in cells")
	fs.DurationVar(&c.Interval, "interval", c.Interval, "time between generations")
	fs.StringVar(&c.Engine, "engine", c.Engine, "stepping engine (gpu, parallel, reference)")
	fs.StringVar(&c.Pattern, "pattern", c.Pattern, "seed pattern for the first buffer")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "seed for the random pattern")
	fs.IntVar(&c.Workers, "workers", c.Workers, "concurrent workgroups or tiles (0 = GOMAXPROCS)")
	fs.IntVar(&c.Scale, "scale", c.Scale, "pixels per cell")
	fs.IntVar(&c.HUDWidth, "hud", c.HUDWidth, "parameter panel width in pixels (0 hides it)")
	fs.BoolVar(&c.Verbose, "v", c.Verbose, "log every generation")
}

// SimConfig converts the flags into a simulation configuration.
func (c *Config) SimConfig() sim.Config {
	return sim.Config{
		Width:    c.Width,
		Height:   c.Height,
		Interval: c.Interval,
		Seed:     c.Seed,
		Pattern:  c.Pattern,
	}
}

// EngineOptions returns the options handed to life.NewEngine.
func (c *Config) EngineOptions() map[string]string {
	opts := map[string]string{}
	if c.Workers > 0 {
		opts["workers"] = strconv.Itoa(c.Workers)
	}
	return opts
}

// NewLogger returns a text logger at info level, or debug with -v.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
