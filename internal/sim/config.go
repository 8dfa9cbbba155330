package sim

import (
	"fmt"
	"strconv"
	"time"

	"life-gpu/internal/core"
	"life-gpu/internal/life"
)

// Config controls a Simulation.
type Config struct {
	Width    int
	Height   int
	Interval time.Duration
	Seed     int64
	// Pattern names the seeder for slot A; see life.Patterns.
	Pattern string
	// MaxGenerations stops Run after that many ticks; zero runs forever.
	MaxGenerations uint64
}

// DefaultConfig returns the standard configuration: a 32x32 grid stepping
// every 200ms from a random seed.
func DefaultConfig() Config {
	return Config{
		Width:    32,
		Height:   32,
		Interval: core.DefaultInterval,
		Seed:     42,
		Pattern:  "random",
	}
}

// Validate rejects non-positive dimensions and intervals.
func (c Config) Validate() error {
	if _, err := core.NewGrid(c.Width, c.Height); err != nil {
		return err
	}
	if c.Interval <= 0 {
		return fmt.Errorf("%w: %s", core.ErrInvalidInterval, c.Interval)
	}
	if _, err := life.Pattern(c.Pattern); err != nil {
		return err
	}
	return nil
}

// ConfigFromMap populates a Config from flag-style key/value pairs. Unlike
// silently ignoring bad input, every unparsable or out-of-range value is an
// error.
func ConfigFromMap(cfg map[string]string) (Config, error) {
	c := DefaultConfig()
	if v, ok := cfg["w"]; ok {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("w: %w", err)
		}
		c.Width = parsed
	}
	if v, ok := cfg["h"]; ok {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("h: %w", err)
		}
		c.Height = parsed
	}
	if v, ok := cfg["interval"]; ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("interval: %w", err)
		}
		c.Interval = parsed
	}
	if v, ok := cfg["seed"]; ok {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("seed: %w", err)
		}
		c.Seed = parsed
	}
	if v, ok := cfg["pattern"]; ok {
		c.Pattern = v
	}
	if v, ok := cfg["generations"]; ok {
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("generations: %w", err)
		}
		c.MaxGenerations = parsed
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
