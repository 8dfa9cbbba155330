package gpu

import (
	"fmt"
	"strconv"

	"life-gpu/internal/core"
	"life-gpu/internal/life"
)

// Stepper runs the compute program as a life.Stepper: it uploads the host's
// current buffer, dispatches one generation and reads the result back into
// the host's scratch buffer. The pipeline is rebuilt when the grid changes.
type Stepper struct {
	backend  Backend
	pipeline *Pipeline
}

// NewStepper returns a Stepper on the given backend.
func NewStepper(b Backend) *Stepper { return &Stepper{backend: b} }

// Name returns the engine identifier.
func (s *Stepper) Name() string { return "gpu" }

// Step advances the simulation by one generation.
func (s *Stepper) Step(g core.Grid, cur, next core.CellState) error {
	if s.pipeline == nil || s.pipeline.Grid() != g {
		if s.pipeline != nil {
			s.pipeline.Release()
			s.pipeline = nil
		}
		p, err := NewPipeline(s.backend, g)
		if err != nil {
			return err
		}
		s.pipeline = p
	}
	if err := s.pipeline.Upload(cur); err != nil {
		return err
	}
	if err := s.pipeline.Compute(); err != nil {
		return err
	}
	return s.pipeline.ReadCurrent(next)
}

func init() {
	life.Register("gpu", func(cfg map[string]string) (life.Stepper, error) {
		opts := SoftwareOptions{}
		if v := cfg["workers"]; v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("option workers: %w", err)
			}
			opts.Workers = n
		}
		return NewStepper(NewSoftwareBackend(opts)), nil
	})
}
