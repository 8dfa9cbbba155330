package ui

import "life-gpu/internal/core"

// adjustTarget returns the value a control moves to when stepped in the
// given direction, clamped to its bounds. ok is false when the step would
// not change the value.
func adjustTarget(ctrl core.ParameterControl, current, direction int) (target int, ok bool) {
	if direction == 0 {
		return current, false
	}
	step := ctrl.Step
	if step <= 0 {
		step = 1
	}
	target = current + direction*step
	if ctrl.HasMin && target < ctrl.Min {
		target = ctrl.Min
	}
	if ctrl.HasMax && target > ctrl.Max {
		target = ctrl.Max
	}
	return target, target != current
}

// infoKeys are the read-only parameters listed under the controls.
var infoKeys = []string{"generation", "alive", "interval_ms", "engine"}

// infoLines formats the read-only parameters of a snapshot as "Label: value".
func infoLines(s core.ParameterSnapshot) []string {
	lines := make([]string, 0, len(infoKeys))
	for _, key := range infoKeys {
		p, ok := s.Lookup(key)
		if !ok {
			continue
		}
		lines = append(lines, p.Label+": "+p.Value)
	}
	return lines
}
