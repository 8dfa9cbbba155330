package core

import (
	"fmt"
	"strings"
)

// ParamType enumerates supported parameter value kinds.
type ParamType string

const (
	// ParamTypeInt denotes integer-valued parameters.
	ParamTypeInt ParamType = "int"
	// ParamTypeString denotes read-only text such as the engine name.
	ParamTypeString ParamType = "string"
)

// Parameter describes a single value exposed by a running simulation.
type Parameter struct {
	Key   string
	Label string
	Type  ParamType
	Value string
}

// ParameterGroup clusters related parameters for presentation purposes.
type ParameterGroup struct {
	Name   string
	Params []Parameter
}

// ParameterSnapshot captures the current set of values exposed by a sim.
type ParameterSnapshot struct {
	Groups []ParameterGroup
}

// Lookup returns the parameter with the given key.
func (s ParameterSnapshot) Lookup(key string) (Parameter, bool) {
	for _, g := range s.Groups {
		for _, p := range g.Params {
			if p.Key == key {
				return p, true
			}
		}
	}
	return Parameter{}, false
}

// String renders the snapshot as "group: key=value ..." lines.
func (s ParameterSnapshot) String() string {
	var b strings.Builder
	for _, g := range s.Groups {
		b.WriteString(g.Name)
		b.WriteString(":")
		for _, p := range g.Params {
			fmt.Fprintf(&b, " %s=%s", p.Key, p.Value)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// ParameterControl describes an integer parameter the HUD may step up or
// down. Bounds are optional.
type ParameterControl struct {
	Key   string
	Label string
	Step  int

	Min    int
	Max    int
	HasMin bool
	HasMax bool
}

// ParameterControlsProvider exposes the list of HUD-adjustable controls.
type ParameterControlsProvider interface {
	ParameterControls() []ParameterControl
}

// IntParameterSetter allows HUD interactions to update integer parameters.
// Implementations report whether the value was accepted.
type IntParameterSetter interface {
	SetIntParameter(key string, value int) (bool, error)
}
