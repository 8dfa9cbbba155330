package core

import "errors"

var (
	// ErrInvalidGrid is returned for grids with a non-positive width or height.
	ErrInvalidGrid = errors.New("invalid grid dimensions")
	// ErrInvalidInterval is returned for a tick interval <= 0.
	ErrInvalidInterval = errors.New("invalid tick interval")
	// ErrCapability means the graphics backend cannot provide what the
	// pipeline needs. It is raised before any simulation state exists.
	ErrCapability = errors.New("graphics capability unavailable")
	// ErrResourceExhausted is returned when a buffer allocation fails.
	ErrResourceExhausted = errors.New("resource exhausted")
	// ErrDeviceLost is returned when the device disappears mid-run. It is
	// never recovered from.
	ErrDeviceLost = errors.New("graphics device lost")
)
