package lsm303

import (
	"math"

	"lsm303-ng/internal/vector"
)

// Calibration holds the per-axis magnetometer extremes seen so far. Their
// midpoint estimates the hard-iron offset.
type Calibration struct {
	Min vector.Vector[int16] `json:"min" yaml:"min"`
	Max vector.Vector[int16] `json:"max" yaml:"max"`
}

// EmptyCalibration has Min above Max on every axis, so the first Update sets
// both to the sample.
func EmptyCalibration() Calibration {
	return Calibration{
		Min: vector.New[int16](math.MaxInt16, math.MaxInt16, math.MaxInt16),
		Max: vector.New[int16](math.MinInt16, math.MinInt16, math.MinInt16),
	}
}

// Empty reports whether any axis has not seen a sample yet.
func (c Calibration) Empty() bool {
	return c.Min.X > c.Max.X || c.Min.Y > c.Max.Y || c.Min.Z > c.Max.Z
}

// Update widens the extremes to include m.
func (c *Calibration) Update(m vector.Vector[int16]) {
	c.Min.X = min(c.Min.X, m.X)
	c.Min.Y = min(c.Min.Y, m.Y)
	c.Min.Z = min(c.Min.Z, m.Z)
	c.Max.X = max(c.Max.X, m.X)
	c.Max.Y = max(c.Max.Y, m.Y)
	c.Max.Z = max(c.Max.Z, m.Z)
}

// Offset is the midpoint of Min and Max, truncated toward zero.
func (c Calibration) Offset() vector.Vector[int32] {
	return vector.Vector[int32]{
		X: (int32(c.Min.X) + int32(c.Max.X)) / 2,
		Y: (int32(c.Min.Y) + int32(c.Max.Y)) / 2,
		Z: (int32(c.Min.Z) + int32(c.Max.Z)) / 2,
	}
}

// Calibration returns the current extremes.
func (d *Device) Calibration() Calibration { return d.cal }

// SetCalibration replaces the extremes, e.g. with values saved from an
// earlier run. Later magnetometer reads keep widening them.
func (d *Device) SetCalibration(c Calibration) { d.cal = c }

// UpdateCalibration folds m into the extremes without touching the bus.
func (d *Device) UpdateCalibration(m vector.Vector[int16]) { d.cal.Update(m) }

// ResetCalibration forgets all extremes.
func (d *Device) ResetCalibration() { d.cal = EmptyCalibration() }
