package lsm303

import (
	"math"

	"lsm303-ng/internal/vector"
)

// DefaultReference is the sensor-frame direction whose heading Heading
// reports: the -Y axis.
func DefaultReference() vector.Vector[float64] {
	return vector.Vector[float64]{X: 0, Y: -1, Z: 0}
}

// Heading returns the tilt-compensated heading of the -Y axis in degrees,
// using the last samples and the current calibration.
func (d *Device) Heading() float64 {
	return d.HeadingFrom(DefaultReference())
}

// HeadingFrom returns the tilt-compensated heading of the sensor-frame
// direction from, in degrees clockwise from magnetic north.
func (d *Device) HeadingFrom(from vector.Vector[float64]) float64 {
	return TiltHeading(d.acc, d.mag, d.cal, from)
}

// TiltHeading computes the heading of from given a gravity sample acc and a
// raw magnetometer sample mag. The calibration midpoint is subtracted from
// mag, then east is mag x down and north is down x east, which keeps both in
// the horizontal plane however the sensor is tilted.
//
// The result is in [0, 360). It is NaN when acc is zero or the calibrated
// field is parallel to gravity; nothing is clamped.
func TiltHeading(acc, mag vector.Vector[int16], cal Calibration, from vector.Vector[float64]) float64 {
	a := vector.Float(acc)
	vector.Normalize(&a)

	m := vector.Sub(vector.Convert[int32](mag), cal.Offset())

	e := vector.Cross[float64](m, a)
	vector.Normalize(&e)
	n := vector.Cross[float64](a, e)
	vector.Normalize(&n)

	h := math.Atan2(vector.Dot(e, from), vector.Dot(n, from)) * 180 / math.Pi
	if h < 0 {
		h += 360
	}
	if h >= 360 {
		h -= 360
	}
	return h
}
