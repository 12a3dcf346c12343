package lsm303

import (
	"math"
	"testing"

	"lsm303-ng/internal/vector"
)

// angleDiff returns a-b folded into (-180, 180].
func angleDiff(a, b float64) float64 {
	d := math.Mod(a-b, 360)
	if d <= -180 {
		d += 360
	}
	if d > 180 {
		d -= 360
	}
	return d
}

var centered = Calibration{Min: vector.New[int16](-100, -100, -100), Max: vector.New[int16](100, 100, 100)}

func TestTiltHeading_LevelNorth(t *testing.T) {
	h := TiltHeading(vector.New[int16](0, 0, -1), vector.New[int16](0, -400, 0), centered, DefaultReference())
	if math.Abs(angleDiff(h, 0)) > 1e-9 {
		t.Fatalf("heading got=%v want=0", h)
	}
}

func TestTiltHeading_ReferenceRotation(t *testing.T) {
	acc := vector.New[int16](0, 0, -1)
	mags := []vector.Vector[int16]{
		{X: 0, Y: -400, Z: 0},
		{X: 300, Y: 0, Z: 0},
		{X: 200, Y: -200, Z: 0},
		{X: -150, Y: 80, Z: 30},
	}
	for _, m := range mags {
		h0 := TiltHeading(acc, m, centered, DefaultReference())
		h90 := TiltHeading(acc, m, centered, vector.Vector[float64]{X: 1})
		if d := angleDiff(h90, h0); math.Abs(d-90) > 1e-6 {
			t.Fatalf("mag %v: heading(+X)=%v heading(-Y)=%v, differ by %v want 90", m, h90, h0, d)
		}
	}
}

func TestTiltHeading_KnownValues(t *testing.T) {
	acc := vector.New[int16](0, 0, -1)
	cases := []struct {
		m    vector.Vector[int16]
		want float64
	}{
		{vector.New[int16](300, 0, 0), 270},
		{vector.New[int16](200, -200, 0), 315},
		{vector.New[int16](-200, -200, 0), 45},
		{vector.New[int16](0, 400, 0), 180},
	}
	for _, tc := range cases {
		h := TiltHeading(acc, tc.m, centered, DefaultReference())
		if math.Abs(angleDiff(h, tc.want)) > 1e-6 {
			t.Fatalf("mag %v: got=%v want=%v", tc.m, h, tc.want)
		}
	}
}

func TestTiltHeading_RollAboutReferenceKeepsHeading(t *testing.T) {
	// Field with 60° dip, sensor rolled about its Y axis.
	cases := []struct {
		acc, mag vector.Vector[int16]
	}{
		{vector.New[int16](0, 0, -1000), vector.New[int16](0, -200, -346)},
		{vector.New[int16](-342, 0, -940), vector.New[int16](-118, -200, -325)},
		{vector.New[int16](574, 0, -819), vector.New[int16](198, -200, -283)},
	}
	for _, tc := range cases {
		h := TiltHeading(tc.acc, tc.mag, centered, DefaultReference())
		if math.Abs(angleDiff(h, 0)) > 0.5 {
			t.Fatalf("acc %v mag %v: got=%v want≈0", tc.acc, tc.mag, h)
		}
	}
}

func TestTiltHeading_Range(t *testing.T) {
	acc := vector.New[int16](12, -40, -980)
	for x := int16(-400); x <= 400; x += 80 {
		for y := int16(-400); y <= 400; y += 80 {
			if x == 0 && y == 0 {
				continue
			}
			h := TiltHeading(acc, vector.New[int16](x, y, -150), centered, DefaultReference())
			if !(h >= 0 && h < 360) {
				t.Fatalf("mag (%d, %d): heading %v outside [0, 360)", x, y, h)
			}
		}
	}
}

func TestTiltHeading_ZeroGravityIsNaN(t *testing.T) {
	h := TiltHeading(vector.Vector[int16]{}, vector.New[int16](0, -400, 0), centered, DefaultReference())
	if !math.IsNaN(h) {
		t.Fatalf("got=%v want NaN", h)
	}
}

func TestTiltHeading_SubtractsOffset(t *testing.T) {
	// Hard iron shifts Y by +1000; calibration centered there.
	cal := Calibration{Min: vector.New[int16](-500, 500, -500), Max: vector.New[int16](500, 1500, 500)}
	h := TiltHeading(vector.New[int16](0, 0, -1), vector.New[int16](0, 600, 0), cal, DefaultReference())
	if math.Abs(angleDiff(h, 0)) > 1e-9 {
		t.Fatalf("got=%v want=0", h)
	}
}

func TestDevice_Heading(t *testing.T) {
	bus, chip := newSim(t, VariantDLHC, SA0High)
	d := New(bus)
	if err := d.Init(VariantAuto, SA0Auto); err != nil {
		t.Fatalf("Init: %v", err)
	}
	d.SetCalibration(Calibration{Min: vector.New[int16](-500, -500, -500), Max: vector.New[int16](500, 500, 500)})
	chip.SetAcc(vector.New[int16](0, 0, -1000))
	chip.SetMag(vector.New[int16](0, -400, 0))
	d.Read()

	if h := d.Heading(); math.Abs(angleDiff(h, 0)) > 1e-9 {
		t.Fatalf("Heading got=%v want=0", h)
	}
	if h := d.HeadingFrom(vector.Vector[float64]{X: 1}); math.Abs(angleDiff(h, 90)) > 1e-9 {
		t.Fatalf("HeadingFrom(+X) got=%v want=90", h)
	}
}
