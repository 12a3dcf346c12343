package main

import (
	"math"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"lsm303-ng/internal/i2c/i2csim"
	"lsm303-ng/internal/sensors/lsm303"
	"lsm303-ng/internal/vector"
)

func TestSimMotion_SampleMatchesHeading(t *testing.T) {
	m := newSimMotion(nil, time.Minute, 60, clock.NewMock())
	cal := lsm303.Calibration{
		Min: vector.New[int16](simHardIron.X-500, simHardIron.Y-500, simHardIron.Z-500),
		Max: vector.New[int16](simHardIron.X+500, simHardIron.Y+500, simHardIron.Z+500),
	}
	for deg := 0.0; deg < 360; deg += 15 {
		acc, mag := m.sample(deg)
		got := lsm303.TiltHeading(acc, mag, cal, lsm303.DefaultReference())
		d := math.Mod(got-deg+540, 360) - 180
		if math.Abs(d) > 0.5 {
			t.Fatalf("heading %v: got=%v", deg, got)
		}
	}
}

func TestSimMotion_HeadingAtWraps(t *testing.T) {
	m := newSimMotion(nil, 20*time.Second, 60, clock.NewMock())
	cases := map[time.Duration]float64{0: 0, 5 * time.Second: 90, 20 * time.Second: 0, 25 * time.Second: 90}
	for in, want := range cases {
		if got := m.headingAt(in); math.Abs(got-want) > 1e-9 {
			t.Fatalf("headingAt(%v) got=%v want=%v", in, got, want)
		}
	}
}

func TestSimMotion_StepLoadsChip(t *testing.T) {
	bus := i2csim.New()
	chip, err := lsm303.NewSimChip(bus, lsm303.VariantD, lsm303.SA0High)
	if err != nil {
		t.Fatalf("NewSimChip: %v", err)
	}
	mock := clock.NewMock()
	m := newSimMotion(chip, 4*time.Second, 0, mock)
	mock.Add(time.Second) // 90°
	m.Step()

	dev := lsm303.New(bus)
	if err := dev.Init(lsm303.VariantAuto, lsm303.SA0Auto); err != nil {
		t.Fatalf("Init: %v", err)
	}
	dev.Read()
	want := vector.New[int16](-simFieldCounts, 0, 0)
	want.X += simHardIron.X
	want.Y += simHardIron.Y
	want.Z += simHardIron.Z
	if dev.Mag() != want {
		t.Fatalf("mag got=%v want=%v", dev.Mag(), want)
	}
	if dev.Acc() != vector.New[int16](0, 0, -simGravity) {
		t.Fatalf("acc got=%v", dev.Acc())
	}
}
