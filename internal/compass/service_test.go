package compass

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"lsm303-ng/internal/i2c/i2csim"
	"lsm303-ng/internal/sensors/lsm303"
	"lsm303-ng/internal/vector"
)

func newDevice(t *testing.T, opts ...lsm303.Option) (*lsm303.Device, *lsm303.SimChip, *i2csim.Bus) {
	t.Helper()
	bus := i2csim.New()
	chip, err := lsm303.NewSimChip(bus, lsm303.VariantDLHC, lsm303.SA0High)
	if err != nil {
		t.Fatalf("NewSimChip: %v", err)
	}
	dev := lsm303.New(bus, opts...)
	if err := dev.Init(lsm303.VariantAuto, lsm303.SA0Auto); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := dev.EnableDefault(); err != nil {
		t.Fatalf("EnableDefault: %v", err)
	}
	dev.SetCalibration(lsm303.Calibration{
		Min: vector.New[int16](-500, -500, -500),
		Max: vector.New[int16](500, 500, 500),
	})
	return dev, chip, bus
}

func waitSample(t *testing.T, ch <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a sample")
		return Snapshot{}
	}
}

func startService(t *testing.T, dev Sensor, cfg Config) (*Service, *clock.Mock, <-chan Snapshot) {
	t.Helper()
	mock := clock.NewMock()
	samples := make(chan Snapshot, 16)
	cfg.Clock = mock
	cfg.OnSample = func(s Snapshot) { samples <- s }
	s := New(dev, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		s.Close()
	})
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return s, mock, samples
}

func TestService_PublishesHeading(t *testing.T) {
	dev, chip, _ := newDevice(t)
	chip.SetAcc(vector.New[int16](0, 0, -1000))
	chip.SetMag(vector.New[int16](0, -400, 0))

	s, mock, samples := startService(t, dev, Config{Interval: 50 * time.Millisecond, DeclinationDeg: -10})
	mock.Add(50 * time.Millisecond)
	snap := waitSample(t, samples)

	if !snap.HeadingValid {
		t.Fatalf("expected a valid heading: %+v", snap)
	}
	if math.Abs(snap.MagHeadingDeg) > 1e-9 {
		t.Fatalf("mag heading got=%v want=0", snap.MagHeadingDeg)
	}
	if math.Abs(snap.HeadingDeg-350) > 1e-9 {
		t.Fatalf("heading got=%v want=350", snap.HeadingDeg)
	}
	if snap.Variant != "LSM303DLHC" || snap.Status != "ok" || snap.Samples != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if !snap.FieldValid || snap.MagRangeGauss != 1.3 {
		t.Fatalf("expected a field estimate at ±1.3 gauss after EnableDefault: %+v", snap)
	}
	if got := s.Snapshot(); got.Samples != 1 || !got.UpdatedAt.Equal(mock.Now()) {
		t.Fatalf("Snapshot got=%+v", got)
	}

	chip.SetMag(vector.New[int16](300, 0, 0))
	mock.Add(50 * time.Millisecond)
	snap = waitSample(t, samples)
	if math.Abs(snap.MagHeadingDeg-270) > 1e-9 || snap.Samples != 2 {
		t.Fatalf("second sample got=%+v", snap)
	}
}

func TestService_CustomReference(t *testing.T) {
	dev, chip, _ := newDevice(t)
	chip.SetAcc(vector.New[int16](0, 0, -1000))
	chip.SetMag(vector.New[int16](0, -400, 0))

	_, mock, samples := startService(t, dev, Config{Interval: time.Second, From: vector.Vector[float64]{X: 1}})
	mock.Add(time.Second)
	snap := waitSample(t, samples)
	if math.Abs(snap.HeadingDeg-90) > 1e-9 {
		t.Fatalf("heading got=%v want=90", snap.HeadingDeg)
	}
}

func TestService_TimeoutSurfacesInvalidHeading(t *testing.T) {
	devClock := clock.NewMock()
	dev, _, bus := newDevice(t, lsm303.WithClock(devClock), lsm303.WithTimeout(5*time.Millisecond))
	bus.OnIdlePoll = func() { devClock.Add(time.Millisecond) }
	bus.SetStall(true)

	_, mock, samples := startService(t, dev, Config{Interval: time.Second})
	mock.Add(time.Second)
	snap := waitSample(t, samples)
	if !snap.TimedOut {
		t.Fatalf("expected timeout: %+v", snap)
	}
	// No sample ever completed, so gravity is zero.
	if snap.HeadingValid {
		t.Fatalf("heading must be invalid without a gravity sample: %+v", snap)
	}
}

func TestService_TimeoutAfterGoodSampleInvalidatesHeading(t *testing.T) {
	devClock := clock.NewMock()
	dev, chip, bus := newDevice(t, lsm303.WithClock(devClock), lsm303.WithTimeout(5*time.Millisecond))
	bus.OnIdlePoll = func() { devClock.Add(time.Millisecond) }
	chip.SetAcc(vector.New[int16](0, 0, -1000))
	chip.SetMag(vector.New[int16](0, -400, 0))

	_, mock, samples := startService(t, dev, Config{Interval: time.Second})
	mock.Add(time.Second)
	if snap := waitSample(t, samples); !snap.HeadingValid || snap.TimedOut {
		t.Fatalf("first sample should be valid: %+v", snap)
	}

	bus.SetStall(true)
	mock.Add(time.Second)
	snap := waitSample(t, samples)
	if !snap.TimedOut {
		t.Fatalf("expected timeout: %+v", snap)
	}
	// The stale vectors would still give a finite heading.
	if snap.HeadingValid || snap.HeadingDeg != 0 || snap.MagHeadingDeg != 0 {
		t.Fatalf("heading from stale vectors reported as valid: %+v", snap)
	}
	if snap.Mag != vector.New[int16](0, -400, 0) {
		t.Fatalf("mag got=%v want previous sample kept", snap.Mag)
	}
}

func TestService_ResetCalibration(t *testing.T) {
	dev, chip, _ := newDevice(t)
	chip.SetAcc(vector.New[int16](0, 0, -1000))
	chip.SetMag(vector.New[int16](10, -400, 20))

	s, mock, samples := startService(t, dev, Config{Interval: time.Second})
	mock.Add(time.Second)
	waitSample(t, samples)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.ResetCalibration(ctx); err != nil {
		t.Fatalf("ResetCalibration: %v", err)
	}
	if !s.Snapshot().Calibration.Empty() {
		t.Fatalf("calibration got=%+v want empty", s.Snapshot().Calibration)
	}

	mock.Add(time.Second)
	snap := waitSample(t, samples)
	want := lsm303.Calibration{Min: vector.New[int16](10, -400, 20), Max: vector.New[int16](10, -400, 20)}
	if snap.Calibration != want {
		t.Fatalf("calibration after reset got=%+v want=%+v", snap.Calibration, want)
	}
}

func TestService_StartRequiresInit(t *testing.T) {
	dev := lsm303.New(i2csim.New())
	s := New(dev, Config{})
	if err := s.Start(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestService_StartTwice(t *testing.T) {
	dev, _, _ := newDevice(t)
	s, _, _ := startService(t, dev, Config{})
	if err := s.Start(context.Background()); err == nil {
		t.Fatalf("expected error on second Start")
	}
}

func TestService_CloseUnblocksReset(t *testing.T) {
	dev, _, _ := newDevice(t)
	s := New(dev, Config{Clock: clock.NewMock()})
	s.Close()
	s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.ResetCalibration(ctx); err == nil {
		t.Fatalf("expected error from a closed service")
	}
}

func TestWrap360(t *testing.T) {
	cases := map[float64]float64{0: 0, 360: 0, -10: 350, 725: 5, -720: 0}
	for in, want := range cases {
		if got := wrap360(in); math.Abs(got-want) > 1e-9 {
			t.Fatalf("wrap360(%v) got=%v want=%v", in, got, want)
		}
	}
}
