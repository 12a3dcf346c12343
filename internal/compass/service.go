// Package compass samples an LSM303 on a fixed interval and publishes
// tilt-compensated headings.
package compass

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"lsm303-ng/internal/i2c"
	"lsm303-ng/internal/sensors/lsm303"
	"lsm303-ng/internal/vector"
)

// Sensor is the part of *lsm303.Device the service drives.
type Sensor interface {
	Variant() lsm303.Variant
	Read()
	Acc() vector.Vector[int16]
	Mag() vector.Vector[int16]
	Calibration() lsm303.Calibration
	ResetCalibration()
	TimeoutOccurred() bool
	LastStatus() i2c.Status
	MagneticField() (vector.Vector[float64], bool)
	MagRange() float64
	HeadingFrom(from vector.Vector[float64]) float64
}

type Config struct {
	Interval time.Duration
	// From is the sensor-frame direction whose heading is reported. Zero
	// means lsm303.DefaultReference.
	From vector.Vector[float64]
	// DeclinationDeg is added to the magnetic heading.
	DeclinationDeg float64

	Clock clock.Clock

	// OnSample, if set, is called from the sampling goroutine after every
	// snapshot update. It must not block for long.
	OnSample func(Snapshot)
}

type Snapshot struct {
	Variant string `json:"variant"`

	// HeadingValid is false when the read timed out or the geometry is
	// degenerate; the heading fields are then zero.
	HeadingValid  bool    `json:"heading_valid"`
	HeadingDeg    float64 `json:"heading_deg"`
	MagHeadingDeg float64 `json:"mag_heading_deg"`

	Acc        vector.Vector[int16]   `json:"acc"`
	Mag        vector.Vector[int16]   `json:"mag"`
	FieldValid bool                   `json:"field_valid"`
	FieldGauss vector.Vector[float64] `json:"field_gauss"`
	// MagRangeGauss is the magnetometer full scale, 0 if never configured.
	MagRangeGauss float64            `json:"mag_range_gauss"`
	Calibration   lsm303.Calibration `json:"calibration"`

	TimedOut  bool      `json:"timed_out"`
	Status    string    `json:"status"`
	Samples   uint64    `json:"samples"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Service struct {
	cfg Config
	dev Sensor
	clk clock.Clock

	resetCh chan chan error

	mu   sync.RWMutex
	snap Snapshot

	startOnce sync.Once
	started   atomic.Bool
	stopOnce  sync.Once
	stopCh    chan struct{}
	done      chan struct{}
}

func New(dev Sensor, cfg Config) *Service {
	if cfg.Interval <= 0 {
		cfg.Interval = 100 * time.Millisecond
	}
	if cfg.From == (vector.Vector[float64]{}) {
		cfg.From = lsm303.DefaultReference()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	s := &Service{
		cfg:     cfg,
		dev:     dev,
		clk:     cfg.Clock,
		resetCh: make(chan chan error, 1),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	s.snap.Variant = dev.Variant().String()
	s.snap.Calibration = dev.Calibration()
	return s
}

// Close stops sampling and waits for the sampling goroutine to let go of the
// device.
func (s *Service) Close() {
	if s == nil {
		return
	}
	s.stopOnce.Do(func() { close(s.stopCh) })
	if s.started.Load() {
		<-s.done
	}
}

func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Start launches the sampling goroutine. The device must already be
// initialized; from here on only the service touches it.
func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("compass: service is nil")
	}
	if s.dev.Variant() == lsm303.VariantAuto {
		return fmt.Errorf("compass: %w", lsm303.ErrNotInitialized)
	}
	started := false
	s.startOnce.Do(func() {
		started = true
		s.started.Store(true)
		tick := s.clk.Ticker(s.cfg.Interval)
		go s.run(ctx, tick)
	})
	if !started {
		return fmt.Errorf("compass: already started")
	}
	return nil
}

// ResetCalibration forgets the magnetometer extremes. It is applied between
// samples by the sampling goroutine.
func (s *Service) ResetCalibration(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("compass: service is nil")
	}
	done := make(chan error, 1)
	select {
	case s.resetCh <- done:
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("compass: calibration reset already pending")
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopCh:
		return fmt.Errorf("compass: service closed")
	case <-s.done:
		return fmt.Errorf("compass: service stopped")
	}
}

func (s *Service) run(ctx context.Context, tick *clock.Ticker) {
	defer close(s.done)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case done := <-s.resetCh:
			s.dev.ResetCalibration()
			s.mu.Lock()
			s.snap.Calibration = s.dev.Calibration()
			s.mu.Unlock()
			done <- nil
		case <-tick.C:
			snap := s.sample()
			if s.cfg.OnSample != nil {
				s.cfg.OnSample(snap)
			}
		}
	}
}

func (s *Service) sample() Snapshot {
	s.dev.Read()

	magHeading := s.dev.HeadingFrom(s.cfg.From)
	field, fieldOK := s.dev.MagneticField()

	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Variant:       s.snap.Variant,
		Acc:           s.dev.Acc(),
		Mag:           s.dev.Mag(),
		FieldValid:    fieldOK,
		FieldGauss:    field,
		MagRangeGauss: s.dev.MagRange(),
		Calibration:   s.dev.Calibration(),
		TimedOut:      s.dev.TimeoutOccurred(),
		Status:        s.dev.LastStatus().String(),
		Samples:       s.snap.Samples + 1,
		UpdatedAt:     s.clk.Now().UTC(),
	}
	// A timed-out read leaves the previous vectors in place; the heading is
	// only reported for a fresh sample.
	if !snap.TimedOut && !math.IsNaN(magHeading) {
		snap.HeadingValid = true
		snap.MagHeadingDeg = magHeading
		snap.HeadingDeg = wrap360(magHeading + s.cfg.DeclinationDeg)
	}
	s.snap = snap
	return snap
}

func wrap360(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	if deg >= 360 {
		deg -= 360
	}
	return deg
}
