package main

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"lsm303-ng/internal/sensors/lsm303"
	"lsm303-ng/internal/vector"
)

// Field strength in raw counts and a fixed hard-iron offset, so the
// calibration has something to converge on.
const (
	simFieldCounts = 450
	simGravity     = 1000
)

var simHardIron = vector.New[int16](120, -80, 40)

// simMotion turns a level simulated chip about the vertical axis at a
// constant rate.
type simMotion struct {
	chip   *lsm303.SimChip
	period time.Duration
	dipRad float64
	clk    clock.Clock
	start  time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
}

func newSimMotion(chip *lsm303.SimChip, period time.Duration, dipDeg float64, clk clock.Clock) *simMotion {
	return &simMotion{
		chip:   chip,
		period: period,
		dipRad: dipDeg * math.Pi / 180,
		clk:    clk,
		start:  clk.Now(),
		stopCh: make(chan struct{}),
	}
}

// headingAt is the heading of the -Y axis after elapsed time.
func (m *simMotion) headingAt(elapsed time.Duration) float64 {
	turns := float64(elapsed%m.period) / float64(m.period)
	return turns * 360
}

// sample returns the level-sensor readings for heading deg.
func (m *simMotion) sample(deg float64) (acc, mag vector.Vector[int16]) {
	rad := deg * math.Pi / 180
	h := simFieldCounts * math.Cos(m.dipRad)
	v := simFieldCounts * math.Sin(m.dipRad)
	mag = vector.Vector[int16]{
		X: int16(math.Round(-h*math.Sin(rad))) + simHardIron.X,
		Y: int16(math.Round(-h*math.Cos(rad))) + simHardIron.Y,
		Z: int16(math.Round(-v)) + simHardIron.Z,
	}
	return vector.New[int16](0, 0, -simGravity), mag
}

// Step loads the registers for the current time.
func (m *simMotion) Step() {
	acc, mag := m.sample(m.headingAt(m.clk.Since(m.start)))
	m.chip.SetAcc(acc)
	m.chip.SetMag(mag)
}

func (m *simMotion) Run(ctx context.Context) {
	tick := m.clk.Ticker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-tick.C:
			m.Step()
		}
	}
}

func (m *simMotion) Close() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}
