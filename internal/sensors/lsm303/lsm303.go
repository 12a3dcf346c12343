// Package lsm303 drives the LSM303 family of accelerometer/magnetometer chips
// (LSM303DLH, LSM303DLM, LSM303DLHC and LSM303D) over I2C.
//
// The variants differ in bus addresses, magnetometer register layout and
// accelerometer resolution. Init resolves the variant once, either from the
// caller or by probing the bus, and every later access goes through the
// resolved address and register maps.
//
// A Device is meant to be driven from a single goroutine. Reads never return
// errors: a read that does not complete within the timeout leaves a zero
// value and raises TimeoutOccurred, and LastStatus reports the raw outcome of
// the most recent bus transfer.
package lsm303

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benbjohnson/clock"

	"lsm303-ng/internal/i2c"
	"lsm303-ng/internal/vector"
)

var (
	ErrNotDetected     = errors.New("lsm303: no known device detected")
	ErrNotInitialized  = errors.New("lsm303: device not initialized")
	ErrInvalidGain     = errors.New("lsm303: invalid magnetometer gain")
	ErrGainUnsupported = errors.New("lsm303: magnetometer gain not supported on this variant")
)

// Bus is the transport a Device talks through: a write of raw bytes, a
// request for n bytes, and a non-blocking receive of each requested byte.
// i2c.Wire and i2csim.Bus implement it.
type Bus interface {
	WriteBytes(addr uint16, p []byte) error
	RequestBytes(addr uint16, n int) error
	Receive() (byte, bool)
}

// Variant identifies a chip revision.
type Variant uint8

const (
	VariantAuto Variant = iota
	VariantDLH
	VariantDLM
	VariantDLHC
	VariantD
)

func (v Variant) String() string {
	switch v {
	case VariantAuto:
		return "auto"
	case VariantDLH:
		return "LSM303DLH"
	case VariantDLM:
		return "LSM303DLM"
	case VariantDLHC:
		return "LSM303DLHC"
	case VariantD:
		return "LSM303D"
	default:
		return fmt.Sprintf("Variant(%d)", uint8(v))
	}
}

// ParseVariant accepts "auto", "dlh", "dlm", "dlhc" and "d", with or without
// an "lsm303" prefix, in any case.
func ParseVariant(s string) (Variant, error) {
	name := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "lsm303")
	switch name {
	case "", "auto":
		return VariantAuto, nil
	case "dlh":
		return VariantDLH, nil
	case "dlm":
		return VariantDLM, nil
	case "dlhc":
		return VariantDLHC, nil
	case "d":
		return VariantD, nil
	default:
		return VariantAuto, fmt.Errorf("lsm303: unknown variant %q", s)
	}
}

// SA0 is the level of the address-select pin.
type SA0 uint8

const (
	SA0Auto SA0 = iota
	SA0Low
	SA0High
)

func (s SA0) String() string {
	switch s {
	case SA0Auto:
		return "auto"
	case SA0Low:
		return "low"
	case SA0High:
		return "high"
	default:
		return fmt.Sprintf("SA0(%d)", uint8(s))
	}
}

func ParseSA0(s string) (SA0, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return SA0Auto, nil
	case "low", "0":
		return SA0Low, nil
	case "high", "1":
		return SA0High, nil
	default:
		return SA0Auto, fmt.Errorf("lsm303: unknown sa0 level %q", s)
	}
}

// Device is one LSM303 chip on a bus.
type Device struct {
	bus   Bus
	clock clock.Clock

	variant Variant
	accAddr uint16
	magAddr uint16
	magMap  *magMap

	timeout    time.Duration
	didTimeout bool
	lastStatus i2c.Status

	acc vector.Vector[int16]
	mag vector.Vector[int16]
	cal Calibration

	// LSB per gauss of the current magnetometer range, zero when unknown.
	magScale vector.Vector[float64]
	magRange float64
}

type Option func(*Device)

// WithClock replaces the wall clock used to measure read timeouts.
func WithClock(c clock.Clock) Option {
	return func(d *Device) { d.clock = c }
}

// WithTimeout sets the initial read timeout.
func WithTimeout(t time.Duration) Option {
	return func(d *Device) { d.timeout = t }
}

// New returns an unresolved Device on bus. Call Init before anything else.
func New(bus Bus, opts ...Option) *Device {
	d := &Device{bus: bus, clock: clock.New(), cal: EmptyCalibration()}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Variant returns the resolved variant, or VariantAuto before a successful
// Init.
func (d *Device) Variant() Variant { return d.variant }

// Addresses returns the accelerometer and magnetometer bus addresses.
func (d *Device) Addresses() (acc, mag uint16) { return d.accAddr, d.magAddr }

// SetTimeout sets the read timeout. Zero disables it: reads then wait for
// data indefinitely.
func (d *Device) SetTimeout(t time.Duration) { d.timeout = t }

func (d *Device) Timeout() time.Duration { return d.timeout }

// TimeoutOccurred reports whether the most recent read that waited for data
// gave up. It stays set until a later read completes in time.
func (d *Device) TimeoutOccurred() bool { return d.didTimeout }

// LastStatus is the outcome of the most recent bus transfer.
func (d *Device) LastStatus() i2c.Status { return d.lastStatus }

// Acc returns the last accelerometer sample.
func (d *Device) Acc() vector.Vector[int16] { return d.acc }

// Mag returns the last magnetometer sample.
func (d *Device) Mag() vector.Vector[int16] { return d.mag }
