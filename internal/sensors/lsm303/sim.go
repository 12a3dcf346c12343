package lsm303

import (
	"encoding/binary"
	"fmt"

	"lsm303-ng/internal/i2c/i2csim"
	"lsm303-ng/internal/vector"
)

// SimChip places a register-level model of one LSM303 variant on an
// i2csim.Bus: identity registers, auto-increment behaviour and the output
// register layout match the real part.
type SimChip struct {
	variant Variant
	acc     *i2csim.Device
	mag     *i2csim.Device
}

// NewSimChip attaches a simulated variant v with its SA0 pin at sa0.
func NewSimChip(bus *i2csim.Bus, v Variant, sa0 SA0) (*SimChip, error) {
	if v == VariantAuto || v > VariantD {
		return nil, fmt.Errorf("lsm303: cannot simulate variant %v", v)
	}
	if sa0 != SA0Low && sa0 != SA0High {
		return nil, fmt.Errorf("lsm303: simulated sa0 must be low or high, got %v", sa0)
	}

	var probe Device
	probe.resolve(v, sa0)
	accAddr, magAddr := probe.Addresses()

	c := &SimChip{variant: v}
	if v == VariantD {
		dev := bus.Attach(accAddr, &i2csim.Device{AutoIncrementBit: autoIncrement})
		dev.Set(byte(WhoAmI), whoAmID)
		c.acc, c.mag = dev, dev
		return c, nil
	}

	c.acc = bus.Attach(accAddr, &i2csim.Device{AutoIncrementBit: autoIncrement})
	c.acc.Set(byte(CtrlReg1A), 0x07)
	c.mag = bus.Attach(magAddr, &i2csim.Device{AlwaysIncrement: true})
	if v == VariantDLM || v == VariantDLHC {
		c.mag.Set(byte(WhoAmIM), whoAmIDLM)
	}
	return c, nil
}

func (c *SimChip) Variant() Variant { return c.variant }

// Acc and Mag expose the register files for inspecting writes.
func (c *SimChip) Acc() *i2csim.Device { return c.acc }
func (c *SimChip) Mag() *i2csim.Device { return c.mag }

// SetAcc loads an accelerometer sample in normalized units, i.e. what
// ReadAcc should return. The six output registers change in one step, so a
// concurrent read sees either the old or the new sample.
func (c *SimChip) SetAcc(a vector.Vector[int16]) {
	shift := accShift(c.variant)
	var buf [6]byte
	for i, v := range [3]int16{a.X, a.Y, a.Z} {
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(v<<shift))
	}
	c.acc.Set(byte(OutXLA), buf[:]...)
}

// SetMag loads a magnetometer sample into the variant's output registers,
// all six in one step.
func (c *SimChip) SetMag(m vector.Vector[int16]) {
	regs := magMaps[c.variant]
	base := regs.base()
	var buf [6]byte
	put := func(hi, lo MagOut, v int16) {
		buf[regs[hi]-base] = byte(uint16(v) >> 8)
		buf[regs[lo]-base] = byte(v)
	}
	put(MagOutXH, MagOutXL, m.X)
	put(MagOutYH, MagOutYL, m.Y)
	put(MagOutZH, MagOutZL, m.Z)
	c.mag.Set(byte(base), buf[:]...)
}
