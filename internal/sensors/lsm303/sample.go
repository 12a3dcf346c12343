package lsm303

import (
	"encoding/binary"

	"lsm303-ng/internal/i2c"
	"lsm303-ng/internal/vector"
)

// accShift normalizes accelerometer output to a common scale. The DLH, DLM
// and DLHC deliver 12-bit left-aligned samples; the LSM303D uses all 16 bits.
func accShift(v Variant) uint {
	if v == VariantD {
		return 0
	}
	return 4
}

// ReadAcc reads the three accelerometer axes. On timeout the previous sample
// is kept.
func (d *Device) ReadAcc() {
	if d.magMap == nil {
		d.lastStatus = i2c.StatusOther
		return
	}
	var buf [6]byte
	if !d.readBlock(d.accAddr, byte(OutXLA)|autoIncrement, buf[:]) {
		return
	}
	shift := accShift(d.variant)
	d.acc = vector.Vector[int16]{
		X: int16(binary.LittleEndian.Uint16(buf[0:2])) >> shift,
		Y: int16(binary.LittleEndian.Uint16(buf[2:4])) >> shift,
		Z: int16(binary.LittleEndian.Uint16(buf[4:6])) >> shift,
	}
}

// ReadMag reads the three magnetometer axes and widens the calibration
// extremes with the result. On timeout the previous sample and the
// calibration are kept.
func (d *Device) ReadMag() {
	m := d.magMap
	if m == nil {
		d.lastStatus = i2c.StatusOther
		return
	}
	base := m.base()
	sub := byte(base)
	if d.variant == VariantD {
		sub |= autoIncrement
	}
	var buf [6]byte
	if !d.readBlock(d.magAddr, sub, buf[:]) {
		return
	}
	word := func(hi, lo MagOut) int16 {
		return int16(uint16(buf[m[hi]-base])<<8 | uint16(buf[m[lo]-base]))
	}
	d.mag = vector.Vector[int16]{
		X: word(MagOutXH, MagOutXL),
		Y: word(MagOutYH, MagOutYL),
		Z: word(MagOutZH, MagOutZL),
	}
	d.cal.Update(d.mag)
}

// Read reads the accelerometer, then the magnetometer.
func (d *Device) Read() {
	d.ReadAcc()
	d.ReadMag()
}
