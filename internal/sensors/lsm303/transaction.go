package lsm303

import (
	"fmt"

	"lsm303-ng/internal/i2c"
)

func (d *Device) writeReg(addr uint16, reg Reg, value byte) {
	d.lastStatus = i2c.StatusOf(d.bus.WriteBytes(addr, []byte{byte(reg), value}))
}

func (d *Device) readReg(addr uint16, reg Reg) byte {
	var b [1]byte
	d.readBlock(addr, byte(reg), b[:])
	return b[0]
}

// readBlock writes the sub-address, requests len(dst) bytes and waits for
// each one. The wait is bounded by the timeout, measured from the request; on
// expiry dst is zeroed, the timeout flag is raised and false is returned.
//
// A request the bus rejected still waits: the transport may deliver nothing,
// and only the timeout ends the wait. LastStatus keeps the failure.
func (d *Device) readBlock(addr uint16, sub byte, dst []byte) bool {
	d.lastStatus = i2c.StatusOf(d.bus.WriteBytes(addr, []byte{sub}))
	if err := d.bus.RequestBytes(addr, len(dst)); err != nil {
		d.lastStatus = i2c.StatusOf(err)
	}

	start := d.clock.Now()
	for i := range dst {
		for {
			b, ok := d.bus.Receive()
			if ok {
				dst[i] = b
				break
			}
			if d.timeout > 0 && d.clock.Since(start) >= d.timeout {
				clear(dst)
				d.didTimeout = true
				return false
			}
		}
	}
	d.didTimeout = false
	return true
}

// WriteAccReg writes an accelerometer register.
func (d *Device) WriteAccReg(reg Reg, value byte) {
	d.writeReg(d.accAddr, reg, value)
}

// ReadAccReg reads an accelerometer register. A timed-out read returns 0;
// check TimeoutOccurred when 0 is a plausible value.
func (d *Device) ReadAccReg(reg Reg) byte {
	return d.readReg(d.accAddr, reg)
}

// WriteMagReg writes a magnetometer register. reg may be a MagOut, which is
// translated for the resolved variant; passing a MagOut before Init has
// succeeded panics.
func (d *Device) WriteMagReg(reg Register, value byte) {
	d.writeReg(d.magAddr, d.concrete(reg), value)
}

// ReadMagReg reads a magnetometer register, translating a MagOut like
// WriteMagReg does.
func (d *Device) ReadMagReg(reg Register) byte {
	return d.readReg(d.magAddr, d.concrete(reg))
}

// WriteReg writes reg on whichever sub-device owns it. On the LSM303D there
// is only one; on the older parts everything below CTRL_REG1_A belongs to the
// magnetometer.
func (d *Device) WriteReg(reg Reg, value byte) {
	if d.variant == VariantD || reg < CtrlReg1A {
		d.WriteMagReg(reg, value)
		return
	}
	d.WriteAccReg(reg, value)
}

// ReadReg is the read counterpart of WriteReg.
func (d *Device) ReadReg(reg Reg) byte {
	if d.variant == VariantD || reg < CtrlReg1A {
		return d.ReadMagReg(reg)
	}
	return d.ReadAccReg(reg)
}

func (d *Device) concrete(reg Register) Reg {
	switch r := reg.(type) {
	case Reg:
		return r
	case MagOut:
		c, ok := d.MagRegister(r)
		if !ok {
			panic(fmt.Sprintf("lsm303: %v used on an unresolved device", r))
		}
		return c
	default:
		panic(fmt.Sprintf("lsm303: unsupported register type %T", reg))
	}
}
