// Package i2csim is an in-memory I2C bus populated with register-file
// devices. It speaks the same write/request/receive contract as i2c.Wire so
// drivers can be exercised without hardware.
package i2csim

import (
	"fmt"
	"sync"

	"lsm303-ng/internal/i2c"
)

// Write records one register write seen by a Device.
type Write struct {
	Reg   byte
	Value byte
}

// Device is a 256-byte register file behind one bus address.
type Device struct {
	// AutoIncrementBit, when non-zero, is the sub-address bit that requests
	// pointer auto-increment. It is masked off the register address.
	AutoIncrementBit byte
	// AlwaysIncrement advances the pointer after every byte regardless of the
	// sub-address.
	AlwaysIncrement bool

	mu     sync.Mutex
	regs   [256]byte
	ptr    byte
	inc    bool
	writes []Write
}

// Set stores vals into consecutive registers starting at reg.
func (d *Device) Set(reg byte, vals ...byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, v := range vals {
		d.regs[reg+byte(i)] = v
	}
}

// Reg returns the current content of reg.
func (d *Device) Reg(reg byte) byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.regs[reg]
}

// Writes returns a copy of all register writes received so far.
func (d *Device) Writes() []Write {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Write(nil), d.writes...)
}

func (d *Device) write(p []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sub := p[0]
	d.inc = d.AlwaysIncrement
	if d.AutoIncrementBit != 0 && sub&d.AutoIncrementBit != 0 {
		d.inc = true
		sub &^= d.AutoIncrementBit
	}
	d.ptr = sub
	for _, v := range p[1:] {
		d.regs[d.ptr] = v
		d.writes = append(d.writes, Write{Reg: d.ptr, Value: v})
		if d.inc {
			d.ptr++
		}
	}
}

func (d *Device) read(n int) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]byte, n)
	for i := range out {
		out[i] = d.regs[d.ptr]
		if d.inc {
			d.ptr++
		}
	}
	return out
}

// Bus routes transfers to attached devices. Addresses with nothing attached
// NACK.
type Bus struct {
	mu    sync.Mutex
	devs  map[uint16]*Device
	rx    []byte
	stall bool
	polls int

	// OnIdlePoll, if set, runs every time Receive finds no data. Tests use
	// it to advance a mock clock.
	OnIdlePoll func()
}

func New() *Bus {
	return &Bus{devs: make(map[uint16]*Device)}
}

// Attach places d at addr, replacing any previous device.
func (b *Bus) Attach(addr uint16, d *Device) *Device {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.devs[addr] = d
	return d
}

// Detach removes the device at addr.
func (b *Bus) Detach(addr uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.devs, addr)
}

// Device returns the device at addr, or nil.
func (b *Bus) Device(addr uint16) *Device {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.devs[addr]
}

// SetStall makes requests succeed without ever delivering data.
func (b *Bus) SetStall(stall bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stall = stall
}

// Polls reports how many times Receive found the buffer empty.
func (b *Bus) Polls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.polls
}

func (b *Bus) WriteBytes(addr uint16, p []byte) error {
	b.mu.Lock()
	d := b.devs[addr]
	b.mu.Unlock()
	if d == nil {
		return fmt.Errorf("%w: 0x%02X", i2c.ErrAddrNACK, addr)
	}
	if len(p) == 0 {
		return nil
	}
	d.write(p)
	return nil
}

func (b *Bus) RequestBytes(addr uint16, n int) error {
	b.mu.Lock()
	b.rx = b.rx[:0]
	d := b.devs[addr]
	stall := b.stall
	b.mu.Unlock()
	if d == nil {
		return fmt.Errorf("%w: 0x%02X", i2c.ErrAddrNACK, addr)
	}
	if stall || n <= 0 {
		return nil
	}
	data := d.read(n)
	b.mu.Lock()
	b.rx = append(b.rx, data...)
	b.mu.Unlock()
	return nil
}

func (b *Bus) Receive() (byte, bool) {
	b.mu.Lock()
	if len(b.rx) == 0 {
		b.polls++
		hook := b.OnIdlePoll
		b.mu.Unlock()
		if hook != nil {
			hook()
		}
		return 0, false
	}
	v := b.rx[0]
	b.rx = b.rx[1:]
	b.mu.Unlock()
	return v, true
}
