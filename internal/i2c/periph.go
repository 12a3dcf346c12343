package i2c

import (
	"errors"
	"fmt"
	"strings"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// hostInit is swapped out in tests; periph's host.Init probes real drivers.
var hostInit = func() error {
	_, err := host.Init()
	return err
}

// PeriphBus is an I2C bus opened through periph.io's host drivers. It is the
// fallback for boards where /dev/i2c-N is not the right path (bit-banged
// buses, FT232H adapters and friends).
type PeriphBus struct {
	bc i2c.BusCloser
}

// OpenPeriph opens a periph.io bus by registry name. An empty name selects the
// first registered bus. speedHz of 0 keeps the driver default.
func OpenPeriph(name string, speedHz int64) (*PeriphBus, error) {
	if err := hostInit(); err != nil {
		return nil, fmt.Errorf("i2c: periph host init: %w", err)
	}
	bc, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("i2c: periph open %q: %w", name, err)
	}
	if speedHz > 0 {
		if err := bc.SetSpeed(physic.Frequency(speedHz) * physic.Hertz); err != nil {
			_ = bc.Close()
			return nil, fmt.Errorf("i2c: periph set speed %dHz: %w", speedHz, err)
		}
	}
	return &PeriphBus{bc: bc}, nil
}

func (p *PeriphBus) String() string {
	if p == nil || p.bc == nil {
		return "periph(nil)"
	}
	return p.bc.String()
}

func (p *PeriphBus) Tx(addr uint16, w, r []byte) error {
	if p == nil || p.bc == nil {
		return fmt.Errorf("i2c: periph bus is closed")
	}
	if err := p.bc.Tx(addr, w, r); err != nil {
		return classifyPeriphErr(err, len(w) > 0)
	}
	return nil
}

// periph drivers format the adapter errno into their message (sysfs-i2c uses
// %v), so the errno text is all that survives. The table matches the one
// classifyErrno applies to /dev/i2c-N.
var periphErrText = []struct {
	text      string
	afterData bool // only meaningful once a write phase went out
	err       error
}{
	{"no such device or address", false, ErrAddrNACK},
	{"remote i/o error", false, ErrAddrNACK},
	{"input/output error", true, ErrDataNACK},
	{"connection timed out", false, ErrBusTimeout},
}

func classifyPeriphErr(err error, wrote bool) error {
	for _, known := range []error{ErrAddrNACK, ErrDataNACK, ErrBusTimeout, ErrTooLong} {
		if errors.Is(err, known) {
			return err
		}
	}
	msg := strings.ToLower(err.Error())
	for _, e := range periphErrText {
		if !strings.Contains(msg, e.text) {
			continue
		}
		if e.afterData && !wrote {
			return err
		}
		return fmt.Errorf("%w (%v)", e.err, err)
	}
	return err
}

func (p *PeriphBus) Close() error {
	if p == nil || p.bc == nil {
		return nil
	}
	err := p.bc.Close()
	p.bc = nil
	return err
}

var _ Conn = (*PeriphBus)(nil)
var _ Conn = (i2c.Bus)(nil)
