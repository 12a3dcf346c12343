package lsm303

import (
	"fmt"
	"slices"

	"lsm303-ng/internal/i2c"
	"lsm303-ng/internal/vector"
)

const (
	addrDSA0High = 0x1D
	addrDSA0Low  = 0x1E
	addrAccHigh  = 0x19
	addrAccLow   = 0x18
	addrMag      = 0x1E

	whoAmID   = 0x49
	whoAmIDLM = 0x3C
)

// candidate is one probe of the auto-detection sequence.
type candidate struct {
	// variants this probe can confirm. The first one is reported when the
	// caller asked for auto and no refinement applies.
	variants []Variant
	sa0      SA0
	addr     uint16
	reg      Reg
	// want is the identity value; -1 accepts any answer.
	want int
	// refine, when set, picks between refine and DLH by reading the
	// magnetometer WHO_AM_I_M register.
	refine Variant
}

// candidates is the probe order. The LSM303D goes first: its SA0-low address
// is the magnetometer address of the older parts, and only the D answers
// WHO_AM_I with 0x49 there.
//
// DLHC boards answer WHO_AM_I_M like a DLM. Since the DLHC accelerometer sits
// where a DLM with SA0 high would, and DLM boards pull SA0 low by default, a
// DLM-like magnetometer behind the high accelerometer address is taken to be
// a DLHC.
var candidates = []candidate{
	{variants: []Variant{VariantD}, sa0: SA0High, addr: addrDSA0High, reg: WhoAmI, want: whoAmID},
	{variants: []Variant{VariantD}, sa0: SA0Low, addr: addrDSA0Low, reg: WhoAmI, want: whoAmID},
	{variants: []Variant{VariantDLHC, VariantDLM, VariantDLH}, sa0: SA0High, addr: addrAccHigh, reg: CtrlReg1A, want: -1, refine: VariantDLHC},
	{variants: []Variant{VariantDLM, VariantDLH}, sa0: SA0Low, addr: addrAccLow, reg: CtrlReg1A, want: -1, refine: VariantDLM},
}

// Init resolves the chip variant and its bus addresses. With both variant
// and sa0 given explicitly no bus traffic happens; otherwise the bus is
// probed in a fixed priority order, skipping probes that contradict what was
// given. If nothing answers, Init returns ErrNotDetected and the device stays
// unresolved.
//
// Init may be called again; each call starts from scratch. Calibration and
// the timeout setting are kept.
func (d *Device) Init(variant Variant, sa0 SA0) error {
	d.variant = VariantAuto
	d.magMap = nil
	d.accAddr, d.magAddr = 0, 0
	d.magScale = vector.Vector[float64]{}
	d.magRange = 0

	if variant > VariantD {
		return fmt.Errorf("lsm303: unknown variant %d", variant)
	}
	if sa0 > SA0High {
		return fmt.Errorf("lsm303: unknown sa0 level %d", sa0)
	}

	if variant == VariantAuto || sa0 == SA0Auto {
		v, s, ok := d.detect(candidates, variant, sa0)
		if !ok {
			return ErrNotDetected
		}
		variant, sa0 = v, s
	}

	d.resolve(variant, sa0)
	return nil
}

func (d *Device) detect(list []candidate, variant Variant, sa0 SA0) (Variant, SA0, bool) {
	for _, c := range list {
		if sa0 != SA0Auto && c.sa0 != sa0 {
			continue
		}
		if variant != VariantAuto && !slices.Contains(c.variants, variant) {
			continue
		}
		got, ok := d.probe(c.addr, c.reg)
		if !ok || (c.want >= 0 && int(got) != c.want) {
			continue
		}
		if variant != VariantAuto {
			return variant, c.sa0, true
		}
		found := c.variants[0]
		if c.refine != VariantAuto {
			found = VariantDLH
			if id, ok := d.probe(addrMag, WhoAmIM); ok && id == whoAmIDLM {
				found = c.refine
			}
		}
		return found, c.sa0, true
	}
	return VariantAuto, SA0Auto, false
}

// probe reads one register without waiting for data, so a silent address
// costs a single failed transfer.
func (d *Device) probe(addr uint16, reg Reg) (byte, bool) {
	if err := d.bus.WriteBytes(addr, []byte{byte(reg)}); err != nil {
		d.lastStatus = i2c.StatusOf(err)
		return 0, false
	}
	d.lastStatus = i2c.StatusOK
	if err := d.bus.RequestBytes(addr, 1); err != nil {
		d.lastStatus = i2c.StatusOf(err)
		return 0, false
	}
	return d.bus.Receive()
}

func (d *Device) resolve(variant Variant, sa0 SA0) {
	switch variant {
	case VariantD:
		d.accAddr = addrDSA0Low
		if sa0 == SA0High {
			d.accAddr = addrDSA0High
		}
		d.magAddr = d.accAddr
	case VariantDLHC:
		// No SA0 pin; the accelerometer always uses the high address.
		d.accAddr = addrAccHigh
		d.magAddr = addrMag
	default:
		d.accAddr = addrAccLow
		if sa0 == SA0High {
			d.accAddr = addrAccHigh
		}
		d.magAddr = addrMag
	}
	m := magMaps[variant]
	d.magMap = &m
	d.variant = variant
}

// MagRegister translates id for the resolved variant. ok is false until Init
// has succeeded.
func (d *Device) MagRegister(id MagOut) (Reg, bool) {
	if d.magMap == nil || id >= magOutCount {
		return 0, false
	}
	return d.magMap[id], true
}
