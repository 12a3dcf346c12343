package lsm303

import (
	"fmt"
	"strconv"
	"strings"

	"lsm303-ng/internal/i2c"
	"lsm303-ng/internal/vector"
)

// MagGain is a CRB_REG_M gain setting of the DLH, DLM and DLHC.
type MagGain byte

const (
	MagGain13 MagGain = 0x20 // ±1.3 gauss (default)
	MagGain19 MagGain = 0x40 // ±1.9 gauss
	MagGain25 MagGain = 0x60 // ±2.5 gauss
	MagGain40 MagGain = 0x80 // ±4.0 gauss
	MagGain47 MagGain = 0xA0 // ±4.7 gauss
	MagGain56 MagGain = 0xC0 // ±5.6 gauss
	MagGain81 MagGain = 0xE0 // ±8.1 gauss
)

type gainInfo struct {
	rangeGauss float64
	// LSB/gauss for X/Y and Z: DLH, then DLM and DLHC.
	xyDLH, zDLH int
	xyDLM, zDLM int
}

var gainTable = map[MagGain]gainInfo{
	MagGain13: {1.3, 1055, 950, 1100, 980},
	MagGain19: {1.9, 795, 710, 855, 760},
	MagGain25: {2.5, 635, 570, 670, 600},
	MagGain40: {4.0, 430, 385, 450, 400},
	MagGain47: {4.7, 375, 335, 400, 355},
	MagGain56: {5.6, 320, 285, 330, 295},
	MagGain81: {8.1, 230, 205, 230, 205},
}

// LSM303D with CTRL6 MFS=01 (±4 gauss): 0.160 mgauss/LSB.
const (
	dRangeGauss       = 4.0
	dScaleLSBPerGauss = 1 / 0.000160
)

func (g MagGain) Valid() bool {
	_, ok := gainTable[g]
	return ok
}

// Range is the full-scale range in gauss, 0 for an invalid gain.
func (g MagGain) Range() float64 {
	return gainTable[g].rangeGauss
}

func (g MagGain) String() string {
	info, ok := gainTable[g]
	if !ok {
		return fmt.Sprintf("MagGain(0x%02X)", byte(g))
	}
	return strconv.FormatFloat(info.rangeGauss, 'f', 1, 64)
}

// Sensitivity returns the datasheet LSB/gauss for the X/Y and Z axes on
// variant v. ok is false for the LSM303D, which has no CRB_REG_M.
func (g MagGain) Sensitivity(v Variant) (xy, z int, ok bool) {
	info, found := gainTable[g]
	if !found {
		return 0, 0, false
	}
	switch v {
	case VariantDLH:
		return info.xyDLH, info.zDLH, true
	case VariantDLM, VariantDLHC:
		return info.xyDLM, info.zDLM, true
	default:
		return 0, 0, false
	}
}

// ParseMagGain accepts a full-scale range in gauss, e.g. "1.3" or "±8.1".
func ParseMagGain(s string) (MagGain, error) {
	s = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(s), "±"), "gauss")
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidGain, s)
	}
	for g, info := range gainTable {
		if info.rangeGauss == f {
			return g, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidGain, s)
}

// SetMagGain writes g to CRB_REG_M. The calibration is not rescaled; reset it
// after changing the gain.
func (d *Device) SetMagGain(g MagGain) error {
	if d.magMap == nil {
		return ErrNotInitialized
	}
	if !g.Valid() {
		return fmt.Errorf("%w: 0x%02X", ErrInvalidGain, byte(g))
	}
	if d.variant == VariantD {
		return ErrGainUnsupported
	}
	d.WriteMagReg(CRBRegM, byte(g))
	if err := d.lastStatus.Err(); err != nil {
		return fmt.Errorf("lsm303: write CRB_REG_M: %w", err)
	}
	xy, z, _ := g.Sensitivity(d.variant)
	d.magScale = vector.New(float64(xy), float64(xy), float64(z))
	d.magRange = g.Range()
	return nil
}

// MagRange reports the configured magnetometer full scale in gauss, 0 until
// EnableDefault or SetMagGain has set it.
func (d *Device) MagRange() float64 { return d.magRange }

// MagneticField converts the last magnetometer sample to gauss. ok is false
// until the range is known, i.e. before EnableDefault or SetMagGain.
func (d *Device) MagneticField() (vector.Vector[float64], bool) {
	s := d.magScale
	if s.X == 0 || s.Y == 0 || s.Z == 0 {
		return vector.Vector[float64]{}, false
	}
	return vector.Vector[float64]{
		X: float64(d.mag.X) / s.X,
		Y: float64(d.mag.Y) / s.Y,
		Z: float64(d.mag.Z) / s.Z,
	}, true
}

type regWrite struct {
	mag   bool
	reg   Reg
	value byte
}

// defaultWrites puts each variant into continuous conversion at about 50 Hz
// (accelerometer) and 6.25-7.5 Hz (magnetometer), ±2 g full scale.
func defaultWrites(v Variant) []regWrite {
	switch v {
	case VariantD:
		return []regWrite{
			{mag: true, reg: Ctrl2, value: 0x00}, // AFS=0: ±2 g
			{mag: true, reg: Ctrl1, value: 0x57}, // AODR=0101: 50 Hz, XYZ enabled
			{mag: true, reg: Ctrl5, value: 0x64}, // M_RES=11 high resolution, M_ODR=001: 6.25 Hz
			{mag: true, reg: Ctrl6, value: 0x20}, // MFS=01: ±4 gauss
			{mag: true, reg: Ctrl7, value: 0x00}, // MD=00: continuous
		}
	case VariantDLHC:
		return append([]regWrite{
			{reg: CtrlReg4A, value: 0x08}, // FS=00: ±2 g, HR=1
			{reg: CtrlReg1A, value: 0x47}, // ODR=0100: 50 Hz, XYZ enabled
		}, magDefaultWrites...)
	default:
		return append([]regWrite{
			{reg: CtrlReg4A, value: 0x00}, // FS=00: ±2 g
			{reg: CtrlReg1A, value: 0x27}, // PM=001 normal, DR=00: 50 Hz, XYZ enabled
		}, magDefaultWrites...)
	}
}

var magDefaultWrites = []regWrite{
	{mag: true, reg: CRARegM, value: 0x0C},            // DO=011: 7.5 Hz
	{mag: true, reg: CRBRegM, value: byte(MagGain13)}, // ±1.3 gauss
	{mag: true, reg: MRRegM, value: 0x00},             // MD=00: continuous
}

// EnableDefault configures the resolved variant for continuous sampling. It
// stops at the first write the bus rejects.
func (d *Device) EnableDefault() error {
	if d.magMap == nil {
		return ErrNotInitialized
	}
	for _, w := range defaultWrites(d.variant) {
		if w.mag {
			d.WriteMagReg(w.reg, w.value)
		} else {
			d.WriteAccReg(w.reg, w.value)
		}
		if d.lastStatus != i2c.StatusOK {
			return fmt.Errorf("lsm303: enable default: write 0x%02X: %w", byte(w.reg), d.lastStatus.Err())
		}
	}
	if d.variant == VariantD {
		d.magScale = vector.New(dScaleLSBPerGauss, dScaleLSBPerGauss, dScaleLSBPerGauss)
		d.magRange = dRangeGauss
	} else {
		xy, z, _ := MagGain13.Sensitivity(d.variant)
		d.magScale = vector.New(float64(xy), float64(xy), float64(z))
		d.magRange = MagGain13.Range()
	}
	return nil
}
