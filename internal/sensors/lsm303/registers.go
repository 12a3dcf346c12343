package lsm303

import "fmt"

// Reg is a concrete register address on one of the chip's sub-devices.
// Accelerometer and control registers sit at the same address on every
// variant and are used as-is.
type Reg byte

// Accelerometer registers (DLH, DLM, DLHC naming).
const (
	CtrlReg1A      Reg = 0x20
	CtrlReg2A      Reg = 0x21
	CtrlReg3A      Reg = 0x22
	CtrlReg4A      Reg = 0x23
	CtrlReg5A      Reg = 0x24
	CtrlReg6A      Reg = 0x25 // DLHC
	HPFilterResetA Reg = 0x25 // DLH, DLM
	ReferenceA     Reg = 0x26
	StatusRegA     Reg = 0x27

	OutXLA Reg = 0x28
	OutXHA Reg = 0x29
	OutYLA Reg = 0x2A
	OutYHA Reg = 0x2B
	OutZLA Reg = 0x2C
	OutZHA Reg = 0x2D

	FIFOCtrlRegA  Reg = 0x2E // DLHC
	FIFOSrcRegA   Reg = 0x2F // DLHC
	Int1CfgA      Reg = 0x30
	Int1SrcA      Reg = 0x31
	Int1ThsA      Reg = 0x32
	Int1DurationA Reg = 0x33
	Int2CfgA      Reg = 0x34
	Int2SrcA      Reg = 0x35
	Int2ThsA      Reg = 0x36
	Int2DurationA Reg = 0x37
	ClickCfgA     Reg = 0x38 // DLHC
	ClickSrcA     Reg = 0x39 // DLHC
	ClickThsA     Reg = 0x3A // DLHC
	TimeLimitA    Reg = 0x3B // DLHC
	TimeLatencyA  Reg = 0x3C // DLHC
	TimeWindowA   Reg = 0x3D // DLHC
)

// Magnetometer registers of the DLH, DLM and DLHC.
const (
	CRARegM   Reg = 0x00
	CRBRegM   Reg = 0x01
	MRRegM    Reg = 0x02
	SRRegM    Reg = 0x09
	IRARegM   Reg = 0x0A
	IRBRegM   Reg = 0x0B
	IRCRegM   Reg = 0x0C
	WhoAmIM   Reg = 0x0F // DLM; the DLHC answers it too
	TempOutHM Reg = 0x31 // DLHC
	TempOutLM Reg = 0x32 // DLHC
)

// LSM303D registers. Accelerometer and magnetometer share one address.
const (
	TempOutL    Reg = 0x05
	TempOutH    Reg = 0x06
	StatusM     Reg = 0x07
	WhoAmI      Reg = 0x0F
	IntCtrlM    Reg = 0x12
	IntSrcM     Reg = 0x13
	IntThsLM    Reg = 0x14
	IntThsHM    Reg = 0x15
	OffsetXLM   Reg = 0x16
	OffsetXHM   Reg = 0x17
	OffsetYLM   Reg = 0x18
	OffsetYHM   Reg = 0x19
	OffsetZLM   Reg = 0x1A
	OffsetZHM   Reg = 0x1B
	ReferenceX  Reg = 0x1C
	ReferenceY  Reg = 0x1D
	ReferenceZ  Reg = 0x1E
	Ctrl0       Reg = 0x1F
	Ctrl1       Reg = 0x20
	Ctrl2       Reg = 0x21
	Ctrl3       Reg = 0x22
	Ctrl4       Reg = 0x23
	Ctrl5       Reg = 0x24
	Ctrl6       Reg = 0x25
	Ctrl7       Reg = 0x26
	StatusA     Reg = 0x27
	FIFOCtrl    Reg = 0x2E
	FIFOSrc     Reg = 0x2F
	IGCfg1      Reg = 0x30
	IGSrc1      Reg = 0x31
	IGThs1      Reg = 0x32
	IGDur1      Reg = 0x33
	IGCfg2      Reg = 0x34
	IGSrc2      Reg = 0x35
	IGThs2      Reg = 0x36
	IGDur2      Reg = 0x37
	ClickCfg    Reg = 0x38
	ClickSrc    Reg = 0x39
	ClickThs    Reg = 0x3A
	TimeLimit   Reg = 0x3B
	TimeLatency Reg = 0x3C
	TimeWindow  Reg = 0x3D
	ActThs      Reg = 0x3E
	ActDur      Reg = 0x3F
)

// Setting the MSB of the sub-address makes the accelerometer (and the whole
// LSM303D) auto-increment through consecutive registers.
const autoIncrement = 0x80

// MagOut names one byte of the magnetometer output. Its concrete register
// differs between variants, so it only becomes an address through a resolved
// Device.
type MagOut uint8

const (
	MagOutXH MagOut = iota
	MagOutXL
	MagOutYH
	MagOutYL
	MagOutZH
	MagOutZL

	magOutCount
)

func (m MagOut) String() string {
	switch m {
	case MagOutXH:
		return "OUT_X_H_M"
	case MagOutXL:
		return "OUT_X_L_M"
	case MagOutYH:
		return "OUT_Y_H_M"
	case MagOutYL:
		return "OUT_Y_L_M"
	case MagOutZH:
		return "OUT_Z_H_M"
	case MagOutZL:
		return "OUT_Z_L_M"
	default:
		return fmt.Sprintf("MagOut(%d)", uint8(m))
	}
}

// Register is accepted by the magnetometer register accessors: either a
// concrete Reg or an abstract MagOut.
type Register interface {
	isRegister()
}

func (Reg) isRegister()    {}
func (MagOut) isRegister() {}

type magMap [magOutCount]Reg

// magMaps holds the datasheet output register layout of each variant. The
// DLM and DLHC put Z before Y.
var magMaps = map[Variant]magMap{
	VariantDLH: {
		MagOutXH: 0x03, MagOutXL: 0x04,
		MagOutYH: 0x05, MagOutYL: 0x06,
		MagOutZH: 0x07, MagOutZL: 0x08,
	},
	VariantDLM: {
		MagOutXH: 0x03, MagOutXL: 0x04,
		MagOutZH: 0x05, MagOutZL: 0x06,
		MagOutYH: 0x07, MagOutYL: 0x08,
	},
	VariantDLHC: {
		MagOutXH: 0x03, MagOutXL: 0x04,
		MagOutZH: 0x05, MagOutZL: 0x06,
		MagOutYH: 0x07, MagOutYL: 0x08,
	},
	VariantD: {
		MagOutXL: 0x08, MagOutXH: 0x09,
		MagOutYL: 0x0A, MagOutYH: 0x0B,
		MagOutZL: 0x0C, MagOutZH: 0x0D,
	},
}

// base returns the lowest output register; the six outputs are contiguous
// from there.
func (m *magMap) base() Reg {
	lo := m[0]
	for _, r := range m[1:] {
		lo = min(lo, r)
	}
	return lo
}

// TranslateMagOut returns the concrete register of id on variant v. ok is
// false for VariantAuto, unknown variants and out-of-range ids.
func TranslateMagOut(v Variant, id MagOut) (Reg, bool) {
	m, ok := magMaps[v]
	if !ok || id >= magOutCount {
		return 0, false
	}
	return m[id], true
}
