package lsm303

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"lsm303-ng/internal/i2c"
	"lsm303-ng/internal/i2c/i2csim"
	"lsm303-ng/internal/vector"
)

// stalledSim returns a DLHC on a bus that accepts requests but never delivers
// data, with every idle poll advancing the mock clock by 1ms.
func stalledSim(t *testing.T, timeout time.Duration) (*Device, *i2csim.Bus, *SimChip, *clock.Mock) {
	t.Helper()
	bus, chip := newSim(t, VariantDLHC, SA0High)
	mock := clock.NewMock()
	bus.OnIdlePoll = func() { mock.Add(time.Millisecond) }

	d := New(bus, WithClock(mock), WithTimeout(timeout))
	if err := d.Init(VariantDLHC, SA0High); err != nil {
		t.Fatalf("Init: %v", err)
	}
	bus.SetStall(true)
	return d, bus, chip, mock
}

func TestReadReg_TimesOutAtBudget(t *testing.T) {
	d, bus, _, mock := stalledSim(t, 10*time.Millisecond)
	start := mock.Now()

	if got := d.ReadAccReg(CtrlReg1A); got != 0 {
		t.Fatalf("timed-out read got=0x%02X want=0", got)
	}
	if !d.TimeoutOccurred() {
		t.Fatalf("expected timeout flag")
	}
	if elapsed := mock.Now().Sub(start); elapsed != 10*time.Millisecond {
		t.Fatalf("gave up after %v, want 10ms", elapsed)
	}
	if bus.Polls() != 10 {
		t.Fatalf("polls got=%d want=10", bus.Polls())
	}
}

func TestTimeoutFlag_StickyUntilNextCompletedRead(t *testing.T) {
	d, bus, _, _ := stalledSim(t, 5*time.Millisecond)
	d.ReadAccReg(CtrlReg1A)

	// Querying and writing leave it alone.
	for i := 0; i < 3; i++ {
		if !d.TimeoutOccurred() {
			t.Fatalf("flag cleared by query %d", i)
		}
	}
	d.WriteAccReg(CtrlReg4A, 0x08)
	if !d.TimeoutOccurred() {
		t.Fatalf("flag cleared by a write")
	}

	bus.SetStall(false)
	if got := d.ReadAccReg(CtrlReg1A); got != 0x07 {
		t.Fatalf("read got=0x%02X want=0x07", got)
	}
	if d.TimeoutOccurred() {
		t.Fatalf("flag must clear after a completed read")
	}
}

func TestReadAcc_TimeoutKeepsPreviousSample(t *testing.T) {
	d, bus, chip, _ := stalledSim(t, 3*time.Millisecond)
	bus.SetStall(false)
	first := vector.New[int16](100, -200, 1000)
	chip.SetAcc(first)
	d.ReadAcc()

	bus.SetStall(true)
	chip.SetAcc(vector.New[int16](1, 2, 3))
	d.ReadAcc()
	if !d.TimeoutOccurred() {
		t.Fatalf("expected timeout")
	}
	if d.Acc() != first {
		t.Fatalf("acc got=%v want=%v", d.Acc(), first)
	}
}

func TestReadMag_TimeoutKeepsCalibration(t *testing.T) {
	d, bus, chip, _ := stalledSim(t, 3*time.Millisecond)
	bus.SetStall(false)
	chip.SetMag(vector.New[int16](10, 20, 30))
	d.ReadMag()
	before := d.Calibration()

	bus.SetStall(true)
	chip.SetMag(vector.New[int16](-500, 500, -500))
	d.ReadMag()
	if d.Calibration() != before {
		t.Fatalf("calibration changed on timeout: got=%+v want=%+v", d.Calibration(), before)
	}
	if d.Mag() != vector.New[int16](10, 20, 30) {
		t.Fatalf("mag got=%v", d.Mag())
	}
}

func TestSetTimeout(t *testing.T) {
	d := New(i2csim.New())
	if d.Timeout() != 0 {
		t.Fatalf("default timeout got=%v want=0", d.Timeout())
	}
	d.SetTimeout(250 * time.Millisecond)
	if d.Timeout() != 250*time.Millisecond {
		t.Fatalf("timeout got=%v", d.Timeout())
	}
}

func TestRegisterAccess_RoutesBySubDevice(t *testing.T) {
	bus, chip := newSim(t, VariantDLHC, SA0High)
	chip.Mag().Set(byte(CRBRegM), 0xA0)
	d := New(bus)
	if err := d.Init(VariantAuto, SA0Auto); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if got := d.ReadReg(CRBRegM); got != 0xA0 {
		t.Fatalf("ReadReg(CRB_REG_M) got=0x%02X want=0xA0", got)
	}
	if got := d.ReadReg(CtrlReg1A); got != 0x07 {
		t.Fatalf("ReadReg(CTRL_REG1_A) got=0x%02X want=0x07", got)
	}

	d.WriteReg(MRRegM, 0x00)
	d.WriteReg(CtrlReg4A, 0x08)
	if w := chip.Mag().Writes(); len(w) != 1 || w[0] != (i2csim.Write{Reg: byte(MRRegM), Value: 0x00}) {
		t.Fatalf("mag writes got=%v", w)
	}
	if w := chip.Acc().Writes(); len(w) != 1 || w[0] != (i2csim.Write{Reg: byte(CtrlReg4A), Value: 0x08}) {
		t.Fatalf("acc writes got=%v", w)
	}
	if d.LastStatus() != i2c.StatusOK {
		t.Fatalf("last status got=%v", d.LastStatus())
	}
}

func TestReadMagReg_TranslatesMagOut(t *testing.T) {
	bus, chip := newSim(t, VariantDLM, SA0Low)
	chip.Mag().Set(0x07, 0x5A) // OUT_Y_H_M on the DLM
	chip.Mag().Set(0x05, 0xA5) // OUT_Z_H_M on the DLM
	d := New(bus)
	if err := d.Init(VariantDLM, SA0Low); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if got := d.ReadMagReg(MagOutYH); got != 0x5A {
		t.Fatalf("OUT_Y_H_M got=0x%02X want=0x5A", got)
	}
	if got := d.ReadMagReg(MagOutZH); got != 0xA5 {
		t.Fatalf("OUT_Z_H_M got=0x%02X want=0xA5", got)
	}
}

func TestMagOut_PanicsBeforeInit(t *testing.T) {
	d := New(i2csim.New())
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	d.ReadMagReg(MagOutXH)
}

func TestWrite_AddressNACKSetsStatus(t *testing.T) {
	d := New(i2csim.New())
	if err := d.Init(VariantDLH, SA0Low); err != nil {
		t.Fatalf("Init: %v", err)
	}
	d.WriteAccReg(CtrlReg1A, 0x27)
	if d.LastStatus() != i2c.StatusAddrNACK {
		t.Fatalf("last status got=%v want=%v", d.LastStatus(), i2c.StatusAddrNACK)
	}
}
