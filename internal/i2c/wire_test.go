package i2c

import (
	"errors"
	"fmt"
	"testing"
)

type txOp struct {
	addr uint16
	w    []byte
	n    int
}

type fakeConn struct {
	ops   []txOp
	reply []byte
	err   error
}

func (f *fakeConn) Tx(addr uint16, w, r []byte) error {
	f.ops = append(f.ops, txOp{addr: addr, w: append([]byte(nil), w...), n: len(r)})
	if f.err != nil {
		return f.err
	}
	copy(r, f.reply)
	return nil
}

func TestWire_WriteThenRequest(t *testing.T) {
	fc := &fakeConn{reply: []byte{0xAA, 0xBB}}
	w := NewWire(fc)

	if err := w.WriteBytes(0x19, []byte{0x28 | 0x80}); err != nil {
		t.Fatalf("WriteBytes: %v", err)
	}
	if err := w.RequestBytes(0x19, 2); err != nil {
		t.Fatalf("RequestBytes: %v", err)
	}
	b0, ok0 := w.Receive()
	b1, ok1 := w.Receive()
	_, ok2 := w.Receive()
	if !ok0 || !ok1 || ok2 {
		t.Fatalf("ok=%v,%v,%v want true,true,false", ok0, ok1, ok2)
	}
	if b0 != 0xAA || b1 != 0xBB {
		t.Fatalf("bytes=0x%02X,0x%02X want 0xAA,0xBB", b0, b1)
	}

	if len(fc.ops) != 2 {
		t.Fatalf("ops=%d want 2", len(fc.ops))
	}
	if fc.ops[0].addr != 0x19 || len(fc.ops[0].w) != 1 || fc.ops[0].w[0] != 0xA8 || fc.ops[0].n != 0 {
		t.Fatalf("op0=%+v", fc.ops[0])
	}
	if fc.ops[1].n != 2 || len(fc.ops[1].w) != 0 {
		t.Fatalf("op1=%+v", fc.ops[1])
	}
}

func TestWire_RequestFailureDiscardsBuffer(t *testing.T) {
	fc := &fakeConn{reply: []byte{0x01}}
	w := NewWire(fc)
	if err := w.RequestBytes(0x1E, 1); err != nil {
		t.Fatalf("RequestBytes: %v", err)
	}

	fc.err = fmt.Errorf("%w (test)", ErrAddrNACK)
	err := w.RequestBytes(0x1E, 1)
	if !errors.Is(err, ErrAddrNACK) {
		t.Fatalf("err=%v want ErrAddrNACK", err)
	}
	if _, ok := w.Receive(); ok {
		t.Fatalf("expected stale byte to be discarded")
	}
}

func TestWire_RequestTooLong(t *testing.T) {
	w := NewWire(&fakeConn{})
	if err := w.RequestBytes(0x1E, 256); !errors.Is(err, ErrTooLong) {
		t.Fatalf("err=%v want ErrTooLong", err)
	}
}

func TestWire_NilConn(t *testing.T) {
	var w *Wire
	if err := w.WriteBytes(0x1E, []byte{0}); err == nil {
		t.Fatalf("expected error")
	}
	if _, ok := w.Receive(); ok {
		t.Fatalf("expected no data")
	}
}

func TestStatusOf_RoundTripsSentinels(t *testing.T) {
	for _, s := range []Status{StatusOK, StatusTooLong, StatusAddrNACK, StatusDataNACK, StatusTimeout} {
		if got := StatusOf(s.Err()); got != s {
			t.Fatalf("StatusOf(%v.Err())=%v", s, got)
		}
	}
	if got := StatusOf(errors.New("other")); got != StatusOther {
		t.Fatalf("got=%v want other", got)
	}
	if StatusOther.Err() == nil {
		t.Fatalf("StatusOther.Err() should be non-nil")
	}
}
