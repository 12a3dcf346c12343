package i2c

import "fmt"

// Conn is a combined write/read transfer primitive. *Bus implements it, and
// so does a periph.io i2c.Bus.
type Conn interface {
	Tx(addr uint16, w, r []byte) error
}

// Wire adapts a Conn to the byte-oriented transmit/request/read model sensor
// drivers are written against: a register pointer write, a request for N
// bytes, then one byte at a time out of the receive buffer.
//
// Wire is not safe for concurrent use.
type Wire struct {
	conn Conn
	rx   []byte
}

func NewWire(conn Conn) *Wire {
	return &Wire{conn: conn}
}

// WriteBytes transmits p to the device at addr as one write transfer.
func (w *Wire) WriteBytes(addr uint16, p []byte) error {
	if w == nil || w.conn == nil {
		return fmt.Errorf("i2c: wire has no connection")
	}
	if len(p) == 0 {
		return nil
	}
	return w.conn.Tx(addr, p, nil)
}

// RequestBytes reads n bytes from addr into the receive buffer, replacing
// whatever was left unread. On error the buffer is left empty.
func (w *Wire) RequestBytes(addr uint16, n int) error {
	if w == nil || w.conn == nil {
		return fmt.Errorf("i2c: wire has no connection")
	}
	w.rx = w.rx[:0]
	if n <= 0 {
		return nil
	}
	if n > 255 {
		return ErrTooLong
	}
	buf := make([]byte, n)
	if err := w.conn.Tx(addr, nil, buf); err != nil {
		return err
	}
	w.rx = append(w.rx, buf...)
	return nil
}

// Receive pops the next received byte. ok is false when the buffer is empty.
func (w *Wire) Receive() (b byte, ok bool) {
	if w == nil || len(w.rx) == 0 {
		return 0, false
	}
	b = w.rx[0]
	w.rx = w.rx[1:]
	return b, true
}
