package i2c

import (
	"errors"
	"fmt"
)

// Transfer errors reported by the transports. Sensor drivers fold them into a
// Status so a failed transaction can be inspected without the error value.
var (
	ErrTooLong    = errors.New("i2c: transfer too long")
	ErrAddrNACK   = errors.New("i2c: address not acknowledged")
	ErrDataNACK   = errors.New("i2c: data not acknowledged")
	ErrBusTimeout = errors.New("i2c: bus timeout")
)

// Status is the raw outcome code of the last transfer. The numbering follows
// the Arduino Wire endTransmission() convention most sensor datasheets and
// example code refer to.
type Status uint8

const (
	StatusOK Status = iota
	StatusTooLong
	StatusAddrNACK
	StatusDataNACK
	StatusOther
	StatusTimeout
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusTooLong:
		return "too long"
	case StatusAddrNACK:
		return "address nack"
	case StatusDataNACK:
		return "data nack"
	case StatusOther:
		return "other error"
	case StatusTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Err returns the sentinel error for s, or nil for StatusOK.
func (s Status) Err() error {
	switch s {
	case StatusOK:
		return nil
	case StatusTooLong:
		return ErrTooLong
	case StatusAddrNACK:
		return ErrAddrNACK
	case StatusDataNACK:
		return ErrDataNACK
	case StatusTimeout:
		return ErrBusTimeout
	default:
		return fmt.Errorf("i2c: %s", s)
	}
}

// StatusOf classifies a transfer error.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrTooLong):
		return StatusTooLong
	case errors.Is(err, ErrAddrNACK):
		return StatusAddrNACK
	case errors.Is(err, ErrDataNACK):
		return StatusDataNACK
	case errors.Is(err, ErrBusTimeout):
		return StatusTimeout
	default:
		return StatusOther
	}
}
