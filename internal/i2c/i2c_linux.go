//go:build linux

package i2c

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Minimal Linux I2C implementation backed by /dev/i2c-*.
//
// We use I2C_RDWR so a register pointer write and the following read can go
// out as one combined transfer (repeated start) when both halves are given.

const (
	i2cMrd  = 0x0001
	i2cRdwr = 0x0707

	// Kernel messages carry a 16-bit length.
	maxMsgLen = 0xFFFF
)

type msg struct {
	addr  uint16
	flags uint16
	len   uint16
	buf   uintptr
}

type rdwrData struct {
	msgs  uintptr
	nmsgs uint32
}

// Bus is an opened I2C bus (e.g., /dev/i2c-1).
//
// Bus is not safe for concurrent transfers; coordinate at a higher level if
// you need concurrency.
//
//nolint:revive // simple device abstraction.
type Bus struct {
	f    *os.File
	path string
}

func Open(path string) (*Bus, error) {
	path = filepath.Clean(path)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	return &Bus{f: f, path: path}, nil
}

func (b *Bus) String() string {
	if b == nil {
		return "i2c(nil)"
	}
	return b.path
}

func (b *Bus) Close() error {
	if b == nil || b.f == nil {
		return nil
	}
	err := b.f.Close()
	b.f = nil
	return err
}

// Tx writes w to the 7-bit address addr and then reads len(r) bytes back.
// Either half may be empty.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	if b == nil || b.f == nil {
		return errors.New("i2c: bus is closed")
	}
	if addr == 0 || addr > 0x7F {
		return fmt.Errorf("invalid i2c addr 0x%X", addr)
	}
	if len(w) > maxMsgLen || len(r) > maxMsgLen {
		return ErrTooLong
	}

	msgs := make([]msg, 0, 2)
	if len(w) > 0 {
		msgs = append(msgs, msg{addr: addr, flags: 0, len: uint16(len(w)), buf: uintptr(unsafe.Pointer(&w[0]))})
	}
	if len(r) > 0 {
		msgs = append(msgs, msg{addr: addr, flags: i2cMrd, len: uint16(len(r)), buf: uintptr(unsafe.Pointer(&r[0]))})
	}
	if len(msgs) == 0 {
		return nil
	}

	data := rdwrData{msgs: uintptr(unsafe.Pointer(&msgs[0])), nmsgs: uint32(len(msgs))}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, b.f.Fd(), uintptr(i2cRdwr), uintptr(unsafe.Pointer(&data)))
	if errno != 0 {
		return classifyErrno(errno, len(w) > 0)
	}
	return nil
}

// classifyErrno maps adapter errnos onto the package sentinels. Adapters do
// not agree on which errno means NACK: i2c-bcm2835 reports EREMOTEIO, most
// others ENXIO on the address phase and EIO on data.
func classifyErrno(errno unix.Errno, wrote bool) error {
	switch errno {
	case unix.ENXIO, unix.EREMOTEIO:
		return fmt.Errorf("%w (%v)", ErrAddrNACK, errno)
	case unix.EIO:
		if wrote {
			return fmt.Errorf("%w (%v)", ErrDataNACK, errno)
		}
		return errno
	case unix.ETIMEDOUT:
		return fmt.Errorf("%w (%v)", ErrBusTimeout, errno)
	default:
		return errno
	}
}
