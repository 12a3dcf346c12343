//go:build !linux

package i2c

import "errors"

var errUnsupported = errors.New("i2c: /dev/i2c-* requires linux; use bus.kind periph or sim")

// Bus is unavailable off linux; Open always fails.
type Bus struct{}

func Open(path string) (*Bus, error) { return nil, errUnsupported }

func (b *Bus) String() string { return "i2c(unsupported)" }

func (b *Bus) Close() error { return nil }

func (b *Bus) Tx(addr uint16, w, r []byte) error { return errUnsupported }
