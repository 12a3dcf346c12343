//go:build !linux

package gpio

import "fmt"

// Output is unavailable on this platform.
type Output struct{}

func OpenOutput(chip string, offset, value int) (*Output, error) {
	if err := checkValue(value); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("gpio: unsupported on this platform")
}

func (o *Output) String() string { return "gpio:unsupported" }

func (o *Output) Close() error { return nil }
