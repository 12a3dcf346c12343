//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// Output is a requested output line. The line keeps its level until Close.
type Output struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
	name string
}

// OpenOutput requests offset on chip (e.g. "gpiochip0") as an output driven
// to value.
func OpenOutput(chip string, offset, value int) (*Output, error) {
	if err := checkValue(value); err != nil {
		return nil, err
	}
	if offset < 0 {
		return nil, fmt.Errorf("gpio: invalid line offset %d", offset)
	}
	c, err := gpiocdev.NewChip(chip, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("gpio: open %s: %w", chip, err)
	}
	l, err := c.RequestLine(offset, gpiocdev.AsOutput(value))
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("gpio: request %s line %d: %w", chip, offset, err)
	}
	return &Output{chip: c, line: l, name: fmt.Sprintf("%s:%d", chip, offset)}, nil
}

func (o *Output) String() string { return o.name }

// Close releases the line. The kernel may return it to its default state.
func (o *Output) Close() error {
	if o == nil || o.line == nil {
		return nil
	}
	err := o.line.Close()
	o.line = nil
	if o.chip != nil {
		_ = o.chip.Close()
		o.chip = nil
	}
	return err
}
