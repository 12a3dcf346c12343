// Package gpio drives single output lines through the Linux GPIO character
// device.
package gpio

import "fmt"

const consumer = "lsm303-ng"

func checkValue(v int) error {
	if v != 0 && v != 1 {
		return fmt.Errorf("gpio: invalid level %d", v)
	}
	return nil
}
