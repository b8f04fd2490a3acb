// Package bcd converts between small decimal values and the packed binary-coded decimal bytes used by RTC chips: the
// high nibble holds the tens digit and the low nibble the units digit.
package bcd

import (
	"errors"
	"fmt"
)

var (
	// ErrRange is returned by Encode for values that do not fit in two decimal digits.
	ErrRange = errors.New("bcd: value out of range")
	// ErrDigit is returned by Decode when a nibble is not a decimal digit, which usually means the device returned
	// garbage or is not there at all.
	ErrDigit = errors.New("bcd: invalid digit")
)

// Max is the largest value a single byte can hold.
const Max = 99

// Encode packs v (0-99) into a BCD byte.
func Encode(v uint8) (byte, error) {
	if v > Max {
		return 0, fmt.Errorf("%w: %d", ErrRange, v)
	}
	return v/10<<4 | v%10, nil
}

// Decode strips any flag bits not in mask from b and unpacks the remaining BCD value. Pass 0xFF to keep every bit.
func Decode(b, mask byte) (uint8, error) {
	b &= mask
	hi, lo := b>>4, b&0x0F
	if hi > 9 || lo > 9 {
		return 0, fmt.Errorf("%w: %#02x", ErrDigit, b)
	}
	return hi*10 + lo, nil
}

// Valid reports whether both nibbles of b are decimal digits.
func Valid(b byte) bool {
	return b>>4 <= 9 && b&0x0F <= 9
}
