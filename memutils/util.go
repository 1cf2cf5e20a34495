package memutils

import (
	"math"
	"math/bits"

	cerrors "github.com/cockroachdb/errors"
)

type Number interface {
	~int | ~uint
}

func CheckPow2[T Number](number T, name string) error {
	if number&(number-1) != 0 {
		return cerrors.Wrapf(PowerOfTwoError, "%s is %d", name, number)
	}
	return nil
}

func AlignUp(value int, alignment uint) int {
	return (value + int(alignment) - 1) & int(^(alignment - 1))
}

// CheckSize verifies that a requested allocation size is positive
func CheckSize(size int, name string) error {
	if size <= 0 {
		return cerrors.Wrapf(ErrInvalidSize, "%s is %d", name, size)
	}
	return nil
}

// MulSize multiplies an element count by an element size, as calloc does, failing if either
// is not positive or the product does not fit in an int
func MulSize(count, size int) (int, error) {
	if err := CheckSize(count, "count"); err != nil {
		return 0, err
	}
	if err := CheckSize(size, "size"); err != nil {
		return 0, err
	}

	hi, lo := bits.Mul64(uint64(count), uint64(size))
	if hi != 0 || lo > math.MaxInt {
		return 0, cerrors.Wrapf(ErrSizeOverflow, "%d elements of size %d", count, size)
	}

	return int(lo), nil
}

// SaturatingAdd adds two non-negative ints, clamping at math.MaxInt instead of wrapping
func SaturatingAdd(a, b int) int {
	if a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}
