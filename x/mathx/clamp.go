package mathx

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Between reports lo <= v && v <= hi (order-insensitive).
// NaN is never between anything.
func Between[T constraints.Ordered](v, lo, hi T) bool {
	if hi < lo {
		lo, hi = hi, lo
	}
	return v >= lo && v <= hi
}

// ScaleU8 maps x from [inLo, inHi] onto [0, 255], clamping outside the range.
// A degenerate input range yields 0 below inHi and 255 at or above it.
func ScaleU8[T constraints.Float](x, inLo, inHi T) uint8 {
	if math.IsNaN(float64(x)) {
		return 0
	}
	if inHi <= inLo {
		if x >= inHi {
			return 255
		}
		return 0
	}
	f := (x - inLo) / (inHi - inLo) * 255
	return uint8(Clamp(f, 0, 255))
}
