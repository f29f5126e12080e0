package cache

import (
	"math/bits"

	"golang.org/x/exp/constraints"
)

// nextPowerOfTwo rounds n up to the next power of two, with a floor of 1.
func nextPowerOfTwo(n int) int {
	if n < 1 {
		return 1
	}
	if n&(n-1) == 0 {
		return n
	}
	return 1 << bits.Len(uint(n))
}

// log2 returns the base-2 logarithm of a power-of-two n.
func log2(n int) uint {
	return uint(bits.Len(uint(n)) - 1)
}

// clampMax returns v capped at max, used wherever a configured size must not
// exceed a hard limit (spec §3's MaxSegments cap).
func clampMax[T constraints.Ordered](v, max T) T {
	if v > max {
		return max
	}
	return v
}
