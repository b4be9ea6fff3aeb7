// SPDX-License-Identifier: MIT
//
// Package bitint provides power-of-2 helpers used for FFT and buffer
// sizing. All operations are constant time and allocation free, so they
// are safe to call from the audio hot path.
package bitint

import "math/bits"

// NextPowerOfTwo returns the next power of 2 >= size. Exact powers of 2
// are preserved; zero and negative inputs map to 1. The size-1 before
// bits.Len is what keeps exact powers from being doubled.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len64(uint64(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2. Powers of 2
// have exactly one bit set, so n&(n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
