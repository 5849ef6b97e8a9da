package photodedup

import "math/bits"

// hammingDistance returns the number of differing bits between a and b.
func hammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}
