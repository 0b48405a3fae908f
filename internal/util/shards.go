package util

import "runtime"

// MaxAutoBucketsExp caps the exponent picked by ReasonableBucketsExp (256 buckets).
const MaxAutoBucketsExp = 8

// ReasonableBucketsExp picks a bucket-count exponent from CPU parallelism:
// log2(nextPow2(2*GOMAXPROCS)), clamped to [0..MaxAutoBucketsExp].
func ReasonableBucketsExp() int {
	p := runtime.GOMAXPROCS(0)
	if p < 1 {
		p = 1
	}
	return min(Log2Ceil(uint64(p*2)), MaxAutoBucketsExp)
}

// BucketIndex maps a hash to one of n buckets.
// n is a power of two for every router in this module, so the mask is
// equivalent to modulo; other counts fall back to modulo.
func BucketIndex(hash uint64, n int) int {
	if n <= 1 {
		return 0
	}
	if IsPowerOfTwo(uint64(n)) {
		return int(hash & uint64(n-1))
	}
	return int(hash % uint64(n))
}
