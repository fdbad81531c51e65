package rng

// permutes a [2]uint64 state according to xorshift128+
// http://xorshift.di.unimi.it/xorshift128plus.c (the 23/17/26 variant)
func xorshift128PPermuteState(s []uint64) (result uint64) {
	x := s[0]
	y := s[1]

	s[0] = y

	x ^= x << 23
	x ^= x >> 17
	x ^= y ^ (y >> 26)

	s[1] = x

	result = s[0] + s[1]

	return
}
