package rng

// one step of the Lehmer/Park-Miller generator, used for expanding 32-bit seeds
// https://en.wikipedia.org/wiki/Lehmer_random_number_generator
func lcgParkMiller(seed uint32) uint32 {
	return uint32((uint64(seed) * 48271) % 2147483647)
}

// one step of splitmix64, used for expanding 64-bit seeds
// http://xorshift.di.unimi.it/splitmix64.c
func splitMix64(seed uint64) uint64 {
	z := seed + 0x9E3779B97F4A7C15
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}
