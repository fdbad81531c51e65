package rng

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	mantissaBits = 52
	mantissaMask = (uint64(1) << mantissaBits) - 1

	// the all-zero state is a fixed point of the transition, constructors
	// substitute this word whenever an expansion produces (0, 0)
	zeroStateFallback = uint64(0x9E3779B97F4A7C15)
)

// XorShift128PState is not safe for concurrent use, hold one per goroutine.
type XorShift128PState struct {
	State [2]uint64
}

// NewXorShift128PFromSeed expands a 32-bit seed into the two state words with
// four chained Park-Miller LCG steps. Seeds that are multiples of the LCG
// modulus (0, 2147483647, 4294967294) would expand to the zero state and get
// the fallback word instead.
func NewXorShift128PFromSeed(seed uint32) *XorShift128PState {
	raw0 := lcgParkMiller(seed)
	raw1 := lcgParkMiller(raw0)
	raw2 := lcgParkMiller(raw1)
	raw3 := lcgParkMiller(raw2)

	state := XorShift128PState{
		State: [2]uint64{
			uint64(raw1)<<32 | uint64(raw0),
			uint64(raw3)<<32 | uint64(raw2),
		},
	}

	state.guardZeroState()

	return &state
}

// NewXorShift128PFromSeed64 expands a 64-bit seed into the two state words
// with two chained splitmix64 steps.
func NewXorShift128PFromSeed64(seed uint64) *XorShift128PState {
	raw0 := splitMix64(seed)
	raw1 := splitMix64(raw0)

	state := XorShift128PState{
		State: [2]uint64{raw0, raw1},
	}

	state.guardZeroState()

	return &state
}

// NewXorShift128PFromBytes uses 16 bytes of raw data as the state directly,
// each word read in little-endian order.
func NewXorShift128PFromBytes(seed [16]uint8) *XorShift128PState {
	state := XorShift128PState{
		State: [2]uint64{
			binary.LittleEndian.Uint64(seed[0:8]),
			binary.LittleEndian.Uint64(seed[8:16]),
		},
	}

	state.guardZeroState()

	return &state
}

func (state *XorShift128PState) guardZeroState() {
	if state.State[0] == 0 && state.State[1] == 0 {
		state.State[1] = zeroStateFallback
	}
}

// NextRaw returns the next raw 64-bit word, advancing the state by one step.
func (state *XorShift128PState) NextRaw() uint64 {
	return xorshift128PPermuteState(state.State[:])
}

// Next returns the next sample in [0, 1). The raw word is masked to the low
// 52 bits and scaled by 2^-52, so the result is exact and bit-reproducible.
func (state *XorShift128PState) Next() float64 {
	return math.Ldexp(float64(state.NextRaw()&mantissaMask), -mantissaBits)
}

// Skip advances the state by n steps, discarding the outputs.
func (state *XorShift128PState) Skip(n uint64) {
	for i := uint64(0); i < n; i++ {
		_ = xorshift128PPermuteState(state.State[:])
	}
}

func (state *XorShift128PState) String() string {
	s := ""

	for i := 0; i < 2; i++ {
		s += fmt.Sprintf("%016X", state.State[i])
	}

	return s
}
