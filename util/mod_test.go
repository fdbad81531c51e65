package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArrayToString(t *testing.T) {
	assert.Equal(t, "00ff10", ArrayToString([]uint8{0x00, 0xff, 0x10}))
	assert.Equal(t, "0000dead0000beef", ArrayToString([]uint32{0xdead, 0xbeef}))
	assert.Equal(t, "9e3779b97f4a7c15", ArrayToString([]uint64{0x9E3779B97F4A7C15}))
}
