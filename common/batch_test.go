package common

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFloatBatches(t *testing.T) {
	original := []Batch{
		{
			BatchHeader: BatchHeader{
				StreamID:   3,
				SequenceID: 7,
				Offset:     140,
				Timestamp:  1693142400,
			},
			Inner: FloatBatch{Samples: []float64{0.25, 0.4335893835472515, 0.9999999999999999}},
		},
	}

	body, err := json.Marshal(original)
	require.NoError(t, err)

	parsed, err := ParseBatches[FloatBatch](body)
	require.NoError(t, err)
	require.Len(t, parsed, 1)

	assert.Equal(t, original[0].BatchHeader, parsed[0].BatchHeader)

	inner, ok := parsed[0].Inner.(FloatBatch)
	require.True(t, ok)
	assert.Equal(t, []float64{0.25, 0.4335893835472515, 0.9999999999999999}, inner.Samples)
}

func TestParseRawBatchesKeepsFullPrecision(t *testing.T) {
	words := []uint64{math.MaxUint64, 0x9E3779B97F4A7C15, 1}

	original := []Batch{
		{
			BatchHeader: BatchHeader{StreamID: 1, SequenceID: 0, Offset: 0},
			Inner:       RawBatch{Words: words},
		},
	}

	body, err := json.Marshal(original)
	require.NoError(t, err)

	parsed, err := ParseBatches[RawBatch](body)
	require.NoError(t, err)
	require.Len(t, parsed, 1)

	inner, ok := parsed[0].Inner.(RawBatch)
	require.True(t, ok)
	assert.Equal(t, words, inner.Words)
}

func TestParseBatchesRejectsGarbage(t *testing.T) {
	_, err := ParseBatches[FloatBatch]([]byte("not json"))
	assert.Error(t, err)
}

func TestBatchSize(t *testing.T) {
	floatBatch := Batch{Inner: FloatBatch{Samples: make([]float64, 12)}}
	assert.Equal(t, uint(12), floatBatch.Size())

	rawBatch := Batch{Inner: RawBatch{Words: make([]uint64, 5)}}
	assert.Equal(t, uint(5), rawBatch.Size())

	var empty Batch
	assert.Equal(t, uint(0), empty.Size())
}
