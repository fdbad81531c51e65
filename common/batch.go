package common

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/mitchellh/mapstructure"
)

type InnerBatch interface{}

// FloatBatch carries unit-interval samples, one per generator step.
type FloatBatch struct {
	Samples []float64 `json:"samples" mapstructure:"samples"`
}

// RawBatch carries the raw 64-bit generator outputs.
type RawBatch struct {
	Words []uint64 `json:"words" mapstructure:"words"`
}

type BatchHeader struct {
	StreamID   uint   `json:"stream"`
	SequenceID uint   `json:"seq"`
	Offset     uint64 `json:"off"`
	Timestamp  int32  `json:"ts"`
}

type Batch struct {
	BatchHeader

	Inner InnerBatch `json:"data"`
}

type AMQPBatch struct {
	StreamID uint  `json:"streamId"`
	Batch    Batch `json:"batch"`
}

func init() {
	gob.Register(FloatBatch{})
	gob.Register(RawBatch{})
}

// Size returns the number of generator steps the batch covers.
func (batch *Batch) Size() uint {
	switch inner := batch.Inner.(type) {
	case FloatBatch:
		return uint(len(inner.Samples))
	case RawBatch:
		return uint(len(inner.Words))
	default:
		return 0
	}
}

func ParseBatches[T FloatBatch | RawBatch](body []byte) (batches []Batch, err error) {
	batches = []Batch{}

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber() // a plain float64 decode would round words past 2^53

	if err = decoder.Decode(&batches); err != nil {
		return
	}

	for k, v := range batches {
		var inner T

		var innerDecoder *mapstructure.Decoder
		if innerDecoder, err = mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			WeaklyTypedInput: true, // json.Number comes through as a string
			Result:           &inner,
		}); err != nil {
			return
		}

		if err = innerDecoder.Decode(v.Inner); err != nil {
			err = errors.New(fmt.Sprintf("batch at index %d was not of the correct type", k))
			return
		}

		batches[k].Inner = inner
	}

	return
}
