package stream

import (
	"bytes"
	"database/sql"
	"encoding/gob"
	"errors"
	"fmt"
	"github.com/go-sql-driver/mysql"
	amqp "github.com/streadway/amqp"
	"github.com/xor-shift/randstream/common"
	"github.com/xor-shift/randstream/util"
	"github.com/xor-shift/randstream/util/rng"
	"log"
	"os"
	"sync"
	"time"
)

type streamState struct {
	streamID uint
	seed     uint32

	generator *rng.XorShift128PState

	nextSequenceID uint
	samplesDrawn   uint64
}

type StreamInfo struct {
	StreamID     uint   `json:"stream"`
	Seed         uint32 `json:"seed"`
	SamplesDrawn uint64 `json:"drawn"`
	CurrentState string `json:"state"`
}

type Engine struct {
	db       *sql.DB
	amqpConn *amqp.Connection

	streamsLock sync.Mutex
	streams     map[uint]*streamState

	publisherWG     *sync.WaitGroup
	outgoingBatches chan common.AMQPBatch
}

func NewEngine() (*Engine, error) {
	var err error

	engine := &Engine{
		db:       nil,
		amqpConn: nil,

		streams: map[uint]*streamState{},

		publisherWG:     &sync.WaitGroup{},
		outgoingBatches: make(chan common.AMQPBatch, 128),
	}

	if engine.amqpConn, err = amqp.Dial(os.Getenv("AMQP_URL")); err != nil {
		return nil, err
	}

	dbConfig := mysql.Config{
		User:                 os.Getenv("DB_USER"),
		Passwd:               os.Getenv("DB_PASSWORD"),
		Addr:                 os.Getenv("DB_ADDRESS"),
		DBName:               os.Getenv("DB_NAME"),
		Collation:            "utf8mb4_general_ci",
		Net:                  "tcp",
		AllowNativePasswords: true,
	}

	if engine.db, err = sql.Open("mysql", dbConfig.FormatDSN()); err != nil {
		return nil, err
	}

	return engine, nil
}

// CreateStream seeds a fresh generator, registers the stream and returns its id.
func (engine *Engine) CreateStream(seed uint32) (uint, error) {
	state := &streamState{
		seed:      seed,
		generator: rng.NewXorShift128PFromSeed(seed),
	}

	rows, err := engine.db.Query(
		"insert into streams (seed, initial_state) values (?, ?) returning stream_id",
		seed,
		util.ArrayToString(state.generator.State[:]))

	if err != nil {
		return 0, err
	}

	defer rows.Close()

	if !rows.Next() {
		return 0, errors.New("no rows returned from sql insert query")
	}

	var streamID int
	if err := rows.Scan(&streamID); err != nil {
		return 0, err
	}

	state.streamID = uint(streamID)

	engine.streamsLock.Lock()
	engine.streams[state.streamID] = state
	engine.streamsLock.Unlock()

	return state.streamID, nil
}

// Draw produces the next n outputs of a stream, queues the batch for
// publication and returns it.
func (engine *Engine) Draw(streamID uint, n uint, raw bool) (common.Batch, error) {
	engine.streamsLock.Lock()
	defer engine.streamsLock.Unlock()

	state, ok := engine.streams[streamID]
	if !ok {
		return common.Batch{}, errors.New(fmt.Sprintf("no such stream: %d", streamID))
	}

	var inner common.InnerBatch

	if raw {
		words := make([]uint64, n)
		for i := range words {
			words[i] = state.generator.NextRaw()
		}
		inner = common.RawBatch{Words: words}
	} else {
		samples := make([]float64, n)
		for i := range samples {
			samples[i] = state.generator.Next()
		}
		inner = common.FloatBatch{Samples: samples}
	}

	batch := common.Batch{
		BatchHeader: common.BatchHeader{
			StreamID:   streamID,
			SequenceID: state.nextSequenceID,
			Offset:     state.samplesDrawn,
			Timestamp:  int32(time.Now().In(time.UTC).Unix()),
		},

		Inner: inner,
	}

	state.nextSequenceID++
	state.samplesDrawn += uint64(n)

	engine.outgoingBatches <- common.AMQPBatch{
		StreamID: streamID,
		Batch:    batch,
	}

	return batch, nil
}

// verifyBatch replays the stream from its seed up to the batch's offset and
// compares every submitted value bit for bit. Replaying from the seed means
// the submitter's sequence bookkeeping is never trusted.
func verifyBatch(seed uint32, batch *common.Batch) error {
	generator := rng.NewXorShift128PFromSeed(seed)
	generator.Skip(batch.Offset)

	switch inner := batch.Inner.(type) {
	case common.FloatBatch:
		for i, got := range inner.Samples {
			if expected := generator.Next(); got != expected {
				return errors.New(fmt.Sprintf("bad sample %d of batch %d (got: %v, expected: %v)", i, batch.SequenceID, got, expected))
			}
		}
	case common.RawBatch:
		for i, got := range inner.Words {
			if expected := generator.NextRaw(); got != expected {
				return errors.New(fmt.Sprintf("bad word %d of batch %d (got: %d, expected: %d)", i, batch.SequenceID, got, expected))
			}
		}
	default:
		return errors.New("batch has no recognized payload")
	}

	return nil
}

// Verify checks recorded batches against a replay of their streams. Returns
// the number of generator steps verified.
func (engine *Engine) Verify(batches []common.Batch) (uint, error) {
	verified := uint(0)

	for k := range batches {
		batch := &batches[k]

		engine.streamsLock.Lock()
		state, ok := engine.streams[batch.StreamID]
		engine.streamsLock.Unlock()

		if !ok {
			return verified, errors.New(fmt.Sprintf("batch %d references unknown stream %d", k, batch.StreamID))
		}

		if err := verifyBatch(state.seed, batch); err != nil {
			return verified, err
		}

		verified += batch.Size()
	}

	return verified, nil
}

func (engine *Engine) Info(streamID uint) (StreamInfo, error) {
	engine.streamsLock.Lock()
	defer engine.streamsLock.Unlock()

	state, ok := engine.streams[streamID]
	if !ok {
		return StreamInfo{}, errors.New(fmt.Sprintf("no such stream: %d", streamID))
	}

	return StreamInfo{
		StreamID:     state.streamID,
		Seed:         state.seed,
		SamplesDrawn: state.samplesDrawn,
		CurrentState: state.generator.String(),
	}, nil
}

// Start starts publisher workers for outgoing batches. With more than one
// worker batches reach the exchange out of order; pass 1 unless every
// consumer reorders on the sequence ID.
func (engine *Engine) Start(numThreads uint) {
	engine.publisherWG.Add(int(numThreads))

	for i := uint(0); i < numThreads; i++ {
		go engine.task()
	}
}

func (engine *Engine) Stop() {
	close(engine.outgoingBatches)
	engine.publisherWG.Wait()
}

func (engine *Engine) publishBatch(amqpBatch *common.AMQPBatch, amqpChan *amqp.Channel) error {
	var marshalledBatch bytes.Buffer
	encoder := gob.NewEncoder(&marshalledBatch)

	if err := encoder.Encode(*amqpBatch); err != nil {
		return err
	}

	return amqpChan.Publish(
		common.BatchExchange,
		"",
		true,
		false,
		amqp.Publishing{
			ContentType: "application/octet-stream",
			Body:        marshalledBatch.Bytes(),
		})
}

func (engine *Engine) task() {
	defer engine.publisherWG.Done()

	var err error
	var amqpChan *amqp.Channel

	if amqpChan, err = engine.amqpConn.Channel(); err != nil {
		log.Fatalf("Failed to establish an amqp channel: %s", err)
		return
	}

	defer amqpChan.Close()

	if err = amqpChan.ExchangeDeclare(
		common.BatchExchange, // name
		"fanout",             // type
		true,                 // durable
		false,                // auto-deleted
		false,                // internal
		false,                // no-wait
		nil,                  // arguments
	); err != nil {
		log.Fatalf("Failed to declare an amqp exchange: %s", err)
		return
	}

	for amqpBatch := range engine.outgoingBatches {
		if err := engine.publishBatch(&amqpBatch, amqpChan); err != nil {
			log.Printf("Error while publishing batch %d of stream %d: %s", amqpBatch.Batch.SequenceID, amqpBatch.StreamID, err)
		}
	}
}
