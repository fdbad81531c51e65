package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/gob"
	"encoding/json"
	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/streadway/amqp"
	"github.com/xor-shift/randstream/common"
	"log"
	"os"
)

const (
	batchInsertQuery = "" +
		"INSERT INTO batches (stream_id, batch_order, sample_offset, reported_time" +
		", sample_kind, samples, sample_count" +
		") VALUES (?, ?, ?, FROM_UNIXTIME(?), " +
		"?, ?, ?)"
)

func init() {
	err := godotenv.Load()
	if err != nil {
		log.Fatalf("loading dotenv failed: %s", err)
	}
}

func main() {
	var err error

	var amqpConn *amqp.Connection
	var amqpChan *amqp.Channel
	var amqpQueue amqp.Queue
	var amqpConsumer <-chan amqp.Delivery
	var db *sql.DB

	if amqpConn, err = amqp.Dial(os.Getenv("AMQP_URL")); err != nil {
		log.Fatalf("Failed to dial amqp: %s", err)
	}

	if amqpChan, err = amqpConn.Channel(); err != nil {
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
	}

	if amqpQueue, err = amqpChan.QueueDeclare(
		"sample_batch_queue_db", // name
		false,                   // durable
		false,                   // delete when unused
		true,                    // exclusive
		false,                   // no-wait
		nil,                     // arguments
	); err != nil {
		log.Fatalf("Failed to declare an amqp queue: %s", err)
	}

	if err = amqpChan.QueueBind(
		amqpQueue.Name,       // queue name
		"",                   // routing key
		common.BatchExchange, // exchange
		false,
		nil,
	); err != nil {
		log.Fatalf("Failed to bind an amqp queue: %s", err)
	}

	amqpConsumer, err = amqpChan.Consume(
		amqpQueue.Name, // queue
		"",             // consumer
		true,           // auto-ack
		false,          // exclusive
		false,          // no-local
		false,          // no-wait
		nil,            // args
	)

	dbConfig := mysql.Config{
		User:                 os.Getenv("DB_USER"),
		Passwd:               os.Getenv("DB_PASSWORD"),
		Addr:                 os.Getenv("DB_ADDRESS"),
		DBName:               os.Getenv("DB_NAME"),
		Collation:            "utf8mb4_general_ci",
		Net:                  "tcp",
		AllowNativePasswords: true,
	}

	if db, err = sql.Open("mysql", dbConfig.FormatDSN()); err != nil {
		log.Fatalln(err)
	}

	processBatch := func(amqpBatch common.AMQPBatch) error {
		tx, err := db.BeginTx(context.TODO(), nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		var stmt *sql.Stmt
		if stmt, err = tx.Prepare(batchInsertQuery); err != nil {
			return err
		}
		defer stmt.Close()

		batch := amqpBatch.Batch

		var kind string
		var marshalledSamples []byte

		switch inner := batch.Inner.(type) {
		case common.FloatBatch:
			kind = "float"
			marshalledSamples, _ = json.Marshal(inner.Samples)
		case common.RawBatch:
			kind = "raw"
			marshalledSamples, _ = json.Marshal(inner.Words)
		default:
			log.Printf("batch %d of stream %d has no recognized payload, skipping", batch.SequenceID, amqpBatch.StreamID)
			return nil
		}

		if _, err = stmt.Exec(
			amqpBatch.StreamID, batch.SequenceID, batch.Offset, batch.Timestamp,
			kind, string(marshalledSamples), batch.Size(),
		); err != nil {
			return err
		}

		return tx.Commit()
	}

	for delivery := range amqpConsumer {
		buffer := bytes.NewBuffer(delivery.Body)
		decoder := gob.NewDecoder(buffer)
		var amqpBatch common.AMQPBatch
		if err := decoder.Decode(&amqpBatch); err != nil {
			log.Printf("error decoding a batch with gob: %s", err)
		}

		if err := processBatch(amqpBatch); err != nil {
			log.Printf("failed writing batch %d of stream %d to the db: %s", amqpBatch.Batch.SequenceID, amqpBatch.StreamID, err)
		}
	}
}
