package main

import (
	"encoding/json"
	"fmt"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/streadway/amqp"
	"github.com/xor-shift/randstream/common"
	"log"
	"net/http"
	"os"
)

func init() {
	err := godotenv.Load()
	if err != nil {
		log.Fatalf("loading dotenv failed: %s", err)
	}
}

func main() {
	var err error

	var consumer *common.AMQPConsumer
	var app *iris.Application

	var lastBatch common.AMQPBatch

	if consumer, err = common.NewAMQPConsumer(
		"consumer_fe_queue",
		"consumer_fe_consumer",
		func(delivery amqp.Delivery) error {
			var amqpBatch common.AMQPBatch

			if amqpBatch, err = common.ParseAMQPBatch(&delivery); err != nil {
				log.Printf("error decoding a batch with gob: %s", err)
			}

			batch := amqpBatch.Batch

			log.Printf("batch %d of stream %d @ %d: %d values from offset %d",
				batch.SequenceID,
				amqpBatch.StreamID,
				batch.Timestamp,
				batch.Size(),
				batch.Offset)

			lastBatch = amqpBatch

			return nil
		}); err != nil {
		log.Fatalln(err)
	}

	if err = consumer.Start(); err != nil {
		log.Fatalln(err)
	}

	app = iris.New()

	app.Get("/test", func(ctx iris.Context) {
		_, _ = ctx.Text("OK")
	})

	app.Get("/data", func(ctx iris.Context) {
		var jsonData []byte
		jsonData, err = json.Marshal(lastBatch)

		if err != nil {
			ctx.StatusCode(http.StatusInternalServerError)
			ctx.Text("internal error: %s", err)
			return
		}

		ctx.ContentType("application/json")
		_, _ = ctx.Text(string(jsonData))
	})

	if err = app.Listen(fmt.Sprintf(":%s", os.Getenv("CONSUMER_FE_PORT"))); err != nil {
		log.Fatalln(err)
	}
}
