package main

import (
	"encoding/json"
	"fmt"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/xor-shift/randstream/common"
	"github.com/xor-shift/randstream/stream"
	"log"
	"os"
)

var (
	app    *iris.Application
	engine *stream.Engine
)

func init() {
	err := godotenv.Load()
	if err != nil {
		log.Fatalf("loading dotenv failed: %s", err)
	}

	app = iris.New()

	engine, err = stream.NewEngine()
	if err != nil {
		log.Fatalf("creating the stream engine failed: %s", err)
	}
}

type drawRequest struct {
	Stream uint `json:"stream"`
	Count  uint `json:"n"`
}

func DrawEndpoint(raw bool) iris.Handler {
	return func(ctx iris.Context) {
		body, err := ctx.GetBody()
		if err != nil {
			app.Logger().Printf("/draw/x error (body): %s", err)
			return
		}

		var request drawRequest
		if err = json.Unmarshal(body, &request); err != nil {
			app.Logger().Printf("/draw/x error (request): %s", err)
			ctx.StatusCode(iris.StatusBadRequest)
			return
		}

		batch, err := engine.Draw(request.Stream, request.Count, raw)
		if err != nil {
			app.Logger().Printf("/draw/x error (Draw): %s", err)
			ctx.StatusCode(iris.StatusNotFound)
			return
		}

		jsonData, err := json.Marshal(batch)
		if err != nil {
			ctx.StatusCode(iris.StatusInternalServerError)
			return
		}

		ctx.ContentType("application/json")
		_, _ = ctx.Text(string(jsonData))
	}
}

func VerifyEndpoint[T common.FloatBatch | common.RawBatch](ctx iris.Context) {
	body, err := ctx.GetBody()
	if err != nil {
		app.Logger().Printf("/verify/x error (body): %s", err)
		return
	}

	batches, err := common.ParseBatches[T](body)
	if err != nil {
		app.Logger().Printf("/verify/x error (ParseBatches): %s", err)
		_, _ = ctx.Text("+VERIFY_FAIL 1")
		return
	}

	verified, err := engine.Verify(batches)
	if err != nil {
		app.Logger().Warnf("verification failed: %s", err)
		_, _ = ctx.Text("+VERIFY_FAIL 0")
		return
	}

	_, _ = ctx.Text("+VERIFY_OK %d", verified)
}

func main() {
	engine.Start(1)

	app.Post("/stream", func(ctx iris.Context) {
		body, err := ctx.GetBody()
		if err != nil {
			app.Logger().Printf("/stream error (body): %s", err)
			return
		}

		request := struct {
			Seed uint32 `json:"seed"`
		}{}

		if err = json.Unmarshal(body, &request); err != nil {
			app.Logger().Printf("/stream error (request): %s", err)
			ctx.StatusCode(iris.StatusBadRequest)
			return
		}

		streamID, err := engine.CreateStream(request.Seed)
		if err != nil {
			app.Logger().Warnf("creating a stream failed: %s", err)
			ctx.StatusCode(iris.StatusInternalServerError)
			return
		}

		app.Logger().Printf("started stream %d with seed %d for %s", streamID, request.Seed, ctx.RemoteAddr())

		jsonData, _ := json.Marshal(iris.Map{"stream": streamID, "seed": request.Seed})

		ctx.ContentType("application/json")
		_, _ = ctx.Text(string(jsonData))
	})

	app.Get("/stream", func(ctx iris.Context) {
		streamID := ctx.URLParamIntDefault("id", -1)
		if streamID < 0 {
			ctx.StatusCode(iris.StatusBadRequest)
			return
		}

		info, err := engine.Info(uint(streamID))
		if err != nil {
			ctx.StatusCode(iris.StatusNotFound)
			return
		}

		jsonData, err := json.Marshal(info)
		if err != nil {
			ctx.StatusCode(iris.StatusInternalServerError)
			return
		}

		ctx.ContentType("application/json")
		_, _ = ctx.Text(string(jsonData))
	})

	app.Post("/draw/float", DrawEndpoint(false))

	app.Post("/draw/raw", DrawEndpoint(true))

	app.Post("/verify/float", VerifyEndpoint[common.FloatBatch])

	app.Post("/verify/raw", VerifyEndpoint[common.RawBatch])

	if err := app.Listen(fmt.Sprintf(":%s", os.Getenv("SERVER_PORT"))); err != nil {
		log.Fatalln(err)
	}
}
