package main

import (
	"bytes"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"github.com/alecthomas/kong"
	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"log"
	"os"
	"text/template"
	"time"
)

func init() {
	err := godotenv.Load()
	if err != nil {
		log.Fatalf("loading dotenv failed: %s", err)
	}
}

func main() {
	var err error

	var db *sql.DB

	args := struct {
		Stream             int    `name:"stream" short:"s" help:"stream number to export" required:""`
		Out                string `name:"out" short:"o" default:"stream_{{.StreamID}}.csv" help:"File to output to (templated)"`
		Mode               string `name:"mode" short:"m" enum:"float,raw" default:"float" help:"Which sample kind to export"`
		Format             string `name:"format" short:"f" enum:"csv,json" default:"csv" help:"Data format"`
		ExportColumnTitles bool   `name:"export_column_titles" negatable:"" default:"true" help:"(applicable only to CSV outputs) whether to include column titles for CSV exports"`
	}{}

	_ = kong.Parse(&args)

	dbConfig := mysql.Config{
		User:                 os.Getenv("DB_USER"),
		Passwd:               os.Getenv("DB_PASSWORD"),
		Addr:                 os.Getenv("DB_ADDRESS"),
		DBName:               os.Getenv("DB_NAME"),
		Collation:            "utf8mb4_general_ci",
		Net:                  "tcp",
		AllowNativePasswords: true,
		ParseTime:            true,
	}

	if db, err = sql.Open("mysql", dbConfig.FormatDSN()); err != nil {
		log.Fatalln(err)
	}

	type Row struct {
		BatchOrder   int
		SampleOffset uint64
		InsertTime   time.Time
		ReportedTime time.Time

		Floats []float64
		Words  []uint64
	}

	const selectQuery string = "SELECT batch_order, sample_offset, insert_time, reported_time, samples FROM batches WHERE stream_id=? AND sample_kind=? ORDER BY batch_order"

	var sqlRows *sql.Rows
	if sqlRows, err = db.Query(selectQuery, args.Stream, args.Mode); err != nil {
		log.Fatalf("Failed to fetch rows for stream %d: %s", args.Stream, err)
	}

	var rows []Row
	for i := 0; sqlRows.Next(); i++ {
		var row Row

		var samplesString string

		if err = sqlRows.Scan(
			&row.BatchOrder, &row.SampleOffset, &row.InsertTime, &row.ReportedTime,
			&samplesString,
		); err != nil {
			log.Fatalf("error while reading row %d of stream %d: %s", i, args.Stream, err)
		}

		if args.Mode == "raw" {
			err = json.Unmarshal([]byte(samplesString), &row.Words)
		} else {
			err = json.Unmarshal([]byte(samplesString), &row.Floats)
		}

		if err != nil {
			log.Fatalf("error while parsing samples of row %d of stream %d: %s", i, args.Stream, err)
		}

		rows = append(rows, row)
	}

	db.Close()

	var outFileNameTemplate *template.Template
	if outFileNameTemplate, err = template.New("").Parse(args.Out); err != nil {
		log.Fatalf("error while creating the output filename template: %s", err)
	}

	outFileNameBuf := bytes.Buffer{}

	templateArguments := struct {
		StreamID int
	}{
		StreamID: args.Stream,
	}

	if err = outFileNameTemplate.Execute(&outFileNameBuf, templateArguments); err != nil {
		log.Fatalf("error while executing the output filename template: %s", err)
	}

	outFileName := outFileNameBuf.String()

	var outFile *os.File
	if outFile, err = os.Create(outFileName); err != nil {
		log.Fatalf("error while creating the output file \"%s\": %s", outFileName, err)
	}

	if args.Format == "json" {
		var jsonData []byte
		if jsonData, err = json.Marshal(rows); err != nil {
			log.Fatalf("error while marshalling %d rows: %s", len(rows), err)
		}

		if _, err = outFile.Write(jsonData); err != nil {
			log.Fatalf("error while writing to \"%s\": %s", outFileName, err)
		}

		if err = outFile.Close(); err != nil {
			log.Fatalf("error while closing \"%s\": %s", outFileName, err)
		}

		return
	}

	csvWriter := csv.NewWriter(outFile)

	if args.ExportColumnTitles {
		columns := []string{
			"Batch Order",
			"Sample Index",
			"Stream Offset",
			"Insert Time",
			"Reported Time",
			"Value",
		}

		_ = csvWriter.Write(columns)
	}

	for _, row := range rows {
		var count int

		if args.Mode == "raw" {
			count = len(row.Words)
		} else {
			count = len(row.Floats)
		}

		for i := 0; i < count; i++ {
			rowStrings := []string{}

			rowStrings = append(rowStrings, fmt.Sprintf("%d", row.BatchOrder))
			rowStrings = append(rowStrings, fmt.Sprintf("%d", i))
			rowStrings = append(rowStrings, fmt.Sprintf("%d", row.SampleOffset+uint64(i)))
			rowStrings = append(rowStrings, fmt.Sprintf("%d", row.InsertTime.Unix()))
			rowStrings = append(rowStrings, fmt.Sprintf("%d", row.ReportedTime.Unix()))

			if args.Mode == "raw" {
				rowStrings = append(rowStrings, fmt.Sprintf("%d", row.Words[i]))
			} else {
				rowStrings = append(rowStrings, fmt.Sprintf("%.17g", row.Floats[i]))
			}

			_ = csvWriter.Write(rowStrings)
		}
	}

	csvWriter.Flush()

	if err = outFile.Close(); err != nil {
		log.Fatalf("error while closing \"%s\": %s", outFileName, err)
	}
}
