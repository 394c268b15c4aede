package main

import (
	"flag"
	"io"
	"log"
	"time"

	"main/internal/feed"
	"main/internal/schema"
)

func main() {
	out := flag.String("out", "ticks.tck", "Output archive path")
	seed := flag.Int64("seed", 1, "Random walk seed")
	count := flag.Int64("count", 100_000, "Number of ticks to generate")
	startMs := flag.Int64("start-ms", 0, "First timestamp in epoch milliseconds (0=now)")
	intervalMs := flag.Int64("interval-ms", 100, "Mean tick spacing in milliseconds")
	basePrice := flag.String("base-price", "50000", "Starting price")
	baseQty := flag.String("base-qty", "0.01", "Mean trade quantity")
	volatility := flag.Float64("vol", 0.0002, "Per-tick return stddev")
	flag.Parse()

	if *startMs == 0 {
		*startMs = time.Now().UnixMilli()
	}
	price, err := schema.ParseScaled(*basePrice)
	if err != nil {
		log.Fatalf("invalid base price: %v", err)
	}
	qty, err := schema.ParseScaled(*baseQty)
	if err != nil {
		log.Fatalf("invalid base qty: %v", err)
	}

	gen, err := feed.NewGenerator(feed.GeneratorConfig{
		Seed:       *seed,
		Count:      *count,
		StartNano:  *startMs * int64(time.Millisecond),
		Interval:   time.Duration(*intervalMs) * time.Millisecond,
		BasePrice:  schema.Price(price),
		BaseQty:    schema.Quantity(qty),
		Volatility: *volatility,
	})
	if err != nil {
		log.Fatalf("generator setup failed: %v", err)
	}

	writer, err := feed.NewArchiveWriter(*out)
	if err != nil {
		log.Fatalf("archive create failed: %v", err)
	}

	for {
		tick, err := gen.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			log.Fatalf("generate failed: %v", err)
		}
		if err := writer.Append(tick); err != nil {
			log.Fatalf("append failed: %v", err)
		}
	}

	n := writer.Count()
	if err := writer.Close(); err != nil {
		log.Fatalf("archive close failed: %v", err)
	}
	log.Printf("wrote %d ticks to %s", n, *out)
}
