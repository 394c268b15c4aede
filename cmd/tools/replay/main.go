package main

import (
	"context"
	"flag"
	"log"
	"strings"

	"github.com/yanun0323/pkg/sys"

	"main/internal/feed"
	"main/internal/schema"
)

func main() {
	path := flag.String("path", "", "Tick archive or CSV path")
	speed := flag.Float64("speed", 0, "Playback speed (1=real-time, 0=no pacing)")
	verbose := flag.Bool("verbose", false, "Print every tick")
	flag.Parse()

	if *path == "" {
		log.Fatal("missing path; use -path")
	}

	source, closeSource, err := openSource(*path)
	if err != nil {
		log.Fatalf("open failed: %v", err)
	}
	defer func() {
		if err := closeSource(); err != nil {
			log.Printf("close failed: %v", err)
		}
	}()

	playback, err := feed.NewPlayback(source, *speed)
	if err != nil {
		log.Fatalf("playback init failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-sys.Shutdown()
		cancel()
	}()

	var (
		ticks    int64
		first    int64
		last     int64
		low      schema.Price
		high     schema.Price
		volume   schema.Quantity
		buyTicks int64
	)
	err = playback.Run(ctx, func(t schema.Tick) error {
		if ticks == 0 {
			first = t.TsNano
			low, high = t.Price, t.Price
		}
		ticks++
		last = t.TsNano
		if t.Price < low {
			low = t.Price
		}
		if t.Price > high {
			high = t.Price
		}
		volume += t.Qty
		if !t.BuyerMaker {
			buyTicks++
		}
		if *verbose {
			log.Printf("%d price=%s qty=%s buyerMaker=%t", t.TsNano, t.Price, t.Qty, t.BuyerMaker)
		}
		return nil
	})
	if err != nil && err != context.Canceled {
		log.Fatalf("replay failed: %v", err)
	}

	if ticks == 0 {
		log.Print("no ticks")
		return
	}
	log.Printf("ticks=%d span=%dns low=%s high=%s volume=%s buyTicks=%d",
		ticks, last-first, low, high, volume, buyTicks)
}

func openSource(path string) (feed.Source, func() error, error) {
	if strings.HasSuffix(path, ".csv") {
		src, err := feed.OpenCSV(path)
		if err != nil {
			return nil, nil, err
		}
		return src, src.Close, nil
	}
	src, err := feed.OpenArchive(path)
	if err != nil {
		return nil, nil, err
	}
	return src, src.Close, nil
}
