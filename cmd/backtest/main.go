package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	osSignal "os/signal"
	"syscall"

	pyroscope "github.com/grafana/pyroscope-go"

	"main/internal/backtest"
	"main/internal/bar"
	"main/internal/funding"
	"main/internal/ops"
	"main/internal/paper"
	"main/internal/signal"
	"main/internal/store"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON run config")
	reportPath := flag.String("report", "", "Write the summary as JSON to this path (empty=disabled)")
	profileAddr := flag.String("profile", "", "Pyroscope server address (empty=disabled)")
	flag.Parse()

	if *configPath == "" {
		log.Fatal("missing config; use -config")
	}

	ctx, stop := osSignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *profileAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "backtest",
			ServerAddress:   *profileAddr,
			Logger:          emptyLogger{},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			log.Fatalf("pyroscope start failed: %v", err)
		}
		defer func() {
			if err := profiler.Stop(); err != nil {
				log.Printf("pyroscope stop failed: %v", err)
			}
		}()
	}

	if err := run(ctx, *configPath, *reportPath); err != nil {
		log.Fatalf("backtest failed: %v", err)
	}
}

func run(ctx context.Context, configPath, reportPath string) error {
	loaded, err := ops.Load(configPath)
	if err != nil {
		return err
	}

	source, closeSource, err := loaded.Feed.OpenSource()
	if err != nil {
		return err
	}
	if closeSource != nil {
		defer func() {
			if err := closeSource(); err != nil {
				log.Printf("close feed failed: %v", err)
			}
		}()
	}

	var rates funding.Source
	if loaded.FundingPath != "" {
		series, err := funding.LoadSeries(loaded.FundingPath)
		if err != nil {
			return err
		}
		rates = series
	}

	bars, err := bar.New(loaded.Bar)
	if err != nil {
		return err
	}
	signals, err := signal.New(loaded.Signal)
	if err != nil {
		return err
	}
	engine, err := paper.New(loaded.Account, rates)
	if err != nil {
		return err
	}

	runner, err := backtest.New(backtest.Config{
		Source:        source,
		Bars:          bars,
		Signals:       signals,
		Strategy:      loaded.Strategy,
		Engine:        engine,
		InitialCash:   loaded.Account.InitialCash,
		ProgressEvery: loaded.ProgressEvery,
	})
	if err != nil {
		return err
	}

	result, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	result.Summary.Log()

	if reportPath != "" {
		data, err := json.MarshalIndent(result.Summary, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(reportPath, data, 0o644); err != nil {
			return err
		}
	}

	if loaded.DatabaseDSN != "" {
		db, err := store.Open(loaded.DatabaseDSN)
		if err != nil {
			return err
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Printf("close store failed: %v", err)
			}
		}()
		runID, err := db.SaveRun(loaded.Strategy.Name(), result.Summary, result.Trades)
		if err != nil {
			return err
		}
		log.Printf("run saved: id=%d trades=%d", runID, len(result.Trades))
	}
	return nil
}

type emptyLogger struct{}

func (emptyLogger) Infof(string, ...interface{})  {}
func (emptyLogger) Debugf(string, ...interface{}) {}
func (emptyLogger) Errorf(string, ...interface{}) {}
