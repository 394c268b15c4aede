// Package backtest drives the event loop: ticks stream in, bars
// close, signals update, the strategy reacts, and the paper engine
// settles the consequences.
package backtest

import (
	"context"
	"io"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/bar"
	"main/internal/feed"
	"main/internal/paper"
	"main/internal/report"
	"main/internal/schema"
	"main/internal/signal"
	"main/internal/strategy"
)

// Config wires the runner's collaborators together.
type Config struct {
	Source   feed.Source
	Bars     *bar.Builder
	Signals  *signal.Engine
	Strategy strategy.Strategy
	Engine   *paper.Engine

	// InitialCash is echoed into the report; the engine owns the
	// authoritative balance.
	InitialCash schema.Money

	// ProgressEvery spaces progress log lines in ticks. Zero disables
	// them.
	ProgressEvery int64
}

// Validate checks if every collaborator is present.
func (c Config) Validate() error {
	if c.Source == nil {
		return errors.New("runner requires a tick source")
	}
	if c.Bars == nil {
		return errors.New("runner requires a bar builder")
	}
	if c.Signals == nil {
		return errors.New("runner requires a signal engine")
	}
	if c.Strategy == nil {
		return errors.New("runner requires a strategy")
	}
	if c.Engine == nil {
		return errors.New("runner requires a paper engine")
	}
	return nil
}

// Result is everything a run produced.
type Result struct {
	Summary report.Summary
	Trades  []schema.Trade
	Ticks   int64
	Bars    int64
	Fills   int64
	Orders  int64
	Elapsed time.Duration
}

// Runner executes one backtest to completion.
type Runner struct {
	cfg Config
}

// New creates a runner.
func New(cfg Config) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Runner{cfg: cfg}, nil
}

// Run consumes the source until io.EOF or cancellation. For each tick
// the bar builder runs first; a closed bar updates signals and gives
// the strategy one decision, whose order is submitted before the tick
// price is applied to the engine. Fills therefore never execute on
// the same tick that triggered the decision unless latency is zero.
//
// A strategy error aborts the run; a silent strategy does not.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	var res Result
	started := time.Now()
	logs.Infof("backtest started: strategy=%s", r.cfg.Strategy.Name())

	for {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		tick, err := r.cfg.Source.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return res, errors.Wrap(err, "tick source failed")
		}
		res.Ticks++

		closed, ok, err := r.cfg.Bars.OnTick(tick)
		if err != nil {
			return res, errors.Wrap(err, "bar builder rejected tick")
		}
		if ok {
			res.Bars++
			if err := r.onBar(closed, &res); err != nil {
				return res, err
			}
		}

		fills := r.cfg.Engine.OnPriceUpdate(tick.Price, 0, 0, tick.TsNano)
		res.Fills += int64(len(fills))

		if r.cfg.ProgressEvery > 0 && res.Ticks%r.cfg.ProgressEvery == 0 {
			logs.Infof("progress: ticks=%d bars=%d fills=%d cash=%s",
				res.Ticks, res.Bars, res.Fills, r.cfg.Engine.Account().Cash)
		}
	}

	res.Elapsed = time.Since(started)
	res.Trades = r.cfg.Engine.Trades()
	res.Summary = report.Compute(
		res.Trades,
		r.cfg.InitialCash,
		r.cfg.Engine.TotalFees(),
		r.cfg.Engine.FundingPaid(),
		r.cfg.Engine.Liquidations(),
	)
	logs.Infof("backtest finished: ticks=%d bars=%d orders=%d fills=%d elapsed=%s",
		res.Ticks, res.Bars, res.Orders, res.Fills, res.Elapsed)
	return res, nil
}

func (r *Runner) onBar(closed schema.Bar, res *Result) error {
	snapshot := r.cfg.Signals.Commit(closed)
	state := strategy.MarketState{
		TsNano:  closed.EndNano,
		Bar:     closed,
		Signals: snapshot,
		Account: r.cfg.Engine.Account(),
	}

	intent, err := r.cfg.Strategy.GenerateOrder(state)
	if err != nil {
		return errors.Wrap(err, "strategy failed").With("strategy", r.cfg.Strategy.Name())
	}
	if intent == nil {
		return nil
	}

	if _, err := r.cfg.Engine.Submit(*intent, closed.EndNano); err != nil {
		// Rejections are part of normal operation; undercapitalized
		// intents must not kill the run.
		logs.Infof("order rejected: strategy=%s side=%s qty=%s err=%v",
			r.cfg.Strategy.Name(), intent.Side, intent.Qty, err)
		return nil
	}
	res.Orders++
	return nil
}
