// Package signal derives order-flow metrics from closed bars: a
// bulk-volume classification of buy/sell pressure, a VPIN-style
// toxicity estimate over rolling bar windows, order-flow imbalance,
// and cumulative volume delta. All updates are O(1) per bar.
package signal

import (
	"math"

	"github.com/yanun0323/errors"

	"main/internal/schema"
)

var (
	ErrInvalidWindow = errors.New("signal window must be positive")
	ErrWindowOrder   = errors.New("fast window must be shorter than slow window")
)

// Config sizes the signal windows.
type Config struct {
	// ReferenceWindow is the number of recent bar price deltas used to
	// standardize the bulk-volume classification input.
	ReferenceWindow int

	// FastWindow and SlowWindow are the toxicity lookbacks in bars.
	FastWindow int
	SlowWindow int

	// OFIResetBars resets the order-flow imbalance accumulator every N
	// closed bars. Zero disables the reset.
	OFIResetBars int
}

// Validate checks if the configuration is usable.
func (c Config) Validate() error {
	if c.ReferenceWindow <= 0 || c.FastWindow <= 0 || c.SlowWindow <= 0 {
		return ErrInvalidWindow
	}
	if c.FastWindow >= c.SlowWindow {
		return ErrWindowOrder
	}
	if c.OFIResetBars < 0 {
		return ErrInvalidWindow
	}
	return nil
}

// Snapshot is the signal state exposed to strategies after a bar
// commit. Values are derived statistics and deliberately float64; they
// never feed balance arithmetic.
type Snapshot struct {
	// BuyFraction is the bulk-volume classified share of buy pressure
	// for the last committed bar, in [0,1].
	BuyFraction float64

	// ToxicityFast and ToxicitySlow are VPIN-style estimates in [0,1].
	ToxicityFast float64
	ToxicitySlow float64

	// OFI is the running buy-sell volume difference since the last
	// reset; CVD is the unbounded running sum.
	OFI float64
	CVD float64

	// Bars is the number of bars committed so far.
	Bars int
}

// Engine consumes closed bars and maintains all signal state. Separate
// instances share nothing and may run on the same bar stream.
type Engine struct {
	cfg Config

	deltas *window
	fast   *toxicity
	slow   *toxicity

	ofi      float64
	cvd      float64
	ofiCount int

	last Snapshot
}

// New creates a signal engine after validating the config.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:    cfg,
		deltas: newWindow(cfg.ReferenceWindow),
		fast:   newToxicity(cfg.FastWindow),
		slow:   newToxicity(cfg.SlowWindow),
	}, nil
}

// Commit folds one closed bar into every window and returns the
// refreshed snapshot.
func (e *Engine) Commit(b schema.Bar) Snapshot {
	delta := schema.Float(int64(b.Close) - int64(b.Open))
	buyFraction := e.classify(delta)
	e.deltas.push(delta)

	volume := schema.Float(int64(b.Volume))
	buyVol := volume * buyFraction
	sellVol := volume - buyVol

	e.fast.push(buyVol, sellVol)
	e.slow.push(buyVol, sellVol)

	if e.cfg.OFIResetBars > 0 && e.ofiCount >= e.cfg.OFIResetBars {
		e.ofi = 0
		e.ofiCount = 0
	}
	e.ofi += buyVol - sellVol
	e.cvd += buyVol - sellVol
	e.ofiCount++

	e.last = Snapshot{
		BuyFraction:  buyFraction,
		ToxicityFast: e.fast.value(),
		ToxicitySlow: e.slow.value(),
		OFI:          e.ofi,
		CVD:          e.cvd,
		Bars:         e.last.Bars + 1,
	}
	return e.last
}

// Last returns the snapshot of the most recent commit.
func (e *Engine) Last() Snapshot {
	return e.last
}

// classify maps the bar price delta onto a buy-volume fraction via the
// standard normal CDF of the z-scored delta. Until the reference
// window holds enough deltas to standardize, it degrades to a neutral
// 0.5 split for a flat bar and a hard 0/1 split otherwise.
func (e *Engine) classify(delta float64) float64 {
	sigma := e.deltas.stddev()
	if sigma == 0 {
		switch {
		case delta > 0:
			return 1
		case delta < 0:
			return 0
		default:
			return 0.5
		}
	}
	z := (delta - e.deltas.mean()) / sigma
	return 0.5 * math.Erfc(-z/math.Sqrt2)
}

// toxicity tracks mean|buy-sell| / mean(buy+sell) over a bar window.
type toxicity struct {
	imbalances *window
	totals     *window
}

func newToxicity(bars int) *toxicity {
	return &toxicity{
		imbalances: newWindow(bars),
		totals:     newWindow(bars),
	}
}

func (t *toxicity) push(buyVol, sellVol float64) {
	total := buyVol + sellVol
	if total <= 0 {
		return
	}
	t.imbalances.push(math.Abs(buyVol - sellVol))
	t.totals.push(total)
}

func (t *toxicity) value() float64 {
	if t.totals.count() < 2 {
		return 0
	}
	mean := t.totals.mean()
	if mean <= 0 {
		return 0
	}
	v := t.imbalances.mean() / mean
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
