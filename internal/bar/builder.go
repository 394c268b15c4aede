// Package bar turns a sequential tick stream into bars closed by a
// configurable sampling rule: traded volume, tick count, elapsed time,
// or traded dollar value.
package bar

import (
	"github.com/yanun0323/errors"

	"main/internal/schema"
)

var (
	ErrOutOfOrderTick    = errors.New("tick timestamp older than previous tick")
	ErrUnknownRule       = errors.New("unknown bar rule")
	ErrInvalidThreshold  = errors.New("bar threshold must be positive")
	ErrThresholdTooSmall = errors.New("volume threshold below configured minimum")
)

// Config controls how bars are sampled.
type Config struct {
	Rule schema.BarRule

	// Threshold meaning depends on Rule: scaled quantity for volume
	// bars, tick count for tick bars, nanoseconds for time bars,
	// scaled quote value for dollar bars.
	Threshold int64

	// MinVolumeThreshold rejects volume thresholds that would produce
	// near-infinite micro-bars. Zero disables the check.
	MinVolumeThreshold int64
}

// Validate checks if the configuration is usable.
func (c Config) Validate() error {
	switch c.Rule {
	case schema.BarRuleVolume, schema.BarRuleTick, schema.BarRuleTime, schema.BarRuleDollar:
	default:
		return ErrUnknownRule
	}
	if c.Threshold <= 0 {
		return ErrInvalidThreshold
	}
	if c.Rule == schema.BarRuleVolume && c.MinVolumeThreshold > 0 && c.Threshold < c.MinVolumeThreshold {
		return ErrThresholdTooSmall
	}
	return nil
}

// Builder accumulates ticks into the single open bar and emits it once
// the threshold is reached. Exactly one bar is open at any time.
type Builder struct {
	cfg Config

	hasOpen bool
	lastTs  int64
	cur     schema.Bar
}

// New creates a builder after validating the config.
func New(cfg Config) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Builder{cfg: cfg}, nil
}

// OnTick folds one tick into the open bar. It returns the closed bar
// and true when this tick reached the threshold. Ticks must arrive in
// non-decreasing timestamp order; older timestamps are rejected and
// the builder state is left untouched.
func (b *Builder) OnTick(t schema.Tick) (schema.Bar, bool, error) {
	if b.lastTs != 0 && t.TsNano < b.lastTs {
		return schema.Bar{}, false, errors.Wrap(ErrOutOfOrderTick, "bar builder").
			With("previous", b.lastTs).
			With("got", t.TsNano)
	}
	b.lastTs = t.TsNano

	if !b.hasOpen {
		b.start(t)
	}
	b.update(t)

	if !b.complete(t) {
		return schema.Bar{}, false, nil
	}

	closed := b.cur
	closed.EndNano = t.TsNano
	b.hasOpen = false
	b.cur = schema.Bar{}
	return closed, true, nil
}

// Open returns a snapshot of the in-progress bar, if any.
func (b *Builder) Open() (schema.Bar, bool) {
	if !b.hasOpen {
		return schema.Bar{}, false
	}
	snapshot := b.cur
	snapshot.EndNano = b.lastTs
	return snapshot, true
}

func (b *Builder) start(t schema.Tick) {
	b.hasOpen = true
	b.cur = schema.Bar{
		Open:      t.Price,
		High:      t.Price,
		Low:       t.Price,
		Close:     t.Price,
		StartNano: t.TsNano,
	}
}

func (b *Builder) update(t schema.Tick) {
	c := &b.cur
	if t.Price > c.High {
		c.High = t.Price
	}
	if t.Price < c.Low {
		c.Low = t.Price
	}
	c.Close = t.Price
	c.Volume += t.Qty
	if quote, ok := schema.Notional(t.Price, t.Qty); ok {
		c.QuoteVolume += quote
	}
	c.TradeCount++
	if t.BuyerMaker {
		c.SellVolume += t.Qty
	} else {
		c.BuyVolume += t.Qty
	}
}

func (b *Builder) complete(t schema.Tick) bool {
	switch b.cfg.Rule {
	case schema.BarRuleVolume:
		return int64(b.cur.Volume) >= b.cfg.Threshold
	case schema.BarRuleTick:
		return int64(b.cur.TradeCount) >= b.cfg.Threshold
	case schema.BarRuleTime:
		return t.TsNano-b.cur.StartNano >= b.cfg.Threshold
	case schema.BarRuleDollar:
		return int64(b.cur.QuoteVolume) >= b.cfg.Threshold
	default:
		return false
	}
}
