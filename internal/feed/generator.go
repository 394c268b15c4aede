package feed

import (
	"io"
	"math"
	"math/rand"
	"time"

	"github.com/yanun0323/errors"

	"main/internal/schema"
)

// GeneratorConfig shapes the synthetic tick stream.
type GeneratorConfig struct {
	Seed       int64
	Count      int64
	StartNano  int64
	Interval   time.Duration
	BasePrice  schema.Price
	BaseQty    schema.Quantity
	Volatility float64
}

func (c GeneratorConfig) withDefaults() GeneratorConfig {
	if c.Count == 0 {
		c.Count = 100_000
	}
	if c.Interval == 0 {
		c.Interval = 100 * time.Millisecond
	}
	if c.BasePrice == 0 {
		c.BasePrice = schema.Price(50_000 * schema.Unit)
	}
	if c.BaseQty == 0 {
		c.BaseQty = schema.Quantity(schema.Unit / 100)
	}
	if c.Volatility == 0 {
		c.Volatility = 0.0002
	}
	return c
}

// Validate checks if the configuration is usable.
func (c GeneratorConfig) Validate() error {
	if c.Count < 0 {
		return errors.New("generator count must be non-negative")
	}
	if c.Interval < 0 {
		return errors.New("generator interval must be non-negative")
	}
	if c.BasePrice < 0 || c.BaseQty < 0 {
		return errors.New("generator base values must be non-negative")
	}
	if c.Volatility < 0 || c.Volatility >= 1 {
		return errors.New("generator volatility must be in [0, 1)")
	}
	return nil
}

// Generator emits a deterministic geometric random walk with slightly
// jittered timestamps. Identical seeds yield identical streams, which
// keeps backtest runs reproducible.
type Generator struct {
	cfg     GeneratorConfig
	rng     *rand.Rand
	price   float64
	tsNano  int64
	emitted int64
}

// NewGenerator creates a generator; defaults fill zero-value fields.
func NewGenerator(cfg GeneratorConfig) (*Generator, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Generator{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		price:  schema.Float(int64(cfg.BasePrice)),
		tsNano: cfg.StartNano,
	}, nil
}

func (g *Generator) Next() (schema.Tick, error) {
	if g.emitted >= g.cfg.Count {
		return schema.Tick{}, io.EOF
	}
	g.emitted++

	step := g.rng.NormFloat64() * g.cfg.Volatility
	g.price *= 1 + step
	if g.price <= 0 {
		g.price = schema.Float(int64(g.cfg.BasePrice))
	}

	// Sellers hit the bid on down moves more often than not.
	buyerMaker := step < 0
	if g.rng.Float64() < 0.2 {
		buyerMaker = !buyerMaker
	}

	qty := schema.Float(int64(g.cfg.BaseQty)) * math.Exp(g.rng.NormFloat64()*0.5)

	jitter := 0.5 + g.rng.Float64()
	g.tsNano += int64(float64(g.cfg.Interval) * jitter)

	return schema.Tick{
		TsNano:     g.tsNano,
		Price:      schema.Price(g.price * float64(schema.Unit)),
		Qty:        schema.Quantity(qty * float64(schema.Unit)),
		BuyerMaker: buyerMaker,
	}, nil
}
