package strategy

import "main/internal/schema"

// BreakoutConfig tunes the toxicity-filtered breakout strategy.
type BreakoutConfig struct {
	Qty               schema.Quantity
	Lookback          int
	ToxicityThreshold float64
}

// Breakout enters on price breakouts confirmed by elevated order-flow
// toxicity: a close above the lookback high with a toxic flow opens a
// long, a close below the lookback low opens a short (or closes the
// long). Without the toxicity filter most breakouts are noise.
type Breakout struct {
	cfg   BreakoutConfig
	highs []schema.Price
	lows  []schema.Price
}

// NewBreakout creates the strategy with defaulted parameters.
func NewBreakout(cfg BreakoutConfig) *Breakout {
	if cfg.Lookback <= 0 {
		cfg.Lookback = 20
	}
	if cfg.ToxicityThreshold == 0 {
		cfg.ToxicityThreshold = 0.4
	}
	return &Breakout{
		cfg:   cfg,
		highs: make([]schema.Price, 0, cfg.Lookback),
		lows:  make([]schema.Price, 0, cfg.Lookback),
	}
}

func (s *Breakout) Name() string { return "breakout" }

func (s *Breakout) GenerateOrder(state MarketState) (*schema.OrderIntent, error) {
	up := s.brokeHigh(state.Bar.Close)
	down := s.brokeLow(state.Bar.Close)
	s.record(state.Bar)

	if state.Signals.ToxicityFast <= s.cfg.ToxicityThreshold {
		return nil, nil
	}

	position := state.Account.Position
	switch {
	case up && position.Side != schema.SideBuy:
		return s.order(schema.SideBuy, position), nil
	case down && position.Side != schema.SideSell:
		return s.order(schema.SideSell, position), nil
	default:
		return nil, nil
	}
}

func (s *Breakout) brokeHigh(close schema.Price) bool {
	if len(s.highs) < s.cfg.Lookback {
		return false
	}
	max := s.highs[0]
	for _, h := range s.highs[1:] {
		if h > max {
			max = h
		}
	}
	return close > max
}

func (s *Breakout) brokeLow(close schema.Price) bool {
	if len(s.lows) < s.cfg.Lookback {
		return false
	}
	min := s.lows[0]
	for _, l := range s.lows[1:] {
		if l < min {
			min = l
		}
	}
	return close < min
}

func (s *Breakout) record(b schema.Bar) {
	if len(s.highs) == s.cfg.Lookback {
		copy(s.highs, s.highs[1:])
		s.highs = s.highs[:s.cfg.Lookback-1]
	}
	if len(s.lows) == s.cfg.Lookback {
		copy(s.lows, s.lows[1:])
		s.lows = s.lows[:s.cfg.Lookback-1]
	}
	s.highs = append(s.highs, b.High)
	s.lows = append(s.lows, b.Low)
}

func (s *Breakout) order(side schema.Side, position schema.Position) *schema.OrderIntent {
	qty := s.cfg.Qty
	if !position.Flat() && position.Side != side {
		qty = position.Qty
	}
	return &schema.OrderIntent{
		Side: side,
		Qty:  qty,
		Type: schema.OrderTypeMarket,
	}
}
