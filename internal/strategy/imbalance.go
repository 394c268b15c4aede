package strategy

import "main/internal/schema"

// ImbalanceConfig tunes the volume-imbalance strategy.
type ImbalanceConfig struct {
	Qty           schema.Quantity
	BuyThreshold  float64
	SellThreshold float64
	AllowShort    bool
}

// Imbalance trades the per-bar buy/sell volume imbalance: a strongly
// buy-dominated bar opens a long, a strongly sell-dominated bar opens
// a short (futures) or closes the long (spot).
type Imbalance struct {
	cfg ImbalanceConfig
}

// NewImbalance creates the strategy with defaulted thresholds.
func NewImbalance(cfg ImbalanceConfig) *Imbalance {
	if cfg.BuyThreshold == 0 {
		cfg.BuyThreshold = 0.4
	}
	if cfg.SellThreshold == 0 {
		cfg.SellThreshold = -0.4
	}
	return &Imbalance{cfg: cfg}
}

func (s *Imbalance) Name() string { return "imbalance" }

func (s *Imbalance) GenerateOrder(state MarketState) (*schema.OrderIntent, error) {
	imbalance := state.Bar.Imbalance()
	position := state.Account.Position

	if imbalance > s.cfg.BuyThreshold {
		if position.Side == schema.SideBuy {
			return nil, nil
		}
		return s.order(schema.SideBuy, position), nil
	}

	if imbalance < s.cfg.SellThreshold {
		if position.Side == schema.SideSell {
			return nil, nil
		}
		if position.Flat() && !s.cfg.AllowShort {
			return nil, nil
		}
		return s.order(schema.SideSell, position), nil
	}

	return nil, nil
}

func (s *Imbalance) order(side schema.Side, position schema.Position) *schema.OrderIntent {
	qty := s.cfg.Qty
	if !position.Flat() && position.Side != side {
		// Contrary intent: close what is open, never flip in one order.
		qty = position.Qty
	}
	return &schema.OrderIntent{
		Side: side,
		Qty:  qty,
		Type: schema.OrderTypeMarket,
	}
}
