package strategy

import (
	"testing"

	"main/internal/schema"
	"main/internal/signal"
)

func qty(v float64) schema.Quantity {
	return schema.Quantity(v * float64(schema.Unit))
}

func price(v float64) schema.Price {
	return schema.Price(v * float64(schema.Unit))
}

func stateWithImbalance(buy, sell float64, position schema.Position) MarketState {
	return MarketState{
		Bar: schema.Bar{
			Close:      price(100),
			BuyVolume:  qty(buy),
			SellVolume: qty(sell),
		},
		Account: schema.Account{Position: position},
	}
}

func TestImbalanceOpensLong(t *testing.T) {
	s := NewImbalance(ImbalanceConfig{Qty: qty(1)})

	intent, err := s.GenerateOrder(stateWithImbalance(9, 1, schema.Position{}))
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if intent == nil || intent.Side != schema.SideBuy {
		t.Fatalf("should open long but got %+v", intent)
	}
	if intent.Qty != qty(1) || intent.Type != schema.OrderTypeMarket {
		t.Fatalf("intent mismatch: %+v", intent)
	}
}

func TestImbalanceStaysFlatInsideThresholds(t *testing.T) {
	s := NewImbalance(ImbalanceConfig{Qty: qty(1)})

	intent, err := s.GenerateOrder(stateWithImbalance(5, 5, schema.Position{}))
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if intent != nil {
		t.Fatalf("balanced bar should stay flat but got %+v", intent)
	}
}

func TestImbalanceClosesNotFlips(t *testing.T) {
	s := NewImbalance(ImbalanceConfig{Qty: qty(1), AllowShort: true})
	long := schema.Position{Side: schema.SideBuy, Qty: qty(3)}

	intent, err := s.GenerateOrder(stateWithImbalance(1, 9, long))
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if intent == nil || intent.Side != schema.SideSell {
		t.Fatalf("should sell but got %+v", intent)
	}
	if intent.Qty != qty(3) {
		t.Fatalf("contrary intent should close the full position, got %s", intent.Qty)
	}
}

func TestImbalanceShortRequiresPermission(t *testing.T) {
	s := NewImbalance(ImbalanceConfig{Qty: qty(1)})

	intent, err := s.GenerateOrder(stateWithImbalance(1, 9, schema.Position{}))
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if intent != nil {
		t.Fatalf("flat account without short permission should pass, got %+v", intent)
	}

	allowed := NewImbalance(ImbalanceConfig{Qty: qty(1), AllowShort: true})
	intent, err = allowed.GenerateOrder(stateWithImbalance(1, 9, schema.Position{}))
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if intent == nil || intent.Side != schema.SideSell {
		t.Fatalf("should open short but got %+v", intent)
	}
}

func TestImbalanceHoldsExistingSide(t *testing.T) {
	s := NewImbalance(ImbalanceConfig{Qty: qty(1)})
	long := schema.Position{Side: schema.SideBuy, Qty: qty(1)}

	intent, err := s.GenerateOrder(stateWithImbalance(9, 1, long))
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if intent != nil {
		t.Fatalf("existing long should not re-buy, got %+v", intent)
	}
}

func breakoutState(close float64, toxicity float64) MarketState {
	return MarketState{
		Bar: schema.Bar{
			High:  price(close),
			Low:   price(close),
			Close: price(close),
		},
		Signals: signal.Snapshot{ToxicityFast: toxicity},
	}
}

func TestBreakoutNeedsLookbackHistory(t *testing.T) {
	s := NewBreakout(BreakoutConfig{Qty: qty(1), Lookback: 3, ToxicityThreshold: 0.4})

	// Rising closes, but no full lookback window yet.
	for i := 0; i < 3; i++ {
		intent, err := s.GenerateOrder(breakoutState(float64(100+i), 0.9))
		if err != nil {
			t.Fatalf("generate failed: %v", err)
		}
		if intent != nil {
			t.Fatalf("bar %d should not trade before the window fills, got %+v", i, intent)
		}
	}

	intent, err := s.GenerateOrder(breakoutState(200, 0.9))
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if intent == nil || intent.Side != schema.SideBuy {
		t.Fatalf("breakout above the window should buy, got %+v", intent)
	}
}

func TestBreakoutFilteredByToxicity(t *testing.T) {
	s := NewBreakout(BreakoutConfig{Qty: qty(1), Lookback: 3, ToxicityThreshold: 0.4})
	for i := 0; i < 3; i++ {
		if _, err := s.GenerateOrder(breakoutState(float64(100+i), 0.9)); err != nil {
			t.Fatalf("generate failed: %v", err)
		}
	}

	intent, err := s.GenerateOrder(breakoutState(200, 0.1))
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if intent != nil {
		t.Fatalf("benign flow should suppress the breakout, got %+v", intent)
	}
}

func TestBreakoutShortOnBreakdown(t *testing.T) {
	s := NewBreakout(BreakoutConfig{Qty: qty(1), Lookback: 3, ToxicityThreshold: 0.4})
	for i := 0; i < 3; i++ {
		if _, err := s.GenerateOrder(breakoutState(float64(100-i), 0.9)); err != nil {
			t.Fatalf("generate failed: %v", err)
		}
	}

	intent, err := s.GenerateOrder(breakoutState(50, 0.9))
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if intent == nil || intent.Side != schema.SideSell {
		t.Fatalf("breakdown below the window should sell, got %+v", intent)
	}
}
