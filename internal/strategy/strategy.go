// Package strategy defines the decision boundary between the backtest
// runner and pluggable trading logic. A strategy sees a read-only
// market state once per closed bar and may emit at most one order
// intent in response.
package strategy

import (
	"main/internal/schema"
	"main/internal/signal"
)

// MarketState is the read-only view handed to a strategy on every
// closed bar.
type MarketState struct {
	TsNano  int64
	Bar     schema.Bar
	Signals signal.Snapshot
	Account schema.Account
}

// Strategy turns market state into zero or one order intent. A nil
// intent means no action. A returned error is fatal to the run; a
// defective strategy must not be mistaken for a silent one.
type Strategy interface {
	Name() string
	GenerateOrder(state MarketState) (*schema.OrderIntent, error)
}
