// Package paper simulates order execution against a virtual balance
// sheet: fees, latency-delayed fills, isolated-margin liquidation, and
// periodic funding settlement. It is the only owner of account state.
package paper

import (
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/funding"
	"main/internal/schema"
)

var (
	ErrInvalidCash          = errors.New("initial cash must be positive")
	ErrInvalidLeverage      = errors.New("leverage must be within [1, 125]")
	ErrInvalidFeeRate       = errors.New("fee rate must be non-negative")
	ErrInvalidMarginRate    = errors.New("maintenance margin rate must be in (0, 1)")
	ErrInvalidDuration      = errors.New("durations must be non-negative")
	ErrQtyNotPositive       = errors.New("order quantity must be positive")
	ErrUnknownSide          = errors.New("unknown order side")
	ErrUnknownOrderType     = errors.New("unknown order type")
	ErrMissingLimitPrice    = errors.New("limit order requires a limit price")
	ErrUnexpectedLimitPrice = errors.New("market order must not carry a limit price")
	ErrInsufficientMargin   = errors.New("insufficient margin for order")
	ErrInsufficientBalance  = errors.New("insufficient balance for order")
	ErrShortNotAllowed      = errors.New("short selling requires futures mode")
	ErrExceedsPosition      = errors.New("contrary order quantity exceeds open position")
	ErrUnknownOrder         = errors.New("order not found")
)

// Config describes the simulated account and venue mechanics.
type Config struct {
	InitialCash schema.Money

	// Leverage of 1 selects spot mode: no margin reservation, no
	// liquidation, shorts rejected.
	Leverage int

	MakerFeeRate schema.Rate
	TakerFeeRate schema.Rate

	// MaintenanceMarginRate feeds the liquidation price formulas.
	// Required when Leverage > 1.
	MaintenanceMarginRate schema.Rate

	// Latency delays order eligibility after submission. Zero fills on
	// the first price update.
	Latency time.Duration

	// FundingInterval spaces settlement boundaries; zero selects the
	// exchange default. Funding only runs when a rate source is set.
	FundingInterval time.Duration
}

// Validate checks if the configuration is usable.
func (c Config) Validate() error {
	if c.InitialCash <= 0 {
		return ErrInvalidCash
	}
	if c.Leverage < 1 || c.Leverage > 125 {
		return ErrInvalidLeverage
	}
	if c.MakerFeeRate < 0 || c.TakerFeeRate < 0 {
		return ErrInvalidFeeRate
	}
	if c.Leverage > 1 {
		if c.MaintenanceMarginRate <= 0 || c.MaintenanceMarginRate >= schema.Rate(schema.Unit) {
			return ErrInvalidMarginRate
		}
	}
	if c.Latency < 0 || c.FundingInterval < 0 {
		return ErrInvalidDuration
	}
	return nil
}

type order struct {
	id            uint64
	intent        schema.OrderIntent
	submittedNano int64
	expiresNano   int64
	status        schema.OrderStatus
	rested        bool
}

// Fill reports one executed order for callers that track activity.
type Fill struct {
	OrderID uint64
	Side    schema.Side
	Qty     schema.Quantity
	Price   schema.Price
	Fee     schema.Money
	TsNano  int64
}

// Engine is the paper trader. It is single-threaded by design; every
// state transition happens synchronously inside Submit or
// OnPriceUpdate.
type Engine struct {
	cfg      Config
	schedule funding.Schedule
	rates    funding.Source

	cash     schema.Money
	baseQty  schema.Quantity
	position schema.Position

	// entryFees accumulates fees paid while opening the current
	// position; closes allocate them proportionally into trade pnl.
	entryFees schema.Money

	pending []*order
	nextID  uint64

	trades       []schema.Trade
	totalFees    schema.Money
	fundingPaid  schema.Money
	liquidations int

	lastUpdateNano int64
	lastPrice      schema.Price
}

// New creates an engine. rates may be nil to disable funding.
func New(cfg Config, rates funding.Source) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	schedule, err := funding.NewSchedule(cfg.FundingInterval)
	if err != nil {
		return nil, err
	}
	return &Engine{
		cfg:      cfg,
		schedule: schedule,
		rates:    rates,
		cash:     cfg.InitialCash,
	}, nil
}

func (e *Engine) futures() bool { return e.cfg.Leverage > 1 }

// Submit validates an order intent and queues it for fill resolution
// on subsequent price updates. Invalid intents are rejected here, not
// silently coerced.
func (e *Engine) Submit(intent schema.OrderIntent, nowNano int64) (uint64, error) {
	if intent.Qty <= 0 {
		return 0, ErrQtyNotPositive
	}
	if intent.Side != schema.SideBuy && intent.Side != schema.SideSell {
		return 0, ErrUnknownSide
	}
	switch intent.Type {
	case schema.OrderTypeMarket:
		if intent.LimitPrice != 0 {
			return 0, ErrUnexpectedLimitPrice
		}
	case schema.OrderTypeLimit:
		if intent.LimitPrice <= 0 {
			return 0, ErrMissingLimitPrice
		}
	default:
		return 0, ErrUnknownOrderType
	}

	if err := e.admit(intent); err != nil {
		return 0, err
	}

	e.nextID++
	o := &order{
		id:            e.nextID,
		intent:        intent,
		submittedNano: nowNano,
		status:        schema.OrderStatusSubmitted,
	}
	if intent.TTLNano > 0 {
		o.expiresNano = nowNano + intent.TTLNano
	}
	e.pending = append(e.pending, o)
	return o.id, nil
}

// admit applies the balance checks that reject an order at submission.
// Prices may still move before the fill; fills re-check and cancel.
func (e *Engine) admit(intent schema.OrderIntent) error {
	reduces := !e.position.Flat() && intent.Side != e.position.Side
	if reduces {
		if intent.Qty > e.position.Qty {
			return ErrExceedsPosition
		}
		return nil
	}

	if !e.futures() {
		if intent.Side == schema.SideSell {
			if intent.Qty > e.baseQty {
				return ErrShortNotAllowed
			}
			return nil
		}
		if cost, ok := e.entryCost(intent); ok && cost > e.cash {
			return ErrInsufficientBalance
		}
		return nil
	}

	if cost, ok := e.entryCost(intent); ok && cost > e.cash {
		return ErrInsufficientMargin
	}
	return nil
}

// entryCost estimates cash needed for an opening order using the
// limit price, or the last seen price for market orders. ok is false
// when no reference price is known yet.
func (e *Engine) entryCost(intent schema.OrderIntent) (schema.Money, bool) {
	ref := intent.LimitPrice
	if intent.Type == schema.OrderTypeMarket {
		ref = e.lastPrice
	}
	if ref <= 0 {
		return 0, false
	}
	notional, ok := schema.Notional(ref, intent.Qty)
	if !ok {
		return 0, false
	}
	fee, _ := schema.ApplyRate(notional, e.cfg.TakerFeeRate)
	if e.futures() {
		return notional/schema.Money(e.cfg.Leverage) + fee, true
	}
	return notional + fee, true
}

// Cancel removes a pending order by ID.
func (e *Engine) Cancel(id uint64) error {
	for i, o := range e.pending {
		if o.id != id {
			continue
		}
		o.status = schema.OrderStatusCancelled
		e.pending = append(e.pending[:i], e.pending[i+1:]...)
		return nil
	}
	return ErrUnknownOrder
}

// CancelAll removes every pending order and returns the count.
func (e *Engine) CancelAll() int {
	n := len(e.pending)
	for _, o := range e.pending {
		o.status = schema.OrderStatusCancelled
	}
	e.pending = e.pending[:0]
	return n
}

// Account returns a read-only snapshot of the balance sheet.
func (e *Engine) Account() schema.Account {
	return schema.Account{
		Cash:          e.cash,
		BaseQty:       e.baseQty,
		Position:      e.position,
		PendingOrders: len(e.pending),
	}
}

// Trades returns a copy of the closed-trade ledger.
func (e *Engine) Trades() []schema.Trade {
	out := make([]schema.Trade, len(e.trades))
	copy(out, e.trades)
	return out
}

// TotalFees is the sum of all fees charged so far.
func (e *Engine) TotalFees() schema.Money { return e.totalFees }

// FundingPaid is the net funding outflow so far. Negative means the
// account received more funding than it paid.
func (e *Engine) FundingPaid() schema.Money { return e.fundingPaid }

// Liquidations counts forced position closes so far.
func (e *Engine) Liquidations() int { return e.liquidations }

func (e *Engine) logLiquidation(price schema.Price, tsNano int64) {
	logs.Infof("position liquidated: side=%s qty=%s price=%s ts=%d",
		e.position.Side, e.position.Qty, price, tsNano)
}
