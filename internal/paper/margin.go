package paper

import (
	"main/internal/schema"
)

// liquidationPrice derives the isolated-margin liquidation level from
// the entry price, leverage L, and maintenance margin rate m:
//
//	long:  entry * (1/L - 1) / (m - 1)
//	short: entry * (1/L + 1) / (m + 1)
//
// Rearranged for scaled integers so the division happens last.
func (e *Engine) liquidationPrice(side schema.Side, entry schema.Price) (schema.Price, bool) {
	lev := int64(e.cfg.Leverage)
	mmr := int64(e.cfg.MaintenanceMarginRate)
	switch side {
	case schema.SideBuy:
		p, ok := schema.MulDiv(int64(entry), (1-lev)*schema.Unit, lev*(mmr-schema.Unit))
		return schema.Price(p), ok
	case schema.SideSell:
		p, ok := schema.MulDiv(int64(entry), (1+lev)*schema.Unit, lev*(mmr+schema.Unit))
		return schema.Price(p), ok
	default:
		return 0, false
	}
}

// crossed reports whether the price has reached the open position's
// liquidation level.
func (e *Engine) crossed(price schema.Price) bool {
	if !e.futures() || e.position.Flat() || e.position.LiquidationPrice <= 0 {
		return false
	}
	if e.position.Side == schema.SideBuy {
		return price <= e.position.LiquidationPrice
	}
	return price >= e.position.LiquidationPrice
}

// liquidate force-closes the position at its liquidation price. The
// loss is capped at the posted margin so cash never goes negative
// from price movement, and every pending order is cancelled.
func (e *Engine) liquidate(tsNano int64) {
	pos := e.position
	exec := pos.LiquidationPrice
	e.logLiquidation(exec, tsNano)

	gross, ok := grossPnl(pos.Side, pos.EntryPrice, exec, pos.Qty)
	if !ok {
		gross = -pos.Margin
	}
	pnl := gross - e.entryFees
	if pnl < -pos.Margin {
		pnl = -pos.Margin
	}
	e.cash += pos.Margin + pnl

	e.trades = append(e.trades, schema.Trade{
		Side:       pos.Side,
		Qty:        pos.Qty,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  exec,
		Pnl:        pnl,
		Fees:       e.entryFees,
		OpenNano:   pos.OpenNano,
		CloseNano:  tsNano,
		Liquidated: true,
	})

	for _, o := range e.pending {
		o.status = schema.OrderStatusLiquidated
	}
	e.pending = e.pending[:0]
	e.position = schema.Position{}
	e.entryFees = 0
	e.liquidations++
}

// settleFunding pays or receives funding for every schedule boundary
// crossed between the previous and current update. The current price
// stands in for the mark price at the boundary since the feed carries
// no mark stream. Longs pay a positive rate, shorts receive it.
func (e *Engine) settleFunding(prevNano, nowNano int64, price schema.Price) {
	if e.rates == nil || !e.futures() || e.position.Flat() || prevNano == 0 {
		return
	}
	for _, boundary := range e.schedule.Crossings(prevNano, nowNano) {
		rate, ok := e.rates.RateAt(boundary)
		if !ok {
			continue
		}
		notional, ok := schema.Notional(price, e.position.Qty)
		if !ok {
			continue
		}
		payment, ok := schema.ApplyRate(notional, rate)
		if !ok {
			continue
		}
		if e.position.Side == schema.SideSell {
			payment = -payment
		}
		e.cash -= payment
		e.fundingPaid += payment
	}
}

// grossPnl returns the signed price pnl of closing qty at exit.
func grossPnl(side schema.Side, entry, exit schema.Price, qty schema.Quantity) (schema.Money, bool) {
	delta := int64(exit) - int64(entry)
	if side == schema.SideSell {
		delta = -delta
	}
	v, ok := schema.MulDiv(delta, int64(qty), schema.Unit)
	return schema.Money(v), ok
}
