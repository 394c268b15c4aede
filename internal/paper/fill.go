package paper

import (
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/schema"
)

// OnPriceUpdate advances the engine to a new market price. Work runs
// in a fixed order: funding settlement for crossed boundaries, the
// liquidation check, order expiry, then fill resolution. A fill that
// pushes the position past its liquidation level is itself followed
// by an immediate forced close.
//
// bid and ask of zero fall back to the trade price.
func (e *Engine) OnPriceUpdate(price, bid, ask schema.Price, nowNano int64) []Fill {
	if bid <= 0 {
		bid = price
	}
	if ask <= 0 {
		ask = price
	}
	prev := e.lastUpdateNano
	e.lastUpdateNano = nowNano
	e.lastPrice = price

	e.settleFunding(prev, nowNano, price)

	if e.crossed(price) {
		e.liquidate(nowNano)
		return nil
	}

	e.expireOrders(nowNano)

	queue := e.pending
	e.pending = nil
	var fills []Fill
	for i, o := range queue {
		if nowNano-o.submittedNano < int64(e.cfg.Latency) {
			e.pending = append(e.pending, o)
			continue
		}
		fill, filled := e.tryFill(o, price, bid, ask, nowNano)
		if !filled {
			if o.status == schema.OrderStatusSubmitted {
				o.rested = true
				e.pending = append(e.pending, o)
			}
			continue
		}
		fills = append(fills, fill)
		if e.crossed(price) {
			e.liquidate(nowNano)
			for _, rest := range queue[i+1:] {
				rest.status = schema.OrderStatusLiquidated
			}
			break
		}
	}
	return fills
}

func (e *Engine) expireOrders(nowNano int64) {
	keep := e.pending[:0]
	for _, o := range e.pending {
		if o.expiresNano > 0 && o.expiresNano <= nowNano {
			o.status = schema.OrderStatusExpired
			continue
		}
		keep = append(keep, o)
	}
	e.pending = keep
}

// tryFill resolves one eligible order against the current prices.
// Market orders cross the spread and pay taker. Limit orders execute
// at their limit price; they pay taker when marketable on their first
// eligible update and maker once they have rested.
func (e *Engine) tryFill(o *order, price, bid, ask schema.Price, nowNano int64) (Fill, bool) {
	var exec schema.Price
	feeRate := e.cfg.TakerFeeRate

	switch o.intent.Type {
	case schema.OrderTypeMarket:
		if o.intent.Side == schema.SideBuy {
			exec = ask
		} else {
			exec = bid
		}
	case schema.OrderTypeLimit:
		marketable := (o.intent.Side == schema.SideBuy && price <= o.intent.LimitPrice) ||
			(o.intent.Side == schema.SideSell && price >= o.intent.LimitPrice)
		if !marketable {
			return Fill{}, false
		}
		exec = o.intent.LimitPrice
		if o.rested {
			feeRate = e.cfg.MakerFeeRate
		}
	default:
		o.status = schema.OrderStatusCancelled
		return Fill{}, false
	}

	fee, err := e.applyFill(o.intent.Side, o.intent.Qty, exec, feeRate, nowNano)
	if err != nil {
		o.status = schema.OrderStatusCancelled
		logs.Errorf("order %d cancelled at fill: %+v", o.id, err)
		return Fill{}, false
	}
	o.status = schema.OrderStatusFilled
	return Fill{
		OrderID: o.id,
		Side:    o.intent.Side,
		Qty:     o.intent.Qty,
		Price:   exec,
		Fee:     fee,
		TsNano:  nowNano,
	}, true
}

// applyFill moves the fill through the balance sheet. Balances are
// re-checked here because prices move between submission and fill.
func (e *Engine) applyFill(side schema.Side, qty schema.Quantity, exec schema.Price, feeRate schema.Rate, nowNano int64) (schema.Money, error) {
	notional, ok := schema.Notional(exec, qty)
	if !ok {
		return 0, schema.ErrValueOverflow
	}
	fee, ok := schema.ApplyRate(notional, feeRate)
	if !ok {
		return 0, schema.ErrValueOverflow
	}

	reduces := !e.position.Flat() && side != e.position.Side
	var err error
	if reduces {
		err = e.closePosition(qty, exec, fee, nowNano)
	} else if e.futures() {
		err = e.openFutures(side, qty, exec, notional, fee, nowNano)
	} else {
		err = e.fillSpot(side, qty, exec, notional, fee, nowNano)
	}
	if err != nil {
		return 0, err
	}
	e.totalFees += fee
	return fee, nil
}

func (e *Engine) openFutures(side schema.Side, qty schema.Quantity, exec schema.Price, notional, fee schema.Money, nowNano int64) error {
	margin := notional / schema.Money(e.cfg.Leverage)
	if margin+fee > e.cash {
		return errors.Wrap(ErrInsufficientMargin, "fill rejected").
			With("required", (margin + fee).String()).
			With("cash", e.cash.String())
	}
	e.cash -= margin + fee

	if e.position.Flat() {
		e.position = schema.Position{
			Side:       side,
			Qty:        qty,
			EntryPrice: exec,
			Leverage:   e.cfg.Leverage,
			Margin:     margin,
			OpenNano:   nowNano,
		}
	} else {
		entry, err := averageEntry(e.position.EntryPrice, e.position.Qty, exec, qty)
		if err != nil {
			return err
		}
		e.position.EntryPrice = entry
		e.position.Qty += qty
		e.position.Margin += margin
	}

	liq, ok := e.liquidationPrice(side, e.position.EntryPrice)
	if !ok {
		return schema.ErrValueOverflow
	}
	if liq < 0 {
		// Low leverage can put the level below zero; it is then
		// unreachable.
		liq = 0
	}
	e.position.LiquidationPrice = liq
	e.entryFees += fee
	return nil
}

func (e *Engine) fillSpot(side schema.Side, qty schema.Quantity, exec schema.Price, notional, fee schema.Money, nowNano int64) error {
	if side == schema.SideSell {
		// A sell with no tracked position only happens in spot mode
		// when holdings predate the engine; treat it as a plain
		// balance change.
		if qty > e.baseQty {
			return errors.Wrap(ErrInsufficientBalance, "fill rejected").
				With("qty", qty.String()).
				With("held", e.baseQty.String())
		}
		e.cash += notional - fee
		e.baseQty -= qty
		return nil
	}

	if notional+fee > e.cash {
		return errors.Wrap(ErrInsufficientBalance, "fill rejected").
			With("required", (notional + fee).String()).
			With("cash", e.cash.String())
	}
	e.cash -= notional + fee
	e.baseQty += qty

	if e.position.Flat() {
		e.position = schema.Position{
			Side:       schema.SideBuy,
			Qty:        qty,
			EntryPrice: exec,
			Leverage:   1,
			OpenNano:   nowNano,
		}
	} else {
		entry, err := averageEntry(e.position.EntryPrice, e.position.Qty, exec, qty)
		if err != nil {
			return err
		}
		e.position.EntryPrice = entry
		e.position.Qty += qty
	}
	e.entryFees += fee
	return nil
}

// closePosition reduces or clears the open position, releasing margin
// and entry fees in proportion to the closed quantity.
func (e *Engine) closePosition(qty schema.Quantity, exec schema.Price, fee schema.Money, nowNano int64) error {
	pos := e.position
	closed := qty
	if closed > pos.Qty {
		closed = pos.Qty
	}

	gross, ok := grossPnl(pos.Side, pos.EntryPrice, exec, closed)
	if !ok {
		return schema.ErrValueOverflow
	}
	allocFee, ok := schema.MulDiv(int64(e.entryFees), int64(closed), int64(pos.Qty))
	if !ok {
		return schema.ErrValueOverflow
	}

	if e.futures() {
		released, ok := schema.MulDiv(int64(pos.Margin), int64(closed), int64(pos.Qty))
		if !ok {
			return schema.ErrValueOverflow
		}
		e.cash += schema.Money(released) + gross - fee
		e.position.Margin -= schema.Money(released)
	} else {
		if closed > e.baseQty {
			return errors.Wrap(ErrInsufficientBalance, "fill rejected").
				With("qty", closed.String()).
				With("held", e.baseQty.String())
		}
		proceeds, ok := schema.Notional(exec, closed)
		if !ok {
			return schema.ErrValueOverflow
		}
		e.cash += proceeds - fee
		e.baseQty -= closed
	}

	e.trades = append(e.trades, schema.Trade{
		Side:       pos.Side,
		Qty:        closed,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  exec,
		Pnl:        gross - schema.Money(allocFee) - fee,
		Fees:       schema.Money(allocFee) + fee,
		OpenNano:   pos.OpenNano,
		CloseNano:  nowNano,
	})

	e.entryFees -= schema.Money(allocFee)
	e.position.Qty -= closed
	if e.position.Qty == 0 {
		e.position = schema.Position{}
		e.entryFees = 0
	}
	return nil
}

// averageEntry blends an addition into the volume-weighted entry price.
func averageEntry(entry schema.Price, held schema.Quantity, exec schema.Price, added schema.Quantity) (schema.Price, error) {
	heldNotional, ok := schema.Notional(entry, held)
	if !ok {
		return 0, schema.ErrValueOverflow
	}
	addedNotional, ok := schema.Notional(exec, added)
	if !ok {
		return 0, schema.ErrValueOverflow
	}
	avg, ok := schema.MulDiv(int64(heldNotional)+int64(addedNotional), schema.Unit, int64(held)+int64(added))
	if !ok {
		return 0, schema.ErrValueOverflow
	}
	return schema.Price(avg), nil
}
