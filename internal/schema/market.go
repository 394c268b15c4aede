package schema

import "time"

// Tick is a single executed trade from the feed.
type Tick struct {
	TsNano     int64
	Price      Price
	Qty        Quantity
	BuyerMaker bool
}

// Time returns the tick timestamp as a time.Time in UTC.
func (t Tick) Time() time.Time {
	return time.Unix(0, t.TsNano).UTC()
}

// BarRule selects the condition that closes an open bar.
type BarRule uint16

const (
	BarRuleUnknown BarRule = iota
	BarRuleVolume
	BarRuleTick
	BarRuleTime
	BarRuleDollar
)

func (r BarRule) String() string {
	switch r {
	case BarRuleVolume:
		return "volume"
	case BarRuleTick:
		return "tick"
	case BarRuleTime:
		return "time"
	case BarRuleDollar:
		return "dollar"
	default:
		return "unknown"
	}
}

// ParseBarRule maps a config string onto a BarRule.
func ParseBarRule(s string) (BarRule, bool) {
	switch s {
	case "volume":
		return BarRuleVolume, true
	case "tick":
		return BarRuleTick, true
	case "time":
		return BarRuleTime, true
	case "dollar":
		return BarRuleDollar, true
	default:
		return BarRuleUnknown, false
	}
}

// Bar aggregates a contiguous tick run under one closing rule.
// A bar is immutable once returned by the builder.
type Bar struct {
	Open        Price
	High        Price
	Low         Price
	Close       Price
	Volume      Quantity
	QuoteVolume Money
	BuyVolume   Quantity
	SellVolume  Quantity
	TradeCount  int
	StartNano   int64
	EndNano     int64
}

// Duration is the wall-clock span covered by the bar.
func (b Bar) Duration() time.Duration {
	return time.Duration(b.EndNano - b.StartNano)
}

// VWAP is the volume-weighted average price of the bar. It falls back
// to the OHLC midpoint for a zero-volume bar.
func (b Bar) VWAP() Price {
	if b.Volume > 0 {
		if v, ok := MulDiv(int64(b.QuoteVolume), Unit, int64(b.Volume)); ok {
			return Price(v)
		}
	}
	return Price((int64(b.Open) + int64(b.High) + int64(b.Low) + int64(b.Close)) / 4)
}

// Imbalance is (buy-sell)/(buy+sell) volume in [-1, 1].
func (b Bar) Imbalance() float64 {
	total := int64(b.BuyVolume) + int64(b.SellVolume)
	if total <= 0 {
		return 0
	}
	return float64(int64(b.BuyVolume)-int64(b.SellVolume)) / float64(total)
}

// FundingRate is one periodic funding observation.
type FundingRate struct {
	TsNano int64
	Rate   Rate
}
