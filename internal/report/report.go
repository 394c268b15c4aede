// Package report condenses a closed-trade ledger into headline
// performance statistics.
package report

import (
	"encoding/json"
	"math"

	"github.com/yanun0323/logs"

	"main/internal/schema"
)

// Summary is the end-of-run performance report. Monetary fields stay
// in scaled integers; ratios are floats since nothing downstream
// gates accounting on them.
type Summary struct {
	Trades       int          `json:"trades"`
	Wins         int          `json:"wins"`
	Losses       int          `json:"losses"`
	WinRate      float64      `json:"winRate"`
	TotalPnl     schema.Money `json:"totalPnl"`
	Return       float64      `json:"return"`
	ProfitFactor float64      `json:"profitFactor"`
	MaxDrawdown  float64      `json:"maxDrawdown"`
	Sharpe       float64      `json:"sharpe"`
	AvgWin       schema.Money `json:"avgWin"`
	AvgLoss      schema.Money `json:"avgLoss"`
	TotalFees    schema.Money `json:"totalFees"`
	FundingPaid  schema.Money `json:"fundingPaid"`
	Liquidations int          `json:"liquidations"`
	FinalEquity  schema.Money `json:"finalEquity"`
}

// Compute derives a Summary from the trade ledger. An empty ledger
// yields zero ratios rather than NaN so the report always renders.
func Compute(trades []schema.Trade, initialCash, totalFees, fundingPaid schema.Money, liquidations int) Summary {
	s := Summary{
		Trades:       len(trades),
		TotalFees:    totalFees,
		FundingPaid:  fundingPaid,
		Liquidations: liquidations,
	}

	var grossWin, grossLoss schema.Money
	equity := initialCash
	peak := initialCash
	returns := make([]float64, 0, len(trades))

	for _, t := range trades {
		s.TotalPnl += t.Pnl
		if equity > 0 {
			returns = append(returns, schema.Float(int64(t.Pnl))/schema.Float(int64(equity)))
		}
		equity += t.Pnl

		if t.Pnl > 0 {
			s.Wins++
			grossWin += t.Pnl
		} else if t.Pnl < 0 {
			s.Losses++
			grossLoss -= t.Pnl
		}

		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			dd := schema.Float(int64(peak-equity)) / schema.Float(int64(peak))
			if dd > s.MaxDrawdown {
				s.MaxDrawdown = dd
			}
		}
	}

	// Funding settles in cash outside the trade ledger, so the equity
	// figure subtracts it to agree with the account.
	s.FinalEquity = equity - fundingPaid
	if initialCash > 0 {
		s.Return = schema.Float(int64(s.TotalPnl)) / schema.Float(int64(initialCash))
	}
	if s.Trades > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Trades)
	}
	if s.Wins > 0 {
		s.AvgWin = grossWin / schema.Money(s.Wins)
	}
	if s.Losses > 0 {
		s.AvgLoss = grossLoss / schema.Money(s.Losses)
	}
	switch {
	case grossLoss > 0:
		s.ProfitFactor = schema.Float(int64(grossWin)) / schema.Float(int64(grossLoss))
	case grossWin > 0:
		s.ProfitFactor = math.Inf(1)
	}
	s.Sharpe = sharpe(returns)
	return s
}

// sharpe is the mean over standard deviation of per-trade returns,
// unannualized. Fewer than two trades or flat returns yield zero.
func sharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))
	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))
	if variance == 0 {
		return 0
	}
	return mean / math.Sqrt(variance)
}

// MarshalJSON renders an infinite profit factor as null; the json
// package cannot encode it as a number.
func (s Summary) MarshalJSON() ([]byte, error) {
	type alias Summary
	out := struct {
		alias
		ProfitFactor any `json:"profitFactor"`
	}{alias: alias(s)}
	if !math.IsInf(s.ProfitFactor, 0) {
		out.ProfitFactor = s.ProfitFactor
	}
	return json.Marshal(out)
}

// Log writes the summary through the structured logger.
func (s Summary) Log() {
	logs.Infof("trades=%d winRate=%.2f%% pnl=%s return=%.2f%%",
		s.Trades, s.WinRate*100, s.TotalPnl, s.Return*100)
	logs.Infof("profitFactor=%.3f maxDrawdown=%.2f%% sharpe=%.3f",
		s.ProfitFactor, s.MaxDrawdown*100, s.Sharpe)
	logs.Infof("avgWin=%s avgLoss=%s fees=%s funding=%s liquidations=%d equity=%s",
		s.AvgWin, s.AvgLoss, s.TotalFees, s.FundingPaid, s.Liquidations, s.FinalEquity)
}
