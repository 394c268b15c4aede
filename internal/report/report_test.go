package report

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/schema"
)

func money(v float64) schema.Money {
	return schema.Money(v * float64(schema.Unit))
}

func TestComputeEmptyLedger(t *testing.T) {
	s := Compute(nil, money(10_000), 0, 0, 0)

	assert.Equal(t, 0, s.Trades)
	assert.Zero(t, s.WinRate)
	assert.Zero(t, s.ProfitFactor)
	assert.Zero(t, s.Sharpe)
	assert.Zero(t, s.MaxDrawdown)
	assert.Equal(t, money(10_000), s.FinalEquity)
}

func TestComputeBasicStats(t *testing.T) {
	trades := []schema.Trade{
		{Pnl: money(100)},
		{Pnl: money(-50)},
		{Pnl: money(200)},
		{Pnl: money(-30)},
	}
	s := Compute(trades, money(10_000), money(12), money(3), 1)

	assert.Equal(t, 4, s.Trades)
	assert.Equal(t, 2, s.Wins)
	assert.Equal(t, 2, s.Losses)
	assert.InDelta(t, 0.5, s.WinRate, 1e-12)
	assert.Equal(t, money(220), s.TotalPnl)
	assert.InDelta(t, 0.022, s.Return, 1e-12)
	assert.InDelta(t, 300.0/80.0, s.ProfitFactor, 1e-12)
	assert.Equal(t, money(150), s.AvgWin)
	assert.Equal(t, money(40), s.AvgLoss)
	assert.Equal(t, money(12), s.TotalFees)
	assert.Equal(t, money(3), s.FundingPaid)
	assert.Equal(t, 1, s.Liquidations)
	// Net funding comes out of equity alongside trade pnl.
	assert.Equal(t, money(10_217), s.FinalEquity)
}

func TestComputeProfitFactorNoLosses(t *testing.T) {
	s := Compute([]schema.Trade{{Pnl: money(10)}, {Pnl: money(5)}}, money(1_000), 0, 0, 0)
	require.True(t, math.IsInf(s.ProfitFactor, 1))

	// All break-even trades: no wins either, profit factor stays zero.
	s = Compute([]schema.Trade{{Pnl: 0}}, money(1_000), 0, 0, 0)
	assert.Zero(t, s.ProfitFactor)
}

func TestComputeMaxDrawdown(t *testing.T) {
	// Equity path: 1000 -> 1500 -> 900 -> 1200. Peak 1500, trough 900.
	trades := []schema.Trade{
		{Pnl: money(500)},
		{Pnl: money(-600)},
		{Pnl: money(300)},
	}
	s := Compute(trades, money(1_000), 0, 0, 0)
	assert.InDelta(t, 600.0/1500.0, s.MaxDrawdown, 1e-12)
}

func TestComputeSharpe(t *testing.T) {
	// Identical returns have zero variance, so Sharpe degrades to zero.
	s := Compute([]schema.Trade{{Pnl: money(10)}, {Pnl: money(10)}}, money(1_000), 0, 0, 0)
	assert.NotZero(t, s.Trades)
	// Returns differ slightly because equity compounds between trades.
	assert.False(t, math.IsNaN(s.Sharpe))

	// A single trade never yields a Sharpe.
	s = Compute([]schema.Trade{{Pnl: money(10)}}, money(1_000), 0, 0, 0)
	assert.Zero(t, s.Sharpe)

	// Mixed returns produce a finite value.
	s = Compute([]schema.Trade{{Pnl: money(50)}, {Pnl: money(-20)}, {Pnl: money(30)}}, money(1_000), 0, 0, 0)
	assert.False(t, math.IsNaN(s.Sharpe))
	assert.False(t, math.IsInf(s.Sharpe, 0))
}

func TestComputeNegativeRun(t *testing.T) {
	trades := []schema.Trade{{Pnl: money(-100)}, {Pnl: money(-100)}}
	s := Compute(trades, money(1_000), 0, 0, 0)

	assert.Zero(t, s.WinRate)
	assert.Zero(t, s.ProfitFactor)
	assert.Equal(t, money(-200), s.TotalPnl)
	assert.InDelta(t, -0.2, s.Return, 1e-12)
	assert.Equal(t, money(800), s.FinalEquity)
	assert.InDelta(t, 0.2, s.MaxDrawdown, 1e-12)
}
