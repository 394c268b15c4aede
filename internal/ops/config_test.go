package ops

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"

	"main/internal/schema"
)

func writeConfig(t *testing.T, payload string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `{
		"feed": {
			"type": "synthetic",
			"generator": {
				"seed": 42,
				"count": 1000,
				"intervalMs": 100,
				"basePrice": "50000",
				"baseQty": "0.01",
				"volatility": 0.0003
			}
		},
		"bar": {"rule": "volume", "threshold": "5"},
		"signal": {"referenceWindow": 50, "fastWindow": 50, "slowWindow": 200, "ofiResetBars": 50},
		"strategy": {"name": "imbalance", "qty": "0.01", "buyThreshold": 0.4, "sellThreshold": -0.4, "allowShort": true},
		"account": {
			"initialCash": "10000",
			"leverage": 10,
			"makerFeeRate": "0.0002",
			"takerFeeRate": "0.0004",
			"maintenanceMarginRate": "0.004",
			"latencyMs": 50,
			"fundingIntervalHours": 8
		},
		"fundingRatesPath": "rates.json",
		"database": {"dsn": "postgres://localhost/backtests"},
		"progressEvery": 100000
	}`)

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, FeedSynthetic, loaded.Feed.Kind)
	assert.Equal(t, int64(42), loaded.Feed.Generator.Seed)
	assert.Equal(t, int64(1000), loaded.Feed.Generator.Count)
	assert.Equal(t, 100*time.Millisecond, loaded.Feed.Generator.Interval)
	assert.Equal(t, schema.Price(50_000*schema.Unit), loaded.Feed.Generator.BasePrice)

	assert.Equal(t, schema.BarRuleVolume, loaded.Bar.Rule)
	assert.Equal(t, 5*schema.Unit, loaded.Bar.Threshold)

	assert.Equal(t, 50, loaded.Signal.ReferenceWindow)
	assert.Equal(t, 200, loaded.Signal.SlowWindow)

	require.NotNil(t, loaded.Strategy)
	assert.Equal(t, "imbalance", loaded.Strategy.Name())

	assert.Equal(t, schema.Money(10_000*schema.Unit), loaded.Account.InitialCash)
	assert.Equal(t, 10, loaded.Account.Leverage)
	assert.Equal(t, schema.Rate(20_000), loaded.Account.MakerFeeRate)
	assert.Equal(t, schema.Rate(40_000), loaded.Account.TakerFeeRate)
	assert.Equal(t, schema.Rate(400_000), loaded.Account.MaintenanceMarginRate)
	assert.Equal(t, 50*time.Millisecond, loaded.Account.Latency)
	assert.Equal(t, 8*time.Hour, loaded.Account.FundingInterval)

	assert.Equal(t, "rates.json", loaded.FundingPath)
	assert.Equal(t, "postgres://localhost/backtests", loaded.DatabaseDSN)
	assert.Equal(t, int64(100_000), loaded.ProgressEvery)
}

func TestResolveTimeRuleConvertsSeconds(t *testing.T) {
	cfg, err := resolveBar(BarConfig{Rule: "time", Threshold: "60"})
	require.NoError(t, err)
	assert.Equal(t, schema.BarRuleTime, cfg.Rule)
	assert.Equal(t, int64(time.Minute), cfg.Threshold)
}

func TestResolveDefaultsMarginRate(t *testing.T) {
	account, err := resolveAccount(AccountConfig{InitialCash: "1000", Leverage: 20})
	require.NoError(t, err)
	assert.Equal(t, schema.Rate(schema.Unit/250), account.MaintenanceMarginRate)

	spot, err := resolveAccount(AccountConfig{InitialCash: "1000", Leverage: 1})
	require.NoError(t, err)
	assert.Zero(t, spot.MaintenanceMarginRate)
}

func TestResolveRejections(t *testing.T) {
	t.Run("unknown feed type", func(t *testing.T) {
		_, err := resolveFeed(FeedConfig{Type: "kafka"})
		assert.True(t, errors.Is(err, ErrUnknownFeedType), "got %v", err)
	})
	t.Run("file feed without path", func(t *testing.T) {
		_, err := resolveFeed(FeedConfig{Type: "csv"})
		assert.Error(t, err)
	})
	t.Run("unknown strategy", func(t *testing.T) {
		_, err := resolveStrategy(StrategyConfig{Name: "martingale"})
		assert.True(t, errors.Is(err, ErrUnknownStrategy), "got %v", err)
	})
	t.Run("unknown bar rule", func(t *testing.T) {
		_, err := resolveBar(BarConfig{Rule: "renko", Threshold: "1"})
		assert.Error(t, err)
	})
	t.Run("bad decimal", func(t *testing.T) {
		_, err := resolveAccount(AccountConfig{InitialCash: "ten", Leverage: 1})
		assert.Error(t, err)
	})
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
