// Package ops loads and resolves the backtest run configuration from
// JSON. Monetary values are decimal strings in the file and scaled
// integers after resolution.
package ops

import (
	"encoding/json"
	"os"
	"time"

	"github.com/yanun0323/errors"

	"main/internal/bar"
	"main/internal/feed"
	"main/internal/paper"
	"main/internal/schema"
	"main/internal/signal"
	"main/internal/strategy"
)

var (
	ErrUnknownFeedType = errors.New("unknown feed type")
	ErrUnknownStrategy = errors.New("unknown strategy")
)

// FileConfig mirrors the JSON config layout.
type FileConfig struct {
	Feed          FeedConfig     `json:"feed"`
	Bar           BarConfig      `json:"bar"`
	Signal        signal.Config  `json:"signal"`
	Strategy      StrategyConfig `json:"strategy"`
	Account       AccountConfig  `json:"account"`
	FundingPath   string         `json:"fundingRatesPath"`
	Database      DatabaseConfig `json:"database"`
	ProgressEvery int64          `json:"progressEvery"`
}

// FeedConfig selects and parameterizes the tick source.
type FeedConfig struct {
	Type      string          `json:"type"`
	Path      string          `json:"path"`
	Speed     float64         `json:"speed"`
	Generator GeneratorConfig `json:"generator"`
}

// GeneratorConfig parameterizes the synthetic feed.
type GeneratorConfig struct {
	Seed       int64   `json:"seed"`
	Count      int64   `json:"count"`
	StartMs    int64   `json:"startMs"`
	IntervalMs int64   `json:"intervalMs"`
	BasePrice  string  `json:"basePrice"`
	BaseQty    string  `json:"baseQty"`
	Volatility float64 `json:"volatility"`
}

// BarConfig selects the sampling clock.
type BarConfig struct {
	Rule               string `json:"rule"`
	Threshold          string `json:"threshold"`
	MinVolumeThreshold string `json:"minVolumeThreshold"`
}

// StrategyConfig selects and parameterizes the strategy.
type StrategyConfig struct {
	Name              string  `json:"name"`
	Qty               string  `json:"qty"`
	BuyThreshold      float64 `json:"buyThreshold"`
	SellThreshold     float64 `json:"sellThreshold"`
	AllowShort        bool    `json:"allowShort"`
	Lookback          int     `json:"lookback"`
	ToxicityThreshold float64 `json:"toxicityThreshold"`
}

// AccountConfig parameterizes the paper engine.
type AccountConfig struct {
	InitialCash           string `json:"initialCash"`
	Leverage              int    `json:"leverage"`
	MakerFeeRate          string `json:"makerFeeRate"`
	TakerFeeRate          string `json:"takerFeeRate"`
	MaintenanceMarginRate string `json:"maintenanceMarginRate"`
	LatencyMs             int64  `json:"latencyMs"`
	FundingIntervalHours  int64  `json:"fundingIntervalHours"`
}

// DatabaseConfig points at the optional result store.
type DatabaseConfig struct {
	DSN string `json:"dsn"`
}

// FeedKind is the resolved feed selector.
type FeedKind uint16

const (
	FeedUnknown FeedKind = iota
	FeedCSV
	FeedArchive
	FeedSynthetic
)

// FeedSpec is the resolved feed definition. The caller opens the
// source so it controls the file lifecycle.
type FeedSpec struct {
	Kind      FeedKind
	Path      string
	Speed     float64
	Generator feed.GeneratorConfig
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Feed          FeedSpec
	Bar           bar.Config
	Signal        signal.Config
	Strategy      strategy.Strategy
	Account       paper.Config
	FundingPath   string
	DatabaseDSN   string
	ProgressEvery int64
}

// Load reads a JSON config file and resolves every section.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, errors.Wrap(err, "read config")
	}
	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, errors.Wrap(err, "unmarshal config")
	}
	return Resolve(cfg)
}

// Resolve turns the raw file layout into typed component configs.
func Resolve(cfg FileConfig) (Loaded, error) {
	feedSpec, err := resolveFeed(cfg.Feed)
	if err != nil {
		return Loaded{}, err
	}
	barCfg, err := resolveBar(cfg.Bar)
	if err != nil {
		return Loaded{}, err
	}
	strat, err := resolveStrategy(cfg.Strategy)
	if err != nil {
		return Loaded{}, err
	}
	account, err := resolveAccount(cfg.Account)
	if err != nil {
		return Loaded{}, err
	}
	return Loaded{
		Feed:          feedSpec,
		Bar:           barCfg,
		Signal:        cfg.Signal,
		Strategy:      strat,
		Account:       account,
		FundingPath:   cfg.FundingPath,
		DatabaseDSN:   cfg.Database.DSN,
		ProgressEvery: cfg.ProgressEvery,
	}, nil
}

func resolveFeed(cfg FeedConfig) (FeedSpec, error) {
	spec := FeedSpec{Path: cfg.Path, Speed: cfg.Speed}
	switch cfg.Type {
	case "csv":
		spec.Kind = FeedCSV
	case "archive":
		spec.Kind = FeedArchive
	case "synthetic":
		spec.Kind = FeedSynthetic
	default:
		return FeedSpec{}, errors.Wrap(ErrUnknownFeedType, "resolve feed").With("type", cfg.Type)
	}
	if spec.Kind != FeedSynthetic && spec.Path == "" {
		return FeedSpec{}, errors.New("feed path is required")
	}

	gen := feed.GeneratorConfig{
		Seed:       cfg.Generator.Seed,
		Count:      cfg.Generator.Count,
		StartNano:  cfg.Generator.StartMs * int64(time.Millisecond),
		Interval:   time.Duration(cfg.Generator.IntervalMs) * time.Millisecond,
		Volatility: cfg.Generator.Volatility,
	}
	if cfg.Generator.BasePrice != "" {
		v, err := schema.ParseScaled(cfg.Generator.BasePrice)
		if err != nil {
			return FeedSpec{}, errors.Wrap(err, "parse generator base price")
		}
		gen.BasePrice = schema.Price(v)
	}
	if cfg.Generator.BaseQty != "" {
		v, err := schema.ParseScaled(cfg.Generator.BaseQty)
		if err != nil {
			return FeedSpec{}, errors.Wrap(err, "parse generator base qty")
		}
		gen.BaseQty = schema.Quantity(v)
	}
	spec.Generator = gen
	return spec, nil
}

func resolveBar(cfg BarConfig) (bar.Config, error) {
	rule, ok := schema.ParseBarRule(cfg.Rule)
	if !ok {
		return bar.Config{}, errors.Errorf("unknown bar rule %q", cfg.Rule)
	}
	threshold, err := schema.ParseScaled(cfg.Threshold)
	if err != nil {
		return bar.Config{}, errors.Wrap(err, "parse bar threshold")
	}
	if rule == schema.BarRuleTime {
		// Time thresholds are seconds in the file and nanoseconds in
		// the builder.
		nanos, ok := schema.MulDiv(threshold, int64(time.Second), schema.Unit)
		if !ok {
			return bar.Config{}, schema.ErrValueOverflow
		}
		threshold = nanos
	}
	out := bar.Config{Rule: rule, Threshold: threshold}
	if cfg.MinVolumeThreshold != "" {
		min, err := schema.ParseScaled(cfg.MinVolumeThreshold)
		if err != nil {
			return bar.Config{}, errors.Wrap(err, "parse min volume threshold")
		}
		out.MinVolumeThreshold = min
	}
	return out, nil
}

func resolveStrategy(cfg StrategyConfig) (strategy.Strategy, error) {
	qty := schema.Quantity(0)
	if cfg.Qty != "" {
		v, err := schema.ParseScaled(cfg.Qty)
		if err != nil {
			return nil, errors.Wrap(err, "parse strategy qty")
		}
		qty = schema.Quantity(v)
	}
	switch cfg.Name {
	case "imbalance":
		return strategy.NewImbalance(strategy.ImbalanceConfig{
			Qty:           qty,
			BuyThreshold:  cfg.BuyThreshold,
			SellThreshold: cfg.SellThreshold,
			AllowShort:    cfg.AllowShort,
		}), nil
	case "breakout":
		return strategy.NewBreakout(strategy.BreakoutConfig{
			Qty:               qty,
			Lookback:          cfg.Lookback,
			ToxicityThreshold: cfg.ToxicityThreshold,
		}), nil
	default:
		return nil, errors.Wrap(ErrUnknownStrategy, "resolve strategy").With("name", cfg.Name)
	}
}

func resolveAccount(cfg AccountConfig) (paper.Config, error) {
	out := paper.Config{
		Leverage: cfg.Leverage,
		Latency:  time.Duration(cfg.LatencyMs) * time.Millisecond,
	}
	if cfg.FundingIntervalHours > 0 {
		out.FundingInterval = time.Duration(cfg.FundingIntervalHours) * time.Hour
	}
	cash, err := schema.ParseScaled(cfg.InitialCash)
	if err != nil {
		return paper.Config{}, errors.Wrap(err, "parse initial cash")
	}
	out.InitialCash = schema.Money(cash)
	if cfg.MakerFeeRate != "" {
		v, err := schema.ParseScaled(cfg.MakerFeeRate)
		if err != nil {
			return paper.Config{}, errors.Wrap(err, "parse maker fee rate")
		}
		out.MakerFeeRate = schema.Rate(v)
	}
	if cfg.TakerFeeRate != "" {
		v, err := schema.ParseScaled(cfg.TakerFeeRate)
		if err != nil {
			return paper.Config{}, errors.Wrap(err, "parse taker fee rate")
		}
		out.TakerFeeRate = schema.Rate(v)
	}
	if cfg.MaintenanceMarginRate != "" {
		v, err := schema.ParseScaled(cfg.MaintenanceMarginRate)
		if err != nil {
			return paper.Config{}, errors.Wrap(err, "parse maintenance margin rate")
		}
		out.MaintenanceMarginRate = schema.Rate(v)
	} else if cfg.Leverage > 1 {
		// Common exchange default for the lowest maintenance tier.
		out.MaintenanceMarginRate = schema.Rate(schema.Unit / 250)
	}
	return out, nil
}

// OpenSource builds the configured tick source. The returned closer
// is nil for sources with nothing to release.
func (s FeedSpec) OpenSource() (feed.Source, func() error, error) {
	switch s.Kind {
	case FeedCSV:
		src, err := feed.OpenCSV(s.Path)
		if err != nil {
			return nil, nil, err
		}
		return src, src.Close, nil
	case FeedArchive:
		src, err := feed.OpenArchive(s.Path)
		if err != nil {
			return nil, nil, err
		}
		return src, src.Close, nil
	case FeedSynthetic:
		src, err := feed.NewGenerator(s.Generator)
		if err != nil {
			return nil, nil, err
		}
		return src, nil, nil
	default:
		return nil, nil, ErrUnknownFeedType
	}
}
