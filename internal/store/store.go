// Package store persists finished runs to PostgreSQL so results can
// be compared across parameter sweeps. It is optional; a run without
// a DSN simply skips persistence.
package store

import (
	"time"

	"github.com/yanun0323/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"main/internal/report"
	"main/internal/schema"
)

// RunRow is one backtest run. Monetary columns are decimal strings to
// keep full precision through the database round trip.
type RunRow struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	Strategy     string
	Trades       int
	Wins         int
	Losses       int
	WinRate      float64
	TotalPnl     string
	Return       float64
	ProfitFactor float64
	MaxDrawdown  float64
	Sharpe       float64
	AvgWin       string
	AvgLoss      string
	TotalFees    string
	FundingPaid  string
	Liquidations int
	FinalEquity  string
}

// TableName keeps the table name stable across gorm versions.
func (RunRow) TableName() string { return "backtest_runs" }

// TradeRow is one closed trade belonging to a run.
type TradeRow struct {
	ID    uint `gorm:"primaryKey"`
	RunID uint `gorm:"index"`

	Side       string
	Qty        string
	EntryPrice string
	ExitPrice  string
	Pnl        string
	Fees       string
	OpenNano   int64
	CloseNano  int64
	Liquidated bool
}

// TableName keeps the table name stable across gorm versions.
func (TradeRow) TableName() string { return "backtest_trades" }

// Store wraps the database handle.
type Store struct {
	db *gorm.DB
}

// Open connects and migrates the result tables.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "open result store")
	}
	if err := db.AutoMigrate(&RunRow{}, &TradeRow{}); err != nil {
		return nil, errors.Wrap(err, "migrate result store")
	}
	return &Store{db: db}, nil
}

// SaveRun writes the summary and its trades in one transaction and
// returns the new run ID.
func (s *Store) SaveRun(strategyName string, summary report.Summary, trades []schema.Trade) (uint, error) {
	row := RunRow{
		Strategy:     strategyName,
		Trades:       summary.Trades,
		Wins:         summary.Wins,
		Losses:       summary.Losses,
		WinRate:      summary.WinRate,
		TotalPnl:     summary.TotalPnl.String(),
		Return:       summary.Return,
		ProfitFactor: summary.ProfitFactor,
		MaxDrawdown:  summary.MaxDrawdown,
		Sharpe:       summary.Sharpe,
		AvgWin:       summary.AvgWin.String(),
		AvgLoss:      summary.AvgLoss.String(),
		TotalFees:    summary.TotalFees.String(),
		FundingPaid:  summary.FundingPaid.String(),
		Liquidations: summary.Liquidations,
		FinalEquity:  summary.FinalEquity.String(),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		if len(trades) == 0 {
			return nil
		}
		rows := make([]TradeRow, 0, len(trades))
		for _, t := range trades {
			rows = append(rows, TradeRow{
				RunID:      row.ID,
				Side:       t.Side.String(),
				Qty:        t.Qty.String(),
				EntryPrice: t.EntryPrice.String(),
				ExitPrice:  t.ExitPrice.String(),
				Pnl:        t.Pnl.String(),
				Fees:       t.Fees.String(),
				OpenNano:   t.OpenNano,
				CloseNano:  t.CloseNano,
				Liquidated: t.Liquidated,
			})
		}
		return tx.CreateInBatches(rows, 500).Error
	})
	if err != nil {
		return 0, errors.Wrap(err, "save run")
	}
	return row.ID, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
