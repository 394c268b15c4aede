// Package funding models perpetual-futures funding: the fixed
// wall-clock settlement schedule and the historical rate series that
// backs it.
package funding

import (
	"encoding/json"
	"os"
	"sort"
	"time"

	"github.com/yanun0323/errors"

	"main/internal/schema"
)

var (
	ErrInvalidInterval = errors.New("funding interval must be positive")
	ErrEmptySeries     = errors.New("funding series has no records")
)

// DefaultInterval matches the common exchange cadence of settlements
// at 00:00, 08:00, and 16:00 UTC.
const DefaultInterval = 8 * time.Hour

// Schedule places settlement boundaries at fixed wall-clock multiples
// of the interval, independent of tick cadence.
type Schedule struct {
	intervalNano int64
}

// NewSchedule creates a schedule; a zero interval selects the default.
func NewSchedule(interval time.Duration) (Schedule, error) {
	if interval == 0 {
		interval = DefaultInterval
	}
	if interval < 0 {
		return Schedule{}, ErrInvalidInterval
	}
	return Schedule{intervalNano: int64(interval)}, nil
}

// Crossings returns every boundary timestamp in (prevNano, nowNano],
// oldest first. Consecutive ticks that straddle a boundary therefore
// yield exactly one settlement even when neither lands on it.
func (s Schedule) Crossings(prevNano, nowNano int64) []int64 {
	if s.intervalNano <= 0 || nowNano <= prevNano {
		return nil
	}
	first := (prevNano/s.intervalNano + 1) * s.intervalNano
	if first > nowNano {
		return nil
	}
	var out []int64
	for ts := first; ts <= nowNano; ts += s.intervalNano {
		out = append(out, ts)
	}
	return out
}

// Source resolves the funding rate effective at a settlement boundary.
type Source interface {
	RateAt(tsNano int64) (schema.Rate, bool)
}

// Series is an in-memory, timestamp-sorted rate history.
type Series struct {
	records []schema.FundingRate
}

// NewSeries sorts and wraps the given records.
func NewSeries(records []schema.FundingRate) (*Series, error) {
	if len(records) == 0 {
		return nil, ErrEmptySeries
	}
	sorted := make([]schema.FundingRate, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TsNano < sorted[j].TsNano })
	return &Series{records: sorted}, nil
}

// RateAt returns the most recent rate at or before the timestamp.
func (s *Series) RateAt(tsNano int64) (schema.Rate, bool) {
	idx := sort.Search(len(s.records), func(i int) bool {
		return s.records[i].TsNano > tsNano
	})
	if idx == 0 {
		return 0, false
	}
	return s.records[idx-1].Rate, true
}

type rateRecord struct {
	TimeMs int64  `json:"timeMs"`
	Rate   string `json:"rate"`
}

// LoadSeries reads a JSON array of {timeMs, rate} records.
func LoadSeries(path string) (*Series, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read funding series")
	}
	var raw []rateRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "unmarshal funding series")
	}
	records := make([]schema.FundingRate, 0, len(raw))
	for _, r := range raw {
		rate, err := schema.ParseScaled(r.Rate)
		if err != nil {
			return nil, errors.Wrap(err, "parse funding rate")
		}
		records = append(records, schema.FundingRate{
			TsNano: r.TimeMs * int64(time.Millisecond),
			Rate:   schema.Rate(rate),
		})
	}
	return NewSeries(records)
}
