package funding

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"main/internal/schema"
)

func TestCrossings(t *testing.T) {
	s, err := NewSchedule(8 * time.Hour)
	if err != nil {
		t.Fatalf("new schedule failed: %v", err)
	}
	interval := int64(8 * time.Hour)

	testCases := []struct {
		desc     string
		prev     int64
		now      int64
		expected []int64
	}{
		{"no boundary", interval + 1, interval + 2, nil},
		{"straddles one boundary", interval - 1, interval + 1, []int64{interval}},
		{"lands exactly on boundary", interval - 1, interval, []int64{interval}},
		{"leaves boundary behind", interval, interval + 1, nil},
		{"spans two boundaries", interval - 1, 2*interval + 1, []int64{interval, 2 * interval}},
		{"zero span", interval, interval, nil},
		{"backwards", interval + 1, interval - 1, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			got := s.Crossings(tc.prev, tc.now)
			if len(got) != len(tc.expected) {
				t.Fatalf("count mismatch! should be %d but got %d", len(tc.expected), len(got))
			}
			for i := range got {
				if got[i] != tc.expected[i] {
					t.Fatalf("boundary %d mismatch! should be %d but got %d", i, tc.expected[i], got[i])
				}
			}
		})
	}
}

func TestCrossingsSecondTickSkipsSettledBoundary(t *testing.T) {
	s, _ := NewSchedule(8 * time.Hour)
	interval := int64(8 * time.Hour)

	// Consecutive ticks at 07:59:59 and 08:00:01 settle once; the next
	// tick settles nothing.
	first := s.Crossings(interval-int64(time.Second), interval+int64(time.Second))
	if len(first) != 1 {
		t.Fatalf("straddle should settle once but got %d", len(first))
	}
	second := s.Crossings(interval+int64(time.Second), interval+2*int64(time.Second))
	if len(second) != 0 {
		t.Fatalf("already settled boundary should not repeat but got %d", len(second))
	}
}

func TestScheduleDefaults(t *testing.T) {
	s, err := NewSchedule(0)
	if err != nil {
		t.Fatalf("zero interval should select the default: %v", err)
	}
	if got := s.Crossings(0, int64(DefaultInterval)); len(got) != 1 {
		t.Fatalf("default interval mismatch! got %d crossings", len(got))
	}
	if _, err := NewSchedule(-time.Hour); err == nil {
		t.Fatal("negative interval should fail")
	}
}

func TestSeriesRateAt(t *testing.T) {
	series, err := NewSeries([]schema.FundingRate{
		{TsNano: 300, Rate: 3},
		{TsNano: 100, Rate: 1},
		{TsNano: 200, Rate: 2},
	})
	if err != nil {
		t.Fatalf("new series failed: %v", err)
	}

	testCases := []struct {
		desc     string
		ts       int64
		expected schema.Rate
		ok       bool
	}{
		{"before first", 99, 0, false},
		{"exact first", 100, 1, true},
		{"between", 250, 2, true},
		{"after last", 1000, 3, true},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			rate, ok := series.RateAt(tc.ts)
			if ok != tc.ok {
				t.Fatalf("ok mismatch! should be %t but got %t", tc.ok, ok)
			}
			if ok && rate != tc.expected {
				t.Fatalf("rate mismatch! should be %d but got %d", tc.expected, rate)
			}
		})
	}
}

func TestNewSeriesEmpty(t *testing.T) {
	if _, err := NewSeries(nil); err == nil {
		t.Fatal("empty series should fail")
	}
}

func TestLoadSeries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.json")
	payload := `[
		{"timeMs": 1000, "rate": "0.0001"},
		{"timeMs": 2000, "rate": "-0.00005"}
	]`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write fixture failed: %v", err)
	}

	series, err := LoadSeries(path)
	if err != nil {
		t.Fatalf("load series failed: %v", err)
	}
	rate, ok := series.RateAt(1500 * int64(time.Millisecond))
	if !ok || rate != schema.Rate(10_000) {
		t.Fatalf("rate mismatch! should be 10000 but got %d (ok=%t)", rate, ok)
	}
	rate, ok = series.RateAt(2000 * int64(time.Millisecond))
	if !ok || rate != schema.Rate(-5_000) {
		t.Fatalf("rate mismatch! should be -5000 but got %d (ok=%t)", rate, ok)
	}
}
