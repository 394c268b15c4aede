// Package feed supplies tick streams to the backtest: in-memory
// slices, CSV trade dumps, checksummed binary archives, and a seeded
// synthetic generator. Every source ends with io.EOF.
package feed

import (
	"io"

	"main/internal/schema"
)

// Source yields ticks in timestamp order until io.EOF.
type Source interface {
	Next() (schema.Tick, error)
}

// SliceSource serves ticks from memory, mostly for tests.
type SliceSource struct {
	ticks []schema.Tick
	index int
}

// NewSliceSource wraps a tick slice without copying it.
func NewSliceSource(ticks []schema.Tick) *SliceSource {
	return &SliceSource{ticks: ticks}
}

func (s *SliceSource) Next() (schema.Tick, error) {
	if s.index >= len(s.ticks) {
		return schema.Tick{}, io.EOF
	}
	t := s.ticks[s.index]
	s.index++
	return t, nil
}
