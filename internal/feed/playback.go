package feed

import (
	"context"
	"io"
	"time"

	"github.com/yanun0323/errors"

	"main/internal/schema"
)

// Clock allows deterministic playback control in tests.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Playback replays a tick source paced by the gaps between tick
// timestamps. Speed 1 is real time, 2 is twice as fast; speed 0
// disables pacing entirely.
type Playback struct {
	src   Source
	speed float64
	clock Clock
}

// NewPlayback wraps a source with pacing.
func NewPlayback(src Source, speed float64) (*Playback, error) {
	if src == nil {
		return nil, errors.New("playback source is nil")
	}
	if speed < 0 {
		return nil, errors.New("playback speed must be >= 0")
	}
	return &Playback{src: src, speed: speed, clock: realClock{}}, nil
}

// WithClock swaps the clock implementation.
func (p *Playback) WithClock(clock Clock) *Playback {
	if clock != nil {
		p.clock = clock
	}
	return p
}

// Run streams every tick through the handler until the source ends,
// the handler errors, or the context is cancelled.
func (p *Playback) Run(ctx context.Context, handler func(schema.Tick) error) error {
	if handler == nil {
		return errors.New("playback handler is nil")
	}
	var prevNano int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		tick, err := p.src.Next()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		if p.speed > 0 && prevNano > 0 && tick.TsNano > prevNano {
			sleep := time.Duration(float64(tick.TsNano-prevNano) / p.speed)
			if err := p.clock.Sleep(ctx, sleep); err != nil {
				return err
			}
		}
		prevNano = tick.TsNano

		if err := handler(tick); err != nil {
			return err
		}
	}
}
