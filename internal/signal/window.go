package signal

import "math"

// window is a fixed-capacity ring buffer of float64 samples with a
// running sum, so per-bar updates stay O(1) regardless of length.
type window struct {
	buf   []float64
	head  int
	size  int
	sum   float64
	sumSq float64
}

func newWindow(capacity int) *window {
	if capacity < 1 {
		capacity = 1
	}
	return &window{buf: make([]float64, capacity)}
}

// push appends a sample, evicting the oldest one when full.
func (w *window) push(v float64) {
	if w.size == len(w.buf) {
		old := w.buf[w.head]
		w.sum -= old
		w.sumSq -= old * old
	} else {
		w.size++
	}
	w.buf[w.head] = v
	w.head = (w.head + 1) % len(w.buf)
	w.sum += v
	w.sumSq += v * v
}

func (w *window) full() bool { return w.size == len(w.buf) }

func (w *window) count() int { return w.size }

func (w *window) mean() float64 {
	if w.size == 0 {
		return 0
	}
	return w.sum / float64(w.size)
}

// stddev is the population standard deviation of the window.
func (w *window) stddev() float64 {
	if w.size < 2 {
		return 0
	}
	mean := w.mean()
	variance := w.sumSq/float64(w.size) - mean*mean
	if variance <= 0 {
		return 0
	}
	return math.Sqrt(variance)
}
