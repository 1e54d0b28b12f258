// Package window provides a fixed-capacity sliding window of candles.
// A push that would exceed capacity evicts exactly the single oldest
// element, so detectors indexing from the end always see a steadily
// rolling view. The window is owned by one goroutine (its session or
// adapter worker); Snapshot returns a copy safe to hand to concurrent
// readers such as the enrichment path.
package window

import "trading-alertsv1/internal/model"

// Window is a bounded FIFO sequence of candles backed by a ring.
type Window struct {
	buf   []model.Candle
	start int // index of oldest element
	n     int // current length
}

// New creates a window with the given capacity. Minimum capacity is 1.
func New(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{buf: make([]model.Candle, capacity)}
}

// Push appends a candle, evicting the oldest one if the window is full.
func (w *Window) Push(c model.Candle) {
	if w.n == len(w.buf) {
		w.buf[w.start] = c
		w.start = (w.start + 1) % len(w.buf)
		return
	}
	w.buf[(w.start+w.n)%len(w.buf)] = c
	w.n++
}

// Snapshot returns the window contents oldest-first as a fresh slice.
func (w *Window) Snapshot() []model.Candle {
	out := make([]model.Candle, w.n)
	for i := 0; i < w.n; i++ {
		out[i] = w.buf[(w.start+i)%len(w.buf)]
	}
	return out
}

// Last returns the most recent candle, if any.
func (w *Window) Last() (model.Candle, bool) {
	if w.n == 0 {
		return model.Candle{}, false
	}
	return w.buf[(w.start+w.n-1)%len(w.buf)], true
}

// Len returns the current number of candles.
func (w *Window) Len() int { return w.n }

// Cap returns the window capacity.
func (w *Window) Cap() int { return len(w.buf) }

// Reset drops all buffered candles.
func (w *Window) Reset() {
	w.start = 0
	w.n = 0
}
