package adapter

import (
	"trading-alertsv1/internal/model"
	"trading-alertsv1/internal/pattern"
	"trading-alertsv1/internal/window"
)

// engine is the candle handling shared by every adapter variant: push
// into the local window, evaluate the pipeline on a snapshot, wrap each
// hit with the adapter's symbol/timeframe and hand it to the callback.
// It is driven by a single goroutine per adapter.
type engine struct {
	symbol    string
	timeframe string
	cfg       model.PatternConfig
	win       *window.Window
	onAlert   AlertFunc
	ingest    func(model.Candle) bool
}

func newEngine(opts Options, capacity int) engine {
	return engine{
		symbol:    opts.Symbol,
		timeframe: opts.Timeframe,
		cfg:       opts.Patterns,
		win:       window.New(capacity),
		onAlert:   opts.OnAlert,
		ingest:    opts.Ingest,
	}
}

// emit routes a stream candle to the owning goroutine's queue when one
// is configured, otherwise handles it inline. Read loops call this and
// never handle directly; the window belongs to the owning goroutine.
func (e *engine) emit(c model.Candle) {
	if e.ingest != nil {
		e.ingest(c)
		return
	}
	e.handle(c)
}

func (e *engine) handle(c model.Candle) {
	e.win.Push(c)

	hits := pattern.Run(e.win.Snapshot(), e.cfg)
	if e.onAlert == nil {
		return
	}
	for _, h := range hits {
		e.onAlert(model.Alert{
			Pattern:    h.Pattern,
			Direction:  h.Direction,
			Detail:     h.Detail,
			Symbol:     e.symbol,
			Timeframe:  e.timeframe,
			LastCandle: c,
		})
	}
}

// Reset clears the local window. Like Candles, it must only be called
// from the goroutine that feeds the adapter.
func (e *engine) Reset() { e.win.Reset() }

// Candles returns a copy of the adapter's local window, oldest first.
// Must be called from the goroutine that feeds the adapter.
func (e *engine) Candles() []model.Candle { return e.win.Snapshot() }
