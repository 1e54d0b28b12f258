package adapter

import (
	"context"
	"sync/atomic"

	"trading-alertsv1/internal/model"
)

// TradingView is the webhook-driven live session adapter. It owns no
// connection: candles are pushed in by the feed endpoint. Unlike the
// MT/NT bridges it requires an explicit Start — candles arriving while
// inactive are ignored.
type TradingView struct {
	engine
	active atomic.Bool
}

func newTradingView(opts Options) *TradingView {
	return &TradingView{engine: newEngine(opts, liveBufferCap)}
}

// Start arms the receiver.
func (t *TradingView) Start(ctx context.Context) error {
	t.active.Store(true)
	return nil
}

// Stop disarms the receiver. Candles pushed afterwards are ignored;
// the buffer is left to the owning goroutine.
func (t *TradingView) Stop() {
	t.active.Store(false)
}

// HandleIncomingCandle processes a pushed candle if the receiver is armed.
func (t *TradingView) HandleIncomingCandle(c model.Candle) {
	if !t.active.Load() {
		return
	}
	t.handle(c)
}
