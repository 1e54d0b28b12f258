package adapter

import (
	"context"

	"trading-alertsv1/internal/model"
)

// MTBridge receives candles pushed by an MT4/MT5 expert advisor over the
// feed endpoint. Start is a no-op: the bridge EA pushes whenever it
// likes, and candles must be accepted even before Start is called.
type MTBridge struct {
	engine
}

func newMTBridge(opts Options) *MTBridge {
	return &MTBridge{engine: newEngine(opts, socketBufferCap)}
}

func (m *MTBridge) Start(ctx context.Context) error { return nil }

// Stop is a no-op: the bridge owns no connection, and the buffer is
// left to the owning goroutine.
func (m *MTBridge) Stop() {}

func (m *MTBridge) HandleIncomingCandle(c model.Candle) {
	m.handle(c)
}

// NT8Bridge receives candles pushed by a NinjaTrader 8 strategy/add-on.
// Same lifecycle as the MT bridge; kept separate so bridge-specific
// message handling can diverge without touching MT users.
type NT8Bridge struct {
	engine
}

func newNT8Bridge(opts Options) *NT8Bridge {
	return &NT8Bridge{engine: newEngine(opts, socketBufferCap)}
}

func (n *NT8Bridge) Start(ctx context.Context) error { return nil }

func (n *NT8Bridge) Stop() {}

func (n *NT8Bridge) HandleIncomingCandle(c model.Candle) {
	n.handle(c)
}
