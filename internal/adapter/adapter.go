// Package adapter normalizes heterogeneous market data feeds into
// candles and runs the pattern pipeline on every accepted close.
//
// Variants differ in lifecycle on purpose: streaming adapters own a
// socket, the tradingview receiver gates on an explicit active flag, and
// the MT/NT bridges are pure pass-throughs whose Start is a no-op. Do
// not unify these semantics; callers rely on each variant's quirk.
package adapter

import (
	"context"
	"fmt"

	"trading-alertsv1/internal/model"
)

// Buffer capacities observed per variant: socket and bridge adapters
// keep a deeper local history than webhook-driven live sessions.
const (
	socketBufferCap = 500
	liveBufferCap   = 200
)

// AlertFunc receives every alert detected by an adapter.
type AlertFunc func(model.Alert)

// Adapter is one external feed connection (or passive receiver).
type Adapter interface {
	// Start establishes the feed. For push-based sources it only arms
	// the receiver (or does nothing at all).
	Start(ctx context.Context) error
	// Stop tears down any external connection and disarms the receiver.
	// It is safe to call from any goroutine and never touches the
	// candle window; buffered state belongs to the feeding goroutine,
	// which clears it via Reset.
	Stop()
	// HandleIncomingCandle is the single normalization entry point.
	// It must only be invoked by the goroutine that owns the adapter;
	// stream listeners hand their candles to that goroutine through
	// Options.Ingest rather than calling this directly.
	HandleIncomingCandle(c model.Candle)
}

// Options configures an adapter instance.
type Options struct {
	Symbol    string
	Timeframe string
	Patterns  model.PatternConfig
	OnAlert   AlertFunc

	// Ingest, when set, is how stream read loops hand candles to the
	// goroutine that owns the adapter (the session worker's queue).
	// It reports false when the candle was dropped. When nil, stream
	// candles are handled inline on the read-loop goroutine.
	Ingest func(model.Candle) bool

	// Streaming credentials (alpaca variant).
	APIKey    string
	APISecret string
	Paper     bool

	// StreamURL overrides the exchange endpoint (staging/testing).
	StreamURL string
}

// New creates the adapter registered for the given source id.
// "mt4" and "mt5" share one bridge implementation.
func New(source string, opts Options) (Adapter, error) {
	switch source {
	case "binance":
		return newBinance(opts), nil
	case "alpaca":
		return newAlpaca(opts), nil
	case "tradingview":
		return newTradingView(opts), nil
	case "mt4", "mt5":
		return newMTBridge(opts), nil
	case "nt8":
		return newNT8Bridge(opts), nil
	default:
		return nil, fmt.Errorf("adapter: unknown data source %q", source)
	}
}
