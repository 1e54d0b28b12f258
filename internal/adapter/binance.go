package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"trading-alertsv1/internal/model"
)

const binanceStreamBase = "wss://stream.binance.com:9443/ws"

// Binance is a subscribe-only streaming adapter: the kline stream is
// selected by URL, no subscribe message is needed. Only closed klines
// are accepted. Connection loss flips the adapter to disconnected; there
// is no automatic reconnect — the caller restarts the session.
type Binance struct {
	engine
	url string

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

func newBinance(opts Options) *Binance {
	url := opts.StreamURL
	if url == "" {
		stream := fmt.Sprintf("%s@kline_%s", strings.ToLower(opts.Symbol), opts.Timeframe)
		url = binanceStreamBase + "/" + stream
	}
	return &Binance{engine: newEngine(opts, socketBufferCap), url: url}
}

// Start dials the kline stream and launches the read loop.
func (b *Binance) Start(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, b.url, nil)
	if err != nil {
		return fmt.Errorf("binance: dial %s: %w", b.url, err)
	}

	b.mu.Lock()
	b.conn = conn
	b.connected = true
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.Stop()
	}()
	go b.readLoop(conn)

	log.Printf("[binance] connected to %s", b.url)
	return nil
}

func (b *Binance) readLoop(conn *websocket.Conn) {
	defer func() {
		b.mu.Lock()
		b.connected = false
		b.mu.Unlock()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			log.Printf("[binance] connection closed: %v", err)
			return
		}

		candle, ok := parseKline(raw)
		if !ok {
			continue
		}
		b.emit(candle)
	}
}

// Stop closes the socket. The local buffer is left to the owning
// goroutine.
func (b *Binance) Stop() {
	b.mu.Lock()
	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
	b.connected = false
	b.mu.Unlock()
}

// HandleIncomingCandle processes one candle on the owning goroutine.
// Stream candles arrive here too, funneled back through the ingest
// queue by the read loop.
func (b *Binance) HandleIncomingCandle(c model.Candle) {
	b.handle(c)
}

// Connected reports whether the stream socket is up.
func (b *Binance) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

// binanceKline mirrors the kline event payload. Prices arrive as strings.
type binanceKline struct {
	K struct {
		CloseTime int64  `json:"T"`
		Open      string `json:"o"`
		High      string `json:"h"`
		Low       string `json:"l"`
		Close     string `json:"c"`
		Final     bool   `json:"x"`
	} `json:"k"`
}

// parseKline converts a raw kline event into a candle. Partial (unclosed)
// bars and malformed payloads are dropped; malformed ones are logged.
func parseKline(raw []byte) (model.Candle, bool) {
	var msg binanceKline
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Printf("[binance] parse error: %v", err)
		return model.Candle{}, false
	}
	if !msg.K.Final || msg.K.Open == "" {
		return model.Candle{}, false
	}

	open, err1 := strconv.ParseFloat(msg.K.Open, 64)
	high, err2 := strconv.ParseFloat(msg.K.High, 64)
	low, err3 := strconv.ParseFloat(msg.K.Low, 64)
	closeP, err4 := strconv.ParseFloat(msg.K.Close, 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		log.Printf("[binance] non-numeric kline prices in %s", raw)
		return model.Candle{}, false
	}

	return model.Candle{
		Time:  time.UnixMilli(msg.K.CloseTime).UTC(),
		Open:  open,
		High:  high,
		Low:   low,
		Close: closeP,
	}, true
}
