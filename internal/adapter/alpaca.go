package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"trading-alertsv1/internal/model"
)

const (
	alpacaStreamPaper = "wss://stream.data.alpaca.markets/v2/iex"
	alpacaStreamLive  = "wss://stream.data.alpaca.markets/v2/sip"
)

// Alpaca is an authenticate-then-subscribe streaming adapter: after the
// socket opens it sends an auth message followed by a bar subscription,
// then filters inbound bar events for the configured symbol.
type Alpaca struct {
	engine
	url       string
	apiKey    string
	apiSecret string
	symbol    string

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

func newAlpaca(opts Options) *Alpaca {
	url := opts.StreamURL
	if url == "" {
		if opts.Paper {
			url = alpacaStreamPaper
		} else {
			url = alpacaStreamLive
		}
	}
	return &Alpaca{
		engine:    newEngine(opts, socketBufferCap),
		url:       url,
		apiKey:    opts.APIKey,
		apiSecret: opts.APISecret,
		symbol:    opts.Symbol,
	}
}

// Start dials the stream, authenticates, subscribes to bars for the
// configured symbol and launches the read loop.
func (a *Alpaca) Start(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, a.url, nil)
	if err != nil {
		return fmt.Errorf("alpaca: dial %s: %w", a.url, err)
	}

	auth := map[string]string{"action": "auth", "key": a.apiKey, "secret": a.apiSecret}
	if err := conn.WriteJSON(auth); err != nil {
		conn.Close()
		return fmt.Errorf("alpaca: send auth: %w", err)
	}
	sub := map[string]interface{}{"action": "subscribe", "bars": []string{a.symbol}}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return fmt.Errorf("alpaca: send subscribe: %w", err)
	}

	a.mu.Lock()
	a.conn = conn
	a.connected = true
	a.mu.Unlock()

	go func() {
		<-ctx.Done()
		a.Stop()
	}()
	go a.readLoop(conn)

	log.Printf("[alpaca] connected to %s, subscribed bars for %s", a.url, a.symbol)
	return nil
}

func (a *Alpaca) readLoop(conn *websocket.Conn) {
	defer func() {
		a.mu.Lock()
		a.connected = false
		a.mu.Unlock()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			log.Printf("[alpaca] connection closed: %v", err)
			return
		}

		for _, candle := range parseBars(raw, a.symbol) {
			a.emit(candle)
		}
	}
}

// Stop closes the socket. The local buffer is left to the owning
// goroutine.
func (a *Alpaca) Stop() {
	a.mu.Lock()
	if a.conn != nil {
		a.conn.Close()
		a.conn = nil
	}
	a.connected = false
	a.mu.Unlock()
}

// HandleIncomingCandle processes one candle on the owning goroutine.
// Stream candles arrive here too, funneled back through the ingest
// queue by the read loop.
func (a *Alpaca) HandleIncomingCandle(c model.Candle) {
	a.handle(c)
}

// Connected reports whether the stream socket is up.
func (a *Alpaca) Connected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connected
}

// alpacaMsg mirrors the fields of a v2 stream bar event.
type alpacaMsg struct {
	Type   string    `json:"T"`
	Symbol string    `json:"S"`
	Time   time.Time `json:"t"`
	Open   float64   `json:"o"`
	High   float64   `json:"h"`
	Low    float64   `json:"l"`
	Close  float64   `json:"c"`
}

// parseBars extracts bar events for the given symbol from a raw stream
// frame (always a JSON array). Malformed frames are logged and dropped.
func parseBars(raw []byte, symbol string) []model.Candle {
	var msgs []alpacaMsg
	if err := json.Unmarshal(raw, &msgs); err != nil {
		log.Printf("[alpaca] parse error: %v", err)
		return nil
	}

	var out []model.Candle
	for _, m := range msgs {
		if m.Type != "b" || m.Symbol != symbol {
			continue
		}
		out = append(out, model.Candle{
			Time:  m.Time,
			Open:  m.Open,
			High:  m.High,
			Low:   m.Low,
			Close: m.Close,
		})
	}
	return out
}
