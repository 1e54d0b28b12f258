// Package api exposes the REST surface of the alert engine: session
// lifecycle, candle webhooks, tick table lookups and the WebSocket
// mount point.
package api

import (
	"context"
	"net/http"
	"time"

	"trading-alertsv1/internal/gateway"
	"trading-alertsv1/internal/metrics"
	"trading-alertsv1/internal/model"
	"trading-alertsv1/internal/session"
	"trading-alertsv1/internal/ticktable"
)

// Enricher builds a trade plan for an alert.
type Enricher interface {
	BuildTradePlan(ctx context.Context, alert model.Alert) (*model.TradePlan, error)
}

// Server holds handler dependencies.
type Server struct {
	Registry *session.Registry
	Hub      *gateway.Hub
	Ticks    *ticktable.Table
	Metrics  *metrics.Metrics

	// Sink receives every detected alert (enrichment + fan-out).
	Sink session.AlertSink

	// BaseCtx is the lifetime context handed to socket adapters.
	BaseCtx context.Context

	startedAt time.Time
}

// NewServer wires a Server. BaseCtx bounds adapter connections; nil
// means context.Background().
func NewServer(reg *session.Registry, hub *gateway.Hub, ticks *ticktable.Table, m *metrics.Metrics, sink session.AlertSink, baseCtx context.Context) *Server {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Server{
		Registry:  reg,
		Hub:       hub,
		Ticks:     ticks,
		Metrics:   m,
		Sink:      sink,
		BaseCtx:   baseCtx,
		startedAt: time.Now(),
	}
}

// setCORS sets CORS headers for REST endpoints.
func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Feed-OTP")
}

// Router returns the engine's HTTP mux.
func (s *Server) Router() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.Hub.ServeWS)

	mux.HandleFunc("/api/live/start", s.handleLiveStart)
	mux.HandleFunc("/api/live/stop", s.handleLiveStop)
	mux.HandleFunc("/api/live/config", s.handleLiveConfig)

	// Candle webhook; /api/tv-feed/ kept as an alias for TradingView
	// alert configs that predate the rename.
	mux.HandleFunc("/api/feed/", s.handleFeed)
	mux.HandleFunc("/api/tv-feed/", s.handleFeed)

	mux.HandleFunc("/api/ticktable/", s.handleTickTable)
	mux.HandleFunc("/api/v1/health", s.handleHealth)

	return mux
}
