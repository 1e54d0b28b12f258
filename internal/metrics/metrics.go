// Package metrics exposes Prometheus metrics and a health endpoint for
// the alert engine.
package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the alert engine.
type Metrics struct {
	CandlesIngested *prometheus.CounterVec // labels: source
	CandlesRejected prometheus.Counter
	CandlesDropped  prometheus.Counter // worker saturation

	AlertsDetected  *prometheus.CounterVec // labels: pattern
	AlertsDelivered prometheus.Counter
	AlertsDropped   *prometheus.CounterVec // labels: reason

	EnrichDur   prometheus.Histogram
	FanoutDrops prometheus.Counter

	ActiveSessions prometheus.Gauge
	WSClients      prometheus.Gauge
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		CandlesIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alertengine_candles_ingested_total",
			Help: "Candles accepted into a session window (by source)",
		}, []string{"source"}),
		CandlesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertengine_candles_rejected_total",
			Help: "Pushed candles rejected for non-finite prices",
		}),
		CandlesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertengine_candles_dropped_total",
			Help: "Candles dropped because a session worker was saturated",
		}),

		AlertsDetected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alertengine_alerts_detected_total",
			Help: "Pattern hits emitted by the detector pipeline (by pattern)",
		}, []string{"pattern"}),
		AlertsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertengine_alerts_delivered_total",
			Help: "Alerts broadcast to at least one WebSocket client",
		}),
		AlertsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alertengine_alerts_dropped_total",
			Help: "Alerts dropped before delivery (by reason)",
		}, []string{"reason"}),

		EnrichDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "alertengine_enrich_duration_seconds",
			Help:    "Trade plan enrichment latency",
			Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 20.0},
		}),
		FanoutDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertengine_fanout_drops_total",
			Help: "Alert payloads dropped for slow WebSocket clients",
		}),

		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "alertengine_active_sessions",
			Help: "Currently registered live sessions",
		}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "alertengine_ws_clients",
			Help: "Currently connected WebSocket clients",
		}),
	}

	prometheus.MustRegister(
		m.CandlesIngested,
		m.CandlesRejected,
		m.CandlesDropped,
		m.AlertsDetected,
		m.AlertsDelivered,
		m.AlertsDropped,
		m.EnrichDur,
		m.FanoutDrops,
		m.ActiveSessions,
		m.WSClients,
	)

	return m
}

// HealthStatus represents the engine health.
type HealthStatus struct {
	mu sync.RWMutex

	RedisConnected bool `json:"redis_connected"`
	JournalOK      bool `json:"journal_ok"`

	RedisEnabled   bool `json:"redis_enabled"`
	JournalEnabled bool `json:"journal_enabled"`

	Sessions  int       `json:"sessions"`
	WSClients int       `json:"ws_clients"`
	StartedAt time.Time `json:"started_at"`

	RedisLatencyMs   float64   `json:"redis_latency_ms"`
	JournalLatencyMs float64   `json:"journal_latency_ms"`
	LastCheckAt      time.Time `json:"last_check_at"`

	// Live callbacks for gauges sampled at request time.
	SessionCount func() int `json:"-"`
	ClientCount  func() int `json:"-"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now()}
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisEnabled = true
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckJournal pings the journal database and records latency + health.
func (h *HealthStatus) CheckJournal(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.JournalEnabled = true
	h.JournalOK = err == nil
	h.JournalLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks until ctx ends.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, journalDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if journalDB != nil {
					h.CheckJournal(probeCtx, journalDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint. The engine core has no hard
// dependencies: only enabled optional stores can degrade it.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK
	if (h.RedisEnabled && !h.RedisConnected) || (h.JournalEnabled && !h.JournalOK) {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}

	sessions := h.Sessions
	if h.SessionCount != nil {
		sessions = h.SessionCount()
	}
	clients := h.WSClients
	if h.ClientCount != nil {
		clients = h.ClientCount()
	}

	status := struct {
		Status           string  `json:"status"`
		Uptime           string  `json:"uptime"`
		Sessions         int     `json:"sessions"`
		WSClients        int     `json:"ws_clients"`
		RedisEnabled     bool    `json:"redis_enabled"`
		RedisConnected   bool    `json:"redis_connected"`
		RedisLatencyMs   float64 `json:"redis_latency_ms"`
		JournalEnabled   bool    `json:"journal_enabled"`
		JournalOK        bool    `json:"journal_ok"`
		JournalLatencyMs float64 `json:"journal_latency_ms"`
		LastCheckAt      string  `json:"last_check_at"`
	}{
		Status:           overallStatus,
		Uptime:           time.Since(h.StartedAt).Round(time.Second).String(),
		Sessions:         sessions,
		WSClients:        clients,
		RedisEnabled:     h.RedisEnabled,
		RedisConnected:   h.RedisConnected,
		RedisLatencyMs:   h.RedisLatencyMs,
		JournalEnabled:   h.JournalEnabled,
		JournalOK:        h.JournalOK,
		JournalLatencyMs: h.JournalLatencyMs,
		LastCheckAt:      h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
