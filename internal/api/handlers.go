package api

import (
	"encoding/json"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pquerna/otp/totp"

	"trading-alertsv1/internal/model"
	"trading-alertsv1/internal/session"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	if code != http.StatusOK {
		w.WriteHeader(code)
	}
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

type startRequest struct {
	Symbol    string               `json:"symbol"`
	Timeframe string               `json:"timeframe"`
	Patterns  *model.PatternConfig `json:"patterns"`
	Source    string               `json:"source"`

	// FeedKey reuses an existing key (replacing its session); empty
	// mints a fresh one.
	FeedKey string `json:"feedKey"`

	// FeedSecret enables the TOTP gate on this session's webhook.
	FeedSecret string `json:"feedSecret"`

	// Socket adapter credentials.
	APIKey    string `json:"apiKey"`
	APISecret string `json:"apiSecret"`
	Paper     bool   `json:"paper"`
	StreamURL string `json:"streamUrl"`
}

func isPassiveSource(source string) bool {
	switch source {
	case "tradingview", "mt4", "mt5", "nt8":
		return true
	}
	return false
}

// handleLiveStart creates (or replaces) a live session and returns its
// feedKey plus the endpoints a client needs.
func (s *Server) handleLiveStart(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.Symbol == "" {
		req.Symbol = "MNQ"
	}
	if req.Timeframe == "" {
		req.Timeframe = "1m"
	}
	if req.Source == "" {
		req.Source = "tradingview"
	}
	patterns := model.DefaultPatternConfig()
	if req.Patterns != nil {
		patterns = *req.Patterns
	}

	feedKey := req.FeedKey
	if feedKey == "" {
		feedKey = session.NewFeedKey()
	}

	sess, err := s.Registry.Create(session.Config{
		FeedKey:    feedKey,
		Symbol:     req.Symbol,
		Timeframe:  req.Timeframe,
		Source:     req.Source,
		Patterns:   patterns,
		FeedSecret: req.FeedSecret,
		APIKey:     req.APIKey,
		APISecret:  req.APISecret,
		Paper:      req.Paper,
		StreamURL:  req.StreamURL,
		OnAlert:    s.Sink,
		OnDrop: func(string) {
			if s.Metrics != nil {
				s.Metrics.CandlesDropped.Inc()
			}
		},
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Passive sources only arm the receiver; socket sources dial out.
	if err := sess.Start(s.BaseCtx); err != nil {
		s.Registry.Remove(feedKey)
		log.Printf("[api] start %s session for feedKey %s: %v", req.Source, feedKey, err)
		writeError(w, http.StatusBadGateway, "failed to start feed")
		return
	}

	if s.Metrics != nil {
		s.Metrics.ActiveSessions.Set(float64(s.Registry.Len()))
	}
	log.Printf("[api] live session started: feedKey=%s symbol=%s tf=%s source=%s", feedKey, req.Symbol, req.Timeframe, req.Source)

	webhookPath := ""
	if isPassiveSource(req.Source) {
		webhookPath = "/api/feed/" + feedKey
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"feedKey":     feedKey,
		"wsUrl":       "/ws?feedKey=" + feedKey,
		"webhookPath": webhookPath,
	})
}

// handleLiveStop stops and removes a session. Always answers ok, even
// for unknown keys.
func (s *Server) handleLiveStop(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req struct {
		FeedKey string `json:"feedKey"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.FeedKey != "" {
		s.Registry.Remove(req.FeedKey)
		if s.Metrics != nil {
			s.Metrics.ActiveSessions.Set(float64(s.Registry.Len()))
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleLiveConfig returns the webhook path and an alert payload
// template for wiring a TradingView alert to a feedKey.
func (s *Server) handleLiveConfig(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}

	feedKey := r.URL.Query().Get("feedKey")
	if feedKey == "" {
		feedKey = session.NewFeedKey()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"feedKey":     feedKey,
		"webhookPath": "/api/feed/" + feedKey,
		"alertTemplate": map[string]string{
			"symbol":    "{{ticker}}",
			"timeframe": "{{interval}}",
			"time":      "{{time}}",
			"open":      "{{open}}",
			"high":      "{{high}}",
			"low":       "{{low}}",
			"close":     "{{close}}",
		},
	})
}

// handleFeed ingests one pushed candle for the feedKey in the path.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	feedKey := feedKeyFromPath(r.URL.Path)
	if feedKey == "" {
		writeError(w, http.StatusNotFound, "missing feedKey")
		return
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	candle := model.Candle{
		Time:  candleTime(body["time"]),
		Open:  toFloat(body["open"]),
		High:  toFloat(body["high"]),
		Low:   toFloat(body["low"]),
		Close: toFloat(body["close"]),
	}
	if err := candle.Validate(); err != nil {
		if s.Metrics != nil {
			s.Metrics.CandlesRejected.Inc()
		}
		log.Printf("[api] invalid candle payload for feedKey %s: %v", feedKey, err)
		writeError(w, http.StatusBadRequest, "Invalid candle data")
		return
	}

	sess := s.Registry.Get(feedKey)
	if sess == nil {
		// Keep webhook senders happy even when nothing is listening.
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true, "inactive": true})
		return
	}

	if sess.FeedSecret != "" {
		if !totp.Validate(r.Header.Get("X-Feed-OTP"), sess.FeedSecret) {
			writeError(w, http.StatusUnauthorized, "invalid otp")
			return
		}
	}

	if !sess.Submit(candle) {
		writeError(w, http.StatusServiceUnavailable, "session busy")
		return
	}

	if s.Metrics != nil {
		s.Metrics.CandlesIngested.WithLabelValues(sess.Source).Inc()
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleTickTable resolves tick metadata for the symbol in the path.
func (s *Server) handleTickTable(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}

	symbol := strings.TrimPrefix(r.URL.Path, "/api/ticktable/")
	if symbol == "" || strings.Contains(symbol, "/") {
		writeError(w, http.StatusNotFound, "missing symbol")
		return
	}

	info, ok := s.Ticks.Get(symbol)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown symbol")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
		"sessions":  s.Registry.Len(),
		"wsClients": s.Hub.ClientCount(),
	})
}

// feedKeyFromPath extracts the trailing feedKey from a webhook path.
func feedKeyFromPath(path string) string {
	for _, prefix := range []string{"/api/feed/", "/api/tv-feed/"} {
		if strings.HasPrefix(path, prefix) {
			key := strings.TrimPrefix(path, prefix)
			if key == "" || strings.Contains(key, "/") {
				return ""
			}
			return key
		}
	}
	return ""
}

// toFloat coerces a JSON value to float64. Webhook senders deliver
// prices as numbers or strings depending on their template engine.
func toFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

// candleTime accepts epoch millis (number or numeric string) or an
// RFC3339 timestamp; anything else falls back to now.
func candleTime(v any) time.Time {
	switch t := v.(type) {
	case float64:
		return time.UnixMilli(int64(t))
	case string:
		if ms, err := strconv.ParseInt(t, 10, 64); err == nil {
			return time.UnixMilli(ms)
		}
		if ts, err := time.Parse(time.RFC3339, t); err == nil {
			return ts
		}
	}
	return time.Now()
}
