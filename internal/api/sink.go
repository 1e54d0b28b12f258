package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"trading-alertsv1/internal/gateway"
	"trading-alertsv1/internal/journal"
	"trading-alertsv1/internal/logger"
	"trading-alertsv1/internal/metrics"
	"trading-alertsv1/internal/model"
	"trading-alertsv1/internal/session"
	redisstore "trading-alertsv1/internal/store/redis"
)

// alertPayload is the wire shape pushed to WebSocket subscribers.
type alertPayload struct {
	Type      string           `json:"type"`
	FeedKey   string           `json:"feedKey"`
	Symbol    string           `json:"symbol"`
	Timeframe string           `json:"timeframe"`
	Pattern   string           `json:"pattern"`
	Direction string           `json:"direction"`
	Plan      *model.TradePlan `json:"plan"`
}

// SinkDeps are the collaborators an alert passes through on its way to
// subscribers. Journal and Publisher may be nil (features off).
type SinkDeps struct {
	Enricher  Enricher
	Hub       *gateway.Hub
	Journal   *journal.Journal
	Publisher *redisstore.Publisher
	Metrics   *metrics.Metrics
}

// NewAlertSink builds the per-alert pipeline: enrich, broadcast to the
// feedKey's subscribers, then mirror to the optional stores. The sink
// runs in its own goroutine per alert; a failed enrichment drops the
// alert.
func NewAlertSink(deps SinkDeps) session.AlertSink {
	return func(feedKey string, alert model.Alert) {
		ctx := logger.WithTraceID(context.Background(), logger.GenerateTraceID(feedKey, time.Now()))

		if deps.Metrics != nil {
			deps.Metrics.AlertsDetected.WithLabelValues(alert.Pattern).Inc()
		}

		var plan *model.TradePlan
		if deps.Enricher != nil {
			start := time.Now()
			var err error
			plan, err = deps.Enricher.BuildTradePlan(ctx, alert)
			if deps.Metrics != nil {
				deps.Metrics.EnrichDur.Observe(time.Since(start).Seconds())
			}
			if err != nil {
				if deps.Metrics != nil {
					deps.Metrics.AlertsDropped.WithLabelValues("enrich").Inc()
				}
				slog.Error("alert enrichment failed, dropping alert",
					append(logger.LogWithTrace(ctx), "feed_key", feedKey, "pattern", alert.Pattern, "error", err)...)
				return
			}
		}

		direction := string(alert.Direction)
		if plan != nil && plan.Direction != "" {
			direction = plan.Direction
		}

		payload, err := json.Marshal(alertPayload{
			Type:      "live_alert",
			FeedKey:   feedKey,
			Symbol:    alert.Symbol,
			Timeframe: alert.Timeframe,
			Pattern:   alert.Pattern,
			Direction: direction,
			Plan:      plan,
		})
		if err != nil {
			slog.Error("alert payload marshal failed",
				append(logger.LogWithTrace(ctx), "feed_key", feedKey, "error", err)...)
			return
		}

		delivered := deps.Hub.BroadcastAlert(feedKey, payload)
		slog.Info("alert broadcast",
			append(logger.LogWithTrace(ctx), "feed_key", feedKey, "pattern", alert.Pattern, "subscribers", delivered)...)
		if deps.Metrics != nil {
			if delivered > 0 {
				deps.Metrics.AlertsDelivered.Inc()
			} else {
				deps.Metrics.AlertsDropped.WithLabelValues("no_subscribers").Inc()
			}
		}

		if deps.Journal != nil {
			if err := deps.Journal.Append(feedKey, alert, plan); err != nil {
				slog.Error("alert journal append failed",
					append(logger.LogWithTrace(ctx), "feed_key", feedKey, "error", err)...)
			}
		}
		if deps.Publisher != nil {
			deps.Publisher.PublishAlert(ctx, feedKey, payload)
		}
	}
}
