package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"trading-alertsv1/config"
	"trading-alertsv1/internal/api"
	"trading-alertsv1/internal/enrich"
	"trading-alertsv1/internal/gateway"
	"trading-alertsv1/internal/journal"
	"trading-alertsv1/internal/logger"
	"trading-alertsv1/internal/metrics"
	"trading-alertsv1/internal/session"
	redisstore "trading-alertsv1/internal/store/redis"
	"trading-alertsv1/internal/ticktable"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[alertserver] starting...")

	if err := godotenv.Load(); err == nil {
		log.Println("[alertserver] loaded .env")
	}

	logger.Init("alertserver", slog.LevelInfo)
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- Metrics + health ----
	m := metrics.NewMetrics()
	health := metrics.NewHealthStatus()

	// ---- Optional stores ----
	var jnl *journal.Journal
	if cfg.JournalPath != "" {
		var err error
		jnl, err = journal.Open(cfg.JournalPath)
		if err != nil {
			log.Fatalf("[alertserver] journal: %v", err)
		}
		defer jnl.Close()
	}

	var pub *redisstore.Publisher
	if cfg.RedisAddr != "" {
		var err error
		pub, err = redisstore.New(redisstore.PublisherConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Fatalf("[alertserver] redis: %v", err)
		}
		defer pub.Close()
	}

	// ---- Tick table ----
	ticks, err := ticktable.Load(cfg.TickTablePath)
	if err != nil {
		log.Fatalf("[alertserver] ticktable: %v", err)
	}

	// ---- Enrichment ----
	var enricher api.Enricher
	if cfg.OpenAIAPIKey != "" {
		enricher = enrich.NewClient(enrich.Options{
			APIKey:            cfg.OpenAIAPIKey,
			BaseURL:           cfg.OpenAIBaseURL,
			Model:             cfg.OpenAIModel,
			Timeout:           cfg.EnrichTimeout,
			RequestsPerSecond: cfg.EnrichRPS,
		})
	} else {
		log.Println("[alertserver] OPENAI_API_KEY not set, alerts go out without trade plans")
	}

	// ---- Core pipeline ----
	registry := session.NewRegistry()
	hub := gateway.NewHub()
	hub.OnDrop = func(string) { m.FanoutDrops.Inc() }
	hub.OnCountChange = func(n int) { m.WSClients.Set(float64(n)) }

	sink := api.NewAlertSink(api.SinkDeps{
		Enricher:  enricher,
		Hub:       hub,
		Journal:   jnl,
		Publisher: pub,
		Metrics:   m,
	})

	server := api.NewServer(registry, hub, ticks, m, sink, ctx)

	// ---- Health wiring ----
	health.SessionCount = registry.Len
	health.ClientCount = hub.ClientCount
	if pub != nil || jnl != nil {
		health.StartLivenessChecker(ctx, clientOf(pub), dbOf(jnl), 30*time.Second)
	}

	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- Scheduled maintenance ----
	c := cron.New()
	c.Schedule(cron.Every(time.Minute), cron.FuncJob(func() {
		if evicted := registry.SweepIdle(cfg.SessionIdleTTL); evicted > 0 {
			log.Printf("[alertserver] swept %d idle sessions", evicted)
			m.ActiveSessions.Set(float64(registry.Len()))
		}
	}))
	if jnl != nil {
		c.Schedule(cron.Every(time.Hour), cron.FuncJob(func() {
			if _, err := jnl.Prune(cfg.JournalMaxAge); err != nil {
				log.Printf("[alertserver] journal prune: %v", err)
			}
		}))
	}
	c.Start()

	// ---- HTTP server ----
	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.Router(),
	}
	go func() {
		log.Printf("[alertserver] listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[alertserver] http server: %v", err)
		}
	}()

	// ---- Wait for shutdown signal ----
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Println("[alertserver] shutdown signal received, cleaning up...")

	cancel()
	c.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)

	registry.StopAll()
	log.Println("[alertserver] bye")
}

func clientOf(p *redisstore.Publisher) *goredis.Client {
	if p == nil {
		return nil
	}
	return p.Client()
}

func dbOf(j *journal.Journal) *sql.DB {
	if j == nil {
		return nil
	}
	return j.DB()
}
