// Package session owns the per-feedKey detection sessions and their
// registry. Candle processing for one feedKey is strictly serialized
// through a single worker goroutine; different feedKeys are fully
// independent. Alert enrichment and fan-out are handed off per alert and
// never block ingestion.
package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"trading-alertsv1/internal/adapter"
	"trading-alertsv1/internal/model"
)

const submitBuffer = 256

// AlertSink consumes detected alerts asynchronously (enrich + fan-out).
type AlertSink func(feedKey string, alert model.Alert)

// Config describes a new detection session.
type Config struct {
	FeedKey   string
	Symbol    string
	Timeframe string
	Source    string
	Patterns  model.PatternConfig

	// FeedSecret, when set, is the TOTP secret bridge pushes must prove
	// possession of via the X-Feed-OTP header.
	FeedSecret string

	// Streaming credentials, passed through to socket adapters.
	APIKey    string
	APISecret string
	Paper     bool
	StreamURL string

	// OnAlert is invoked in its own goroutine for every detected alert.
	OnAlert AlertSink

	// OnDrop, if set, is called when a submitted candle is dropped
	// because the session worker is saturated.
	OnDrop func(feedKey string)
}

// Session is one running detection pipeline: adapter + window +
// detectors + the feedKey that routes pushes and subscribers to it.
type Session struct {
	FeedKey    string
	Symbol     string
	Timeframe  string
	Source     string
	Patterns   model.PatternConfig
	FeedSecret string

	adapter   adapter.Adapter
	submit    chan model.Candle
	snapshots chan chan []model.Candle
	quit      chan struct{}
	stopOnce  sync.Once
	onDrop    func(string)

	lastActivity atomic.Int64 // unix nanos
}

// New builds the session and its adapter and launches the worker. The
// adapter's feed is not started; call Start for socket sources.
func New(cfg Config) (*Session, error) {
	s := &Session{
		FeedKey:    cfg.FeedKey,
		Symbol:     cfg.Symbol,
		Timeframe:  cfg.Timeframe,
		Source:     cfg.Source,
		Patterns:   cfg.Patterns,
		FeedSecret: cfg.FeedSecret,
		submit:     make(chan model.Candle, submitBuffer),
		snapshots:  make(chan chan []model.Candle),
		quit:       make(chan struct{}),
		onDrop:     cfg.OnDrop,
	}
	s.touch()

	a, err := adapter.New(cfg.Source, adapter.Options{
		Symbol:    cfg.Symbol,
		Timeframe: cfg.Timeframe,
		Patterns:  cfg.Patterns,
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		Paper:     cfg.Paper,
		StreamURL: cfg.StreamURL,
		// Stream read loops queue through the worker like webhook
		// pushes do, so every candle path crosses the single owner.
		Ingest: s.Submit,
		OnAlert: func(alert model.Alert) {
			if cfg.OnAlert == nil {
				return
			}
			// Detached per alert: the next candle's push/detect pass
			// must not wait on enrichment or slow subscribers.
			go cfg.OnAlert(cfg.FeedKey, alert)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", cfg.FeedKey, err)
	}
	s.adapter = a

	go s.run()
	return s, nil
}

// Start establishes the adapter's feed (no-op for passive sources).
func (s *Session) Start(ctx context.Context) error {
	return s.adapter.Start(ctx)
}

// Submit queues a pushed candle for ordered processing. Returns false
// when the worker is saturated and the candle was dropped.
func (s *Session) Submit(c model.Candle) bool {
	select {
	case <-s.quit:
		return false
	default:
	}

	s.touch()
	select {
	case s.submit <- c:
		return true
	default:
		if s.onDrop != nil {
			s.onDrop(s.FeedKey)
		} else {
			log.Printf("[session] %s worker saturated, dropping candle", s.FeedKey)
		}
		return false
	}
}

// Candles returns a copy of the session's current window, serialized
// through the worker so it never observes a half-updated buffer.
func (s *Session) Candles() []model.Candle {
	select {
	case <-s.quit:
		return nil
	default:
	}

	req := make(chan []model.Candle, 1)
	select {
	case s.snapshots <- req:
		return <-req
	case <-s.quit:
		return nil
	}
}

// Stop tears the session down. It signals the worker and closes the
// adapter's external feed; the worker clears the buffered window on its
// way out, so teardown never races a candle being processed. Safe to
// call more than once and from any goroutine.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
		s.adapter.Stop()
	})
}

// IdleFor reports how long ago the session last saw a push.
func (s *Session) IdleFor() time.Duration {
	return time.Since(time.Unix(0, s.lastActivity.Load()))
}

func (s *Session) touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

// run is the single worker: one candle fully processed (window mutation
// plus detector pass) before the next is taken. The worker is the only
// goroutine that ever touches the adapter's window, including at
// teardown.
func (s *Session) run() {
	for {
		select {
		case <-s.quit:
			resetOf(s.adapter)
			return
		case c := <-s.submit:
			s.adapter.HandleIncomingCandle(c)
		case req := <-s.snapshots:
			req <- snapshotOf(s.adapter)
		}
	}
}

func snapshotOf(a adapter.Adapter) []model.Candle {
	if v, ok := a.(interface{ Candles() []model.Candle }); ok {
		return v.Candles()
	}
	return nil
}

func resetOf(a adapter.Adapter) {
	if v, ok := a.(interface{ Reset() }); ok {
		v.Reset()
	}
}
