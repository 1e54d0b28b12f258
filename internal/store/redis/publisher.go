// Package redis mirrors delivered alert payloads to Redis pub/sub so
// out-of-process consumers (bots, recorders) can subscribe without
// holding a WebSocket. Mirroring is optional and best-effort.
package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// PublisherConfig configures the alert mirror.
type PublisherConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Publisher publishes alert payloads to per-feedKey channels.
type Publisher struct {
	client *goredis.Client
}

// Client returns the underlying Redis client for health checks.
func (p *Publisher) Client() *goredis.Client { return p.client }

// New creates a Publisher and pings the server.
func New(cfg PublisherConfig) (*Publisher, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Publisher{client: client}, nil
}

// ChannelFor returns the pub/sub channel name for a feedKey.
func ChannelFor(feedKey string) string {
	return "pub:alert:" + feedKey
}

// PublishAlert mirrors one delivered alert payload. Errors are logged
// and swallowed; the WebSocket path is the source of truth.
func (p *Publisher) PublishAlert(ctx context.Context, feedKey string, payload []byte) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := p.client.Publish(ctx, ChannelFor(feedKey), payload).Err(); err != nil {
		log.Printf("[redis] publish alert for feedKey %s: %v", feedKey, err)
	}
}

// Close releases the client.
func (p *Publisher) Close() error {
	return p.client.Close()
}
