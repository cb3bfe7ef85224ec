// Package redis forwards accepted ticks to Redis pub/sub channels.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"marketwatcher/config"
	"marketwatcher/internal/memorystore"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Publisher pushes each accepted tick as JSON on "<prefix>.<instrument>".
// Publish never blocks: when the queue is full the tick is dropped and counted.
type Publisher struct {
	rdb     *redis.Client
	prefix  string
	queue   chan memorystore.Tick
	dropped atomic.Uint64
	logger  *zap.Logger

	publish func(ctx context.Context, channel string, payload []byte) error
}

// New creates a Publisher and pings the server to verify connectivity.
func New(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*Publisher, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	p := newPublisher(cfg, logger)
	p.rdb = rdb
	p.publish = func(ctx context.Context, channel string, payload []byte) error {
		return rdb.Publish(ctx, channel, payload).Err()
	}
	return p, nil
}

func newPublisher(cfg config.RedisConfig, logger *zap.Logger) *Publisher {
	size := cfg.QueueSize
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		prefix: cfg.ChannelPrefix,
		queue:  make(chan memorystore.Tick, size),
		logger: logger,
	}
}

// Publish enqueues t for delivery. It returns false when the tick was dropped.
func (p *Publisher) Publish(t memorystore.Tick) bool {
	select {
	case p.queue <- t:
		return true
	default:
		p.dropped.Add(1)
		return false
	}
}

// Dropped returns how many ticks were discarded because the queue was full.
func (p *Publisher) Dropped() uint64 {
	return p.dropped.Load()
}

// Channel returns the pub/sub channel for an instrument.
func (p *Publisher) Channel(instrumentID string) string {
	if p.prefix == "" {
		return instrumentID
	}
	return p.prefix + "." + instrumentID
}

// Run delivers queued ticks until ctx is cancelled. Delivery failures are
// logged and the tick is discarded.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-p.queue:
			payload, err := json.Marshal(t)
			if err != nil {
				p.logger.Warn("Failed to encode tick", zap.String("instrument", t.InstrumentID), zap.Error(err))
				continue
			}
			channel := p.Channel(t.InstrumentID)
			if err := p.publish(ctx, channel, payload); err != nil {
				p.logger.Warn("Failed to publish tick", zap.String("channel", channel), zap.Error(err))
			}
		}
	}
}

func (p *Publisher) Close() error {
	if p.rdb == nil {
		return nil
	}
	return p.rdb.Close()
}
