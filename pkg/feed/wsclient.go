// Package feed connects to the upstream market-data WebSocket and hands raw
// messages to a handler.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"marketwatcher/config"
	"marketwatcher/internal/memorystore"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSClient handles the WebSocket connection to the feed and message routing.
type WSClient struct {
	url            string
	timeout        time.Duration
	reconnectDelay time.Duration
	args           []string

	mu   sync.Mutex
	conn *websocket.Conn

	handler     func([]byte)
	onReady     func()
	instruments *memorystore.InstrumentStore
	logger      *zap.Logger
}

// NewWSClient creates a WebSocket client subscribing to every instrument in store.
func NewWSClient(cfg config.FeedConfig, store *memorystore.InstrumentStore, logger *zap.Logger) *WSClient {
	delay := cfg.ReconnectDelay
	if delay <= 0 {
		delay = 3 * time.Second
	}
	return &WSClient{
		url:            cfg.URL,
		timeout:        cfg.Timeout,
		reconnectDelay: delay,
		instruments:    store,
		logger:         logger,
	}
}

// SetMessageHandler sets the function to handle incoming messages.
func (c *WSClient) SetMessageHandler(h func([]byte)) {
	c.handler = h
}

// SetReadyHandler sets the function called after every successful subscribe,
// including the ones that follow a reconnect.
func (c *WSClient) SetReadyHandler(h func()) {
	c.onReady = h
}

// Connect establishes the WebSocket connection and subscribes to the depth
// topics of all instruments. It does not start the listener.
func (c *WSClient) Connect(ctx context.Context) error {
	if err := c.dialAndSubscribe(ctx); err != nil {
		c.logger.Error("Failed to connect to WebSocket", zap.String("url", c.url), zap.Error(err))
		return err
	}
	c.logger.Info("WebSocket connected", zap.String("url", c.url), zap.Int("topics", len(c.args)))
	return nil
}

// Listen reads messages until ctx is cancelled, reconnecting after read errors.
func (c *WSClient) Listen(ctx context.Context) {
	go func() {
		<-ctx.Done()
		c.closeConn()
	}()

	for {
		if ctx.Err() != nil {
			return
		}
		conn := c.current()
		if conn == nil {
			if !c.reconnect(ctx) {
				return
			}
			continue
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("WebSocket read error", zap.Error(err))
			if !c.reconnect(ctx) {
				return
			}
			continue
		}

		if c.handler != nil {
			c.handler(msg)
		}
	}
}

// reconnect retries until it succeeds or ctx is cancelled.
func (c *WSClient) reconnect(ctx context.Context) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(c.reconnectDelay):
		}

		if err := c.dialAndSubscribe(ctx); err != nil {
			c.logger.Warn("Retrying reconnect...", zap.Error(err))
			continue
		}
		c.logger.Info("Reconnected successfully")
		return true
	}
}

func (c *WSClient) dialAndSubscribe(ctx context.Context) error {
	dialer := *websocket.DefaultDialer
	if c.timeout > 0 {
		dialer.HandshakeTimeout = c.timeout
	}

	newConn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return err
	}

	// Regenerate subscription topics based on current instruments
	c.args = c.instruments.Topics()
	if len(c.args) == 0 {
		_ = newConn.Close()
		return errors.New("no instruments to subscribe")
	}

	subMsg := map[string]interface{}{
		"op":   "subscribe",
		"args": c.args,
	}
	if err := newConn.WriteJSON(subMsg); err != nil {
		_ = newConn.Close()
		return fmt.Errorf("websocket subscribe failed: %w", err)
	}

	c.mu.Lock()
	// Listen's closer may already have run; never install a conn after it.
	if ctx.Err() != nil {
		c.mu.Unlock()
		_ = newConn.Close()
		return ctx.Err()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = newConn
	c.mu.Unlock()

	if c.onReady != nil {
		c.onReady()
	}
	return nil
}

func (c *WSClient) current() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *WSClient) closeConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}
