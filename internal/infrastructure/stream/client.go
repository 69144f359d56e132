package stream

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	baseReconnectDelay = 1 * time.Second
	maxReconnectDelay  = 30 * time.Second
	pingInterval       = 20 * time.Second
	readTimeout        = 90 * time.Second
)

// Client consumes the market-data feed over a websocket connection. It owns
// session policy (dial, subscribe frame, keepalive, reconnect backoff) and
// hands every raw payload to the message callback in arrival order. The core
// pipeline never sees the connection, only messages and disconnect signals.
type Client struct {
	url       string
	subscribe []byte // optional frame sent after connect
	logger    *zap.Logger

	mu           sync.Mutex
	onMessage    func([]byte)
	onConnect    func()
	onDisconnect func(error)
}

func NewClient(url string, subscribe []byte, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{url: url, subscribe: subscribe, logger: logger}
}

func (c *Client) OnMessage(fn func([]byte)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMessage = fn
}

func (c *Client) OnConnect(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConnect = fn
}

func (c *Client) OnDisconnect(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDisconnect = fn
}

// Run dials and reads until ctx is cancelled, reconnecting with jittered
// exponential backoff. It returns ctx.Err() on cancellation.
func (c *Client) Run(ctx context.Context) error {
	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
		if err != nil {
			delay := reconnectDelay(attempt)
			attempt++
			c.logger.Warn("Stream dial failed",
				zap.String("url", c.url),
				zap.Duration("retry_in", delay),
				zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			continue
		}
		attempt = 0

		c.logger.Info("Stream connected", zap.String("url", c.url))
		c.notifyConnect()

		err = c.readLoop(ctx, conn)
		conn.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.logger.Warn("Stream read loop ended, reconnecting", zap.Error(err))
		c.notifyDisconnect(err)
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	if c.subscribe != nil {
		if err := conn.WriteMessage(websocket.TextMessage, c.subscribe); err != nil {
			return err
		}
	}

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	// Keepalive pings until the read loop returns.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				conn.Close()
				return
			case <-ticker.C:
				deadline := time.Now().Add(5 * time.Second)
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		c.mu.Lock()
		onMessage := c.onMessage
		c.mu.Unlock()
		if onMessage != nil {
			// Synchronous dispatch keeps per-connection ordering.
			onMessage(message)
		}
	}
}

func (c *Client) notifyConnect() {
	c.mu.Lock()
	fn := c.onConnect
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (c *Client) notifyDisconnect(err error) {
	c.mu.Lock()
	fn := c.onDisconnect
	c.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

// reconnectDelay is baseDelay * 2^attempt capped at maxDelay, with up to 20%
// jitter so a fleet of clients does not thunder back in lockstep.
func reconnectDelay(attempt int) time.Duration {
	if attempt > 30 {
		attempt = 30
	}
	delay := baseReconnectDelay * time.Duration(1<<attempt)
	if delay > maxReconnectDelay {
		delay = maxReconnectDelay
	}
	jitter := time.Duration(rand.Int63n(int64(delay) / 5))
	return delay + jitter
}
