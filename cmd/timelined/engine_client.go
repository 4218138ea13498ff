package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"timelined/ringbuf"
)

const (
	engineDialTimeout   = 2 * time.Second
	engineRetryAttempts = 10
	engineRetryDelay    = 500 * time.Millisecond
)

var errNoEngineConn = errors.New("no engine websocket connection")

// EngineClient manages the websocket connection to the audio engine.
//
// Writes are serialized by mu. ReadLoop is the single reader; gorilla's
// websocket allows one concurrent reader alongside one writer.
type EngineClient struct {
	mu           sync.Mutex
	conn         *websocket.Conn
	url          string
	logger       *slog.Logger
	writeTimeout time.Duration
}

// NewEngineClient validates wsURL and connects with retry.
func NewEngineClient(ctx context.Context, wsURL string, timeoutMS int, logger *slog.Logger) (*EngineClient, error) {
	if _, err := url.Parse(wsURL); err != nil {
		return nil, fmt.Errorf("invalid engine websocket URL: %w", err)
	}
	if timeoutMS <= 0 {
		timeoutMS = defaultReadTimeoutMS
	}

	c := &EngineClient{
		url:          wsURL,
		logger:       logger,
		writeTimeout: time.Duration(timeoutMS) * time.Millisecond,
	}
	if err := c.connectWithRetry(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *EngineClient) connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	d := websocket.Dialer{HandshakeTimeout: engineDialTimeout}
	conn, _, err := d.DialContext(ctx, c.url, nil)
	if err != nil {
		return err
	}
	c.conn = conn
	return nil
}

func (c *EngineClient) connectWithRetry(ctx context.Context) error {
	var lastErr error
	for attempt := 0; attempt < engineRetryAttempts; attempt++ {
		err := c.connect(ctx)
		if err == nil {
			c.logger.Info("connected to audio engine", "url", c.url)
			return nil
		}
		lastErr = err
		c.logger.Warn("engine connection failed; retrying...", "error", err, "attempt", attempt+1)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(engineRetryDelay):
		}
	}
	return fmt.Errorf("failed to connect after %d attempts: %w", engineRetryAttempts, lastErr)
}

func (c *EngineClient) current() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// markBroken drops conn if it is still the active connection.
func (c *EngineClient) markBroken(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == conn {
		c.conn.Close()
		c.conn = nil
	}
}

// Send implements EngineSender. It writes m as one JSON text frame.
func (c *EngineClient) Send(m EngineMessage) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal engine message: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return errNoEngineConn
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// Close closes the connection. ReadLoop exits once its read fails.
func (c *EngineClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	return nil
}

// ReadLoop reads engine reports until ctx is canceled, pushing playback
// positions into positions. A failed read triggers a reconnect.
func (c *EngineClient) ReadLoop(ctx context.Context, positions *ringbuf.SPSC[float64]) error {
	go func() {
		<-ctx.Done()
		c.Close()
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}

		conn := c.current()
		if conn == nil {
			c.logger.Warn("engine connection lost; reconnecting...")
			if err := c.connectWithRetry(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			continue
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Debug("engine read failed", "error", err)
			c.markBroken(conn)
			continue
		}

		pos, ok := parseEnginePosition(msg)
		if !ok {
			c.logger.Debug("ignoring engine message", "message", string(msg))
			continue
		}
		if !positions.Push(pos) {
			c.logger.Debug("position queue full, dropping report", "position", pos)
		}
	}
}

// parseEnginePosition accepts {"type":"position","data":{"position":x}} and
// the bare {"position":x} form.
func parseEnginePosition(msg []byte) (float64, bool) {
	var env struct {
		Type     string   `json:"type"`
		Position *float64 `json:"position"`
		Data     *struct {
			Position *float64 `json:"position"`
		} `json:"data"`
	}
	if err := json.Unmarshal(msg, &env); err != nil {
		return 0, false
	}

	var p *float64
	switch {
	case env.Type == "position" && env.Data != nil:
		p = env.Data.Position
	case env.Type == "" || env.Type == "position":
		p = env.Position
	}
	if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) {
		return 0, false
	}
	return *p, true
}
