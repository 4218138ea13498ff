package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ============================================================================
// Hub
// ============================================================================

// wsFrame is one serialized outbound message and the topic it belongs to.
type wsFrame struct {
	topic topicSet
	msg   []byte
}

type Hub struct {
	logger *slog.Logger

	frames     chan wsFrame
	register   chan *Client
	unregister chan *Client

	mu      sync.Mutex
	clients map[*Client]struct{}

	sendBuf int
}

type HubConfig struct {
	// SendBuf is the per-client outbound queue size. Zero means 32.
	SendBuf int

	// FrameBuf is the hub inbound frame queue size. Zero means 128.
	FrameBuf int
}

func NewHub(logger *slog.Logger, cfg HubConfig) *Hub {
	if cfg.SendBuf <= 0 {
		cfg.SendBuf = 32
	}
	if cfg.FrameBuf <= 0 {
		cfg.FrameBuf = 128
	}
	return &Hub{
		logger:     logger,
		frames:     make(chan wsFrame, cfg.FrameBuf),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		clients:    make(map[*Client]struct{}),
		sendBuf:    cfg.SendBuf,
	}
}

// Run fans frames out to subscribed clients until ctx is canceled, then
// disconnects everyone.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("ws hub starting")
	defer h.logger.Info("ws hub stopped")

	for {
		select {
		case <-ctx.Done():
			h.disconnectAll()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("ws client registered", "remote_addr", c.remoteAddr, "topics", c.subscriptions().names(), "clients", n)

		case c := <-h.unregister:
			h.drop(c, "unregister")

		case f := <-h.frames:
			h.fanOut(f)
		}
	}
}

func (h *Hub) fanOut(f wsFrame) {
	var slow []*Client

	h.mu.Lock()
	for c := range h.clients {
		if c.subscriptions()&f.topic == 0 {
			continue
		}
		if !c.enqueue(f.msg) {
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	// Dropped outside the lock; drop takes it again.
	for _, c := range slow {
		h.drop(c, "slow_client")
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) disconnectAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.drop(c, "shutdown")
	}
}

func (h *Hub) drop(c *Client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	if !ok {
		return
	}

	if c.conn != nil {
		_ = c.conn.Close()
	}
	// writePump exits once send is closed.
	c.closeSend()
	h.logger.Info("ws client disconnected", "remote_addr", c.remoteAddr, "reason", reason, "clients", n)
}

// Publish queues a serialized frame for every client subscribed to topic.
// It never blocks; when the hub queue is full the frame is dropped.
func (h *Hub) Publish(topic topicSet, msg []byte) {
	select {
	case h.frames <- wsFrame{topic: topic, msg: msg}:
	default:
		h.logger.Warn("ws hub frame queue full, dropping frame", "topic", topic.names(), "bytes", len(msg))
	}
}

// ============================================================================
// Client
// ============================================================================

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	inputs chan<- Input

	sendMu sync.Mutex
	send   chan []byte
	closed bool
	topics atomic.Uint32

	remoteAddr string
	logger     *slog.Logger
}

// NewClient creates a client subscribed to topics. Inbound events are queued
// on inputs; a nil inputs makes the client receive-only.
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string, topics topicSet, inputs chan<- Input, logger *slog.Logger) *Client {
	sendBuf := 32
	if hub != nil && hub.sendBuf > 0 {
		sendBuf = hub.sendBuf
	}
	c := &Client{
		hub:        hub,
		conn:       conn,
		inputs:     inputs,
		send:       make(chan []byte, sendBuf),
		remoteAddr: remoteAddr,
		logger:     logger,
	}
	c.topics.Store(uint32(topics))
	return c
}

func (c *Client) subscriptions() topicSet { return topicSet(c.topics.Load()) }

// enqueue hands msg to the write pump without blocking. It reports false
// when the buffer is full or the client is already closed.
func (c *Client) enqueue(msg []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// reply sends a frame to this client only. A full buffer drops it; the hub
// evicts the client on the next broadcast.
func (c *Client) reply(typ string, data any) {
	now := time.Now().UTC()
	msg, err := json.Marshal(envelope{Type: typ, Ts: &now, Data: data})
	if err != nil {
		c.logger.Warn("ws reply marshal failed", "error", err, "type", typ)
		return
	}
	if !c.enqueue(msg) {
		c.logger.Debug("ws reply dropped", "remote_addr", c.remoteAddr, "type", typ)
	}
}

const (
	writeWait      = 5 * time.Second
	pongWait       = 30 * time.Second
	pingPeriod     = 20 * time.Second
	maxInboundSize = 64 << 10
)

func (c *Client) logExit(pump string, err error) {
	if errors.Is(err, websocket.ErrCloseSent) {
		return
	}
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		c.logger.Info("ws "+pump+" exiting (close)", "remote_addr", c.remoteAddr, "code", ce.Code, "reason", ce.Text)
		return
	}
	c.logger.Info("ws "+pump+" exiting", "remote_addr", c.remoteAddr, "error", err)
}

// writePump drains send to the socket and pings on a timer. It exits on a
// write error or when the hub closes send.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logExit("writePump", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logExit("writePump", err)
				return
			}
		}
	}
}

// readPump handles inbound frames until the socket fails, then unregisters
// the client.
func (c *Client) readPump() {
	defer func() {
		if c.hub != nil {
			c.hub.unregister <- c
		}
	}()

	c.conn.SetReadLimit(maxInboundSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			c.logExit("readPump", err)
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.handleInbound(msg)
	}
}

type wsErrorData struct {
	Error string `json:"error"`
}

type wsSubscribeData struct {
	Topics []string `json:"topics"`
}

// handleInbound applies a subscribe request or queues an event for the daemon.
func (c *Client) handleInbound(msg []byte) {
	var head struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(msg, &head); err != nil {
		c.reply("error", wsErrorData{Error: fmt.Sprintf("parse message: %v", err)})
		return
	}

	if head.Type == "subscribe" {
		var req wsSubscribeData
		if err := unmarshalData(head.Data, &req); err != nil {
			c.reply("error", wsErrorData{Error: fmt.Sprintf("parse subscribe: %v", err)})
			return
		}
		topics, err := parseTopics(req.Topics)
		if err != nil {
			c.reply("error", wsErrorData{Error: err.Error()})
			return
		}
		c.topics.Store(uint32(topics))
		c.logger.Debug("ws client subscribed", "remote_addr", c.remoteAddr, "topics", topics.names())
		c.reply("subscribed", wsSubscribeData{Topics: topics.names()})
		return
	}

	if c.inputs == nil {
		c.reply("error", wsErrorData{Error: "events are not accepted on this connection"})
		return
	}
	in, err := DecodeInput(msg)
	if err != nil {
		c.reply("error", wsErrorData{Error: fmt.Sprintf("parse event: %v", err)})
		return
	}
	if err := submitInput(c.inputs, in); err != nil {
		c.reply("error", wsErrorData{Error: err.Error()})
	}
}
