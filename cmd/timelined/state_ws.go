package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"timelined/timeline"
)

// ============================================================================
// State WebSocket
// ============================================================================
//
// Outbound: every frame is {type, ts, data} and belongs to one topic. A
// client receives only the topics it subscribed to (all of them by default).
//
// Inbound: a client may send
//   - {"type":"subscribe","data":{"topics":["state","clips"]}}
//   - any event envelope accepted over IPC, which is queued for the daemon
//
// The Controller stays daemon-owned: snapshots and events go through the
// daemon input channel. Slow clients are dropped when their send buffer
// fills. Playhead-only updates are coalesced per playheadCoalesceWindow.
//
// ============================================================================

// wsStateChangedData is the JSON `data` payload for "state_changed".
type wsStateChangedData struct {
	Changes   []string       `json:"changes"`
	State     timeline.State `json:"state"`
	UndoDepth int            `json:"undo_depth"`
	RedoDepth int            `json:"redo_depth"`
}

// wsNotePreviewData is the JSON `data` payload for "note_preview".
type wsNotePreviewData struct {
	Channel   uint8 `json:"channel"`
	Key       uint8 `json:"key"`
	Velocity  uint8 `json:"velocity"`
	On        bool  `json:"on"`
	Recording bool  `json:"recording"`
}

// wsOutboundEvent is a pre-typed, externally-consumable state event.
type wsOutboundEvent struct {
	Type string
	Data any
	At   time.Time // zero means now
}

// envelope is the wire format envelope for WS messages.
type envelope struct {
	Type string     `json:"type"`
	Ts   *time.Time `json:"ts,omitempty"`
	Data any        `json:"data,omitempty"`
}

// playheadCoalesceWindow bounds how often playhead-only changes are sent.
const playheadCoalesceWindow = 50 * time.Millisecond

// ============================================================================
// Topics
// ============================================================================

// topicSet is a bitmask of frame topics.
type topicSet uint32

const (
	topicState topicSet = 1 << iota
	topicPlayhead
	topicClips
	topicNotes

	allTopics = topicState | topicPlayhead | topicClips | topicNotes
)

var topicNames = []struct {
	name string
	bit  topicSet
}{
	{"state", topicState},
	{"playhead", topicPlayhead},
	{"clips", topicClips},
	{"notes", topicNotes},
}

// parseTopics reads topic names. An empty list selects every topic.
func parseTopics(names []string) (topicSet, error) {
	var set topicSet
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		found := false
		for _, t := range topicNames {
			if t.name == n {
				set |= t.bit
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown topic %q", n)
		}
	}
	if set == 0 {
		set = allTopics
	}
	return set, nil
}

func (s topicSet) names() []string {
	var out []string
	for _, t := range topicNames {
		if s&t.bit != 0 {
			out = append(out, t.name)
		}
	}
	return out
}

// topicFor maps an outbound frame type to its topic.
func topicFor(frameType string) topicSet {
	switch frameType {
	case "playhead_changed":
		return topicPlayhead
	case "clip_changed":
		return topicClips
	case "note_preview":
		return topicNotes
	default:
		return topicState
	}
}

// ============================================================================
// HTTP handler
// ============================================================================

type Server struct {
	logger *slog.Logger
	hub    *Hub

	// Snapshots and inbound events go through the daemon loop.
	inputs chan<- Input

	readOnly bool
}

type ServerConfig struct {
	Hub HubConfig

	// ReadOnly rejects inbound events; subscribe requests still work.
	ReadOnly bool
}

// NewServer constructs the WS state server components. Register it on a mux,
// then start hub.Run(ctx) and RunBroadcaster.
func NewServer(logger *slog.Logger, inputs chan<- Input, cfg ServerConfig) *Server {
	return &Server{
		logger:   logger,
		hub:      NewHub(logger, cfg.Hub),
		inputs:   inputs,
		readOnly: cfg.ReadOnly,
	}
}

func (s *Server) Hub() *Hub { return s.hub }

// Register registers the WS handler on the provided mux.
func (s *Server) Register(mux *http.ServeMux, path string) {
	if mux == nil {
		return
	}
	mux.HandleFunc(path, s.handleStateWS)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleStateWS upgrades and registers a client, then sends state_init.
// The optional ?topics=state,clips query narrows the initial subscription.
func (s *Server) handleStateWS(w http.ResponseWriter, r *http.Request) {
	var names []string
	if q := r.URL.Query().Get("topics"); q != "" {
		names = strings.Split(q, ",")
	}
	topics, err := parseTopics(names)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", "error", err)
		return
	}

	inputs := s.inputs
	if s.readOnly {
		inputs = nil
	}
	client := NewClient(s.hub, conn, r.RemoteAddr, topics, inputs, s.logger)

	// Register first so no broadcast after the snapshot is missed.
	s.hub.register <- client

	// net/http cancels r.Context() when the handler returns; the pumps end
	// on socket errors or hub shutdown instead.
	go client.writePump()
	go client.readPump()

	if topics&topicState == 0 {
		return
	}
	snap, err := requestSnapshot(r.Context(), s.inputs, time.Second)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Warn("ws snapshot request failed", "error", err)
		}
		return
	}
	client.reply("state_init", snap)
}

// requestSnapshot asks the daemon loop for a snapshot and waits up to timeout
// unless ctx carries its own deadline.
func requestSnapshot(ctx context.Context, inputs chan<- Input, timeout time.Duration) (StateSnapshot, error) {
	if inputs == nil {
		return StateSnapshot{}, errors.New("no daemon input channel")
	}
	if _, has := ctx.Deadline(); !has {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	reply := make(chan StateSnapshot, 1)
	select {
	case <-ctx.Done():
		return StateSnapshot{}, ctx.Err()
	case inputs <- RequestStateSnapshot{Reply: reply}:
	}

	select {
	case <-ctx.Done():
		return StateSnapshot{}, ctx.Err()
	case snap := <-reply:
		return snap, nil
	}
}

// ============================================================================
// Broadcaster
// ============================================================================

// RunBroadcaster reads StateBroadcasts, marshals them, and broadcasts them to
// all hub clients. Intended to run as a single goroutine.
func RunBroadcaster(ctx context.Context, hub *Hub, src <-chan StateBroadcast, logger *slog.Logger) {
	if hub == nil || src == nil {
		return
	}

	// Playhead updates flush at most once per window, even while they keep
	// arriving (rate limit, not debounce-on-silence).
	var pending *wsOutboundEvent
	var timer *time.Timer
	var timerCh <-chan time.Time

	emit := func(ev wsOutboundEvent) {
		ts := ev.At
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		msg, err := json.Marshal(envelope{Type: ev.Type, Ts: &ts, Data: ev.Data})
		if err != nil {
			logger.Warn("ws broadcaster marshal failed", "error", err, "type", ev.Type)
			return
		}
		hub.Publish(topicFor(ev.Type), msg)
	}

	flushPending := func() {
		if pending == nil {
			return
		}
		emit(*pending)
		pending = nil
	}

	stopTimer := func() {
		if timer != nil && !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer = nil
		timerCh = nil
	}

	for {
		select {
		case <-ctx.Done():
			flushPending()
			stopTimer()
			return

		case <-timerCh:
			flushPending()
			// The window has elapsed; the next update starts a new one.
			stopTimer()

		case b, ok := <-src:
			if !ok {
				flushPending()
				stopTimer()
				logger.Info("ws broadcaster stopping (source ended)")
				return
			}

			ev, ok := convertBroadcast(b)
			if !ok {
				continue
			}

			if ev.Type == "playhead_changed" {
				copyEv := ev
				pending = &copyEv
				if timer == nil {
					timer = time.NewTimer(playheadCoalesceWindow)
					timerCh = timer.C
				}
				continue
			}

			// Anything else flushes the pending playhead first to keep ordering.
			flushPending()
			stopTimer()
			emit(ev)
		}
	}
}

func convertBroadcast(b StateBroadcast) (wsOutboundEvent, bool) {
	switch ev := b.(type) {
	case BroadcastStateChanged:
		return wsOutboundEvent{
			Type: "state_changed",
			Data: wsStateChangedData{
				Changes:   ev.Changes.Names(),
				State:     ev.State,
				UndoDepth: ev.UndoDepth,
				RedoDepth: ev.RedoDepth,
			},
			At: ev.At,
		}, true

	case BroadcastPlayheadChanged:
		return wsOutboundEvent{Type: "playhead_changed", Data: ev.Playhead, At: ev.At}, true

	case BroadcastClipChanged:
		return wsOutboundEvent{Type: "clip_changed", Data: ev.Clip, At: ev.At}, true

	case BroadcastNotePreview:
		return wsOutboundEvent{
			Type: "note_preview",
			Data: wsNotePreviewData{
				Channel:   ev.Channel,
				Key:       ev.Key,
				Velocity:  ev.Velocity,
				On:        ev.On,
				Recording: ev.Recording,
			},
			At: ev.At,
		}, true

	default:
		return wsOutboundEvent{}, false
	}
}
