package main

import (
	"log/slog"
	"time"

	"timelined/timeline"
)

// StateBroadcast is an externally consumable fact about the daemon state.
// Broadcasts originate on the daemon goroutine and are fanned out to
// websocket clients by RunBroadcaster.
type StateBroadcast interface {
	broadcastMarker()
}

// BroadcastStateChanged carries a committed timeline state and the flags that changed.
type BroadcastStateChanged struct {
	Changes   timeline.ChangeFlags
	State     timeline.State
	UndoDepth int
	RedoDepth int
	At        time.Time
}

// BroadcastPlayheadChanged is a playhead-only change. These are coalesced.
type BroadcastPlayheadChanged struct {
	Playhead timeline.PlayheadState
	At       time.Time
}

// BroadcastClipChanged is sent when a clip was re-synced to a new tempo.
type BroadcastClipChanged struct {
	Clip timeline.Clip
	At   time.Time
}

// BroadcastNotePreview is a MIDI note from the control surface.
type BroadcastNotePreview struct {
	Channel   uint8
	Key       uint8
	Velocity  uint8
	On        bool
	Recording bool
	At        time.Time
}

func (BroadcastStateChanged) broadcastMarker()    {}
func (BroadcastPlayheadChanged) broadcastMarker() {}
func (BroadcastClipChanged) broadcastMarker()     {}
func (BroadcastNotePreview) broadcastMarker()     {}

// broadcastQueue is a non-blocking sink for StateBroadcasts.
type broadcastQueue struct {
	ch     chan StateBroadcast
	logger *slog.Logger
}

func newBroadcastQueue(size int, logger *slog.Logger) *broadcastQueue {
	if size <= 0 {
		size = 128
	}
	return &broadcastQueue{ch: make(chan StateBroadcast, size), logger: logger}
}

// Publish enqueues b. It never blocks the daemon goroutine; when the queue is
// full the broadcast is dropped.
func (q *broadcastQueue) Publish(b StateBroadcast) {
	if q == nil {
		return
	}
	select {
	case q.ch <- b:
	default:
		q.logger.Warn("broadcast queue full, dropping broadcast", "type", broadcastType(b))
	}
}

// C returns the receive side for RunBroadcaster.
func (q *broadcastQueue) C() <-chan StateBroadcast { return q.ch }

// stateBroadcaster is the timeline.StateListener that feeds websocket clients.
type stateBroadcaster struct {
	out    *broadcastQueue
	depths func() (undo, redo int)
}

// TimelineStateChanged implements timeline.StateListener.
func (b *stateBroadcaster) TimelineStateChanged(s timeline.State, changes timeline.ChangeFlags) {
	now := time.Now().UTC()
	if changes == timeline.ChangePlayhead {
		b.out.Publish(BroadcastPlayheadChanged{Playhead: s.Playhead, At: now})
		return
	}
	var undo, redo int
	if b.depths != nil {
		undo, redo = b.depths()
	}
	b.out.Publish(BroadcastStateChanged{
		Changes:   changes,
		State:     s,
		UndoDepth: undo,
		RedoDepth: redo,
		At:        now,
	})
}

func broadcastType(b StateBroadcast) string {
	if ev, ok := convertBroadcast(b); ok {
		return ev.Type
	}
	return "unknown"
}
