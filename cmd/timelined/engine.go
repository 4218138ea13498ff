package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// ============================================================================
// Audio engine bridge
// ============================================================================
// The Controller calls AudioEngineListener methods synchronously on the
// daemon goroutine, so they must not block. engineBridge turns each call into
// an EngineMessage and queues it without blocking; runEngineWorker performs
// the I/O on its own goroutine, in queue order.
// ============================================================================

// EngineMessage is one engine-facing fact, sent as a JSON text frame.
type EngineMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

func (m EngineMessage) String() string {
	if m.Data == nil {
		return m.Type + "()"
	}
	return fmt.Sprintf("%s(%+v)", m.Type, m.Data)
}

type enginePosition struct {
	Position float64 `json:"position"`
}

type engineTempo struct {
	BPM float64 `json:"bpm"`
}

type engineTimeSignature struct {
	Numerator   int `json:"numerator"`
	Denominator int `json:"denominator"`
}

type engineLoopRegion struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Enabled bool    `json:"enabled"`
}

type engineEnabled struct {
	Enabled bool `json:"enabled"`
}

type enginePunchRegion struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	InEnabled  bool    `json:"in_enabled"`
	OutEnabled bool    `json:"out_enabled"`
}

type enginePunchEnabled struct {
	InEnabled  bool `json:"in_enabled"`
	OutEnabled bool `json:"out_enabled"`
}

// engineBridge implements timeline.AudioEngineListener and timeline.PunchListener.
type engineBridge struct {
	queue   chan EngineMessage
	dropped atomic.Uint64
	logger  *slog.Logger
}

func newEngineBridge(size int, logger *slog.Logger) *engineBridge {
	if size <= 0 {
		size = defaultEngineQueue
	}
	return &engineBridge{queue: make(chan EngineMessage, size), logger: logger}
}

// push enqueues m without blocking; when the queue is full m is dropped.
func (b *engineBridge) push(m EngineMessage) {
	select {
	case b.queue <- m:
	default:
		n := b.dropped.Add(1)
		b.logger.Warn("engine queue full, dropping message", "type", m.Type, "dropped", n)
	}
}

// Dropped returns how many messages were discarded because the queue was full.
func (b *engineBridge) Dropped() uint64 { return b.dropped.Load() }

func (b *engineBridge) OnTransportPlay(position float64) {
	b.push(EngineMessage{Type: "transport_play", Data: enginePosition{Position: position}})
}

func (b *engineBridge) OnTransportStop(returnPosition float64) {
	b.push(EngineMessage{Type: "transport_stop", Data: enginePosition{Position: returnPosition}})
}

func (b *engineBridge) OnTransportPause() {
	b.push(EngineMessage{Type: "transport_pause"})
}

func (b *engineBridge) OnTransportRecord(position float64) {
	b.push(EngineMessage{Type: "transport_record", Data: enginePosition{Position: position}})
}

func (b *engineBridge) OnEditPositionChanged(position float64) {
	b.push(EngineMessage{Type: "edit_position_changed", Data: enginePosition{Position: position}})
}

func (b *engineBridge) OnTempoChanged(bpm float64) {
	b.push(EngineMessage{Type: "tempo_changed", Data: engineTempo{BPM: bpm}})
}

func (b *engineBridge) OnTimeSignatureChanged(numerator, denominator int) {
	b.push(EngineMessage{Type: "time_signature_changed", Data: engineTimeSignature{Numerator: numerator, Denominator: denominator}})
}

func (b *engineBridge) OnLoopRegionChanged(start, end float64, enabled bool) {
	b.push(EngineMessage{Type: "loop_region_changed", Data: engineLoopRegion{Start: start, End: end, Enabled: enabled}})
}

func (b *engineBridge) OnLoopEnabledChanged(enabled bool) {
	b.push(EngineMessage{Type: "loop_enabled_changed", Data: engineEnabled{Enabled: enabled}})
}

func (b *engineBridge) OnPunchRegionChanged(start, end float64, inEnabled, outEnabled bool) {
	b.push(EngineMessage{Type: "punch_region_changed", Data: enginePunchRegion{Start: start, End: end, InEnabled: inEnabled, OutEnabled: outEnabled}})
}

func (b *engineBridge) OnPunchEnabledChanged(inEnabled, outEnabled bool) {
	b.push(EngineMessage{Type: "punch_enabled_changed", Data: enginePunchEnabled{InEnabled: inEnabled, OutEnabled: outEnabled}})
}

// EngineSender delivers engine messages. It allows mocking in tests.
type EngineSender interface {
	Send(m EngineMessage) error
}

// runEngineWorker sends queued messages until ctx is canceled. With a nil
// sender (no engine configured) messages are only logged.
func runEngineWorker(ctx context.Context, queue <-chan EngineMessage, sender EngineSender, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			logger.Debug("engine worker stopping (context canceled)")
			return

		case m, ok := <-queue:
			if !ok {
				return
			}
			if sender == nil {
				logger.Debug("engine message (no engine configured)", "message", m.String())
				continue
			}
			if err := sender.Send(m); err != nil {
				logger.Error("engine send failed", "error", err, "type", m.Type)
				continue
			}
			logger.Debug("engine message sent", "message", m.String())
		}
	}
}
