package main

import (
	"log/slog"

	"gitlab.com/gomidi/midi/v2"

	"timelined/ringbuf"
)

// midiNoteEvent is a note on/off from the control surface. It crosses the
// SPSC note queue from the MIDI reader to the daemon loop.
type midiNoteEvent struct {
	Channel  uint8
	Key      uint8
	Velocity uint8
	On       bool
}

// midiParser frames a raw MIDI byte stream into messages. It handles running
// status, realtime bytes interleaved anywhere and skips system exclusive data.
type midiParser struct {
	status  byte
	need    int
	data    []byte
	inSysex bool
}

// Feed consumes one byte and returns a message when one is complete.
func (p *midiParser) Feed(b byte) (midi.Message, bool) {
	switch {
	case b >= 0xF8:
		// Realtime: single byte, leaves running status untouched.
		return midi.Message{b}, true

	case b == 0xF0:
		p.inSysex = true
		p.status = 0
		return nil, false

	case b == 0xF7:
		p.inSysex = false
		return nil, false

	case b >= 0xF0:
		// System common cancels running status.
		p.inSysex = false
		p.data = p.data[:0]
		switch b {
		case 0xF1, 0xF3:
			p.status, p.need = b, 1
		case 0xF2:
			p.status, p.need = b, 2
		case 0xF6:
			p.status = 0
			return midi.Message{b}, true
		default:
			p.status = 0
		}
		return nil, false

	case b >= 0x80:
		p.inSysex = false
		p.status = b
		p.data = p.data[:0]
		p.need = 2
		if hi := b & 0xF0; hi == 0xC0 || hi == 0xD0 {
			p.need = 1
		}
		return nil, false
	}

	// Data byte.
	if p.inSysex || p.status == 0 {
		return nil, false
	}
	p.data = append(p.data, b)
	if len(p.data) < p.need {
		return nil, false
	}

	msg := make(midi.Message, 0, 1+len(p.data))
	msg = append(msg, p.status)
	msg = append(msg, p.data...)
	p.data = p.data[:0]
	if p.status >= 0xF0 {
		p.status = 0
	}
	return msg, true
}

// midiHandler routes framed messages: realtime transport to the daemon
// inputs, notes on the configured channel to the note queue.
type midiHandler struct {
	// channel is 1-16; 0 accepts every channel.
	channel int
	inputs  chan<- Input
	notes   *ringbuf.SPSC[midiNoteEvent]
	logger  *slog.Logger
}

func (h *midiHandler) handle(msg midi.Message) {
	var kind MIDIRealtimeKind
	switch {
	case msg.Is(midi.StartMsg):
		kind = MIDIStart
	case msg.Is(midi.ContinueMsg):
		kind = MIDIContinue
	case msg.Is(midi.StopMsg):
		kind = MIDIStop
	}
	if kind != 0 {
		if err := submitInput(h.inputs, MIDIRealtime{Kind: kind}); err != nil {
			h.logger.Warn("dropping MIDI realtime message", "kind", kind.String(), "error", err)
		}
		return
	}

	var ch, key, vel uint8
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		h.note(midiNoteEvent{Channel: ch, Key: key, Velocity: vel, On: true})
	case msg.GetNoteEnd(&ch, &key):
		h.note(midiNoteEvent{Channel: ch, Key: key, On: false})
	default:
		h.logger.Debug("unhandled MIDI message", "msg", msg.String())
	}
}

func (h *midiHandler) note(n midiNoteEvent) {
	if h.channel != 0 && int(n.Channel)+1 != h.channel {
		return
	}
	if h.notes == nil {
		return
	}
	if !h.notes.Push(n) {
		h.logger.Debug("note queue full, dropping note", "key", n.Key, "on", n.On)
	}
}
