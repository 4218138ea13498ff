package main

import (
	"bytes"
	"log/slog"
	"testing"

	"gitlab.com/gomidi/midi/v2"

	"timelined/ringbuf"
)

func feedAll(p *midiParser, data ...byte) []midi.Message {
	var out []midi.Message
	for _, b := range data {
		if msg, ok := p.Feed(b); ok {
			out = append(out, msg)
		}
	}
	return out
}

func TestMIDIParser_NoteOnAndRunningStatus(t *testing.T) {
	var p midiParser
	got := feedAll(&p,
		0x90, 60, 100, // note on ch1
		62, 90, // running status
		0x80, 60, 0, // note off
	)
	want := [][]byte{{0x90, 60, 100}, {0x90, 62, 90}, {0x80, 60, 0}}
	if len(got) != len(want) {
		t.Fatalf("got %d messages, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Fatalf("message %d = % X, want % X", i, []byte(got[i]), want[i])
		}
	}
}

func TestMIDIParser_RealtimeInterleaved(t *testing.T) {
	var p midiParser
	got := feedAll(&p, 0x90, 60, 0xF8, 100, 0xFA)
	if len(got) != 3 {
		t.Fatalf("expected clock, note, start; got %v", got)
	}
	if !bytes.Equal(got[0], []byte{0xF8}) {
		t.Fatalf("first = % X, want F8", []byte(got[0]))
	}
	if !bytes.Equal(got[1], []byte{0x90, 60, 100}) {
		t.Fatalf("realtime byte must not break the note: % X", []byte(got[1]))
	}
	if !got[2].Is(midi.StartMsg) {
		t.Fatalf("expected start, got %s", got[2])
	}
}

func TestMIDIParser_SkipsSysexAndProgramChange(t *testing.T) {
	var p midiParser
	got := feedAll(&p,
		0xF0, 0x7E, 0x01, 0x02, 0xF7, // sysex
		0x05,       // stray data byte, no status
		0xC0, 0x10, // program change, one data byte
		0xFC, // stop
	)
	if len(got) != 2 {
		t.Fatalf("expected program change and stop, got %v", got)
	}
	if !bytes.Equal(got[0], []byte{0xC0, 0x10}) {
		t.Fatalf("program change = % X", []byte(got[0]))
	}
	if !got[1].Is(midi.StopMsg) {
		t.Fatalf("expected stop, got %s", got[1])
	}
}

func TestMIDIParser_SystemCommonCancelsRunningStatus(t *testing.T) {
	var p midiParser
	got := feedAll(&p, 0x90, 60, 100, 0xF2, 0x00, 0x10, 62, 90)
	if len(got) != 2 {
		t.Fatalf("expected note and song position only, got %v", got)
	}
	if got[1][0] != 0xF2 {
		t.Fatalf("expected song position pointer, got % X", []byte(got[1]))
	}
}

func newTestMIDIHandler(channel int) (*midiHandler, chan Input, *ringbuf.SPSC[midiNoteEvent]) {
	inputs := make(chan Input, 8)
	notes := ringbuf.New[midiNoteEvent](8)
	return &midiHandler{channel: channel, inputs: inputs, notes: notes, logger: slog.Default()}, inputs, notes
}

func TestMIDIHandler_RealtimeBecomesInputs(t *testing.T) {
	h, inputs, _ := newTestMIDIHandler(0)

	h.handle(midi.Message{0xFA})
	h.handle(midi.Message{0xFB})
	h.handle(midi.Message{0xFC})

	want := []MIDIRealtimeKind{MIDIStart, MIDIContinue, MIDIStop}
	for _, k := range want {
		select {
		case in := <-inputs:
			if in != (MIDIRealtime{Kind: k}) {
				t.Fatalf("got %#v, want %s", in, k)
			}
		default:
			t.Fatalf("missing input for %s", k)
		}
	}
}

func TestMIDIHandler_NotesFilteredByChannel(t *testing.T) {
	h, _, notes := newTestMIDIHandler(2)

	h.handle(midi.NoteOn(0, 60, 100)) // channel 1: filtered
	h.handle(midi.NoteOn(1, 62, 90))  // channel 2
	h.handle(midi.NoteOff(1, 62))

	if notes.Len() != 2 {
		t.Fatalf("expected 2 queued notes, got %d", notes.Len())
	}
	on, _ := notes.Pop()
	if !on.On || on.Key != 62 || on.Velocity != 90 || on.Channel != 1 {
		t.Fatalf("unexpected note on: %+v", on)
	}
	off, _ := notes.Pop()
	if off.On || off.Key != 62 {
		t.Fatalf("unexpected note off: %+v", off)
	}
}

func TestMIDIHandler_NoteOnZeroVelocityIsNoteEnd(t *testing.T) {
	h, _, notes := newTestMIDIHandler(0)

	h.handle(midi.Message{0x93, 64, 0})
	n, ok := notes.Pop()
	if !ok || n.On || n.Channel != 3 || n.Key != 64 {
		t.Fatalf("expected note end on channel index 3, got %+v (ok=%v)", n, ok)
	}
}
