package main

import (
	"strings"
	"testing"
)

func TestWatcher_FormatsFrames(t *testing.T) {
	var w watcher

	got := w.format([]byte(`{"type":"state_changed","data":{"changes":["tempo","loop"],"state":{"tempo":{"bpm":90,"numerator":3,"denominator":4},"loop":{"start":2,"end":4,"enabled":true},"punch":{"start":-1,"end":-1},"display":{"mode":"bars_beats"}},"undo_depth":1}}`))
	for _, want := range []string{"[STATE]", "tempo,loop", "bpm=90", "sig=3/4", "(on)", "undo=1"} {
		if !strings.Contains(got, want) {
			t.Fatalf("state line %q missing %q", got, want)
		}
	}
	if w.last == nil {
		t.Fatalf("state_changed should be remembered")
	}

	// At 90 bpm in 3/4, 2 s is three beats: the start of bar 2.
	got = w.format([]byte(`{"type":"playhead_changed","data":{"playback_position":2,"playing":true}}`))
	if got != "[PLAYHEAD] 2.1.1 playing=true recording=false" {
		t.Fatalf("playhead line = %q", got)
	}

	got = w.format([]byte(`{"type":"note_preview","data":{"channel":9,"key":36,"velocity":127,"on":true}}`))
	if got != "[NOTE] ch=10 key=36 vel=127 on recording=false" {
		t.Fatalf("note line = %q", got)
	}
}

func TestWatcher_PlayheadWithoutState(t *testing.T) {
	var w watcher
	got := w.format([]byte(`{"type":"playhead_changed","data":{"edit_position":1.5}}`))
	if got != "[PLAYHEAD] 1.500s playing=false recording=false" {
		t.Fatalf("playhead line = %q", got)
	}
}

func TestWatcher_UnknownAndInvalid(t *testing.T) {
	var w watcher
	if got := w.format([]byte(`{"type":"future_thing","data":{"x":1}}`)); got != `[FUTURE_THING] {"x":1}` {
		t.Fatalf("unknown frame = %q", got)
	}
	if got := w.format([]byte(`garbage`)); got != "[TEXT] garbage" {
		t.Fatalf("invalid frame = %q", got)
	}
}
