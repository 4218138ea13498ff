package main

import (
	"bytes"
	"encoding/binary"
	"testing"

	"timelined/timeline"
)

func TestTranslateInputEvent_TransportKeys(t *testing.T) {
	cases := []struct {
		name string
		code uint16
		want Input
	}{
		{"playpause", KEY_PLAYPAUSE, TransportToggle{}},
		{"play", KEY_PLAYCD, Dispatch{Event: timeline.StartPlayback{}}},
		{"pause", KEY_PAUSECD, Dispatch{Event: timeline.PausePlayback{}}},
		{"stop", KEY_STOPCD, Dispatch{Event: timeline.StopPlayback{}}},
		{"record", KEY_RECORD, Dispatch{Event: timeline.StartRecord{}}},
		{"next", KEY_NEXTSONG, JumpSection{Direction: 1}},
		{"previous", KEY_PREVIOUSSONG, JumpSection{Direction: -1}},
		{"undo", KEY_UNDO, UndoRequest{}},
		{"redo", KEY_REDO, RedoRequest{}},
	}
	for _, tc := range cases {
		got := translateInputEvent(inputEvent{Type: EV_KEY, Code: tc.code, Value: evValuePress})
		if len(got) != 1 || got[0] != tc.want {
			t.Errorf("%s: got %#v, want %#v", tc.name, got, tc.want)
		}

		// Transport keys act on press only.
		if got := translateInputEvent(inputEvent{Type: EV_KEY, Code: tc.code, Value: evValueRepeat}); len(got) != 0 {
			t.Errorf("%s: repeat produced %#v", tc.name, got)
		}
		if got := translateInputEvent(inputEvent{Type: EV_KEY, Code: tc.code, Value: evValueRelease}); len(got) != 0 {
			t.Errorf("%s: release produced %#v", tc.name, got)
		}
	}
}

func TestTranslateInputEvent_ShuttleKeys(t *testing.T) {
	press := translateInputEvent(inputEvent{Type: EV_KEY, Code: KEY_FASTFORWARD, Value: evValuePress})
	if len(press) != 1 || press[0] != (ShuttleHeld{Direction: 1}) {
		t.Fatalf("FF press: got %#v", press)
	}
	repeat := translateInputEvent(inputEvent{Type: EV_KEY, Code: KEY_REWIND, Value: evValueRepeat})
	if len(repeat) != 1 || repeat[0] != (ShuttleHeld{Direction: -1}) {
		t.Fatalf("REW repeat: got %#v", repeat)
	}
	release := translateInputEvent(inputEvent{Type: EV_KEY, Code: KEY_REWIND, Value: evValueRelease})
	if len(release) != 1 || release[0] != (ShuttleRelease{}) {
		t.Fatalf("REW release: got %#v", release)
	}
}

func TestTranslateInputEvent_Dial(t *testing.T) {
	got := translateInputEvent(inputEvent{Type: EV_REL, Code: REL_DIAL, Value: -3})
	if len(got) != 1 || got[0] != (JogTurn{Steps: -3}) {
		t.Fatalf("dial: got %#v", got)
	}
	if got := translateInputEvent(inputEvent{Type: EV_REL, Code: REL_DIAL, Value: 0}); len(got) != 0 {
		t.Fatalf("zero dial: got %#v", got)
	}
	if got := translateInputEvent(inputEvent{Type: 0x00, Code: 0, Value: 0}); len(got) != 0 {
		t.Fatalf("sync event: got %#v", got)
	}
}

func TestParseInputEvent(t *testing.T) {
	var buf bytes.Buffer
	want := inputEvent{Sec: 10, Usec: 20, Type: EV_KEY, Code: KEY_RECORD, Value: evValuePress}
	if err := binary.Write(&buf, binary.LittleEndian, want); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, ok := parseInputEvent(buf.Bytes())
	if !ok || got != want {
		t.Fatalf("got %+v (ok=%v), want %+v", got, ok, want)
	}

	if _, ok := parseInputEvent(buf.Bytes()[:4]); ok {
		t.Fatalf("short buffer must not parse")
	}
}
