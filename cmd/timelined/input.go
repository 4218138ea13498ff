package main

import (
	"bytes"
	"encoding/binary"

	"timelined/timeline"
)

// inputEvent represents a Linux input event structure
// struct input_event { struct timeval time; __u16 type; __u16 code; __s32 value; };
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

var inputEventSize = binary.Size(inputEvent{})

// parseInputEvent decodes one little-endian input_event record.
func parseInputEvent(buf []byte) (inputEvent, bool) {
	var ev inputEvent
	if len(buf) < inputEventSize {
		return ev, false
	}
	if err := binary.Read(bytes.NewReader(buf[:inputEventSize]), binary.LittleEndian, &ev); err != nil {
		return ev, false
	}
	return ev, true
}

// translateInputEvent maps a transport-remote key or dial event to daemon
// Inputs. Unrecognized events yield nil.
func translateInputEvent(ev inputEvent) []Input {
	switch ev.Type {
	case EV_REL:
		if (ev.Code == REL_DIAL || ev.Code == REL_WHEEL) && ev.Value != 0 {
			return []Input{JogTurn{Steps: int(ev.Value)}}
		}
		return nil

	case EV_KEY:
	default:
		return nil
	}

	pressed := ev.Value == evValuePress
	held := ev.Value == evValuePress || ev.Value == evValueRepeat
	released := ev.Value == evValueRelease

	one := func(in Input) []Input {
		if !pressed {
			return nil
		}
		return []Input{in}
	}

	switch ev.Code {
	case KEY_PLAYPAUSE:
		return one(TransportToggle{})
	case KEY_PLAYCD:
		return one(Dispatch{Event: timeline.StartPlayback{}})
	case KEY_PAUSECD:
		return one(Dispatch{Event: timeline.PausePlayback{}})
	case KEY_STOPCD:
		return one(Dispatch{Event: timeline.StopPlayback{}})
	case KEY_RECORD:
		return one(Dispatch{Event: timeline.StartRecord{}})
	case KEY_NEXTSONG:
		return one(JumpSection{Direction: 1})
	case KEY_PREVIOUSSONG:
		return one(JumpSection{Direction: -1})
	case KEY_UNDO:
		return one(UndoRequest{})
	case KEY_REDO:
		return one(RedoRequest{})

	case KEY_FASTFORWARD, KEY_REWIND:
		dir := 1
		if ev.Code == KEY_REWIND {
			dir = -1
		}
		switch {
		case held:
			return []Input{ShuttleHeld{Direction: dir}}
		case released:
			return []Input{ShuttleRelease{}}
		}
	}
	return nil
}
