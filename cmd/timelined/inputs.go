package main

import (
	"encoding/json"
	"fmt"
	"time"

	"timelined/timeline"
)

// ============================================================================
// Daemon Inputs
// ============================================================================
// Inputs are everything the daemon loop reacts to: timeline events from IPC
// and HTTP, transport-remote gestures from input devices and MIDI, engine
// position reports, ticks and snapshot requests. The pure reduceInput turns
// them into Commands; only the daemon loop touches the Controller.
// ============================================================================

// Input is a marker interface for daemon loop inputs.
type Input interface {
	inputMarker()
}

// Dispatch forwards a timeline event to the Controller.
type Dispatch struct {
	Event timeline.Event
}

// UndoRequest and RedoRequest step through the timeline history.
type UndoRequest struct{}
type RedoRequest struct{}

// TransportToggle starts playback when stopped and stops it otherwise.
type TransportToggle struct{}

// JumpSection moves the edit position to the next (+1) or previous (-1)
// section start, or to the neighbouring bar when the project has no sections.
type JumpSection struct {
	Direction int `json:"direction"`
}

// ShuttleHeld indicates a FF (+1) or REW (-1) button is being held.
type ShuttleHeld struct {
	Direction int `json:"direction"`
}

// ShuttleRelease indicates the shuttle buttons were released.
type ShuttleRelease struct{}

// JogTurn is a raw jog wheel movement in detents (positive = forward).
type JogTurn struct {
	Steps int `json:"steps"`
}

// MIDIRealtimeKind is a MIDI system realtime transport message.
type MIDIRealtimeKind int

const (
	MIDIStart MIDIRealtimeKind = iota + 1
	MIDIContinue
	MIDIStop
)

func (k MIDIRealtimeKind) String() string {
	switch k {
	case MIDIStart:
		return "start"
	case MIDIContinue:
		return "continue"
	case MIDIStop:
		return "stop"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// MIDIRealtime is a transport message from the MIDI control surface.
type MIDIRealtime struct {
	Kind MIDIRealtimeKind
}

// EnginePositionReported carries the engine's playback position.
type EnginePositionReported struct {
	Position float64
}

// RequestStateSnapshot asks the daemon loop for a StateSnapshot. The reply is
// sent without blocking, so Reply must be buffered.
type RequestStateSnapshot struct {
	Reply chan StateSnapshot
}

// Tick is emitted by the daemon loop at a fixed cadence.
// Dt is wall-clock delta in seconds between ticks.
type Tick struct {
	Now time.Time
	Dt  float64
}

// TimedInput stamps an Input with its arrival time.
type TimedInput struct {
	Input Input
	At    time.Time
}

func (Dispatch) inputMarker()               {}
func (UndoRequest) inputMarker()            {}
func (RedoRequest) inputMarker()            {}
func (TransportToggle) inputMarker()        {}
func (JumpSection) inputMarker()            {}
func (ShuttleHeld) inputMarker()            {}
func (ShuttleRelease) inputMarker()         {}
func (JogTurn) inputMarker()                {}
func (MIDIRealtime) inputMarker()           {}
func (EnginePositionReported) inputMarker() {}
func (RequestStateSnapshot) inputMarker()   {}
func (Tick) inputMarker()                   {}
func (TimedInput) inputMarker()             {}

// StateSnapshot is the externally visible daemon state.
type StateSnapshot struct {
	Timeline  timeline.State  `json:"timeline"`
	UndoDepth int             `json:"undo_depth"`
	RedoDepth int             `json:"redo_depth"`
	Clips     []timeline.Clip `json:"clips"`
}

// ============================================================================
// JSON decoding (IPC and HTTP)
// ============================================================================
// The wire format is the timeline EventEnvelope. Daemon-level inputs use
// their own type names; everything else must be a timeline event type.
// ============================================================================

// DecodeInput parses one {"type", "data"} envelope into an Input.
func DecodeInput(data []byte) (Input, error) {
	var env timeline.EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case "undo":
		return UndoRequest{}, nil
	case "redo":
		return RedoRequest{}, nil
	case "transport_toggle":
		return TransportToggle{}, nil
	case "shuttle_release":
		return ShuttleRelease{}, nil

	case "jump_section":
		var in JumpSection
		if err := unmarshalData(env.Data, &in); err != nil {
			return nil, fmt.Errorf("unmarshal JumpSection: %w", err)
		}
		if in.Direction == 0 {
			return nil, fmt.Errorf("jump_section: direction must be -1 or 1")
		}
		return in, nil

	case "shuttle_held":
		var in ShuttleHeld
		if err := unmarshalData(env.Data, &in); err != nil {
			return nil, fmt.Errorf("unmarshal ShuttleHeld: %w", err)
		}
		return in, nil

	case "jog_turn":
		var in JogTurn
		if err := unmarshalData(env.Data, &in); err != nil {
			return nil, fmt.Errorf("unmarshal JogTurn: %w", err)
		}
		return in, nil

	default:
		ev, err := timeline.DecodeEvent(env)
		if err != nil {
			return nil, err
		}
		return Dispatch{Event: ev}, nil
	}
}

func unmarshalData(data json.RawMessage, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, v)
}
