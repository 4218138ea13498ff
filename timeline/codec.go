package timeline

import (
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"slices"
)

// EventEnvelope wraps an event with a type discriminator for JSON transport.
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type eventDecoder func(json.RawMessage) (Event, error)

// decodeInto returns a decoder that starts from def, so fields absent from
// the payload keep their documented defaults.
func decodeInto[T Event](def T) eventDecoder {
	return func(data json.RawMessage) (Event, error) {
		v := def
		if len(data) == 0 || string(data) == "null" {
			return v, nil
		}
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("unmarshal %T: %w", v, err)
		}
		return v, nil
	}
}

var eventDecoders = map[string]eventDecoder{}

func register[T Event](def T) { eventDecoders[def.kind()] = decodeInto(def) }

func init() {
	register(SetZoom{})
	register(SetZoomCentered{})
	register(SetZoomAnchored{})
	register(ZoomToFit{PaddingPercent: DefaultFitPadding})
	register(ResetZoom{})
	register(SetScrollPosition{})
	register(ScrollByDelta{})
	register(ScrollToTime{Center: true})
	register(SetEditPosition{})
	register(SetPlayheadPosition{})
	register(SetPlaybackPosition{})
	register(StartPlayback{})
	register(StopPlayback{})
	register(PausePlayback{})
	register(StartRecord{})
	register(MovePlayheadByDelta{})
	register(SetPlaybackState{})
	register(SetEditCursor{})
	register(SetTimeSelection{})
	register(ClearTimeSelection{})
	register(CreateLoopFromSelection{})
	register(SetLoopRegion{})
	register(ClearLoopRegion{})
	register(SetLoopEnabled{})
	register(MoveLoopRegion{})
	register(SetPunchRegion{})
	register(ClearPunchRegion{})
	register(SetPunchInEnabled{})
	register(SetPunchOutEnabled{})
	register(SetTempo{})
	register(SetTimeSignature{})
	register(SetTimeDisplayMode{})
	register(SetSnapEnabled{})
	register(SetArrangementLocked{})
	register(SetGridQuantize{})
	register(AddSection{Colour: DefaultSectionColour})
	register(RemoveSection{})
	register(MoveSection{})
	register(ResizeSection{})
	register(SelectSection{Index: -1})
	register(ViewportResized{})
	register(SetTimelineLength{})
}

// EventTypes lists every wire name UnmarshalEvent accepts, sorted.
func EventTypes() []string {
	return slices.Sorted(maps.Keys(eventDecoders))
}

// UnmarshalEvent decodes a JSON envelope into a concrete Event.
func UnmarshalEvent(data []byte) (Event, error) {
	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	return DecodeEvent(env)
}

// DecodeEvent turns an already parsed envelope into a concrete Event.
func DecodeEvent(env EventEnvelope) (Event, error) {
	dec, ok := eventDecoders[env.Type]
	if !ok {
		return nil, fmt.Errorf("unknown event type: %q", env.Type)
	}
	return dec(env.Data)
}

// MarshalEvent encodes e as a JSON envelope. Events without fields carry no data.
func MarshalEvent(e Event) ([]byte, error) {
	env, err := EncodeEvent(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

// EncodeEvent wraps e in an envelope without serializing the envelope itself.
func EncodeEvent(e Event) (EventEnvelope, error) {
	if e = eventValue(e); e == nil {
		return EventEnvelope{}, fmt.Errorf("marshal event: nil event")
	}
	env := EventEnvelope{Type: e.kind()}
	t := reflect.TypeOf(e)
	if t.Kind() != reflect.Struct {
		return EventEnvelope{}, fmt.Errorf("marshal %T: event is not a struct", e)
	}
	if t.NumField() == 0 {
		return env, nil
	}
	data, err := json.Marshal(e)
	if err != nil {
		return EventEnvelope{}, fmt.Errorf("marshal %T: %w", e, err)
	}
	env.Data = data
	return env, nil
}
