package timeline

import "reflect"

// Event is one user or system intent. The set is closed: only this package
// defines events, and Reduce handles each of them.
type Event interface {
	kind() string
}

// ============================================================================
// Zoom
// ============================================================================

// SetZoom sets the horizontal zoom in pixels per beat.
type SetZoom struct {
	PixelsPerBeat float64 `json:"pixels_per_beat"`
}

// SetZoomCentered zooms and keeps Center (seconds) in the middle of the viewport.
type SetZoomCentered struct {
	PixelsPerBeat float64 `json:"pixels_per_beat"`
	Center        float64 `json:"center"`
}

// SetZoomAnchored zooms and keeps AnchorTime under view pixel AnchorX.
type SetZoomAnchored struct {
	PixelsPerBeat float64 `json:"pixels_per_beat"`
	AnchorTime    float64 `json:"anchor_time"`
	AnchorX       int     `json:"anchor_x"`
}

// ZoomToFit fits [Start, End] into the viewport with PaddingPercent of the
// range added on each side.
type ZoomToFit struct {
	Start          float64 `json:"start"`
	End            float64 `json:"end"`
	PaddingPercent float64 `json:"padding_percent"`
}

// ResetZoom fits the whole project into the viewport.
type ResetZoom struct{}

// ============================================================================
// Scroll
// ============================================================================

// SetScrollPosition sets absolute scroll offsets. A nil Y keeps the current value.
type SetScrollPosition struct {
	X int  `json:"x"`
	Y *int `json:"y,omitempty"`
}

// ScrollByDelta scrolls relative to the current offsets.
type ScrollByDelta struct {
	DX int `json:"dx"`
	DY int `json:"dy"`
}

// ScrollToTime brings Time into view, at the viewport center when Center is set
// and at the left edge otherwise.
type ScrollToTime struct {
	Time   float64 `json:"time"`
	Center bool    `json:"center"`
}

// ============================================================================
// Playhead and transport
// ============================================================================

type SetEditPosition struct {
	Position float64 `json:"position"`
}

// SetPlayheadPosition is an alias of SetEditPosition kept for older callers.
type SetPlayheadPosition struct {
	Position float64 `json:"position"`
}

// SetPlaybackPosition moves only the playback cursor; the engine reports it while playing.
type SetPlaybackPosition struct {
	Position float64 `json:"position"`
}

type StartPlayback struct{}

type StopPlayback struct{}

// PausePlayback stops the transport and leaves the playback cursor where it is.
type PausePlayback struct{}

// StartRecord arms recording and starts the transport if it is stopped.
type StartRecord struct{}

// MovePlayheadByDelta nudges the edit position by Delta seconds.
type MovePlayheadByDelta struct {
	Delta float64 `json:"delta"`
}

// SetPlaybackState mirrors the engine's transport flags.
type SetPlaybackState struct {
	Playing   bool `json:"playing"`
	Recording bool `json:"recording"`
}

// SetEditCursor places the edit cursor. A negative Position hides it.
type SetEditCursor struct {
	Position float64 `json:"position"`
}

// ============================================================================
// Selection
// ============================================================================

type SetTimeSelection struct {
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	Tracks []int   `json:"tracks,omitempty"`
}

type ClearTimeSelection struct{}

// CreateLoopFromSelection copies the active selection into the loop region.
type CreateLoopFromSelection struct{}

// ============================================================================
// Loop and punch
// ============================================================================

type SetLoopRegion struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type ClearLoopRegion struct{}

type SetLoopEnabled struct {
	Enabled bool `json:"enabled"`
}

// MoveLoopRegion shifts the loop so it starts at Start, keeping its length.
type MoveLoopRegion struct {
	Start float64 `json:"start"`
}

type SetPunchRegion struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type ClearPunchRegion struct{}

type SetPunchInEnabled struct {
	Enabled bool `json:"enabled"`
}

type SetPunchOutEnabled struct {
	Enabled bool `json:"enabled"`
}

// ============================================================================
// Tempo and display
// ============================================================================

type SetTempo struct {
	BPM float64 `json:"bpm"`
}

type SetTimeSignature struct {
	Numerator   int `json:"numerator"`
	Denominator int `json:"denominator"`
}

type SetTimeDisplayMode struct {
	Mode TimeDisplayMode `json:"mode"`
}

type SetSnapEnabled struct {
	Enabled bool `json:"enabled"`
}

type SetArrangementLocked struct {
	Locked bool `json:"locked"`
}

type SetGridQuantize struct {
	Auto        bool `json:"auto"`
	Numerator   int  `json:"numerator"`
	Denominator int  `json:"denominator"`
}

// ============================================================================
// Sections
// ============================================================================

type AddSection struct {
	Name   string  `json:"name"`
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	Colour Colour  `json:"colour"`
}

type RemoveSection struct {
	Index int `json:"index"`
}

// MoveSection moves a section to Start, keeping its length.
type MoveSection struct {
	Index int     `json:"index"`
	Start float64 `json:"start"`
}

type ResizeSection struct {
	Index int     `json:"index"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// SelectSection selects a section by index; -1 clears the selection.
type SelectSection struct {
	Index int `json:"index"`
}

// ============================================================================
// Viewport and project
// ============================================================================

type ViewportResized struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type SetTimelineLength struct {
	Length float64 `json:"length"`
}

func (SetZoom) kind() string                 { return "set_zoom" }
func (SetZoomCentered) kind() string         { return "set_zoom_centered" }
func (SetZoomAnchored) kind() string         { return "set_zoom_anchored" }
func (ZoomToFit) kind() string               { return "zoom_to_fit" }
func (ResetZoom) kind() string               { return "reset_zoom" }
func (SetScrollPosition) kind() string       { return "set_scroll_position" }
func (ScrollByDelta) kind() string           { return "scroll_by_delta" }
func (ScrollToTime) kind() string            { return "scroll_to_time" }
func (SetEditPosition) kind() string         { return "set_edit_position" }
func (SetPlayheadPosition) kind() string     { return "set_playhead_position" }
func (SetPlaybackPosition) kind() string     { return "set_playback_position" }
func (StartPlayback) kind() string           { return "start_playback" }
func (StopPlayback) kind() string            { return "stop_playback" }
func (PausePlayback) kind() string           { return "pause_playback" }
func (StartRecord) kind() string             { return "start_record" }
func (MovePlayheadByDelta) kind() string     { return "move_playhead_by_delta" }
func (SetPlaybackState) kind() string        { return "set_playback_state" }
func (SetEditCursor) kind() string           { return "set_edit_cursor" }
func (SetTimeSelection) kind() string        { return "set_time_selection" }
func (ClearTimeSelection) kind() string      { return "clear_time_selection" }
func (CreateLoopFromSelection) kind() string { return "create_loop_from_selection" }
func (SetLoopRegion) kind() string           { return "set_loop_region" }
func (ClearLoopRegion) kind() string         { return "clear_loop_region" }
func (SetLoopEnabled) kind() string          { return "set_loop_enabled" }
func (MoveLoopRegion) kind() string          { return "move_loop_region" }
func (SetPunchRegion) kind() string          { return "set_punch_region" }
func (ClearPunchRegion) kind() string        { return "clear_punch_region" }
func (SetPunchInEnabled) kind() string       { return "set_punch_in_enabled" }
func (SetPunchOutEnabled) kind() string      { return "set_punch_out_enabled" }
func (SetTempo) kind() string                { return "set_tempo" }
func (SetTimeSignature) kind() string        { return "set_time_signature" }
func (SetTimeDisplayMode) kind() string      { return "set_time_display_mode" }
func (SetSnapEnabled) kind() string          { return "set_snap_enabled" }
func (SetArrangementLocked) kind() string    { return "set_arrangement_locked" }
func (SetGridQuantize) kind() string         { return "set_grid_quantize" }
func (AddSection) kind() string              { return "add_section" }
func (RemoveSection) kind() string           { return "remove_section" }
func (MoveSection) kind() string             { return "move_section" }
func (ResizeSection) kind() string           { return "resize_section" }
func (SelectSection) kind() string           { return "select_section" }
func (ViewportResized) kind() string         { return "viewport_resized" }
func (SetTimelineLength) kind() string       { return "set_timeline_length" }

// EventType returns the wire name of e, e.g. "set_tempo".
func EventType(e Event) string {
	if e = eventValue(e); e == nil {
		return ""
	}
	return e.kind()
}

// eventValue reads a pointer event through to its value, which is the form
// Reduce and the codec switch on. A nil pointer yields nil.
func eventValue(e Event) Event {
	if e == nil {
		return nil
	}
	v := reflect.ValueOf(e)
	if v.Kind() != reflect.Pointer {
		return e
	}
	if v.IsNil() {
		return nil
	}
	ev, _ := v.Elem().Interface().(Event)
	return ev
}

// UndoSignificant reports whether dispatching e records an undo snapshot.
func UndoSignificant(e Event) bool {
	switch eventValue(e).(type) {
	case SetLoopRegion, ClearLoopRegion, CreateLoopFromSelection,
		SetPunchRegion, ClearPunchRegion,
		ZoomToFit, ResetZoom,
		AddSection, RemoveSection, MoveSection, ResizeSection,
		SetTimelineLength:
		return true
	default:
		return false
	}
}
