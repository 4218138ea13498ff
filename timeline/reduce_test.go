package timeline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestState() State { return NewState(DefaultSettings()) }

// apply reduces events in order and returns the final state and the last result.
func apply(s State, events ...Event) (State, ReduceResult) {
	var res ReduceResult
	for _, e := range events {
		res = Reduce(s, e, DefaultSettings())
		s = res.State
	}
	return s, res
}

func intPtr(v int) *int { return &v }

func TestReduceRepeatedEventIsNoop(t *testing.T) {
	withLoop, _ := apply(newTestState(), SetLoopRegion{Start: 1, End: 3}, SetPunchRegion{Start: 4, End: 6})

	cases := []struct {
		name  string
		start State
		ev    Event
	}{
		{"set_zoom", newTestState(), SetZoom{PixelsPerBeat: 20}},
		{"set_zoom_centered", newTestState(), SetZoomCentered{PixelsPerBeat: 20, Center: 30}},
		{"set_zoom_anchored", newTestState(), SetZoomAnchored{PixelsPerBeat: 20, AnchorTime: 30, AnchorX: 400}},
		{"zoom_to_fit", newTestState(), ZoomToFit{Start: 10, End: 20, PaddingPercent: 0.05}},
		{"reset_zoom", newTestState(), ResetZoom{}},
		{"set_scroll_position", newTestState(), SetScrollPosition{X: 300, Y: intPtr(12)}},
		{"scroll_to_time", newTestState(), ScrollToTime{Time: 30, Center: true}},
		{"set_edit_position", newTestState(), SetEditPosition{Position: 12}},
		{"set_playhead_position", newTestState(), SetPlayheadPosition{Position: 12}},
		{"set_playback_position", newTestState(), SetPlaybackPosition{Position: 12}},
		{"start_playback", newTestState(), StartPlayback{}},
		{"stop_playback", newTestState(), StopPlayback{}},
		{"pause_playback", newTestState(), PausePlayback{}},
		{"start_record", newTestState(), StartRecord{}},
		{"set_playback_state", newTestState(), SetPlaybackState{Playing: true}},
		{"set_edit_cursor", newTestState(), SetEditCursor{Position: 5}},
		{"set_time_selection", newTestState(), SetTimeSelection{Start: 1, End: 4, Tracks: []int{2, 1}}},
		{"clear_time_selection", newTestState(), ClearTimeSelection{}},
		{"set_loop_region", newTestState(), SetLoopRegion{Start: 1, End: 3}},
		{"clear_loop_region", withLoop, ClearLoopRegion{}},
		{"set_loop_enabled", withLoop, SetLoopEnabled{Enabled: false}},
		{"move_loop_region", withLoop, MoveLoopRegion{Start: 5}},
		{"set_punch_region", newTestState(), SetPunchRegion{Start: 4, End: 6}},
		{"clear_punch_region", withLoop, ClearPunchRegion{}},
		{"set_punch_in_enabled", withLoop, SetPunchInEnabled{Enabled: false}},
		{"set_punch_out_enabled", withLoop, SetPunchOutEnabled{Enabled: false}},
		{"set_tempo", withLoop, SetTempo{BPM: 90}},
		{"set_time_signature", newTestState(), SetTimeSignature{Numerator: 3, Denominator: 4}},
		{"set_time_display_mode", newTestState(), SetTimeDisplayMode{Mode: DisplaySeconds}},
		{"set_snap_enabled", newTestState(), SetSnapEnabled{Enabled: false}},
		{"set_arrangement_locked", newTestState(), SetArrangementLocked{Locked: false}},
		{"set_grid_quantize", newTestState(), SetGridQuantize{Numerator: 1, Denominator: 8}},
		{"select_section", newTestState(), SelectSection{Index: 3}},
		{"remove_section", newTestState(), RemoveSection{Index: 0}},
		{"viewport_resized", newTestState(), ViewportResized{Width: 1024, Height: 768}},
		{"set_timeline_length", newTestState(), SetTimelineLength{Length: 200}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			first := Reduce(tc.start, tc.ev, DefaultSettings())
			second := Reduce(first.State, tc.ev, DefaultSettings())
			assert.Equal(t, ChangeNone, second.Changes)
			assert.Empty(t, second.Commands)
			assert.Equal(t, first.State, second.State)
		})
	}
}

func TestReduceUnknownOrNilEvent(t *testing.T) {
	s := newTestState()
	res := Reduce(s, nil, nil)
	assert.Equal(t, ChangeNone, res.Changes)
	assert.Equal(t, s, res.State)
}

func TestReducePointerEvent(t *testing.T) {
	s := newTestState()
	byPtr := Reduce(s, &SetTempo{BPM: 90}, nil)
	byVal := Reduce(s, SetTempo{BPM: 90}, nil)
	assert.Equal(t, byVal, byPtr)
	assert.Equal(t, 90.0, byPtr.State.Tempo.BPM)

	res := Reduce(s, (*SetTempo)(nil), nil)
	assert.Equal(t, ChangeNone, res.Changes)
}

func TestReduceIgnoresNonFiniteInput(t *testing.T) {
	s := newTestState()
	for _, ev := range []Event{
		SetZoom{PixelsPerBeat: math.NaN()},
		SetEditPosition{Position: math.Inf(1)},
		SetTempo{BPM: math.NaN()},
		SetLoopRegion{Start: math.NaN(), End: 3},
		SetTimelineLength{Length: math.Inf(-1)},
	} {
		res := Reduce(s, ev, nil)
		assert.Equal(t, ChangeNone, res.Changes, "%T", ev)
	}
}

func TestSetZoomClampsToLimits(t *testing.T) {
	s, res := apply(newTestState(), SetZoom{PixelsPerBeat: 0.001})
	assert.Equal(t, ChangeZoom|ChangeScroll, res.Changes)
	assert.InDelta(t, 1.25, s.Zoom.PixelsPerBeat, 1e-12)

	s, _ = apply(s, SetZoom{PixelsPerBeat: 1e9})
	assert.Equal(t, DefaultMaxZoomLevel, s.Zoom.PixelsPerBeat)

	res = Reduce(newTestState(), SetZoom{PixelsPerBeat: 50}, Settings{MaxZoom: 40})
	assert.Equal(t, 40.0, res.State.Zoom.PixelsPerBeat)
}

func TestSetZoomAnchoredKeepsTimeUnderPointer(t *testing.T) {
	s, _ := apply(newTestState(), SetZoomAnchored{PixelsPerBeat: 20, AnchorTime: 10, AnchorX: 300})
	assert.Equal(t, 20.0, s.Zoom.PixelsPerBeat)
	assert.Equal(t, 123, s.Zoom.ScrollX)
	assert.Equal(t, 300, s.TimeToPixel(10))
}

func TestZoomToFit(t *testing.T) {
	s, res := apply(newTestState(), ZoomToFit{Start: 10, End: 20, PaddingPercent: 0.05})
	require.Equal(t, ChangeZoom|ChangeScroll, res.Changes)

	// 20 beats plus one beat of padding each side.
	assert.InDelta(t, 800.0/22.0, s.Zoom.PixelsPerBeat, 1e-9)
	assert.InDelta(t, 19*800.0/22.0, float64(s.Zoom.ScrollX), 1)

	res = Reduce(s, ZoomToFit{Start: 20, End: 10}, nil)
	assert.Equal(t, ChangeNone, res.Changes)
}

func TestResetZoomFitsProject(t *testing.T) {
	s, _ := apply(newTestState(), SetZoom{PixelsPerBeat: 50}, SetScrollPosition{X: 900})
	s, res := apply(s, ResetZoom{})
	require.Equal(t, ChangeZoom|ChangeScroll, res.Changes)
	assert.InDelta(t, 777.0/600.0, s.Zoom.PixelsPerBeat, 1e-9)
	assert.Zero(t, s.Zoom.ScrollX)
}

func TestScrollIsClamped(t *testing.T) {
	s, _ := apply(newTestState(), SetZoom{PixelsPerBeat: 10})
	require.Zero(t, s.Zoom.ScrollX)

	res := Reduce(s, ScrollByDelta{DX: -50, DY: -50}, nil)
	assert.Equal(t, ChangeNone, res.Changes)

	s, res = apply(s, SetScrollPosition{X: 1_000_000, Y: intPtr(-5)})
	assert.Equal(t, ChangeScroll, res.Changes)
	assert.Equal(t, 5200, s.Zoom.ScrollX)
	assert.Zero(t, s.Zoom.ScrollY)

	s, _ = apply(s, ViewportResized{Width: 1600, Height: 900})
	assert.Equal(t, 4400, s.Zoom.ScrollX)
}

func TestScrollSaturatesOnHugeDelta(t *testing.T) {
	s, _ := apply(newTestState(), SetZoom{PixelsPerBeat: 10}, ScrollByDelta{DX: 100})
	require.Equal(t, 100, s.Zoom.ScrollX)

	s, _ = apply(s, ScrollByDelta{DX: math.MaxInt, DY: math.MaxInt})
	assert.Equal(t, s.MaxScrollX(), s.Zoom.ScrollX)
	assert.Equal(t, math.MaxInt, s.Zoom.ScrollY)

	s, _ = apply(s, ScrollByDelta{DX: math.MinInt, DY: math.MinInt})
	assert.Zero(t, s.Zoom.ScrollX)
	assert.Zero(t, s.Zoom.ScrollY)
}

func TestHugeTimesKeepScrollInRange(t *testing.T) {
	base, _ := apply(newTestState(), SetZoom{PixelsPerBeat: 10})
	maxX := base.MaxScrollX()

	cases := []struct {
		ev   Event
		want int
	}{
		{SetZoomCentered{PixelsPerBeat: 10, Center: 1e300}, maxX},
		{SetZoomCentered{PixelsPerBeat: 10, Center: -1e300}, 0},
		{SetZoomAnchored{PixelsPerBeat: 10, AnchorTime: 1e300, AnchorX: 0}, maxX},
		{SetZoomAnchored{PixelsPerBeat: 10, AnchorTime: -1e300, AnchorX: 0}, 0},
		{SetZoomAnchored{PixelsPerBeat: 10, AnchorTime: 0, AnchorX: math.MinInt}, maxX},
		{ScrollToTime{Time: 1e300}, maxX},
		{ScrollToTime{Time: -1e300, Center: true}, 0},
	}
	for _, tc := range cases {
		s := Reduce(base, tc.ev, nil).State
		assert.Equal(t, tc.want, s.Zoom.ScrollX, "%#v", tc.ev)
	}

	s := Reduce(base, ZoomToFit{Start: -1e308, End: 1e308, PaddingPercent: 0.05}, nil).State
	assert.GreaterOrEqual(t, s.Zoom.ScrollX, 0)
	assert.LessOrEqual(t, s.Zoom.ScrollX, s.MaxScrollX())
}

func TestSetScrollPositionKeepsYWhenOmitted(t *testing.T) {
	s, _ := apply(newTestState(), SetScrollPosition{X: 10, Y: intPtr(40)}, SetScrollPosition{X: 20})
	assert.Equal(t, 20, s.Zoom.ScrollX)
	assert.Equal(t, 40, s.Zoom.ScrollY)
}

func TestEditPosition(t *testing.T) {
	s, res := apply(newTestState(), SetEditPosition{Position: 12})
	assert.Equal(t, ChangePlayhead, res.Changes)
	assert.Equal(t, []Command{CmdEditPositionChanged{Position: 12}}, res.Commands)
	assert.Equal(t, 12.0, s.Playhead.PlaybackPosition)
	assert.Equal(t, 24.0, s.Playhead.EditPositionBeats)

	s, _ = apply(s, SetEditPosition{Position: -3})
	assert.Zero(t, s.Playhead.EditPosition)
	s, _ = apply(s, SetEditPosition{Position: 1000})
	assert.Equal(t, 300.0, s.Playhead.EditPosition)

	s, _ = apply(s, MovePlayheadByDelta{Delta: -100})
	assert.Equal(t, 200.0, s.Playhead.EditPosition)
}

func TestEditPositionWhilePlayingLeavesPlaybackCursor(t *testing.T) {
	s, _ := apply(newTestState(), StartPlayback{}, SetPlaybackPosition{Position: 50}, SetEditPosition{Position: 20})
	assert.Equal(t, 20.0, s.Playhead.EditPosition)
	assert.Equal(t, 50.0, s.Playhead.PlaybackPosition)
	assert.Equal(t, 50.0, s.Playhead.Current())
}

func TestTransport(t *testing.T) {
	s, _ := apply(newTestState(), SetEditPosition{Position: 4})

	s, res := apply(s, StartPlayback{})
	assert.True(t, s.Playhead.Playing)
	assert.Equal(t, []Command{CmdTransportPlay{Position: 4}}, res.Commands)

	s, _ = apply(s, SetPlaybackPosition{Position: 9})
	s, res = apply(s, PausePlayback{})
	assert.False(t, s.Playhead.Playing)
	assert.Equal(t, 9.0, s.Playhead.PlaybackPosition)
	assert.Equal(t, []Command{CmdTransportPause{}}, res.Commands)

	s, res = apply(s, StopPlayback{})
	assert.Equal(t, 4.0, s.Playhead.PlaybackPosition)
	assert.Equal(t, []Command{CmdTransportStop{ReturnPosition: 4}}, res.Commands)

	s, res = apply(s, StartRecord{})
	assert.True(t, s.Playhead.Playing)
	assert.True(t, s.Playhead.Recording)
	assert.Equal(t, []Command{CmdTransportRecord{Position: 4}}, res.Commands)

	s, res = apply(s, StopPlayback{})
	assert.False(t, s.Playhead.Recording)
	assert.Len(t, res.Commands, 1)
}

func TestSetPlaybackStateSendsNothing(t *testing.T) {
	_, res := apply(newTestState(), SetPlaybackState{Playing: true, Recording: true})
	assert.Equal(t, ChangePlayhead, res.Changes)
	assert.Empty(t, res.Commands)
}

func TestEditCursor(t *testing.T) {
	s, res := apply(newTestState(), SetEditCursor{Position: 500})
	assert.Equal(t, ChangeSelection, res.Changes)
	assert.Equal(t, 300.0, s.EditCursor)

	s, _ = apply(s, SetEditCursor{Position: -7})
	assert.Equal(t, -1.0, s.EditCursor)
}

func TestTimeSelectionIsNormalized(t *testing.T) {
	s, res := apply(newTestState(), SetTimeSelection{Start: 10, End: 5, Tracks: []int{3, 1, 3}})
	assert.Equal(t, ChangeSelection, res.Changes)
	assert.Equal(t, 5.0, s.Selection.Start)
	assert.Equal(t, 10.0, s.Selection.End)
	assert.Equal(t, 10.0, s.Selection.StartBeats)
	assert.Equal(t, 20.0, s.Selection.EndBeats)
	assert.Equal(t, []int{1, 3}, s.Selection.Tracks)

	s, _ = apply(s, SetTimeSelection{Start: -5, End: 1000})
	assert.Equal(t, 0.0, s.Selection.Start)
	assert.Equal(t, 300.0, s.Selection.End)

	s, res = apply(s, ClearTimeSelection{})
	assert.Equal(t, ChangeSelection, res.Changes)
	assert.False(t, s.Selection.Active())
}

func TestCreateLoopFromSelection(t *testing.T) {
	res := Reduce(newTestState(), CreateLoopFromSelection{}, nil)
	assert.Equal(t, ChangeNone, res.Changes)

	s, res := apply(newTestState(), SetTimeSelection{Start: 2, End: 4}, CreateLoopFromSelection{})
	assert.Equal(t, ChangeSelection|ChangeLoop, res.Changes)
	assert.Equal(t, []Command{CmdLoopRegionChanged{Start: 2, End: 4, Enabled: true}}, res.Commands)
	assert.True(t, s.Loop.Enabled)
	assert.Equal(t, 4.0, s.Loop.StartBeats)
	assert.Equal(t, 8.0, s.Loop.EndBeats)
	assert.True(t, s.Selection.Hidden)
	assert.True(t, s.Selection.Active())
	assert.False(t, s.Selection.Visible())
}

func TestLoopRegionMinimumLength(t *testing.T) {
	s, res := apply(newTestState(), SetLoopRegion{Start: 1, End: 1})
	assert.Equal(t, ChangeLoop, res.Changes)
	assert.True(t, s.Loop.Valid())
	assert.True(t, s.Loop.Enabled)
	assert.InDelta(t, 1.01, s.Loop.End, 1e-12)
	require.Len(t, res.Commands, 1)
	assert.IsType(t, CmdLoopRegionChanged{}, res.Commands[0])

	s, _ = apply(s, SetLoopRegion{Start: 5, End: 2})
	assert.Equal(t, 5.0, s.Loop.Start)
	assert.InDelta(t, 5.01, s.Loop.End, 1e-12)

	s, _ = apply(s, SetLoopRegion{Start: 400, End: 500})
	assert.True(t, s.Loop.Valid())
	assert.Equal(t, 300.0, s.Loop.End)
	assert.InDelta(t, 299.99, s.Loop.Start, 1e-9)
}

func TestLoopEditing(t *testing.T) {
	res := Reduce(newTestState(), SetLoopEnabled{Enabled: true}, nil)
	assert.Equal(t, ChangeNone, res.Changes, "enabling requires a valid loop")

	s, _ := apply(newTestState(), SetLoopRegion{Start: 10, End: 14})

	s, res = apply(s, SetLoopEnabled{Enabled: false})
	assert.Equal(t, []Command{CmdLoopEnabledChanged{Enabled: false}}, res.Commands)
	assert.False(t, s.Loop.Enabled)

	s, res = apply(s, MoveLoopRegion{Start: 298})
	assert.Equal(t, 296.0, s.Loop.Start)
	assert.Equal(t, 300.0, s.Loop.End)
	assert.Equal(t, []Command{CmdLoopRegionChanged{Start: 296, End: 300, Enabled: false}}, res.Commands)

	s, res = apply(s, ClearLoopRegion{})
	assert.Equal(t, []Command{CmdLoopRegionChanged{Start: -1, End: -1, Enabled: false}}, res.Commands)
	assert.Equal(t, clearedLoop, s.Loop)
}

func TestPunchRegion(t *testing.T) {
	s, res := apply(newTestState(), SetPunchRegion{Start: 4, End: 8})
	assert.Equal(t, ChangePunch, res.Changes)
	assert.Equal(t, []Command{CmdPunchRegionChanged{Start: 4, End: 8, InEnabled: true, OutEnabled: true}}, res.Commands)

	s, res = apply(s, SetPunchInEnabled{Enabled: false})
	assert.Equal(t, []Command{CmdPunchEnabledChanged{InEnabled: false, OutEnabled: true}}, res.Commands)

	s, _ = apply(s, SetPunchRegion{Start: 5, End: 9})
	assert.False(t, s.Punch.InEnabled)
	assert.True(t, s.Punch.OutEnabled)

	s, res = apply(s, ClearPunchRegion{})
	assert.Equal(t, []Command{CmdPunchRegionChanged{Start: -1, End: -1}}, res.Commands)
	assert.False(t, s.Punch.Valid())

	res = Reduce(s, SetPunchOutEnabled{Enabled: false}, nil)
	assert.Equal(t, ChangeNone, res.Changes)
}

func TestSetTempoPreservesMusicalPositions(t *testing.T) {
	s, _ := apply(newTestState(),
		SetEditPosition{Position: 2},
		SetTimeSelection{Start: 1, End: 3},
		SetLoopRegion{Start: 4, End: 6},
		SetPunchRegion{Start: 8, End: 10},
	)

	s, res := apply(s, SetTempo{BPM: 60})

	assert.Equal(t, ChangeTempo|ChangePlayhead|ChangeSelection|ChangeLoop|ChangePunch, res.Changes)
	assert.Equal(t, []Command{
		CmdTempoChanged{BPM: 60},
		CmdLoopRegionChanged{Start: 8, End: 12, Enabled: true},
		CmdPunchRegionChanged{Start: 16, End: 20, InEnabled: true, OutEnabled: true},
		CmdResyncClips{OldBPM: 120, NewBPM: 60},
	}, res.Commands)

	assert.Equal(t, 4.0, s.Playhead.EditPosition)
	assert.Equal(t, 4.0, s.Playhead.PlaybackPosition)
	assert.Equal(t, 4.0, s.Playhead.EditPositionBeats)
	assert.Equal(t, 2.0, s.Selection.Start)
	assert.Equal(t, 6.0, s.Selection.End)
	assert.Equal(t, 8.0, s.Loop.Start)
	assert.Equal(t, 12.0, s.Loop.End)
	assert.Equal(t, 16.0, s.Punch.Start)
	assert.Equal(t, 20.0, s.Punch.End)
}

func TestSetTempoBackfillsMissingBeats(t *testing.T) {
	s := newTestState()
	s.Loop = LoopRegion{Start: 1, End: 2, StartBeats: -1, EndBeats: -1}
	s.Playhead.EditPosition = 3

	s, res := apply(s, SetTempo{BPM: 60})
	assert.Equal(t, 2.0, s.Loop.Start)
	assert.Equal(t, 4.0, s.Loop.End)
	assert.Equal(t, 6.0, s.Playhead.EditPosition)
	assert.NotContains(t, res.Commands, CmdLoopRegionChanged{Start: 2, End: 4}, "disabled loop is not sent")
}

func TestSetTempoClampsAndSkipsTinyResync(t *testing.T) {
	s, _ := apply(newTestState(), SetTempo{BPM: 5})
	assert.Equal(t, MinBPM, s.Tempo.BPM)
	s, _ = apply(s, SetTempo{BPM: 5000})
	assert.Equal(t, MaxBPM, s.Tempo.BPM)

	_, res := apply(newTestState(), SetTempo{BPM: 120.005})
	assert.Equal(t, []Command{CmdTempoChanged{BPM: 120.005}}, res.Commands)
}

func TestTimeSignatureAndDisplay(t *testing.T) {
	s, res := apply(newTestState(), SetTimeSignature{Numerator: 0, Denominator: 40})
	assert.Equal(t, ChangeTempo, res.Changes)
	assert.Equal(t, []Command{CmdTimeSignatureChanged{Numerator: 1, Denominator: 16}}, res.Commands)
	assert.Equal(t, 1, s.Tempo.Numerator)

	s, res = apply(s, SetGridQuantize{Numerator: 0, Denominator: 100})
	assert.Equal(t, ChangeDisplay, res.Changes)
	assert.Equal(t, GridQuantize{Numerator: 1, Denominator: 64}, s.Display.Grid)

	res = Reduce(s, SetTimeDisplayMode{Mode: TimeDisplayMode(9)}, nil)
	assert.Equal(t, ChangeNone, res.Changes)
}

func TestSections(t *testing.T) {
	s, res := apply(newTestState(), AddSection{Start: 10, End: 10.5})
	assert.Equal(t, ChangeSections, res.Changes)
	require.Len(t, s.Sections, 1)
	assert.Equal(t, Section{Name: "Section", Start: 10, End: 11, Colour: DefaultSectionColour}, s.Sections[0])

	s, _ = apply(s, AddSection{Name: "Chorus", Start: 20, End: 15, Colour: 0xFF00FF00})
	require.Len(t, s.Sections, 2)
	assert.Equal(t, 15.0, s.Sections[1].Start)
	assert.Equal(t, 20.0, s.Sections[1].End)

	s, _ = apply(s, MoveSection{Index: 1, Start: 299})
	assert.Equal(t, Section{Name: "Chorus", Start: 295, End: 300, Colour: 0xFF00FF00}, s.Sections[1])

	s, _ = apply(s, ResizeSection{Index: 0, Start: 3, End: 3.2})
	assert.Equal(t, 3.0, s.Sections[0].Start)
	assert.Equal(t, 4.0, s.Sections[0].End)

	s, _ = apply(s, SelectSection{Index: 1})
	assert.Equal(t, 1, s.SelectedSection)

	before := s
	s, _ = apply(s, RemoveSection{Index: 0})
	assert.Equal(t, 0, s.SelectedSection)
	assert.Len(t, before.Sections, 2, "reduce must not edit the input's slices")
	assert.Equal(t, "Section", before.Sections[0].Name)

	s, _ = apply(s, RemoveSection{Index: 0})
	assert.Equal(t, -1, s.SelectedSection)
	assert.Empty(t, s.Sections)

	res = Reduce(s, MoveSection{Index: 4, Start: 1}, nil)
	assert.Equal(t, ChangeNone, res.Changes)
}

func TestSetTimelineLengthPullsStateInside(t *testing.T) {
	s, _ := apply(newTestState(),
		SetEditPosition{Position: 20},
		SetEditCursor{Position: 11},
		SetTimeSelection{Start: 2, End: 12},
		SetLoopRegion{Start: 5, End: 15},
		SetPunchRegion{Start: 9.995, End: 15},
		AddSection{Name: "A", Start: 5, End: 8},
		AddSection{Name: "B", Start: 12, End: 14},
		SelectSection{Index: 1},
	)

	s, res := apply(s, SetTimelineLength{Length: 10})

	assert.Equal(t, ChangeTimeline|ChangeZoom|ChangeScroll|ChangePlayhead|ChangeSelection|
		ChangeLoop|ChangePunch|ChangeSections, res.Changes)
	assert.Equal(t, []Command{
		CmdEditPositionChanged{Position: 10},
		CmdLoopRegionChanged{Start: 5, End: 10, Enabled: true},
		CmdPunchRegionChanged{Start: -1, End: -1},
	}, res.Commands)

	assert.Equal(t, 10.0, s.Length)
	assert.Equal(t, 10.0, s.Playhead.EditPosition)
	assert.Equal(t, 10.0, s.Playhead.PlaybackPosition)
	assert.Equal(t, 10.0, s.EditCursor)
	assert.Equal(t, 10.0, s.Selection.End)
	assert.Equal(t, 10.0, s.Loop.End)
	assert.False(t, s.Punch.Valid())
	assert.Equal(t, []Section{{Name: "A", Start: 5, End: 8, Colour: DefaultSectionColour}}, s.Sections)
	assert.Equal(t, -1, s.SelectedSection)

	s, _ = apply(s, SetTimelineLength{Length: 0})
	assert.Equal(t, MinTimelineLength, s.Length)
}

func TestShrinkingLengthRaisesZoomFloor(t *testing.T) {
	s, _ := apply(newTestState(), SetZoom{PixelsPerBeat: 1})
	require.InDelta(t, s.MinZoom(), s.Zoom.PixelsPerBeat, 1e-9)

	s, res := apply(s, SetTimelineLength{Length: 10})

	assert.NotZero(t, res.Changes&ChangeZoom)
	assert.InDelta(t, 37.5, s.MinZoom(), 1e-9)
	assert.InDelta(t, s.MinZoom(), s.Zoom.PixelsPerBeat, 1e-9)
	assert.Equal(t, 0, s.Zoom.ScrollX)
	assert.LessOrEqual(t, s.Zoom.ScrollX, s.MaxScrollX())
}
