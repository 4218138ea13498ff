package timeline

import "math"

// ReduceResult is the output of Reduce: the next state, what changed, and the
// engine Commands to deliver once the state is committed.
//
// Commands are ordered. For a tempo change the tempo update always precedes
// the loop and punch updates derived from it.
type ReduceResult struct {
	State    State
	Changes  ChangeFlags
	Commands []Command
}

// Reduce is the pure timeline reducer.
//
// Rules:
//   - Must not perform I/O or call listeners
//   - Must not modify slices reachable from s; replacements are fresh slices
//   - Out-of-range inputs are clamped, never rejected
//   - An event that leaves the state unchanged yields ChangeNone and no Commands
//
// The Controller commits State, delivers Commands to the engine listeners in
// order, then notifies state listeners with Changes.
func Reduce(s State, e Event, cfg Config) ReduceResult {
	if cfg == nil {
		cfg = DefaultSettings()
	}
	r := &reducer{s: s, cfg: cfg}

	switch ev := eventValue(e).(type) {
	// Zoom
	case SetZoom:
		r.setZoom(ev.PixelsPerBeat)
	case SetZoomCentered:
		r.setZoomCentered(ev)
	case SetZoomAnchored:
		r.setZoomAnchored(ev)
	case ZoomToFit:
		r.zoomToFit(ev)
	case ResetZoom:
		r.resetZoom()

	// Scroll
	case SetScrollPosition:
		r.setScrollPosition(ev)
	case ScrollByDelta:
		r.scrollBy(ev.DX, ev.DY)
	case ScrollToTime:
		r.scrollToTime(ev)

	// Playhead and transport
	case SetEditPosition:
		r.setEditPosition(ev.Position)
	case SetPlayheadPosition:
		r.setEditPosition(ev.Position)
	case MovePlayheadByDelta:
		r.setEditPosition(r.s.Playhead.EditPosition + ev.Delta)
	case SetPlaybackPosition:
		r.setPlaybackPosition(ev.Position)
	case StartPlayback:
		r.startPlayback()
	case StopPlayback:
		r.stopPlayback()
	case PausePlayback:
		r.pausePlayback()
	case StartRecord:
		r.startRecord()
	case SetPlaybackState:
		r.setPlaybackState(ev)
	case SetEditCursor:
		r.setEditCursor(ev.Position)

	// Selection
	case SetTimeSelection:
		r.setTimeSelection(ev)
	case ClearTimeSelection:
		r.clearTimeSelection()
	case CreateLoopFromSelection:
		r.createLoopFromSelection()

	// Loop and punch
	case SetLoopRegion:
		r.setLoopRegion(ev.Start, ev.End)
	case ClearLoopRegion:
		r.clearLoopRegion()
	case SetLoopEnabled:
		r.setLoopEnabled(ev.Enabled)
	case MoveLoopRegion:
		r.moveLoopRegion(ev.Start)
	case SetPunchRegion:
		r.setPunchRegion(ev.Start, ev.End)
	case ClearPunchRegion:
		r.clearPunchRegion()
	case SetPunchInEnabled:
		r.setPunchSwitches(ev.Enabled, r.s.Punch.OutEnabled)
	case SetPunchOutEnabled:
		r.setPunchSwitches(r.s.Punch.InEnabled, ev.Enabled)

	// Tempo and display
	case SetTempo:
		r.setTempo(ev.BPM)
	case SetTimeSignature:
		r.setTimeSignature(ev.Numerator, ev.Denominator)
	case SetTimeDisplayMode:
		r.setDisplayMode(ev.Mode)
	case SetSnapEnabled:
		r.setDisplay(func(d *DisplayState) { d.SnapEnabled = ev.Enabled })
	case SetArrangementLocked:
		r.setDisplay(func(d *DisplayState) { d.ArrangementLocked = ev.Locked })
	case SetGridQuantize:
		r.setDisplay(func(d *DisplayState) {
			d.Grid = GridQuantize{
				Auto:        ev.Auto,
				Numerator:   clampInt(ev.Numerator, MinGridDivision, MaxGridDivision),
				Denominator: clampInt(ev.Denominator, MinGridDivision, MaxGridDivision),
			}
		})

	// Sections
	case AddSection:
		r.addSection(ev)
	case RemoveSection:
		r.removeSection(ev.Index)
	case MoveSection:
		r.moveSection(ev.Index, ev.Start)
	case ResizeSection:
		r.resizeSection(ev.Index, ev.Start, ev.End)
	case SelectSection:
		r.selectSection(ev.Index)

	// Viewport and project
	case ViewportResized:
		r.viewportResized(ev.Width, ev.Height)
	case SetTimelineLength:
		r.setTimelineLength(ev.Length)

	default:
		// Unknown event type: no-op.
	}

	if r.changes == ChangeNone {
		return ReduceResult{State: s}
	}
	return ReduceResult{State: r.s, Changes: r.changes, Commands: r.cmds}
}

// reducer accumulates one Reduce call. s is a value copy of the input.
type reducer struct {
	s       State
	cfg     Config
	changes ChangeFlags
	cmds    []Command
}

func (r *reducer) mark(f ChangeFlags) { r.changes |= f }

func (r *reducer) emit(c Command) { r.cmds = append(r.cmds, c) }

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// clampZoom limits z to [max(MinZoom, cfg min), cfg max].
func clampZoom(s State, z float64, cfg Config) float64 {
	lo := max(s.MinZoom(), cfg.MinZoomLevel())
	hi := cfg.MaxZoomLevel()
	if lo > hi {
		lo = hi
	}
	return clampFloat(z, lo, hi)
}

// clampScroll keeps ScrollX within [0, MaxScrollX] and ScrollY non-negative.
func clampScroll(s *State) {
	s.Zoom.ScrollX = clampInt(s.Zoom.ScrollX, 0, s.MaxScrollX())
	s.Zoom.ScrollY = max(s.Zoom.ScrollY, 0)
}

// fitRange clamps [start, end] into [0, length] and pads it to at least
// minDur, moving start back when the padded end would pass length.
// Inverted bounds are swapped only when swap is set; otherwise end is
// pushed forward.
func fitRange(start, end, minDur, length float64, swap bool) (float64, float64) {
	start = clampFloat(start, 0, length)
	end = clampFloat(end, 0, length)
	if swap && end < start {
		start, end = end, start
	}
	if end-start < minDur {
		end = start + minDur
		if end > length {
			end = length
			start = max(0, end-minDur)
		}
	}
	return start, end
}
