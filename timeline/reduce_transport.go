package timeline

import "slices"

func (r *reducer) setEditPosition(pos float64) {
	if !finite(pos) {
		return
	}
	p := &r.s.Playhead
	pos = clampFloat(pos, 0, r.s.Length)
	if pos == p.EditPosition {
		return
	}
	p.EditPosition = pos
	p.EditPositionBeats = r.s.SecondsToBeats(pos)
	if !p.Playing {
		p.PlaybackPosition = pos
	}
	r.emit(CmdEditPositionChanged{Position: pos})
	r.mark(ChangePlayhead)
}

func (r *reducer) setPlaybackPosition(pos float64) {
	if !finite(pos) {
		return
	}
	pos = clampFloat(pos, 0, r.s.Length)
	if pos == r.s.Playhead.PlaybackPosition {
		return
	}
	r.s.Playhead.PlaybackPosition = pos
	r.mark(ChangePlayhead)
}

func (r *reducer) startPlayback() {
	p := &r.s.Playhead
	if p.Playing {
		return
	}
	p.Playing = true
	p.PlaybackPosition = p.EditPosition
	r.emit(CmdTransportPlay{Position: p.EditPosition})
	r.mark(ChangePlayhead)
}

// stopPlayback ends playback and recording and returns the playback cursor to
// the edit position. Stopping after a pause still returns the cursor.
func (r *reducer) stopPlayback() {
	p := &r.s.Playhead
	if !p.Playing && !p.Recording && p.PlaybackPosition == p.EditPosition {
		return
	}
	p.Playing = false
	p.Recording = false
	p.PlaybackPosition = p.EditPosition
	r.emit(CmdTransportStop{ReturnPosition: p.EditPosition})
	r.mark(ChangePlayhead)
}

func (r *reducer) pausePlayback() {
	p := &r.s.Playhead
	if !p.Playing {
		return
	}
	p.Playing = false
	p.Recording = false
	r.emit(CmdTransportPause{})
	r.mark(ChangePlayhead)
}

func (r *reducer) startRecord() {
	p := &r.s.Playhead
	if p.Recording {
		return
	}
	p.Recording = true
	if !p.Playing {
		p.Playing = true
		p.PlaybackPosition = p.EditPosition
	}
	r.emit(CmdTransportRecord{Position: p.PlaybackPosition})
	r.mark(ChangePlayhead)
}

// setPlaybackState mirrors transport flags reported by the engine. The engine
// already knows, so nothing is sent back.
func (r *reducer) setPlaybackState(ev SetPlaybackState) {
	p := &r.s.Playhead
	if p.Playing == ev.Playing && p.Recording == ev.Recording {
		return
	}
	p.Playing = ev.Playing
	p.Recording = ev.Recording
	r.mark(ChangePlayhead)
}

func (r *reducer) setEditCursor(pos float64) {
	if !finite(pos) {
		return
	}
	if pos < 0 {
		pos = -1
	} else {
		pos = min(pos, r.s.Length)
	}
	if pos == r.s.EditCursor {
		return
	}
	r.s.EditCursor = pos
	r.mark(ChangeSelection)
}

// ============================================================================
// Selection
// ============================================================================

func normalizeTracks(tracks []int) []int {
	if len(tracks) == 0 {
		return nil
	}
	out := slices.Clone(tracks)
	slices.Sort(out)
	return slices.Compact(out)
}

func (r *reducer) setTimeSelection(ev SetTimeSelection) {
	if !finite(ev.Start, ev.End) {
		return
	}
	start := clampFloat(ev.Start, 0, r.s.Length)
	end := clampFloat(ev.End, 0, r.s.Length)
	if start > end {
		start, end = end, start
	}
	next := TimeSelection{
		Start:      start,
		End:        end,
		StartBeats: r.s.SecondsToBeats(start),
		EndBeats:   r.s.SecondsToBeats(end),
		Tracks:     normalizeTracks(ev.Tracks),
	}
	if selectionEqual(r.s.Selection, next) {
		return
	}
	r.s.Selection = next
	r.mark(ChangeSelection)
}

func selectionEqual(a, b TimeSelection) bool {
	return a.Start == b.Start && a.End == b.End &&
		a.StartBeats == b.StartBeats && a.EndBeats == b.EndBeats &&
		a.Hidden == b.Hidden && slices.Equal(a.Tracks, b.Tracks)
}

func (r *reducer) clearTimeSelection() {
	if !r.s.Selection.Active() {
		return
	}
	r.s.Selection = TimeSelection{Start: -1, End: -1, StartBeats: -1, EndBeats: -1}
	r.mark(ChangeSelection)
}

func (r *reducer) createLoopFromSelection() {
	sel := r.s.Selection
	if !sel.Active() {
		return
	}
	start, end := fitRange(sel.Start, sel.End, MinRegionDuration, r.s.Length, true)
	loop := LoopRegion{
		Start:      start,
		End:        end,
		StartBeats: r.s.SecondsToBeats(start),
		EndBeats:   r.s.SecondsToBeats(end),
		Enabled:    true,
	}
	if loop == r.s.Loop && sel.Hidden {
		return
	}
	if loop != r.s.Loop {
		r.s.Loop = loop
		r.emit(CmdLoopRegionChanged{Start: start, End: end, Enabled: true})
		r.mark(ChangeLoop)
	}
	if !sel.Hidden {
		r.s.Selection.Hidden = true
		r.mark(ChangeSelection)
	}
}

// ============================================================================
// Loop and punch
// ============================================================================

func (r *reducer) setLoopRegion(start, end float64) {
	if !finite(start, end) {
		return
	}
	start, end = fitRange(start, end, MinRegionDuration, r.s.Length, false)
	loop := LoopRegion{
		Start:      start,
		End:        end,
		StartBeats: r.s.SecondsToBeats(start),
		EndBeats:   r.s.SecondsToBeats(end),
		Enabled:    true,
	}
	if loop == r.s.Loop {
		return
	}
	r.s.Loop = loop
	r.emit(CmdLoopRegionChanged{Start: start, End: end, Enabled: true})
	r.mark(ChangeLoop)
}

func (r *reducer) clearLoopRegion() {
	if !r.s.Loop.Valid() {
		return
	}
	r.s.Loop = clearedLoop
	r.emit(CmdLoopRegionChanged{Start: -1, End: -1, Enabled: false})
	r.mark(ChangeLoop)
}

func (r *reducer) setLoopEnabled(enabled bool) {
	if !r.s.Loop.Valid() || r.s.Loop.Enabled == enabled {
		return
	}
	r.s.Loop.Enabled = enabled
	r.emit(CmdLoopEnabledChanged{Enabled: enabled})
	r.mark(ChangeLoop)
}

func (r *reducer) moveLoopRegion(start float64) {
	l := &r.s.Loop
	if !finite(start) || !l.Valid() {
		return
	}
	dur := l.End - l.Start
	start = clampFloat(start, 0, max(0, r.s.Length-dur))
	if start == l.Start {
		return
	}
	l.Start = start
	l.End = start + dur
	l.StartBeats = r.s.SecondsToBeats(l.Start)
	l.EndBeats = r.s.SecondsToBeats(l.End)
	r.emit(CmdLoopRegionChanged{Start: l.Start, End: l.End, Enabled: l.Enabled})
	r.mark(ChangeLoop)
}

func (r *reducer) setPunchRegion(start, end float64) {
	if !finite(start, end) {
		return
	}
	start, end = fitRange(start, end, MinRegionDuration, r.s.Length, false)
	in, out := r.s.Punch.InEnabled, r.s.Punch.OutEnabled
	if !in && !out {
		in, out = true, true
	}
	punch := PunchRegion{
		Start:      start,
		End:        end,
		StartBeats: r.s.SecondsToBeats(start),
		EndBeats:   r.s.SecondsToBeats(end),
		InEnabled:  in,
		OutEnabled: out,
	}
	if punch == r.s.Punch {
		return
	}
	r.s.Punch = punch
	r.emit(CmdPunchRegionChanged{Start: start, End: end, InEnabled: in, OutEnabled: out})
	r.mark(ChangePunch)
}

func (r *reducer) clearPunchRegion() {
	if !r.s.Punch.Valid() {
		return
	}
	r.s.Punch = clearedPunch
	r.emit(CmdPunchRegionChanged{Start: -1, End: -1})
	r.mark(ChangePunch)
}

func (r *reducer) setPunchSwitches(in, out bool) {
	p := &r.s.Punch
	if !p.Valid() || (p.InEnabled == in && p.OutEnabled == out) {
		return
	}
	p.InEnabled = in
	p.OutEnabled = out
	r.emit(CmdPunchEnabledChanged{InEnabled: in, OutEnabled: out})
	r.mark(ChangePunch)
}
