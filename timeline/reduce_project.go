package timeline

import (
	"math"
	"slices"
)

// resyncThreshold is the smallest bpm change that re-syncs tempo-locked clips.
const resyncThreshold = 0.01

// setTempo changes bpm while keeping every musical position on the same beat.
// Beat coordinates that were never derived are backfilled from the old bpm
// before the seconds are recomputed.
func (r *reducer) setTempo(bpm float64) {
	if !finite(bpm) {
		return
	}
	bpm = clampFloat(bpm, MinBPM, MaxBPM)
	old := r.s.Tempo.BPM
	if bpm == old {
		return
	}
	r.s.Tempo.BPM = bpm
	r.mark(ChangeTempo)

	if p := &r.s.Playhead; p.EditPosition > 0 {
		if p.EditPositionBeats <= 0 {
			p.EditPositionBeats = SecondsToBeats(p.EditPosition, old)
		}
		p.EditPosition = BeatsToSeconds(p.EditPositionBeats, bpm)
		if !p.Playing {
			p.PlaybackPosition = p.EditPosition
		}
		r.mark(ChangePlayhead)
	}

	if sel := &r.s.Selection; sel.Active() {
		sel.StartBeats = backfillBeats(sel.StartBeats, sel.Start, old)
		sel.EndBeats = backfillBeats(sel.EndBeats, sel.End, old)
		sel.Start = BeatsToSeconds(sel.StartBeats, bpm)
		sel.End = BeatsToSeconds(sel.EndBeats, bpm)
		r.mark(ChangeSelection)
	}

	if p := &r.s.Punch; p.Valid() {
		p.StartBeats = backfillBeats(p.StartBeats, p.Start, old)
		p.EndBeats = backfillBeats(p.EndBeats, p.End, old)
		p.Start = BeatsToSeconds(p.StartBeats, bpm)
		p.End = BeatsToSeconds(p.EndBeats, bpm)
		r.mark(ChangePunch)
	}

	if l := &r.s.Loop; l.Valid() {
		l.StartBeats = backfillBeats(l.StartBeats, l.Start, old)
		l.EndBeats = backfillBeats(l.EndBeats, l.End, old)
		l.Start = BeatsToSeconds(l.StartBeats, bpm)
		l.End = BeatsToSeconds(l.EndBeats, bpm)
		r.mark(ChangeLoop)
	}

	r.emit(CmdTempoChanged{BPM: bpm})
	if l := r.s.Loop; l.Valid() && l.Enabled {
		r.emit(CmdLoopRegionChanged{Start: l.Start, End: l.End, Enabled: true})
	}
	if p := r.s.Punch; p.Valid() && p.Enabled() {
		r.emit(CmdPunchRegionChanged{Start: p.Start, End: p.End, InEnabled: p.InEnabled, OutEnabled: p.OutEnabled})
	}
	if math.Abs(bpm-old) > resyncThreshold {
		r.emit(CmdResyncClips{OldBPM: old, NewBPM: bpm})
	}
}

func backfillBeats(beats, seconds, bpm float64) float64 {
	if beats < 0 {
		return SecondsToBeats(seconds, bpm)
	}
	return beats
}

func (r *reducer) setTimeSignature(num, den int) {
	num = clampInt(num, MinTimeSignature, MaxTimeSignature)
	den = clampInt(den, MinTimeSignature, MaxTimeSignature)
	if num == r.s.Tempo.Numerator && den == r.s.Tempo.Denominator {
		return
	}
	r.s.Tempo.Numerator = num
	r.s.Tempo.Denominator = den
	r.emit(CmdTimeSignatureChanged{Numerator: num, Denominator: den})
	r.mark(ChangeTempo)
}

func (r *reducer) setDisplayMode(m TimeDisplayMode) {
	if m != DisplaySeconds && m != DisplayBarsBeats {
		return
	}
	r.setDisplay(func(d *DisplayState) { d.Mode = m })
}

func (r *reducer) setDisplay(apply func(*DisplayState)) {
	next := r.s.Display
	apply(&next)
	if next == r.s.Display {
		return
	}
	r.s.Display = next
	r.mark(ChangeDisplay)
}

// ============================================================================
// Sections
// ============================================================================

func (r *reducer) validSection(i int) bool { return i >= 0 && i < len(r.s.Sections) }

// replaceSections installs a modified copy so earlier snapshots keep theirs.
func (r *reducer) replaceSections(next []Section) {
	r.s.Sections = next
	r.mark(ChangeSections)
}

func (r *reducer) addSection(ev AddSection) {
	if !finite(ev.Start, ev.End) {
		return
	}
	start, end := fitRange(ev.Start, ev.End, MinSectionDuration, r.s.Length, true)
	sec := Section{Name: ev.Name, Start: start, End: end, Colour: ev.Colour}
	if sec.Name == "" {
		sec.Name = "Section"
	}
	if sec.Colour == 0 {
		sec.Colour = DefaultSectionColour
	}
	r.replaceSections(append(slices.Clip(r.s.Sections), sec))
}

func (r *reducer) removeSection(i int) {
	if !r.validSection(i) {
		return
	}
	r.replaceSections(slices.Delete(slices.Clone(r.s.Sections), i, i+1))
	switch {
	case r.s.SelectedSection == i:
		r.s.SelectedSection = -1
	case r.s.SelectedSection > i:
		r.s.SelectedSection--
	}
}

func (r *reducer) moveSection(i int, start float64) {
	if !finite(start) || !r.validSection(i) {
		return
	}
	sec := r.s.Sections[i]
	dur := sec.Duration()
	start = clampFloat(start, 0, max(0, r.s.Length-dur))
	if start == sec.Start {
		return
	}
	sec.Start, sec.End = start, start+dur
	next := slices.Clone(r.s.Sections)
	next[i] = sec
	r.replaceSections(next)
}

func (r *reducer) resizeSection(i int, start, end float64) {
	if !finite(start, end) || !r.validSection(i) {
		return
	}
	sec := r.s.Sections[i]
	start, end = fitRange(start, end, MinSectionDuration, r.s.Length, true)
	if start == sec.Start && end == sec.End {
		return
	}
	sec.Start, sec.End = start, end
	next := slices.Clone(r.s.Sections)
	next[i] = sec
	r.replaceSections(next)
}

func (r *reducer) selectSection(i int) {
	if !r.validSection(i) {
		i = -1
	}
	if i == r.s.SelectedSection {
		return
	}
	r.s.SelectedSection = i
	r.mark(ChangeSections)
}

// ============================================================================
// Project length
// ============================================================================

// setTimelineLength changes the project bound and pulls everything that
// depends on it back inside. Regions that become too short are cleared.
func (r *reducer) setTimelineLength(length float64) {
	if !finite(length) {
		return
	}
	length = max(length, MinTimelineLength)
	if length == r.s.Length {
		return
	}
	r.s.Length = length
	r.mark(ChangeTimeline | ChangeZoom | ChangeScroll)

	p := &r.s.Playhead
	if p.EditPosition > length {
		p.EditPosition = length
		p.EditPositionBeats = r.s.SecondsToBeats(length)
		r.emit(CmdEditPositionChanged{Position: length})
		r.mark(ChangePlayhead)
	}
	if p.PlaybackPosition > length {
		p.PlaybackPosition = length
		r.mark(ChangePlayhead)
	}
	if r.s.EditCursor > length {
		r.s.EditCursor = length
		r.mark(ChangeSelection)
	}

	if sel := &r.s.Selection; sel.Active() && sel.End > length {
		sel.End = length
		sel.EndBeats = r.s.SecondsToBeats(length)
		if !sel.Active() {
			*sel = TimeSelection{Start: -1, End: -1, StartBeats: -1, EndBeats: -1}
		}
		r.mark(ChangeSelection)
	}

	if l := &r.s.Loop; l.Start >= 0 && l.End > length {
		l.End = length
		l.EndBeats = r.s.SecondsToBeats(length)
		if l.Valid() {
			r.emit(CmdLoopRegionChanged{Start: l.Start, End: l.End, Enabled: l.Enabled})
		} else {
			*l = clearedLoop
			r.emit(CmdLoopRegionChanged{Start: -1, End: -1})
		}
		r.mark(ChangeLoop)
	}

	if pr := &r.s.Punch; pr.Start >= 0 && pr.End > length {
		pr.End = length
		pr.EndBeats = r.s.SecondsToBeats(length)
		if pr.Valid() {
			r.emit(CmdPunchRegionChanged{Start: pr.Start, End: pr.End, InEnabled: pr.InEnabled, OutEnabled: pr.OutEnabled})
		} else {
			*pr = clearedPunch
			r.emit(CmdPunchRegionChanged{Start: -1, End: -1})
		}
		r.mark(ChangePunch)
	}

	if secs, ok := trimSections(r.s.Sections, length); ok {
		if len(secs) != len(r.s.Sections) {
			r.s.SelectedSection = -1
		}
		r.s.Sections = secs
		r.mark(ChangeSections)
	}

	// MinZoom follows the length.
	r.s.Zoom.PixelsPerBeat = clampZoom(r.s, r.s.Zoom.PixelsPerBeat, r.cfg)
	clampScroll(&r.s)
}

// trimSections drops sections that start past length and shortens those that
// cross it. ok is false when nothing needed trimming.
func trimSections(secs []Section, length float64) (out []Section, ok bool) {
	if !slices.ContainsFunc(secs, func(s Section) bool { return s.End > length }) {
		return secs, false
	}
	out = make([]Section, 0, len(secs))
	for _, s := range secs {
		if s.Start >= length {
			continue
		}
		s.End = min(s.End, length)
		out = append(out, s)
	}
	return out, true
}
