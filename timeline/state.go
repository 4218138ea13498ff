package timeline

import (
	"fmt"
	"math"
	"slices"
	"strconv"
)

// Layout and range constants shared by every view of the timeline.
const (
	// LeftPadding is the pixel gap between a view's left edge and time zero.
	LeftPadding = 23

	// MinRegionDuration is the shortest loop or punch region, in seconds.
	MinRegionDuration = 0.01

	// MinSectionDuration is the shortest arrangement section, in seconds.
	MinSectionDuration = 1.0

	MinBPM = 20.0
	MaxBPM = 999.0

	MinTimeSignature = 1
	MaxTimeSignature = 16

	MinGridDivision = 1
	MaxGridDivision = 64

	// MinTimelineLength keeps the project bound away from zero.
	MinTimelineLength = 1.0

	// DefaultFitPadding is the fraction of the fitted range added on each side by ZoomToFit.
	DefaultFitPadding = 0.05

	DefaultPixelsPerBeat  = 10.0
	DefaultViewportWidth  = 800
	DefaultViewportHeight = 600
	DefaultBPM            = 120.0

	// minPixelSpacing is the narrowest gap between snap grid lines.
	minPixelSpacing = 50

	// fallbackMinZoom is used when the viewport is too narrow to derive one.
	fallbackMinZoom = 0.1

	regionEpsilon = 1e-9
)

// ZoomState is the horizontal zoom (pixels per beat) plus scroll offsets and viewport size.
type ZoomState struct {
	PixelsPerBeat  float64 `json:"pixels_per_beat"`
	ScrollX        int     `json:"scroll_x"`
	ScrollY        int     `json:"scroll_y"`
	ViewportWidth  int     `json:"viewport_width"`
	ViewportHeight int     `json:"viewport_height"`
}

// PlayheadState separates the stationary edit position from the moving playback cursor.
type PlayheadState struct {
	EditPosition      float64 `json:"edit_position"`
	EditPositionBeats float64 `json:"edit_position_beats"`
	PlaybackPosition  float64 `json:"playback_position"`
	Playing           bool    `json:"playing"`
	Recording         bool    `json:"recording"`
}

// Current returns the playback position while playing and the edit position otherwise.
func (p PlayheadState) Current() float64 {
	if p.Playing {
		return p.PlaybackPosition
	}
	return p.EditPosition
}

// TimeSelection is a time range across a set of tracks. Hidden keeps the range
// around after it has been turned into a loop.
type TimeSelection struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	StartBeats float64 `json:"start_beats"`
	EndBeats   float64 `json:"end_beats"`
	Tracks     []int   `json:"tracks,omitempty"`
	Hidden     bool    `json:"hidden"`
}

// Active reports whether the selection holds a non-empty range.
func (s TimeSelection) Active() bool { return s.Start >= 0 && s.End > s.Start }

// Visible reports whether the selection should be drawn.
func (s TimeSelection) Visible() bool { return s.Active() && !s.Hidden }

// Duration returns End-Start for an active selection and 0 otherwise.
func (s TimeSelection) Duration() float64 {
	if !s.Active() {
		return 0
	}
	return s.End - s.Start
}

// IncludesTrack reports whether track is part of the selection. An empty
// track list selects every track.
func (s TimeSelection) IncludesTrack(track int) bool {
	if len(s.Tracks) == 0 {
		return true
	}
	return slices.Contains(s.Tracks, track)
}

// LoopRegion is the transport loop range.
type LoopRegion struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	StartBeats float64 `json:"start_beats"`
	EndBeats   float64 `json:"end_beats"`
	Enabled    bool    `json:"enabled"`
}

// Valid reports whether the region is at least MinRegionDuration long.
func (r LoopRegion) Valid() bool { return validRange(r.Start, r.End) }

// Duration returns the region length for a valid region and 0 otherwise.
func (r LoopRegion) Duration() float64 {
	if !r.Valid() {
		return 0
	}
	return r.End - r.Start
}

// Contains reports whether t falls inside [Start, End).
func (r LoopRegion) Contains(t float64) bool { return r.Valid() && t >= r.Start && t < r.End }

// PunchRegion is the auto-record range with independent in/out switches.
type PunchRegion struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	StartBeats float64 `json:"start_beats"`
	EndBeats   float64 `json:"end_beats"`
	InEnabled  bool    `json:"in_enabled"`
	OutEnabled bool    `json:"out_enabled"`
}

// Valid reports whether the region is at least MinRegionDuration long.
func (r PunchRegion) Valid() bool { return validRange(r.Start, r.End) }

// Enabled reports whether either punch switch is on.
func (r PunchRegion) Enabled() bool { return r.InEnabled || r.OutEnabled }

// Duration returns the region length for a valid region and 0 otherwise.
func (r PunchRegion) Duration() float64 {
	if !r.Valid() {
		return 0
	}
	return r.End - r.Start
}

func validRange(start, end float64) bool {
	return start >= 0 && end-start >= MinRegionDuration-regionEpsilon
}

var (
	clearedLoop  = LoopRegion{Start: -1, End: -1, StartBeats: -1, EndBeats: -1}
	clearedPunch = PunchRegion{Start: -1, End: -1, StartBeats: -1, EndBeats: -1}
)

// TempoState holds bpm and time signature.
type TempoState struct {
	BPM         float64 `json:"bpm"`
	Numerator   int     `json:"numerator"`
	Denominator int     `json:"denominator"`
}

func (t TempoState) SecondsPerBeat() float64 {
	if t.BPM <= 0 {
		return 0
	}
	return 60.0 / t.BPM
}

func (t TempoState) SecondsPerBar() float64 {
	return t.SecondsPerBeat() * float64(t.Numerator)
}

// TimeToBars converts seconds to a fractional bar count.
func (t TempoState) TimeToBars(seconds float64) float64 {
	if t.Numerator <= 0 {
		return 0
	}
	return SecondsToBeats(seconds, t.BPM) / float64(t.Numerator)
}

// BarsToTime converts a fractional bar count to seconds.
func (t TempoState) BarsToTime(bars float64) float64 {
	return bars * t.SecondsPerBar()
}

// TimeDisplayMode selects how positions are labelled.
type TimeDisplayMode int

const (
	DisplaySeconds TimeDisplayMode = iota
	DisplayBarsBeats
)

func (m TimeDisplayMode) String() string {
	switch m {
	case DisplaySeconds:
		return "seconds"
	case DisplayBarsBeats:
		return "bars_beats"
	default:
		return "unknown(" + strconv.Itoa(int(m)) + ")"
	}
}

func (m TimeDisplayMode) MarshalText() ([]byte, error) {
	switch m {
	case DisplaySeconds, DisplayBarsBeats:
		return []byte(m.String()), nil
	default:
		return nil, fmt.Errorf("invalid time display mode %d", int(m))
	}
}

func (m *TimeDisplayMode) UnmarshalText(b []byte) error {
	switch string(b) {
	case "seconds":
		*m = DisplaySeconds
	case "bars_beats", "bars":
		*m = DisplayBarsBeats
	default:
		return fmt.Errorf("invalid time display mode %q", string(b))
	}
	return nil
}

// GridQuantize is the editing grid. With Auto set the grid follows the zoom level.
type GridQuantize struct {
	Auto        bool `json:"auto"`
	Numerator   int  `json:"numerator"`
	Denominator int  `json:"denominator"`
}

// DisplayState holds view preferences that do not move anything on the timeline.
type DisplayState struct {
	Mode              TimeDisplayMode `json:"mode"`
	SnapEnabled       bool            `json:"snap_enabled"`
	ArrangementLocked bool            `json:"arrangement_locked"`
	Grid              GridQuantize    `json:"grid"`
}

// Colour is a packed 0xAARRGGBB value.
type Colour uint32

// DefaultSectionColour is opaque blue.
const DefaultSectionColour Colour = 0xFF0000FF

func (c Colour) String() string { return fmt.Sprintf("#%08X", uint32(c)) }

// Section is a named arrangement block.
type Section struct {
	Name   string  `json:"name"`
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	Colour Colour  `json:"colour"`
}

func (s Section) Duration() float64 { return s.End - s.Start }

// State is the whole timeline. Slices are never modified in place once a State
// has been published, so copies share them safely.
type State struct {
	Length          float64       `json:"length"`
	EditCursor      float64       `json:"edit_cursor"`
	Zoom            ZoomState     `json:"zoom"`
	Playhead        PlayheadState `json:"playhead"`
	Selection       TimeSelection `json:"selection"`
	Loop            LoopRegion    `json:"loop"`
	Punch           PunchRegion   `json:"punch"`
	Tempo           TempoState    `json:"tempo"`
	Display         DisplayState  `json:"display"`
	Sections        []Section     `json:"sections,omitempty"`
	SelectedSection int           `json:"selected_section"`
}

// NewState builds the initial state from cfg.
func NewState(cfg Config) State {
	if cfg == nil {
		cfg = DefaultSettings()
	}
	s := State{
		Length:     cfg.DefaultTimelineLength(),
		EditCursor: -1,
		Zoom: ZoomState{
			PixelsPerBeat:  DefaultPixelsPerBeat,
			ViewportWidth:  DefaultViewportWidth,
			ViewportHeight: DefaultViewportHeight,
		},
		Selection: TimeSelection{Start: -1, End: -1, StartBeats: -1, EndBeats: -1},
		Loop:      clearedLoop,
		Punch:     clearedPunch,
		Tempo:     TempoState{BPM: DefaultBPM, Numerator: 4, Denominator: 4},
		Display: DisplayState{
			Mode:              DisplayBarsBeats,
			SnapEnabled:       true,
			ArrangementLocked: true,
			Grid:              GridQuantize{Auto: true, Numerator: 1, Denominator: 4},
		},
		SelectedSection: -1,
	}
	if s.Length < MinTimelineLength {
		s.Length = MinTimelineLength
	}
	if viewBeats := s.SecondsToBeats(cfg.DefaultZoomViewDuration()); viewBeats > 0 {
		s.Zoom.PixelsPerBeat = clampZoom(s, float64(s.Zoom.ViewportWidth)/viewBeats, cfg)
	}
	return s
}

// Clone returns a copy whose slices are not shared with s.
func (s State) Clone() State {
	s.Sections = slices.Clone(s.Sections)
	s.Selection.Tracks = slices.Clone(s.Selection.Tracks)
	return s
}

func (s State) SecondsToBeats(seconds float64) float64 { return SecondsToBeats(seconds, s.Tempo.BPM) }

func (s State) BeatsToSeconds(beats float64) float64 { return BeatsToSeconds(beats, s.Tempo.BPM) }

// ContentWidth is the scrollable width in pixels: the whole project at the
// current zoom, but never less than one and a half viewports.
func (s State) ContentWidth() int {
	w := int(s.SecondsToBeats(s.Length) * s.Zoom.PixelsPerBeat)
	return max(w, s.Zoom.ViewportWidth+s.Zoom.ViewportWidth/2)
}

// MaxScrollX is the largest valid horizontal scroll offset.
func (s State) MaxScrollX() int {
	return max(0, s.ContentWidth()-s.Zoom.ViewportWidth)
}

// MinZoom is the zoom at which the whole project fits the viewport.
func (s State) MinZoom() float64 {
	beats := s.SecondsToBeats(s.Length)
	if s.Zoom.ViewportWidth > 0 && beats > 0 {
		if z := float64(s.Zoom.ViewportWidth-50) / beats; z > 0 {
			return z
		}
	}
	return fallbackMinZoom
}

// PixelToTime maps a view pixel to seconds, accounting for scroll.
func (s State) PixelToTime(pixel int) float64 {
	return s.PixelToTimeLocal(pixel + s.Zoom.ScrollX)
}

// PixelToTimeLocal maps a content pixel to seconds, ignoring scroll.
func (s State) PixelToTimeLocal(pixel int) float64 {
	if s.Zoom.PixelsPerBeat <= 0 {
		return 0
	}
	return s.BeatsToSeconds(float64(pixel-LeftPadding) / s.Zoom.PixelsPerBeat)
}

// TimeToPixel maps seconds to a view pixel, accounting for scroll.
func (s State) TimeToPixel(t float64) int {
	return s.TimeToPixelLocal(t) - s.Zoom.ScrollX
}

// TimeToPixelLocal maps seconds to a content pixel, ignoring scroll.
func (s State) TimeToPixelLocal(t float64) int {
	return int(s.SecondsToBeats(t)*s.Zoom.PixelsPerBeat) + LeftPadding
}

// DurationToPixels returns the width of a duration at the current zoom.
func (s State) DurationToPixels(d float64) int {
	return int(s.SecondsToBeats(d) * s.Zoom.PixelsPerBeat)
}

var (
	secondGridIntervals = []float64{0.001, 0.002, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.25, 0.5, 1, 2, 5, 10, 15, 30, 60}
	beatGridFractions   = []float64{0.0625, 0.125, 0.25, 0.5, 1, 2}
)

// SnapInterval returns the grid spacing in seconds: the finest interval whose
// lines are at least minPixelSpacing apart.
func (s State) SnapInterval() float64 {
	if s.Display.Mode == DisplaySeconds {
		for _, iv := range secondGridIntervals {
			if s.DurationToPixels(iv) >= minPixelSpacing {
				return iv
			}
		}
		return 1.0
	}
	for _, f := range beatGridFractions {
		if s.Zoom.PixelsPerBeat*f >= minPixelSpacing {
			return s.Tempo.SecondsPerBeat() * f
		}
	}
	return s.Tempo.SecondsPerBar()
}

// SnapTimeToGrid rounds t to the current grid when snapping is on.
func (s State) SnapTimeToGrid(t float64) float64 {
	if !s.Display.SnapEnabled {
		return t
	}
	return SnapToGrid(t, s.SnapInterval())
}

// FormatTimePosition labels t for the current display mode.
func (s State) FormatTimePosition(t float64) string {
	if s.Display.Mode == DisplaySeconds {
		switch {
		case t < 10:
			return strconv.FormatFloat(t, 'f', 1, 64) + "s"
		case t < 60:
			return strconv.FormatFloat(t, 'f', 0, 64) + "s"
		default:
			secs := int(t)
			return fmt.Sprintf("%d:%02d", secs/60, secs%60)
		}
	}
	num := float64(max(s.Tempo.Numerator, 1))
	beats := s.SecondsToBeats(t)
	bar := int(beats/num) + 1
	beat := int(math.Mod(beats, num)) + 1
	_, frac := math.Modf(beats)
	return fmt.Sprintf("%d.%d.%d", bar, beat, int(frac*4)+1)
}
