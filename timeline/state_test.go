package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStateDefaults(t *testing.T) {
	s := NewState(nil)

	assert.Equal(t, DefaultTimelineLength, s.Length)
	assert.Equal(t, -1.0, s.EditCursor)
	assert.Equal(t, TempoState{BPM: 120, Numerator: 4, Denominator: 4}, s.Tempo)
	assert.False(t, s.Selection.Active())
	assert.False(t, s.Loop.Valid())
	assert.False(t, s.Punch.Valid())
	assert.Equal(t, DisplayBarsBeats, s.Display.Mode)
	assert.True(t, s.Display.SnapEnabled)
	assert.Equal(t, -1, s.SelectedSection)

	// 60s of view at 120 bpm is 120 beats across 800px.
	assert.InDelta(t, 800.0/120.0, s.Zoom.PixelsPerBeat, 1e-9)
}

func TestNewStateHonoursConfig(t *testing.T) {
	s := NewState(Settings{TimelineLength: 0.2, ZoomViewDuration: 30})
	assert.Equal(t, MinTimelineLength, s.Length)

	s = NewState(Settings{TimelineLength: 600, ZoomViewDuration: 30})
	assert.Equal(t, 600.0, s.Length)
	assert.InDelta(t, 800.0/60.0, s.Zoom.PixelsPerBeat, 1e-9)
}

func TestMinZoomAndScrollBounds(t *testing.T) {
	s := NewState(nil)
	// (800-50) / 600 beats.
	assert.InDelta(t, 1.25, s.MinZoom(), 1e-12)

	s.Zoom.PixelsPerBeat = 10
	assert.Equal(t, 6000, s.ContentWidth())
	assert.Equal(t, 5200, s.MaxScrollX())

	s.Zoom.ViewportWidth = 30
	assert.Equal(t, fallbackMinZoom, s.MinZoom())
}

func TestPixelTimeMapping(t *testing.T) {
	s := NewState(nil)
	s.Zoom.PixelsPerBeat = 10
	s.Zoom.ScrollX = 100

	// 1s = 2 beats = 20px, plus padding.
	assert.Equal(t, 43, s.TimeToPixelLocal(1))
	assert.Equal(t, -57, s.TimeToPixel(1))
	assert.InDelta(t, 1.0, s.PixelToTimeLocal(43), 1e-12)
	assert.InDelta(t, 1.0, s.PixelToTime(-57), 1e-12)
	assert.Equal(t, 20, s.DurationToPixels(1))
}

func TestSnapInterval(t *testing.T) {
	s := NewState(nil)
	s.Zoom.PixelsPerBeat = 100
	// Quarter of a beat is 25px, half a beat is 50px.
	assert.InDelta(t, 0.25, s.SnapInterval(), 1e-12)

	s.Zoom.PixelsPerBeat = 1
	assert.InDelta(t, s.Tempo.SecondsPerBar(), s.SnapInterval(), 1e-12)

	s.Display.Mode = DisplaySeconds
	s.Zoom.PixelsPerBeat = 50 // 100px per second
	assert.InDelta(t, 0.5, s.SnapInterval(), 1e-12)

	s.Display.SnapEnabled = false
	assert.Equal(t, 0.7, s.SnapTimeToGrid(0.7))
}

func TestFormatTimePosition(t *testing.T) {
	s := NewState(nil)
	assert.Equal(t, "1.1.1", s.FormatTimePosition(0))
	assert.Equal(t, "2.1.1", s.FormatTimePosition(2))
	assert.Equal(t, "1.2.3", s.FormatTimePosition(0.75))

	s.Display.Mode = DisplaySeconds
	assert.Equal(t, "2.5s", s.FormatTimePosition(2.5))
	assert.Equal(t, "42s", s.FormatTimePosition(42))
	assert.Equal(t, "1:05", s.FormatTimePosition(65))
}

func TestTimeDisplayModeText(t *testing.T) {
	b, err := DisplaySeconds.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "seconds", string(b))

	var m TimeDisplayMode
	require.NoError(t, m.UnmarshalText([]byte("bars")))
	assert.Equal(t, DisplayBarsBeats, m)
	assert.Error(t, m.UnmarshalText([]byte("frames")))

	_, err = TimeDisplayMode(7).MarshalText()
	assert.Error(t, err)
}

func TestCloneDetachesSlices(t *testing.T) {
	s := NewState(nil)
	s.Sections = []Section{{Name: "A", Start: 0, End: 4}}
	s.Selection.Tracks = []int{1}

	c := s.Clone()
	c.Sections[0].Name = "B"
	c.Selection.Tracks[0] = 9

	assert.Equal(t, "A", s.Sections[0].Name)
	assert.Equal(t, 1, s.Selection.Tracks[0])
}

func TestRegionHelpers(t *testing.T) {
	l := LoopRegion{Start: 1, End: 1.01}
	assert.True(t, l.Valid())
	assert.True(t, l.Contains(1.005))
	assert.False(t, l.Contains(1.01))

	assert.False(t, LoopRegion{Start: 1, End: 1.005}.Valid())
	assert.False(t, clearedPunch.Valid())
	assert.Zero(t, clearedLoop.Duration())

	sel := TimeSelection{Start: 2, End: 4, Tracks: []int{1, 3}}
	assert.True(t, sel.Visible())
	assert.True(t, sel.IncludesTrack(3))
	assert.False(t, sel.IncludesTrack(2))
	assert.True(t, TimeSelection{Start: 2, End: 4}.IncludesTrack(7))
}
