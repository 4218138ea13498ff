package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecondsBeatsRoundTrip(t *testing.T) {
	for _, bpm := range []float64{20, 60, 97.5, 120, 999} {
		for _, secs := range []float64{0, 0.25, 1, 13.37, 300} {
			beats := SecondsToBeats(secs, bpm)
			assert.InDelta(t, secs, BeatsToSeconds(beats, bpm), 1e-9, "bpm=%v secs=%v", bpm, secs)
		}
	}
}

func TestConversionsWithNonPositiveBPM(t *testing.T) {
	assert.Zero(t, SecondsToBeats(10, 0))
	assert.Zero(t, BeatsToSeconds(10, -1))
}

func TestPixelTimeHelpers(t *testing.T) {
	assert.Equal(t, 123, TimeToPixel(1, 100, LeftPadding))
	assert.InDelta(t, 1.0, PixelToTime(123, 100, LeftPadding), 1e-12)
	assert.Zero(t, PixelToTime(123, 0, LeftPadding))
}

func TestSnapHelpers(t *testing.T) {
	assert.InDelta(t, 1.5, SnapToGrid(1.4, 0.5), 1e-12)
	assert.Equal(t, 1.4, SnapToGrid(1.4, 0))

	// 0.1s away at 100 px/s is 10px.
	assert.InDelta(t, 1.5, MagneticSnap(1.4, 0.5, 100, 11), 1e-12)
	assert.Equal(t, 1.4, MagneticSnap(1.4, 0.5, 100, 5))
}

func TestBarsBeatsTicks(t *testing.T) {
	// 120 bpm: 0.5s per beat, 2s per 4/4 bar.
	assert.Equal(t, 1, BarNumber(0, 120, 4))
	assert.Equal(t, 2, BarNumber(2, 120, 4))
	assert.Equal(t, 3, BeatInBar(1.0, 120, 4))
	assert.Equal(t, 240, TickInBeat(0.25, 120))
	assert.Equal(t, "2.2.240", FormatBarsBeatsTicks(2.75, 120, 4))
	assert.InDelta(t, 4.0, BarStartTime(3, 120, 4), 1e-12)
}

func TestFormatDurations(t *testing.T) {
	assert.Equal(t, "1 bar 2 beats", FormatDurationBarsBeats(3, 120, 4))
	assert.Equal(t, "2 bars", FormatDurationBarsBeats(4, 120, 4))
	assert.Equal(t, "3 beats", FormatDurationBarsBeats(1.5, 120, 4))
	assert.Equal(t, "1 beat", FormatDurationBarsBeats(0.5, 120, 4))
	assert.Equal(t, "0.50 beats", FormatDurationBarsBeats(0.25, 120, 4))
	assert.Equal(t, "1.2.0", FormatDurationCompact(3, 120, 4))
}
