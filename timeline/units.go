package timeline

import (
	"fmt"
	"math"
)

// TicksPerBeat is the sub-beat resolution used for bars.beats.ticks display.
const TicksPerBeat = 480

// SecondsToBeats converts seconds to beats at bpm. It returns 0 when bpm <= 0.
func SecondsToBeats(seconds, bpm float64) float64 {
	if bpm <= 0 {
		return 0
	}
	return seconds * bpm / 60.0
}

// BeatsToSeconds converts beats to seconds at bpm. It returns 0 when bpm <= 0.
func BeatsToSeconds(beats, bpm float64) float64 {
	if bpm <= 0 {
		return 0
	}
	return beats * 60.0 / bpm
}

// TimeToPixel maps a time in seconds onto a pixel column for a zoom in pixels per second.
func TimeToPixel(t, pixelsPerSecond float64, leftPadding int) int {
	return int(t*pixelsPerSecond) + leftPadding
}

// PixelToTime is the inverse of TimeToPixel. It returns 0 for a non-positive zoom.
func PixelToTime(pixel int, pixelsPerSecond float64, leftPadding int) float64 {
	if pixelsPerSecond <= 0 {
		return 0
	}
	return float64(pixel-leftPadding) / pixelsPerSecond
}

// SnapToGrid rounds t to the nearest multiple of interval.
func SnapToGrid(t, interval float64) float64 {
	if interval <= 0 {
		return t
	}
	return math.Round(t/interval) * interval
}

// MagneticSnap snaps t to the grid only when the nearest grid line is within
// thresholdPx pixels at the given zoom.
func MagneticSnap(t, interval, pixelsPerSecond float64, thresholdPx int) float64 {
	if interval <= 0 {
		return t
	}
	snapped := SnapToGrid(t, interval)
	if math.Abs((snapped-t)*pixelsPerSecond) <= float64(thresholdPx) {
		return snapped
	}
	return t
}

// BarNumber returns the 1-based bar containing t.
func BarNumber(t, bpm float64, beatsPerBar int) int {
	if beatsPerBar <= 0 {
		beatsPerBar = 4
	}
	return int(SecondsToBeats(t, bpm)/float64(beatsPerBar)) + 1
}

// BeatInBar returns the 1-based beat within the bar containing t.
func BeatInBar(t, bpm float64, beatsPerBar int) int {
	if beatsPerBar <= 0 {
		beatsPerBar = 4
	}
	return int(math.Mod(SecondsToBeats(t, bpm), float64(beatsPerBar))) + 1
}

// TickInBeat returns the 0-based tick within the current beat.
func TickInBeat(t, bpm float64) int {
	_, frac := math.Modf(SecondsToBeats(t, bpm))
	return int(frac * TicksPerBeat)
}

// BarStartTime returns the time in seconds at which the 1-based bar begins.
func BarStartTime(bar int, bpm float64, beatsPerBar int) float64 {
	return BeatsToSeconds(float64((bar-1)*beatsPerBar), bpm)
}

// FormatBarsBeatsTicks renders a position as "bar.beat.ticks", e.g. "4.3.240".
func FormatBarsBeatsTicks(t, bpm float64, beatsPerBar int) string {
	return fmt.Sprintf("%d.%d.%03d", BarNumber(t, bpm, beatsPerBar), BeatInBar(t, bpm, beatsPerBar), TickInBeat(t, bpm))
}

// FormatDurationBarsBeats renders a duration in words, e.g. "1 bar 2 beats".
func FormatDurationBarsBeats(d, bpm float64, beatsPerBar int) string {
	if beatsPerBar <= 0 {
		beatsPerBar = 4
	}
	total := SecondsToBeats(d, bpm)
	bars := int(total / float64(beatsPerBar))
	beats := int(math.Mod(total, float64(beatsPerBar)))

	switch {
	case bars > 0 && beats > 0:
		return fmt.Sprintf("%d bar%s %d beat%s", bars, plural(bars), beats, plural(beats))
	case bars > 0:
		return fmt.Sprintf("%d bar%s", bars, plural(bars))
	case total >= 1.0:
		return fmt.Sprintf("%d beat%s", int(total), plural(int(total)))
	default:
		return fmt.Sprintf("%.2f beats", total)
	}
}

// FormatDurationCompact renders a duration as "bars.beats", e.g. "2.1.5".
func FormatDurationCompact(d, bpm float64, beatsPerBar int) string {
	if beatsPerBar <= 0 {
		beatsPerBar = 4
	}
	total := SecondsToBeats(d, bpm)
	bars := int(total / float64(beatsPerBar))
	return fmt.Sprintf("%d.%.1f", bars, math.Mod(total, float64(beatsPerBar)))
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// addSat adds b to a, saturating at the int range instead of wrapping.
func addSat(a, b int) int {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return math.MaxInt
	case b < 0 && a < math.MinInt-b:
		return math.MinInt
	}
	return a + b
}
