package main

import "time"

// DaemonState is the daemon-owned state that lives next to the timeline.
//
// The timeline itself is owned by the Controller. DaemonState holds only what
// the input policy needs between inputs: shuttle dynamics, jog velocity
// history and the transport clock bookkeeping. reduceInput returns a new
// value; nothing outside the daemon goroutine ever sees it.
type DaemonState struct {
	// Shuttle is the press-and-hold FF/REW controller.
	Shuttle ShuttleState

	// Jog holds recent jog wheel detents for fast-spin detection.
	Jog JogState

	// Clock tracks where playback positions come from.
	Clock ClockState
}

// ClockState records the last engine position report. While reports are
// fresh the engine drives the playback cursor; otherwise the daemon advances
// it locally from ticks.
type ClockState struct {
	LastFeedAt time.Time
}

// engineFeedFresh reports whether an engine position arrived within timeout.
func (c ClockState) engineFeedFresh(now time.Time, timeout time.Duration) bool {
	if c.LastFeedAt.IsZero() {
		return false
	}
	return now.Sub(c.LastFeedAt) <= timeout
}

// ReducerConfig bundles the policy knobs used by reduceInput.
type ReducerConfig struct {
	Shuttle ShuttleConfig
	Jog     JogConfig

	// LocalClock advances the playback cursor from ticks while playing and
	// no fresh engine position is available.
	LocalClock bool

	// FeedTimeout is how long an engine position report stays authoritative.
	FeedTimeout time.Duration
}

// defaultFeedTimeout is the engine position staleness bound.
const defaultFeedTimeout = 500 * time.Millisecond
