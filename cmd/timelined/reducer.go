package main

import (
	"math"
	"slices"
	"time"

	"timelined/timeline"
)

// InputResult is the output of reduceInput: the next daemon state plus the
// Commands the daemon loop must execute, in order.
type InputResult struct {
	State    DaemonState
	Commands []Command
}

// reduceInput translates one daemon Input into timeline commands.
//
// Rules:
//   - Must not perform I/O or block
//   - Must not touch the Controller; ts is the committed timeline state
//   - Returns a new DaemonState and never mutates shared slices
func reduceInput(ds DaemonState, ts timeline.State, in Input, cfg ReducerConfig) InputResult {
	var at time.Time
	if ti, ok := in.(TimedInput); ok {
		in, at = ti.Input, ti.At
	}
	if at.IsZero() {
		at = time.Now()
	}

	var cmds []Command
	dispatch := func(e timeline.Event) {
		cmds = append(cmds, CmdDispatch{Event: e})
	}

	switch ev := in.(type) {
	case Tick:
		next, delta := StepShuttle(ds.Shuttle, ev.Dt, ev.Now, cfg.Shuttle)
		ds.Shuttle = next
		if delta != 0 {
			dispatch(timeline.MovePlayheadByDelta{Delta: delta})
		}

		if cfg.LocalClock && ts.Playhead.Playing && ev.Dt > 0 {
			timeout := cfg.FeedTimeout
			if timeout <= 0 {
				timeout = defaultFeedTimeout
			}
			if !ds.Clock.engineFeedFresh(ev.Now, timeout) {
				dt := ev.Dt
				if cfg.Shuttle.MaxDt > 0 && dt > cfg.Shuttle.MaxDt {
					dt = cfg.Shuttle.MaxDt
				}
				if pos, atEnd := advanceClock(ts, dt); atEnd {
					dispatch(timeline.StopPlayback{})
				} else {
					dispatch(timeline.SetPlaybackPosition{Position: pos})
				}
			}
		}

	case Dispatch:
		if ev.Event != nil {
			dispatch(ev.Event)
		}

	case UndoRequest:
		cmds = append(cmds, CmdUndo{})

	case RedoRequest:
		cmds = append(cmds, CmdRedo{})

	case TransportToggle:
		if ts.Playhead.Playing {
			dispatch(timeline.StopPlayback{})
		} else {
			dispatch(timeline.StartPlayback{})
		}

	case MIDIRealtime:
		switch ev.Kind {
		case MIDIStart, MIDIContinue:
			dispatch(timeline.StartPlayback{})
		case MIDIStop:
			dispatch(timeline.StopPlayback{})
		}

	case JumpSection:
		ds.Shuttle = ds.Shuttle.Stop()
		if target, ok := jumpTarget(ts, ev.Direction); ok {
			dispatch(timeline.SetEditPosition{Position: target})
		}

	case ShuttleHeld:
		switch {
		case ev.Direction > 0:
			ds.Shuttle = ds.Shuttle.Hold(1, at)
		case ev.Direction < 0:
			ds.Shuttle = ds.Shuttle.Hold(-1, at)
		default:
			ds.Shuttle = ds.Shuttle.Release()
		}

	case ShuttleRelease:
		ds.Shuttle = ds.Shuttle.Release()

	case JogTurn:
		// The jog wheel takes over from any shuttle motion.
		ds.Shuttle = ds.Shuttle.Stop()
		next, beats := ds.Jog.Turn(ev.Steps, at, cfg.Jog)
		ds.Jog = next
		if beats != 0 {
			dispatch(timeline.MovePlayheadByDelta{Delta: ts.BeatsToSeconds(beats)})
		}

	case EnginePositionReported:
		if math.IsNaN(ev.Position) || math.IsInf(ev.Position, 0) {
			break
		}
		ds.Clock.LastFeedAt = at
		if ev.Position != ts.Playhead.PlaybackPosition {
			dispatch(timeline.SetPlaybackPosition{Position: ev.Position})
		}

	case RequestStateSnapshot:
		cmds = append(cmds, CmdPublishStateSnapshot{Reply: ev.Reply})

	default:
		// Unknown input: no-op.
	}

	return InputResult{State: ds, Commands: cmds}
}

// advanceClock moves the playback cursor forward by dt, wrapping inside an
// enabled loop. It reports atEnd when playback runs past the project end.
func advanceClock(ts timeline.State, dt float64) (pos float64, atEnd bool) {
	cur := ts.Playhead.PlaybackPosition
	pos = cur + dt

	loop := ts.Loop
	if loop.Enabled && loop.Valid() && cur < loop.End && pos >= loop.End {
		return loop.Start + math.Mod(pos-loop.End, loop.Duration()), false
	}
	if pos >= ts.Length {
		return ts.Length, true
	}
	return pos, false
}

// jumpEpsilon keeps a jump from landing on the position it started from.
const jumpEpsilon = 1e-6

// jumpTarget finds the section start (or bar line when there are no
// sections) next to the edit position in direction.
func jumpTarget(ts timeline.State, direction int) (float64, bool) {
	cur := ts.Playhead.EditPosition

	if len(ts.Sections) > 0 {
		starts := make([]float64, 0, len(ts.Sections))
		for _, s := range ts.Sections {
			starts = append(starts, s.Start)
		}
		slices.Sort(starts)

		if direction > 0 {
			for _, s := range starts {
				if s > cur+jumpEpsilon {
					return s, true
				}
			}
			return 0, false
		}
		for i := len(starts) - 1; i >= 0; i-- {
			if starts[i] < cur-jumpEpsilon {
				return starts[i], true
			}
		}
		if cur > jumpEpsilon {
			return 0, true
		}
		return 0, false
	}

	barLen := ts.Tempo.SecondsPerBar()
	if barLen <= 0 {
		return 0, false
	}
	bar := math.Floor(cur/barLen + jumpEpsilon)

	if direction > 0 {
		target := (bar + 1) * barLen
		if target > ts.Length {
			target = ts.Length
		}
		if target <= cur+jumpEpsilon {
			return 0, false
		}
		return target, true
	}

	target := bar * barLen
	if cur-target <= jumpEpsilon {
		target -= barLen
	}
	if target < 0 {
		target = 0
	}
	if cur <= jumpEpsilon {
		return 0, false
	}
	return target, true
}
