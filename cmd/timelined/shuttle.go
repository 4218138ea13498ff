package main

import (
	"math"
	"time"
)

// ShuttleConfig contains the tunable parameters for press-and-hold FF/REW.
//
// While a shuttle button is held the speed ramps up to MaxSpeed over
// AccelTime; on release it decays exponentially with DecayTau. Speeds are
// timeline seconds per wall-clock second.
type ShuttleConfig struct {
	MaxSpeed  float64
	AccelTime float64 // time to reach MaxSpeed (s); 0 jumps straight to it
	DecayTau  float64 // decay time constant after release (s); 0 stops at once

	// Robustness
	HoldTimeout time.Duration // Auto-release if no hold events arrive in this duration
	MaxDt       float64       // Max dt integrated per step (s). 0 disables clamping.
}

// ShuttleState is the reducer-owned shuttle controller state.
type ShuttleState struct {
	// Velocity is the signed shuttle speed in timeline seconds per second.
	Velocity float64

	// HeldDirection: -1 for rewind, 0 for none, 1 for fast-forward
	HeldDirection int

	LastHeldAt  time.Time
	HoldBeganAt time.Time
}

// shuttleStopSpeed is the speed below which a decaying shuttle snaps to rest.
const shuttleStopSpeed = 0.01

// Hold starts or refreshes a hold gesture in direction at now.
func (s ShuttleState) Hold(direction int, now time.Time) ShuttleState {
	if s.HeldDirection == 0 || direction != s.HeldDirection {
		s.HoldBeganAt = now
		if direction != s.HeldDirection {
			// Direction reversal responds immediately.
			s.Velocity = 0
		}
	}
	s.HeldDirection = direction
	s.LastHeldAt = now
	return s
}

// Release ends the current hold gesture. The speed then decays.
func (s ShuttleState) Release() ShuttleState {
	s.HeldDirection = 0
	s.HoldBeganAt = time.Time{}
	return s
}

// Stop cancels the gesture and any remaining motion.
func (s ShuttleState) Stop() ShuttleState {
	s = s.Release()
	s.Velocity = 0
	return s
}

// Active reports whether the shuttle is held or still moving.
func (s ShuttleState) Active() bool { return s.HeldDirection != 0 || s.Velocity != 0 }

// StepShuttle advances the shuttle by dt seconds and returns the next state
// together with the distance to move the playhead, in timeline seconds.
func StepShuttle(s ShuttleState, dt float64, now time.Time, cfg ShuttleConfig) (ShuttleState, float64) {
	// Ignore non-positive dt; clamp stalls so a late tick cannot leap.
	if dt <= 0 {
		return s, 0
	}
	if cfg.MaxDt > 0 && dt > cfg.MaxDt {
		dt = cfg.MaxDt
	}

	// Hold-timeout: a remote that stops repeating without a release is treated as released.
	if s.HeldDirection != 0 && cfg.HoldTimeout > 0 && !s.LastHeldAt.IsZero() {
		if now.Sub(s.LastHeldAt) > cfg.HoldTimeout {
			s = s.Release()
		}
	}

	switch s.HeldDirection {
	case 1, -1:
		dir := float64(s.HeldDirection)
		if cfg.AccelTime <= 0 {
			s.Velocity = dir * cfg.MaxSpeed
		} else {
			s.Velocity += dir * (cfg.MaxSpeed / cfg.AccelTime) * dt
		}
		if s.Velocity > cfg.MaxSpeed {
			s.Velocity = cfg.MaxSpeed
		}
		if s.Velocity < -cfg.MaxSpeed {
			s.Velocity = -cfg.MaxSpeed
		}

	default:
		// Exponential decay is tick-rate independent.
		if cfg.DecayTau <= 0 {
			s.Velocity = 0
		} else {
			s.Velocity *= math.Exp(-dt / cfg.DecayTau)
		}
		if math.Abs(s.Velocity) < shuttleStopSpeed {
			s.Velocity = 0
		}
	}

	return s, s.Velocity * dt
}
