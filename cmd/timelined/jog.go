package main

import "time"

// JogConfig is the jog wheel step policy. Fast spinning (VelocityThreshold
// steps in one direction within VelocityWindow) scales each step by
// VelocityMultiplier.
type JogConfig struct {
	BeatsPerStep       float64
	VelocityWindow     time.Duration
	VelocityMultiplier float64
	VelocityThreshold  int
}

// JogState tracks recent jog detents for velocity detection.
// It is reducer-owned and never modified in place.
type JogState struct {
	RecentSteps []JogStep
}

// JogStep is one observed detent. Direction is -1 or +1.
type JogStep struct {
	At        time.Time
	Direction int
}

// addStep records a detent at now and returns the next state together with
// the count of same-direction steps inside window (including this one).
func (j JogState) addStep(direction int, now time.Time, window time.Duration) (JogState, int) {
	cutoff := now.Add(-window)

	next := make([]JogStep, 0, len(j.RecentSteps)+1)
	for _, s := range j.RecentSteps {
		if s.At.After(cutoff) {
			next = append(next, s)
		}
	}
	next = append(next, JogStep{At: now, Direction: direction})

	sameDir := 0
	for _, s := range next {
		if s.Direction == direction {
			sameDir++
		}
	}
	return JogState{RecentSteps: next}, sameDir
}

// Turn applies a jog movement of steps detents and returns the next state and
// the playhead movement in beats.
func (j JogState) Turn(steps int, now time.Time, cfg JogConfig) (JogState, float64) {
	if steps == 0 {
		return j, 0
	}
	direction := 1
	if steps < 0 {
		direction = -1
	}

	next, count := j.addStep(direction, now, cfg.VelocityWindow)

	perStep := cfg.BeatsPerStep
	if perStep <= 0 {
		perStep = defaultJogBeatsPerStep
	}
	if cfg.VelocityThreshold > 0 && count >= cfg.VelocityThreshold && cfg.VelocityMultiplier > 1 {
		perStep *= cfg.VelocityMultiplier
	}
	return next, float64(steps) * perStep
}
