package main

import (
	"testing"
	"time"
)

func TestJogTurn_BasicStep(t *testing.T) {
	cfg := JogConfig{BeatsPerStep: 0.5, VelocityWindow: 200 * time.Millisecond, VelocityMultiplier: 4, VelocityThreshold: 3}

	_, beats := JogState{}.Turn(-2, time.Unix(0, 0), cfg)
	if beats != -1 {
		t.Fatalf("expected -1 beat, got %v", beats)
	}
}

func TestJogTurn_FastSpinMultiplies(t *testing.T) {
	cfg := JogConfig{BeatsPerStep: 0.25, VelocityWindow: 200 * time.Millisecond, VelocityMultiplier: 4, VelocityThreshold: 3}
	now := time.Unix(0, 0)

	j := JogState{}
	var beats float64
	for i := 0; i < 3; i++ {
		j, beats = j.Turn(1, now.Add(time.Duration(i)*20*time.Millisecond), cfg)
	}
	if beats != 1 {
		t.Fatalf("third fast detent should be 0.25*4=1 beat, got %v", beats)
	}

	// After the window expires the multiplier drops out.
	_, beats = j.Turn(1, now.Add(time.Second), cfg)
	if beats != 0.25 {
		t.Fatalf("slow detent should be 0.25 beat, got %v", beats)
	}
}

func TestJogTurn_DirectionChangeDoesNotAccumulate(t *testing.T) {
	cfg := JogConfig{BeatsPerStep: 0.25, VelocityWindow: time.Second, VelocityMultiplier: 4, VelocityThreshold: 3}
	now := time.Unix(0, 0)

	j := JogState{}
	j, _ = j.Turn(1, now, cfg)
	j, _ = j.Turn(1, now, cfg)
	_, beats := j.Turn(-1, now, cfg)
	if beats != -0.25 {
		t.Fatalf("reversed detent should not be multiplied, got %v", beats)
	}
}

func TestJogTurn_DoesNotMutatePreviousState(t *testing.T) {
	cfg := JogConfig{BeatsPerStep: 0.25, VelocityWindow: time.Second}
	now := time.Unix(0, 0)

	first, _ := JogState{}.Turn(1, now, cfg)
	_, _ = first.Turn(1, now, cfg)
	if len(first.RecentSteps) != 1 {
		t.Fatalf("previous state was modified: %d steps", len(first.RecentSteps))
	}
}

func TestJogTurn_DefaultsStepSize(t *testing.T) {
	_, beats := JogState{}.Turn(1, time.Unix(0, 0), JogConfig{})
	if beats != defaultJogBeatsPerStep {
		t.Fatalf("expected default step %v, got %v", defaultJogBeatsPerStep, beats)
	}
}
