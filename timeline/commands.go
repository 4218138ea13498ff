package timeline

import "fmt"

// Command is a side effect produced by Reduce. The Controller delivers each
// one, in order, after it has committed the new State.
type Command interface {
	commandMarker()
	String() string
}

type CmdTransportPlay struct{ Position float64 }

type CmdTransportStop struct{ ReturnPosition float64 }

type CmdTransportPause struct{}

type CmdTransportRecord struct{ Position float64 }

type CmdEditPositionChanged struct{ Position float64 }

type CmdTempoChanged struct{ BPM float64 }

type CmdTimeSignatureChanged struct{ Numerator, Denominator int }

// CmdLoopRegionChanged carries -1 bounds when the loop was cleared.
type CmdLoopRegionChanged struct {
	Start, End float64
	Enabled    bool
}

type CmdLoopEnabledChanged struct{ Enabled bool }

// CmdPunchRegionChanged carries -1 bounds when the punch region was cleared.
type CmdPunchRegionChanged struct {
	Start, End            float64
	InEnabled, OutEnabled bool
}

type CmdPunchEnabledChanged struct{ InEnabled, OutEnabled bool }

// CmdResyncClips re-derives tempo-locked clip positions after a tempo change.
type CmdResyncClips struct{ OldBPM, NewBPM float64 }

func (CmdTransportPlay) commandMarker()        {}
func (CmdTransportStop) commandMarker()        {}
func (CmdTransportPause) commandMarker()       {}
func (CmdTransportRecord) commandMarker()      {}
func (CmdEditPositionChanged) commandMarker()  {}
func (CmdTempoChanged) commandMarker()         {}
func (CmdTimeSignatureChanged) commandMarker() {}
func (CmdLoopRegionChanged) commandMarker()    {}
func (CmdLoopEnabledChanged) commandMarker()   {}
func (CmdPunchRegionChanged) commandMarker()   {}
func (CmdPunchEnabledChanged) commandMarker()  {}
func (CmdResyncClips) commandMarker()          {}

func (c CmdTransportPlay) String() string {
	return fmt.Sprintf("CmdTransportPlay(position=%.3f)", c.Position)
}
func (c CmdTransportStop) String() string {
	return fmt.Sprintf("CmdTransportStop(return_position=%.3f)", c.ReturnPosition)
}
func (CmdTransportPause) String() string { return "CmdTransportPause()" }
func (c CmdTransportRecord) String() string {
	return fmt.Sprintf("CmdTransportRecord(position=%.3f)", c.Position)
}
func (c CmdEditPositionChanged) String() string {
	return fmt.Sprintf("CmdEditPositionChanged(position=%.3f)", c.Position)
}
func (c CmdTempoChanged) String() string { return fmt.Sprintf("CmdTempoChanged(bpm=%.2f)", c.BPM) }
func (c CmdTimeSignatureChanged) String() string {
	return fmt.Sprintf("CmdTimeSignatureChanged(%d/%d)", c.Numerator, c.Denominator)
}
func (c CmdLoopRegionChanged) String() string {
	return fmt.Sprintf("CmdLoopRegionChanged(start=%.3f, end=%.3f, enabled=%v)", c.Start, c.End, c.Enabled)
}
func (c CmdLoopEnabledChanged) String() string {
	return fmt.Sprintf("CmdLoopEnabledChanged(enabled=%v)", c.Enabled)
}
func (c CmdPunchRegionChanged) String() string {
	return fmt.Sprintf("CmdPunchRegionChanged(start=%.3f, end=%.3f, in=%v, out=%v)", c.Start, c.End, c.InEnabled, c.OutEnabled)
}
func (c CmdPunchEnabledChanged) String() string {
	return fmt.Sprintf("CmdPunchEnabledChanged(in=%v, out=%v)", c.InEnabled, c.OutEnabled)
}
func (c CmdResyncClips) String() string {
	return fmt.Sprintf("CmdResyncClips(old_bpm=%.2f, new_bpm=%.2f)", c.OldBPM, c.NewBPM)
}
