package main

import (
	"fmt"

	"timelined/timeline"
)

// ==============================
// Commands (side effects)
// ==============================

// Command is a side effect requested by reduceInput and executed by the
// daemon loop, the only goroutine allowed to drive the Controller.
type Command interface {
	commandMarker()
	String() string
}

// CmdDispatch dispatches a timeline event.
type CmdDispatch struct {
	Event timeline.Event
}

func (CmdDispatch) commandMarker() {}
func (c CmdDispatch) String() string {
	return fmt.Sprintf("CmdDispatch(type=%s)", timeline.EventType(c.Event))
}

// CmdUndo steps the timeline history back.
type CmdUndo struct{}

func (CmdUndo) commandMarker() {}
func (CmdUndo) String() string { return "CmdUndo()" }

// CmdRedo steps the timeline history forward.
type CmdRedo struct{}

func (CmdRedo) commandMarker() {}
func (CmdRedo) String() string { return "CmdRedo()" }

// CmdPublishStateSnapshot delivers a snapshot of the committed state to Reply.
// The snapshot is taken when the command runs, after earlier commands.
type CmdPublishStateSnapshot struct {
	Reply chan StateSnapshot
}

func (CmdPublishStateSnapshot) commandMarker() {}
func (CmdPublishStateSnapshot) String() string { return "CmdPublishStateSnapshot()" }
