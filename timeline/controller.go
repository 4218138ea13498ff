package timeline

import (
	"io"
	"log/slog"
	"math"
	"sync/atomic"
)

// Options configures a Controller. The zero value is usable.
type Options struct {
	// Clips is re-synced after tempo changes. Nil disables clip re-sync.
	Clips ClipStore

	// Logger receives debug traces of dispatches. Nil discards them.
	Logger *slog.Logger

	// MaxUndo bounds the undo and redo stacks. Zero means DefaultMaxUndo.
	MaxUndo int

	// Initial replaces the state built from Config, e.g. when restoring a project.
	Initial *State
}

// Controller owns the timeline State. It has a single writer: Dispatch, Undo,
// Redo and the history methods must all be called from one goroutine, and
// listeners must not call back into them. Violations panic.
type Controller struct {
	cfg    Config
	clips  ClipStore
	logger *slog.Logger

	state   State
	history history

	stateListeners  registry[StateListener]
	engineListeners registry[AudioEngineListener]

	busy atomic.Bool
}

// NewController builds a Controller with the initial state derived from cfg.
func NewController(cfg Config, opts Options) *Controller {
	if cfg == nil {
		cfg = DefaultSettings()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c := &Controller{
		cfg:     cfg,
		clips:   opts.Clips,
		logger:  logger,
		history: newHistory(opts.MaxUndo),
	}
	if opts.Initial != nil {
		c.state = opts.Initial.Clone()
	} else {
		c.state = NewState(cfg)
	}
	return c
}

func (c *Controller) enter(op string) {
	if !c.busy.CompareAndSwap(false, true) {
		panic("timeline: " + op + " re-entered or called concurrently; Controller has a single writer")
	}
}

func (c *Controller) leave() { c.busy.Store(false) }

// State returns a copy of the current state. Call it from the dispatching
// goroutine or from a listener. Writes to the copy never reach the Controller.
func (c *Controller) State() State { return c.state.Clone() }

// Config returns the configuration the Controller was built with.
func (c *Controller) Config() Config { return c.cfg }

// Dispatch applies e. Undo-significant events record a snapshot first, even
// when they turn out to change nothing. Engine listeners hear about the change
// after the new state is committed, and state listeners after that.
func (c *Controller) Dispatch(e Event) {
	c.enter("Dispatch")
	defer c.leave()

	if e = eventValue(e); e == nil {
		return
	}
	if UndoSignificant(e) {
		c.history.record(c.state)
	}

	res := Reduce(c.state, e, c.cfg)
	if res.Changes == ChangeNone {
		c.logger.Debug("timeline event ignored", "event", EventType(e))
		return
	}
	c.state = res.State
	c.logger.Debug("timeline event applied",
		"event", EventType(e),
		"changes", res.Changes.String(),
		"commands", len(res.Commands),
	)

	for _, cmd := range res.Commands {
		c.run(cmd)
	}
	c.notify(res.Changes)
}

// Undo restores the most recent snapshot. It reports false when there is
// nothing to undo.
func (c *Controller) Undo() bool {
	c.enter("Undo")
	defer c.leave()

	prev, ok := c.history.stepBack(c.state)
	if !ok {
		return false
	}
	c.restore(prev)
	c.logger.Debug("timeline undo", "undo_depth", len(c.history.undo), "redo_depth", len(c.history.redo))
	return true
}

// Redo re-applies the most recently undone snapshot. It reports false when
// there is nothing to redo.
func (c *Controller) Redo() bool {
	c.enter("Redo")
	defer c.leave()

	next, ok := c.history.stepForward(c.state)
	if !ok {
		return false
	}
	c.restore(next)
	c.logger.Debug("timeline redo", "undo_depth", len(c.history.undo), "redo_depth", len(c.history.redo))
	return true
}

// restore installs a snapshot exactly as it was recorded, transport
// included. The engine is brought in line with it before listeners are told.
func (c *Controller) restore(snapshot State) {
	prev := c.state
	c.state = snapshot

	for _, cmd := range engineSync(prev, snapshot) {
		c.run(cmd)
	}
	c.notify(ChangeAll)
}

// engineSync lists the Commands that move an engine from prev to next.
func engineSync(prev, next State) []Command {
	cmds := transportSync(prev.Playhead, next.Playhead)
	if next.Tempo.BPM != prev.Tempo.BPM {
		cmds = append(cmds, CmdTempoChanged{BPM: next.Tempo.BPM})
	}
	if next.Tempo.Numerator != prev.Tempo.Numerator || next.Tempo.Denominator != prev.Tempo.Denominator {
		cmds = append(cmds, CmdTimeSignatureChanged{Numerator: next.Tempo.Numerator, Denominator: next.Tempo.Denominator})
	}
	if next.Loop != prev.Loop {
		if l := next.Loop; l.Valid() {
			cmds = append(cmds, CmdLoopRegionChanged{Start: l.Start, End: l.End, Enabled: l.Enabled})
		} else {
			cmds = append(cmds, CmdLoopRegionChanged{Start: -1, End: -1})
		}
	}
	if next.Punch != prev.Punch {
		if p := next.Punch; p.Valid() {
			cmds = append(cmds, CmdPunchRegionChanged{Start: p.Start, End: p.End, InEnabled: p.InEnabled, OutEnabled: p.OutEnabled})
		} else {
			cmds = append(cmds, CmdPunchRegionChanged{Start: -1, End: -1})
		}
	}
	if next.Playhead.EditPosition != prev.Playhead.EditPosition {
		cmds = append(cmds, CmdEditPositionChanged{Position: next.Playhead.EditPosition})
	}
	if math.Abs(next.Tempo.BPM-prev.Tempo.BPM) > resyncThreshold {
		cmds = append(cmds, CmdResyncClips{OldBPM: prev.Tempo.BPM, NewBPM: next.Tempo.BPM})
	}
	return cmds
}

// transportSync moves the engine transport from prev to next. A stopped
// snapshot whose cursor differs from the edit position was paused there.
func transportSync(prev, next PlayheadState) []Command {
	switch {
	case next.Playing && next.Recording && !(prev.Playing && prev.Recording):
		return []Command{CmdTransportRecord{Position: next.PlaybackPosition}}
	case next.Playing && !next.Recording && (!prev.Playing || prev.Recording):
		return []Command{CmdTransportPlay{Position: next.PlaybackPosition}}
	case !next.Playing && prev.Playing:
		if next.PlaybackPosition != next.EditPosition {
			return []Command{CmdTransportPause{}}
		}
		return []Command{CmdTransportStop{ReturnPosition: next.EditPosition}}
	}
	return nil
}

func (c *Controller) run(cmd Command) {
	if rc, ok := cmd.(CmdResyncClips); ok {
		c.resyncClips(rc.OldBPM, rc.NewBPM)
		return
	}
	for _, e := range c.engineListeners.snapshot() {
		deliverEngine(e.l, cmd)
	}
}

// resyncClips updates every tempo-locked clip first and notifies afterwards,
// so no observer sees a half-migrated arrangement.
func (c *Controller) resyncClips(oldBPM, newBPM float64) {
	touched := ResyncClips(c.clips, oldBPM, newBPM)
	for _, id := range touched {
		c.clips.ForceNotifyClipChanged(id)
	}
	if len(touched) > 0 {
		c.logger.Debug("tempo-locked clips re-synced", "clips", len(touched), "old_bpm", oldBPM, "new_bpm", newBPM)
	}
}

// notify hands each listener its own copy so one listener's writes stay
// out of the committed state, the undo history and the next listener's view.
func (c *Controller) notify(changes ChangeFlags) {
	for _, e := range c.stateListeners.snapshot() {
		e.l.TimelineStateChanged(c.state.Clone(), changes)
	}
}

// Subscribe registers l for state notifications and returns a function that
// removes it. Listeners are called in registration order.
func (c *Controller) Subscribe(l StateListener) (unsubscribe func()) {
	return c.stateListeners.add(l)
}

// AddEngineListener registers an engine and returns a function that removes it.
// Engines that also implement PunchListener receive punch calls.
func (c *Controller) AddEngineListener(l AudioEngineListener) (remove func()) {
	return c.engineListeners.add(l)
}

func (c *Controller) CanUndo() bool  { return len(c.history.undo) > 0 }
func (c *Controller) CanRedo() bool  { return len(c.history.redo) > 0 }
func (c *Controller) UndoDepth() int { return len(c.history.undo) }
func (c *Controller) RedoDepth() int { return len(c.history.redo) }

// ClearHistory drops both stacks.
func (c *Controller) ClearHistory() {
	c.enter("ClearHistory")
	defer c.leave()
	c.history.clear()
}

// SetMaxUndoStates changes the history bound, trimming the oldest entries.
func (c *Controller) SetMaxUndoStates(n int) {
	c.enter("SetMaxUndoStates")
	defer c.leave()
	c.history.setMax(n)
}
