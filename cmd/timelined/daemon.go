package main

import (
	"context"
	"log/slog"
	"time"

	"timelined/ringbuf"
	"timelined/timeline"
)

// ============================================================================
// Central Daemon Loop
// ============================================================================
//
// Design rules enforced here:
//   - reduceInput performs no I/O and computes: next daemon state + commands.
//   - This goroutine is the only one that touches the Controller and the
//     clip store. Listeners run here too, synchronously, inside Dispatch.
//   - Engine position reports and MIDI notes arrive through single-producer
//     queues and are drained once per tick.
//
// ============================================================================

// daemonDeps bundles what the daemon loop owns or feeds.
type daemonDeps struct {
	Controller *timeline.Controller
	Clips      *clipStore

	// Optional producer queues, drained on every tick.
	Positions *ringbuf.SPSC[float64]
	Notes     *ringbuf.SPSC[midiNoteEvent]

	// Broadcasts receives note previews. State broadcasts come from the
	// Controller subscription.
	Broadcasts *broadcastQueue

	Config   ReducerConfig
	UpdateHz int
	Logger   *slog.Logger
}

// runDaemon is the main daemon loop that:
//   - Receives Inputs from multiple sources
//   - Emits Tick inputs on a fixed cadence
//   - Reduces inputs into (state, commands)
//   - Executes commands against the Controller
//
// Shutdown semantics:
//   - Exits when ctx is canceled
//   - Exits cleanly when the inputs channel is closed
func runDaemon(ctx context.Context, inputs <-chan Input, deps daemonDeps) {
	logger := deps.Logger
	ctrl := deps.Controller
	if ctrl == nil {
		logger.Error("daemon controller is nil")
		return
	}

	updateHz := deps.UpdateHz
	if updateHz <= 0 {
		updateHz = defaultUpdateHz
	}
	ticker := time.NewTicker(time.Second / time.Duration(updateHz))
	defer ticker.Stop()

	cfg := deps.Config
	if cfg.Shuttle.MaxDt <= 0 {
		cfg.Shuttle.MaxDt = 2.0 / float64(updateHz)
	}

	var ds DaemonState
	lastTick := time.Now()

	// Explicit queues:
	// - inputQueue holds inputs awaiting reduction
	// - cmdQueue holds commands awaiting execution
	var inputQueue []Input
	var cmdQueue []Command

	enqueueInput := func(in Input) {
		inputQueue = append(inputQueue, in)
	}

	flushInputs := func() {
		for len(inputQueue) > 0 {
			in := inputQueue[0]
			inputQueue = inputQueue[1:]

			rr := reduceInput(ds, ctrl.State(), in, cfg)
			ds = rr.State
			cmdQueue = append(cmdQueue, rr.Commands...)
		}
	}

	// Each command sees the state committed by the previous one.
	flushCommands := func() {
		for len(cmdQueue) > 0 {
			cmd := cmdQueue[0]
			cmdQueue = cmdQueue[1:]
			runCommand(ctrl, deps.Clips, cmd, logger)
		}
	}

	drainProducers := func(now time.Time) {
		if deps.Positions != nil {
			var latest float64
			if deps.Positions.Drain(func(p float64) { latest = p }) > 0 {
				enqueueInput(TimedInput{Input: EnginePositionReported{Position: latest}, At: now})
			}
		}
		if deps.Notes != nil {
			recording := ctrl.State().Playhead.Recording
			deps.Notes.Drain(func(n midiNoteEvent) {
				deps.Broadcasts.Publish(BroadcastNotePreview{
					Channel:   n.Channel,
					Key:       n.Key,
					Velocity:  n.Velocity,
					On:        n.On,
					Recording: recording,
					At:        now.UTC(),
				})
			})
		}
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon stopping (context canceled)")
			return

		case in, ok := <-inputs:
			if !ok {
				logger.Info("daemon stopping (inputs channel closed)")
				return
			}
			enqueueInput(TimedInput{Input: in, At: time.Now()})
			flushInputs()
			flushCommands()

		case now := <-ticker.C:
			dt := now.Sub(lastTick).Seconds()
			lastTick = now
			drainProducers(now)
			enqueueInput(Tick{Now: now, Dt: dt})
			flushInputs()
			flushCommands()
		}
	}
}

// runCommand executes a single reducer-emitted Command against the Controller.
func runCommand(ctrl *timeline.Controller, clips *clipStore, cmd Command, logger *slog.Logger) {
	switch c := cmd.(type) {
	case CmdDispatch:
		ctrl.Dispatch(c.Event)

	case CmdUndo:
		if !ctrl.Undo() {
			logger.Debug("undo: nothing to undo")
		}

	case CmdRedo:
		if !ctrl.Redo() {
			logger.Debug("redo: nothing to redo")
		}

	case CmdPublishStateSnapshot:
		if c.Reply == nil {
			return
		}
		snap := StateSnapshot{
			Timeline:  ctrl.State(),
			UndoDepth: ctrl.UndoDepth(),
			RedoDepth: ctrl.RedoDepth(),
		}
		if clips != nil {
			snap.Clips = clips.Clips()
		}
		// Reply is buffered by the requester; never block here.
		select {
		case c.Reply <- snap:
		default:
			logger.Warn("snapshot reply dropped")
		}

	default:
		logger.Warn("unknown command", "command", cmd)
	}
}
