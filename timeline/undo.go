package timeline

import "slices"

// DefaultMaxUndo is the undo depth used when none is configured.
const DefaultMaxUndo = 50

// history holds whole-state snapshots. Both stacks are bounded by max; the
// oldest entry is dropped first.
type history struct {
	undo []State
	redo []State
	max  int
}

func newHistory(max int) history {
	if max <= 0 {
		max = DefaultMaxUndo
	}
	return history{max: max}
}

func (h *history) push(stack []State, s State) []State {
	stack = append(stack, s)
	if over := len(stack) - h.max; over > 0 {
		stack = slices.Delete(stack, 0, over)
	}
	return stack
}

// record saves s before an undo-significant change and drops the redo stack.
func (h *history) record(s State) {
	h.undo = h.push(h.undo, s)
	h.redo = nil
}

// stepBack moves current onto the redo stack and returns the previous state.
func (h *history) stepBack(current State) (State, bool) {
	if len(h.undo) == 0 {
		return State{}, false
	}
	prev := h.undo[len(h.undo)-1]
	h.undo[len(h.undo)-1] = State{}
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = h.push(h.redo, current)
	return prev, true
}

// stepForward moves current onto the undo stack and returns the next state.
func (h *history) stepForward(current State) (State, bool) {
	if len(h.redo) == 0 {
		return State{}, false
	}
	next := h.redo[len(h.redo)-1]
	h.redo[len(h.redo)-1] = State{}
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = h.push(h.undo, current)
	return next, true
}

func (h *history) clear() {
	h.undo = nil
	h.redo = nil
}

// setMax changes the bound and trims both stacks to it.
func (h *history) setMax(max int) {
	if max <= 0 {
		max = DefaultMaxUndo
	}
	h.max = max
	if over := len(h.undo) - max; over > 0 {
		h.undo = slices.Delete(h.undo, 0, over)
	}
	if over := len(h.redo) - max; over > 0 {
		h.redo = slices.Delete(h.redo, 0, over)
	}
}
