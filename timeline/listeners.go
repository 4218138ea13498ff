package timeline

import (
	"slices"
	"sync"
)

// StateListener is told about every dispatch that changed something, and
// about every undo and redo. The State must be treated as read-only.
type StateListener interface {
	TimelineStateChanged(s State, changes ChangeFlags)
}

// StateListenerFunc adapts a function to StateListener.
type StateListenerFunc func(s State, changes ChangeFlags)

func (f StateListenerFunc) TimelineStateChanged(s State, changes ChangeFlags) { f(s, changes) }

// AudioEngineListener receives transport, tempo and loop facts as they become
// true. Calls run on the dispatching goroutine and must not block or dispatch.
type AudioEngineListener interface {
	OnTransportPlay(position float64)
	OnTransportStop(returnPosition float64)
	OnTransportPause()
	OnTransportRecord(position float64)
	OnEditPositionChanged(position float64)
	OnTempoChanged(bpm float64)
	OnTimeSignatureChanged(numerator, denominator int)
	OnLoopRegionChanged(start, end float64, enabled bool)
	OnLoopEnabledChanged(enabled bool)
}

// PunchListener is implemented by engines that support punch recording.
// Engines without it simply do not receive punch calls.
type PunchListener interface {
	OnPunchRegionChanged(start, end float64, inEnabled, outEnabled bool)
	OnPunchEnabledChanged(inEnabled, outEnabled bool)
}

// registry is an ordered listener list. Entries are replaced, never edited,
// so a snapshot taken for delivery stays valid while listeners unsubscribe.
type registry[T any] struct {
	mu      sync.Mutex
	nextID  uint64
	entries []registryEntry[T]
}

type registryEntry[T any] struct {
	id uint64
	l  T
}

func (r *registry[T]) add(l T) (remove func()) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.entries = append(slices.Clip(r.entries), registryEntry[T]{id: id, l: l})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.entries = slices.DeleteFunc(slices.Clone(r.entries), func(e registryEntry[T]) bool {
				return e.id == id
			})
		})
	}
}

func (r *registry[T]) snapshot() []registryEntry[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries
}

func (r *registry[T]) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func deliverEngine(l AudioEngineListener, cmd Command) {
	switch c := cmd.(type) {
	case CmdTransportPlay:
		l.OnTransportPlay(c.Position)
	case CmdTransportStop:
		l.OnTransportStop(c.ReturnPosition)
	case CmdTransportPause:
		l.OnTransportPause()
	case CmdTransportRecord:
		l.OnTransportRecord(c.Position)
	case CmdEditPositionChanged:
		l.OnEditPositionChanged(c.Position)
	case CmdTempoChanged:
		l.OnTempoChanged(c.BPM)
	case CmdTimeSignatureChanged:
		l.OnTimeSignatureChanged(c.Numerator, c.Denominator)
	case CmdLoopRegionChanged:
		l.OnLoopRegionChanged(c.Start, c.End, c.Enabled)
	case CmdLoopEnabledChanged:
		l.OnLoopEnabledChanged(c.Enabled)
	case CmdPunchRegionChanged:
		if p, ok := l.(PunchListener); ok {
			p.OnPunchRegionChanged(c.Start, c.End, c.InEnabled, c.OutEnabled)
		}
	case CmdPunchEnabledChanged:
		if p, ok := l.(PunchListener); ok {
			p.OnPunchEnabledChanged(c.InEnabled, c.OutEnabled)
		}
	}
}
