// Package ringbuf provides a bounded single-producer single-consumer queue
// for handing values between a real-time goroutine and the control goroutine
// without locks or allocation.
package ringbuf

import "sync/atomic"

// SPSC is a lock-free ring buffer. Exactly one goroutine may Push and exactly
// one goroutine may Pop. Capacity is a power of two; head and tail run freely
// and are masked on access, so wraparound needs no special casing.
type SPSC[T any] struct {
	buf  []T
	mask uint64

	_    [56]byte
	head atomic.Uint64 // next slot to read, owned by the consumer
	_    [56]byte
	tail atomic.Uint64 // next slot to write, owned by the producer
}

// New returns a queue holding at least capacity items. Capacity is rounded up
// to the next power of two, with a minimum of 2.
func New[T any](capacity int) *SPSC[T] {
	n := uint64(2)
	for n < uint64(max(capacity, 0)) {
		n <<= 1
	}
	return &SPSC[T]{buf: make([]T, n), mask: n - 1}
}

// Push appends v. It returns false without blocking when the queue is full.
func (q *SPSC[T]) Push(v T) bool {
	tail := q.tail.Load()
	if tail-q.head.Load() == uint64(len(q.buf)) {
		return false
	}
	q.buf[tail&q.mask] = v
	q.tail.Store(tail + 1)
	return true
}

// Pop removes the oldest item. It returns false without blocking when empty.
func (q *SPSC[T]) Pop() (T, bool) {
	var zero T
	head := q.head.Load()
	if head == q.tail.Load() {
		return zero, false
	}
	v := q.buf[head&q.mask]
	q.buf[head&q.mask] = zero
	q.head.Store(head + 1)
	return v, true
}

// Drain pops every available item into fn and returns how many were popped.
// Only the consumer may call it.
func (q *SPSC[T]) Drain(fn func(T)) int {
	n := 0
	for {
		v, ok := q.Pop()
		if !ok {
			return n
		}
		fn(v)
		n++
	}
}

// Len is a snapshot of the number of queued items.
func (q *SPSC[T]) Len() int { return int(q.tail.Load() - q.head.Load()) }

// Cap returns the queue capacity.
func (q *SPSC[T]) Cap() int { return len(q.buf) }
