// Package queue provides the outbound queues used by the session send pipeline.
package queue

import (
	"errors"
	"runtime"
	"sync/atomic"
)

// DefaultBatchCapacity is the per-buffer capacity used when a non-positive capacity is given.
const DefaultBatchCapacity = 1024

var (
	// ErrBatchFull is returned when the front buffer cannot hold the items.
	// Treat it as backpressure.
	ErrBatchFull = errors.New("batch queue is full")

	// ErrContended is returned when a concurrent producer reserved slots first.
	// Retrying immediately is fine.
	ErrContended = errors.New("batch queue reservation lost a race")

	errEmptyItems = errors.New("no items to enqueue")
)

// batchBuffer is one half of the double buffer.
type batchBuffer[T any] struct {
	items []T

	// count is the number of reserved slots.
	count atomic.Int64

	// writers is the number of producers that may still write into items.
	writers atomic.Int64
}

// Batch is a fixed-capacity multi-producer, single-drain queue.
//
// Producers reserve disjoint slot ranges in the front buffer with a CAS on its count.
// A drain flips the front and back buffers, waits for producers still writing into
// the old front, and then owns it exclusively.
//
// Batch never grows. Enqueue methods report [ErrBatchFull] when the front buffer
// cannot hold the items, and [ErrContended] when the reservation CAS fails.
type Batch[T any] struct {
	buffers [2]batchBuffer[T]
	front   atomic.Uint32
}

// NewBatch returns a new batch queue whose buffers each hold capacity items.
func NewBatch[T any](capacity int) *Batch[T] {
	if capacity <= 0 {
		capacity = DefaultBatchCapacity
	}
	var q Batch[T]
	q.buffers[0].items = make([]T, capacity)
	q.buffers[1].items = make([]T, capacity)
	return &q
}

// Cap returns the capacity of each buffer.
func (q *Batch[T]) Cap() int {
	return len(q.buffers[0].items)
}

// Len returns the number of items reserved in the front buffer.
func (q *Batch[T]) Len() int {
	return int(q.buffers[q.front.Load()].count.Load())
}

// acquireFront registers the caller as a writer of the current front buffer.
// The caller must call writers.Add(-1) on the returned buffer when done.
func (q *Batch[T]) acquireFront() *batchBuffer[T] {
	for {
		i := q.front.Load()
		b := &q.buffers[i]
		b.writers.Add(1)
		if q.front.Load() == i {
			return b
		}
		// A drain flipped the buffers between the load and the increment.
		b.writers.Add(-1)
	}
}

// Enqueue adds item to the queue.
func (q *Batch[T]) Enqueue(item T) error {
	b := q.acquireFront()
	defer b.writers.Add(-1)

	n := b.count.Load()
	if n >= int64(len(b.items)) {
		return ErrBatchFull
	}
	if !b.count.CompareAndSwap(n, n+1) {
		return ErrContended
	}
	b.items[n] = item
	return nil
}

// EnqueueSlice adds all items to the queue as one contiguous run.
// Either all items are queued or none are.
func (q *Batch[T]) EnqueueSlice(items []T) error {
	if len(items) == 0 {
		return errEmptyItems
	}

	b := q.acquireFront()
	defer b.writers.Add(-1)

	n := b.count.Load()
	end := n + int64(len(items))
	if end > int64(len(b.items)) {
		return ErrBatchFull
	}
	if !b.count.CompareAndSwap(n, end) {
		return ErrContended
	}
	copy(b.items[n:end], items)
	return nil
}

// TryDequeue drains everything currently queued into out, in reservation order.
// It returns false if nothing was queued.
//
// TryDequeue must not be called concurrently with itself.
func (q *Batch[T]) TryDequeue(out *PositionList[T]) bool {
	i := q.front.Load()
	b := &q.buffers[i]
	if b.count.Load() == 0 {
		return false
	}

	if !q.front.CompareAndSwap(i, i^1) {
		return false
	}

	// Producers that registered before the flip may still be writing.
	// Producers that register after it see the new front and back off.
	for spins := 0; b.writers.Load() != 0; spins++ {
		if spins < 16 {
			continue
		}
		runtime.Gosched()
	}

	n := b.count.Load()
	out.AppendSlice(b.items[:n])
	clear(b.items[:n])
	b.count.Store(0)
	return n > 0
}
