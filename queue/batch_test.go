package queue

import (
	"errors"
	"runtime"
	"slices"
	"sync"
	"testing"
)

func TestBatchEnqueueDequeue(t *testing.T) {
	q := NewBatch[int](8)

	for i := range 5 {
		if err := q.Enqueue(i); err != nil {
			t.Fatalf("Enqueue(%d) failed: %v", i, err)
		}
	}
	if err := q.EnqueueSlice([]int{5, 6, 7}); err != nil {
		t.Fatalf("EnqueueSlice failed: %v", err)
	}
	if got := q.Len(); got != 8 {
		t.Errorf("q.Len() = %d, want 8", got)
	}

	var out PositionList[int]
	if !q.TryDequeue(&out) {
		t.Fatal("TryDequeue returned false on a non-empty queue")
	}
	if want := []int{0, 1, 2, 3, 4, 5, 6, 7}; !slices.Equal(out.Items(), want) {
		t.Errorf("out.Items() = %v, want %v", out.Items(), want)
	}
	if got := q.Len(); got != 0 {
		t.Errorf("q.Len() after drain = %d, want 0", got)
	}

	out.Reset()
	if q.TryDequeue(&out) {
		t.Errorf("TryDequeue returned true on an empty queue, out = %v", out.Items())
	}
}

func TestBatchFull(t *testing.T) {
	q := NewBatch[int](4)

	if err := q.EnqueueSlice([]int{1, 2, 3}); err != nil {
		t.Fatalf("EnqueueSlice failed: %v", err)
	}
	if err := q.EnqueueSlice([]int{4, 5}); !errors.Is(err, ErrBatchFull) {
		t.Errorf("EnqueueSlice over capacity: err = %v, want %v", err, ErrBatchFull)
	}
	if err := q.Enqueue(4); err != nil {
		t.Fatalf("Enqueue(4) failed: %v", err)
	}
	if err := q.Enqueue(5); !errors.Is(err, ErrBatchFull) {
		t.Errorf("Enqueue over capacity: err = %v, want %v", err, ErrBatchFull)
	}

	var out PositionList[int]
	if !q.TryDequeue(&out) {
		t.Fatal("TryDequeue returned false on a full queue")
	}
	if want := []int{1, 2, 3, 4}; !slices.Equal(out.Items(), want) {
		t.Errorf("out.Items() = %v, want %v", out.Items(), want)
	}

	// The drained buffer is reusable after the flip back.
	for round := range 3 {
		out.Reset()
		if err := q.EnqueueSlice([]int{round, round}); err != nil {
			t.Fatalf("round %d: EnqueueSlice failed: %v", round, err)
		}
		if !q.TryDequeue(&out) || out.Len() != 2 {
			t.Fatalf("round %d: out.Items() = %v, want 2 items", round, out.Items())
		}
	}
}

func TestBatchEnqueueSliceEmpty(t *testing.T) {
	q := NewBatch[int](4)
	if err := q.EnqueueSlice(nil); err == nil {
		t.Error("EnqueueSlice(nil) succeeded, want error")
	}
}

// TestBatchConcurrentProducers checks that a drain racing with producers returns
// every accepted item exactly once, in per-producer order.
func TestBatchConcurrentProducers(t *testing.T) {
	const (
		producers        = 8
		itemsPerProducer = 10000
	)

	type item struct {
		producer int
		seq      int
	}

	q := NewBatch[item](256)

	var (
		wg       sync.WaitGroup
		received = make([][]int, producers)
		done     = make(chan struct{})
		drained  = make(chan struct{})
	)

	go func() {
		defer close(drained)
		var out PositionList[item]
		for {
			out.Reset()
			if q.TryDequeue(&out) {
				for _, it := range out.Items() {
					received[it.producer] = append(received[it.producer], it.seq)
				}
				continue
			}
			select {
			case <-done:
				out.Reset()
				if q.TryDequeue(&out) {
					for _, it := range out.Items() {
						received[it.producer] = append(received[it.producer], it.seq)
					}
				}
				return
			default:
				runtime.Gosched()
			}
		}
	}()

	wg.Add(producers)
	for p := range producers {
		go func() {
			defer wg.Done()
			for seq := 0; seq < itemsPerProducer; {
				switch err := q.Enqueue(item{producer: p, seq: seq}); err {
				case nil:
					seq++
				case ErrBatchFull, ErrContended:
					runtime.Gosched()
				default:
					t.Errorf("producer %d: unexpected error: %v", p, err)
					return
				}
			}
		}()
	}

	wg.Wait()
	close(done)
	<-drained

	for p, seqs := range received {
		if len(seqs) != itemsPerProducer {
			t.Errorf("producer %d: received %d items, want %d", p, len(seqs), itemsPerProducer)
			continue
		}
		for i, seq := range seqs {
			if seq != i {
				t.Errorf("producer %d: item %d has seq %d, want %d", p, i, seq, i)
				break
			}
		}
	}

	if got := q.Len(); got != 0 {
		t.Errorf("q.Len() after final drain = %d, want 0", got)
	}
}

func TestPositionList(t *testing.T) {
	var l PositionList[string]
	if _, ok := l.Current(); ok {
		t.Error("Current on empty list returned ok")
	}

	l.AppendSlice([]string{"a", "b"})
	l.Append("c")

	if item, ok := l.Current(); !ok || item != "a" {
		t.Errorf("Current() = %q, %v, want \"a\", true", item, ok)
	}

	l.Advance(2)
	if l.Position() != 2 {
		t.Errorf("Position() = %d, want 2", l.Position())
	}
	if got := l.Remaining(); !slices.Equal(got, []string{"c"}) {
		t.Errorf("Remaining() = %v, want [c]", got)
	}

	l.Advance(5)
	if !l.Done() || l.Position() != 3 {
		t.Errorf("after over-advance: Done() = %v, Position() = %d, want true, 3", l.Done(), l.Position())
	}

	l.Reset()
	if l.Len() != 0 || l.Position() != 0 || !l.Done() {
		t.Errorf("after Reset: Len() = %d, Position() = %d", l.Len(), l.Position())
	}
}
