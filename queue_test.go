package hwdecode

import (
	"testing"
)

func TestPendingQueue_FIFO(t *testing.T) {
	q := newPendingQueue(4)

	for ts := uint32(100); ts < 104; ts += 1 {
		if overflow := q.Push(pendingFrame{timestamp: ts}); overflow {
			t.Fatalf("Push(%d) overflowed a non-full queue", ts)
		}
	}

	drained := q.DrainAll()
	if len(drained) != 4 {
		t.Fatalf("DrainAll() returned %d frames, want 4", len(drained))
	}
	for i, f := range drained {
		if want := uint32(100 + i); f.timestamp != want {
			t.Errorf("drained[%d].timestamp = %d, want %d", i, f.timestamp, want)
		}
	}

	if q.Len() != 0 {
		t.Errorf("Len() = %d after drain, want 0", q.Len())
	}
}

func TestPendingQueue_OverflowDiscardsEverything(t *testing.T) {
	q := newPendingQueue(3)

	for ts := uint32(0); ts < 3; ts++ {
		if overflow := q.Push(pendingFrame{timestamp: ts}); overflow {
			t.Fatalf("unexpected overflow at %d", ts)
		}
	}

	// The queue is full: the next push dumps the whole backlog, including
	// the offered frame.
	if overflow := q.Push(pendingFrame{timestamp: 3}); !overflow {
		t.Fatal("Push on full queue did not overflow")
	}
	if q.Len() != 0 {
		t.Errorf("Len() = %d after overflow, want 0 (entire queue discarded)", q.Len())
	}

	// The queue is usable again afterwards.
	if overflow := q.Push(pendingFrame{timestamp: 4}); overflow {
		t.Fatal("Push after overflow recovery overflowed")
	}
	drained := q.DrainAll()
	if len(drained) != 1 || drained[0].timestamp != 4 {
		t.Errorf("post-overflow drain = %+v, want single frame @4", drained)
	}
}

func TestPendingQueue_DrainAllEmpty(t *testing.T) {
	q := newPendingQueue(2)
	if drained := q.DrainAll(); drained != nil {
		t.Errorf("DrainAll() on empty queue = %v, want nil", drained)
	}
}

func TestPendingQueue_FIFOAcrossDrains(t *testing.T) {
	q := newPendingQueue(8)

	q.Push(pendingFrame{timestamp: 1})
	q.Push(pendingFrame{timestamp: 2})
	first := q.DrainAll()

	q.Push(pendingFrame{timestamp: 3})
	second := q.DrainAll()

	var got []uint32
	for _, f := range append(first, second...) {
		got = append(got, f.timestamp)
	}
	for i, want := range []uint32{1, 2, 3} {
		if got[i] != want {
			t.Errorf("combined drain order[%d] = %d, want %d", i, got[i], want)
		}
	}
}
