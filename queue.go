package hwdecode

// pendingQueue is the bounded FIFO of admitted frames shared between the
// ingest path and the drain goroutine. On overflow the ENTIRE queue is
// discarded, not just one end of it: the stream is severely behind, and
// throwing everything away forces the sender to produce a fresh keyframe so
// the decoder catches up immediately instead of bisecting a growing backlog.
//
// Not goroutine-safe; the owning Decoder's mutex guards it.
type pendingQueue struct {
	frames   []pendingFrame
	capacity int
}

func newPendingQueue(capacity int) *pendingQueue {
	return &pendingQueue{
		frames:   make([]pendingFrame, 0, capacity),
		capacity: capacity,
	}
}

// Push appends a frame. If the queue is already full the whole queue is
// cleared and Push reports overflow; the offered frame is dropped too.
func (q *pendingQueue) Push(f pendingFrame) (overflow bool) {
	if len(q.frames) >= q.capacity {
		q.frames = q.frames[:0]
		return true
	}
	q.frames = append(q.frames, f)
	return false
}

// DrainAll removes and returns every queued frame in admission order. The
// caller takes ownership of the returned slice; the swap keeps the lock
// window independent of how long each frame takes to feed downstream.
func (q *pendingQueue) DrainAll() []pendingFrame {
	if len(q.frames) == 0 {
		return nil
	}
	drained := q.frames
	q.frames = make([]pendingFrame, 0, q.capacity)
	return drained
}

func (q *pendingQueue) Len() int {
	return len(q.frames)
}

func (q *pendingQueue) Clear() {
	q.frames = q.frames[:0]
}
