package hwdecode

// timestampHistory is a bounded, oldest-evicting record of the RTP
// timestamps of frames handed to the pipeline. Decoded results are only
// delivered if their timestamp is still present; anything else was flushed
// by an overflow and must be discarded. It is a pure membership structure:
// order is never consulted beyond eviction.
//
// Not goroutine-safe; the owning Decoder's mutex guards it.
type timestampHistory struct {
	timestamps []uint32
	capacity   int
}

func newTimestampHistory(capacity int) *timestampHistory {
	return &timestampHistory{
		timestamps: make([]uint32, 0, capacity),
		capacity:   capacity,
	}
}

// Push appends a timestamp, evicting the oldest entries while at capacity.
func (h *timestampHistory) Push(ts uint32) {
	for len(h.timestamps) >= h.capacity {
		h.timestamps = h.timestamps[1:]
	}
	h.timestamps = append(h.timestamps, ts)
}

// Contains reports whether ts is still in the history.
func (h *timestampHistory) Contains(ts uint32) bool {
	for _, t := range h.timestamps {
		if t == ts {
			return true
		}
	}
	return false
}

func (h *timestampHistory) Len() int {
	return len(h.timestamps)
}

func (h *timestampHistory) Clear() {
	h.timestamps = h.timestamps[:0]
}
