package hwdecode

// FrameType indicates whether a frame is a keyframe or delta frame.
type FrameType int

const (
	FrameTypeUnknown FrameType = iota
	FrameTypeKey               // I-frame, can be decoded independently
	FrameTypeDelta             // P/B-frame, requires previous frames
)

func (f FrameType) String() string {
	switch f {
	case FrameTypeKey:
		return "Key"
	case FrameTypeDelta:
		return "Delta"
	default:
		return "Unknown"
	}
}

// EncodedFrame is one encoded video frame handed to Decode.
// The Data slice is owned by the caller and is only valid for the duration
// of the call; the bridge copies what it needs before returning.
type EncodedFrame struct {
	Data           []byte    // Encoded bitstream data
	FrameType      FrameType // Key or delta; Unknown lets the bridge sniff the bitstream
	Timestamp      uint32    // RTP timestamp (90kHz clock)
	Width          int       // Coded width, meaningful on keyframes
	Height         int       // Coded height, meaningful on keyframes
	SpatialLayerID int       // SVC spatial layer (0 = base)
}

// IsKeyframe returns true if this is a keyframe.
func (f *EncodedFrame) IsKeyframe() bool {
	return f.FrameType == FrameTypeKey
}

// DecodedFrame is a decoded video frame surfaced by the pipeline. The bridge
// treats it as opaque apart from the timestamp, which correlates it with an
// admitted encoded frame.
type DecodedFrame struct {
	Timestamp uint32 // RTP timestamp of the encoded frame this was decoded from
	Width     int
	Height    int
	// Handle is the pipeline's reference to the decoded image (a buffer id,
	// texture, dmabuf fd wrapper, ...). The bridge never inspects it.
	Handle any
}

// pendingFrame is an admitted frame waiting on the queue for the decode
// goroutine. Its data buffer is owned by the queue entry, decoupled from the
// caller's memory.
type pendingFrame struct {
	data         []byte
	timestamp    uint32
	keyFrame     bool
	codec        VideoCodec
	width        int // coded size; carried from the most recent keyframe
	height       int
	renderTimeMs int64
}
