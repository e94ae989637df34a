package hwdecode

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// Defaults matching the platform adapter this bridge stands in for.
const (
	// DefaultMaxPendingFrames is the pending-queue capacity.
	DefaultMaxPendingFrames = 8

	// DefaultMaxDecodeHistory is the timestamp-history capacity. It only
	// needs to exceed the maximum reorder distance of the pipeline's output,
	// but being larger doesn't hurt much.
	DefaultMaxDecodeHistory = 32

	// DefaultMaxConsecutiveErrors is how many transient errors in a row are
	// tolerated before the bridge gives up and requests software fallback.
	DefaultMaxConsecutiveErrors = 60
)

const implementationName = "HWPassThroughVideoDecoder"

// zerolog field labels shared across the package.
const (
	lCodec     = "codec"
	lErrors    = "consecutiveErrors"
	lHeight    = "height"
	lQueued    = "queued"
	lState     = "state"
	lTimestamp = "timestamp"
	lWidth     = "width"
)

var (
	// ErrCodecNotSupported means the capability table has no hardware path
	// for the requested codec.
	ErrCodecNotSupported = errors.New("codec not supported by hardware decoder")

	// ErrNoPipelineFactory means Config.NewPipeline was nil.
	ErrNoPipelineFactory = errors.New("pipeline factory is required")
)

// DecodeCompleteCallback receives frames decoded by the pipeline, in the
// order the pipeline produced them. It is invoked from the bridge's decode
// goroutine and must not block for long.
type DecodeCompleteCallback func(frame *DecodedFrame)

// Config configures a Decoder.
type Config struct {
	// Codec is the negotiated video codec. Must have a hardware path in
	// Capabilities.
	Codec VideoCodec

	// NewPipeline constructs the platform decode pipeline. Required.
	NewPipeline PipelineFactory

	// Capabilities is the per-codec hardware capability table.
	// Nil means DefaultCapabilities().
	Capabilities CapabilitySet

	// Logger receives bridge diagnostics. The zero value disables logging.
	Logger zerolog.Logger

	// MaxPendingFrames, MaxDecodeHistory and MaxConsecutiveErrors override
	// the corresponding defaults when positive.
	MaxPendingFrames     int
	MaxConsecutiveErrors int
	MaxDecodeHistory     int
}

// DecoderStats provides bridge metrics.
type DecoderStats struct {
	FramesAdmitted  uint64 // Frames accepted by the gate and queued
	FramesRejected  uint64 // Frames rejected by the gate (incomplete, non-key while waiting)
	FramesDelivered uint64 // Decoded frames handed to the callback
	FramesDiscarded uint64 // Decoded frames dropped for a stale timestamp
	Overflows       uint64 // Whole-queue discards
}

// Decoder is the pass-through decode bridge. Decode is safe to call from a
// real-time goroutine: admission, copy, and queue push are the only
// synchronous work, and the pipeline is only ever touched from the bridge's
// own decode goroutine.
type Decoder struct {
	newPipeline PipelineFactory
	caps        CapabilitySet
	log         zerolog.Logger

	maxPending    int
	maxHistory    int
	maxConsErrors int

	// mu guards everything below. It is held only for push/swap/clear
	// operations, never across a call into the pipeline.
	mu                sync.Mutex
	state             DecoderState
	codec             VideoCodec
	hwAvailable       bool
	keyFrameRequired  bool
	consecutiveErrors int
	frameWidth        int
	frameHeight       int
	queue             *pendingQueue
	history           *timestampHistory
	callback          DecodeCompleteCallback
	stats             DecoderStats
	released          bool

	wakeC  chan struct{}      // pokes the decode goroutine after a push
	eventC chan pipelineEvent // pipeline callbacks, re-posted as events
	ctrlC  chan ctrlKind      // caller suspend/resume requests
	stopC  chan struct{}
	doneC  chan struct{}
}

type ctrlKind int

const (
	ctrlSuspend ctrlKind = iota
	ctrlResume
)

// New creates a Decoder for the configured codec and starts its decode
// goroutine. The caller must call Release when done. New fails if the
// capability table has no hardware path for the codec, signalling the
// caller to build its software decoder from the start.
func New(config Config) (*Decoder, error) {
	if config.NewPipeline == nil {
		return nil, ErrNoPipelineFactory
	}

	caps := config.Capabilities
	if caps == nil {
		caps = DefaultCapabilities()
	}

	if !caps.Supports(config.Codec) {
		return nil, ErrCodecNotSupported
	}

	d := &Decoder{
		newPipeline:   config.NewPipeline,
		caps:          caps,
		log:           config.Logger.With().Str("pkg", "hwdecode").Logger(),
		maxPending:    config.MaxPendingFrames,
		maxHistory:    config.MaxDecodeHistory,
		maxConsErrors: config.MaxConsecutiveErrors,

		state:       StateUninitialized,
		codec:       config.Codec,
		hwAvailable: true,
	}

	if d.maxPending <= 0 {
		d.maxPending = DefaultMaxPendingFrames
	}
	if d.maxHistory <= 0 {
		d.maxHistory = DefaultMaxDecodeHistory
	}
	if d.maxConsErrors <= 0 {
		d.maxConsErrors = DefaultMaxConsecutiveErrors
	}

	d.queue = newPendingQueue(d.maxPending)
	d.history = newTimestampHistory(d.maxHistory)

	d.wakeC = make(chan struct{}, 1)
	d.eventC = make(chan pipelineEvent, 2*d.maxPending)
	d.ctrlC = make(chan ctrlKind, 2)
	d.stopC = make(chan struct{})
	d.doneC = make(chan struct{})

	d.log.Debug().Str(lCodec, d.codec.String()).Msg("decoder created")

	go d.run()

	return d, nil
}

// ImplementationName identifies the bridge to callers that report decoder
// implementations in stats.
func (d *Decoder) ImplementationName() string {
	return implementationName
}

// CodecSettings carries the negotiated decode parameters for InitDecode.
type CodecSettings struct {
	Codec  VideoCodec
	Width  int
	Height int
}

// InitDecode resets the bridge for a (possibly renegotiated) stream. It
// always re-arms the keyframe requirement. Returns StatusErrParameter for
// malformed settings and StatusUninitialized if the hardware path is not
// available for the codec, in which case the caller should use its software
// decoder from the start.
func (d *Decoder) InitDecode(settings *CodecSettings) DecodeStatus {
	if settings == nil || settings.Codec == VideoCodecUnknown {
		return StatusErrParameter
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released {
		return StatusUninitialized
	}

	// Always start with a complete keyframe.
	d.keyFrameRequired = true
	d.codec = settings.Codec
	d.frameWidth = settings.Width
	d.frameHeight = settings.Height

	if !d.caps.Supports(settings.Codec) {
		d.log.Info().Str(lCodec, settings.Codec.String()).
			Msg("codec unsupported by hardware decoder")
		return StatusUninitialized
	}

	if d.state == StateUninitialized {
		d.state = StateAwaitingKeyFrame
	}

	d.log.Info().Str(lCodec, settings.Codec.String()).
		Int(lWidth, settings.Width).Int(lHeight, settings.Height).
		Msg("init decode")

	if !d.hwAvailable {
		return StatusUninitialized
	}

	return StatusOk
}

// RegisterDecodeCompleteCallback installs the single callback slot that
// receives decoded frames. Replacing it mid-stream is not defended against.
func (d *Decoder) RegisterDecodeCompleteCallback(callback DecodeCompleteCallback) DecodeStatus {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.callback = callback

	if !d.hwAvailable || d.released {
		return StatusUninitialized
	}

	return StatusOk
}

// Decode admits one encoded frame. Fully non-blocking: the frame is
// validated, copied, queued, and the decode goroutine is poked. See the
// package documentation for the status taxonomy.
func (d *Decoder) Decode(frame *EncodedFrame, missingFrames bool, renderTimeMs int64) DecodeStatus {
	if frame == nil {
		return StatusErrParameter
	}

	d.mu.Lock()

	if d.released || d.state == StateUninitialized {
		d.mu.Unlock()
		return StatusUninitialized
	}

	// Permanent fallback is checked first so a fallen-back decoder answers
	// every subsequent call immediately.
	if !d.hwAvailable || d.state == StateFallbackSoftware {
		d.mu.Unlock()
		return StatusFallbackSoftware
	}

	// Frames arriving while suspended have nowhere to go: the queue was
	// cleared on suspend and resume re-requests a keyframe anyway.
	if d.state == StateSuspended {
		d.mu.Unlock()
		d.log.Debug().Uint32(lTimestamp, frame.Timestamp).Msg("suspended, ignoring frame")
		return StatusNoOutput
	}

	// Hardware decoders generally can't handle more than one spatial layer.
	// Decoding only the base layer would produce corrupt output, so this is
	// a capability error: give up on hardware before touching the pipeline.
	if frame.SpatialLayerID > 0 && !d.caps.SpatialLayerOK(d.codec, frame.SpatialLayerID) {
		d.log.Info().Str(lCodec, d.codec.String()).
			Int("spatialLayer", frame.SpatialLayerID).
			Msg("spatial layer unsupported, falling back to software")
		d.fallbackLocked()
		d.mu.Unlock()
		return StatusFallbackSoftware
	}

	if missingFrames || len(frame.Data) == 0 {
		// Broken frames can't be handled; the error status asks upstream
		// for a keyframe.
		d.stats.FramesRejected++
		d.mu.Unlock()
		d.log.Debug().Msg("missing or incomplete frame")
		return StatusError
	}

	keyFrame := frame.FrameType == FrameTypeKey
	if frame.FrameType == FrameTypeUnknown {
		keyFrame = IsKeyframe(d.codec, frame.Data)
	}

	if d.keyFrameRequired {
		if !keyFrame {
			// Still catching up; discard everything until the keyframe.
			d.stats.FramesRejected++
			d.mu.Unlock()
			d.log.Debug().Uint32(lTimestamp, frame.Timestamp).
				Msg("keyframe required, discarding delta frame")
			return StatusError
		}

		d.keyFrameRequired = false
		d.log.Info().Uint32(lTimestamp, frame.Timestamp).
			Msg("keyframe received, resuming decode")
	}

	if keyFrame {
		if frame.Width > 0 && frame.Height > 0 {
			d.frameWidth = frame.Width
			d.frameHeight = frame.Height
		}
		if d.state == StateAwaitingKeyFrame {
			d.state = StateDecoding
		}
	}

	// The caller's buffer dies when this call returns; the queue entry owns
	// its own copy.
	data := make([]byte, len(frame.Data))
	copy(data, frame.Data)

	pf := pendingFrame{
		data:         data,
		timestamp:    frame.Timestamp,
		keyFrame:     keyFrame,
		codec:        d.codec,
		width:        d.frameWidth,
		height:       d.frameHeight,
		renderTimeMs: renderTimeMs,
	}

	if overflow := d.queue.Push(pf); overflow {
		// Severely behind: everything was just dropped, so wait for a fresh
		// keyframe to catch up as quickly as possible.
		d.keyFrameRequired = true
		d.state = StateAwaitingKeyFrame
		d.consecutiveErrors++
		d.stats.Overflows++

		if d.consecutiveErrors > d.maxConsErrors {
			d.history.Clear()
			d.fallbackLocked()
			d.mu.Unlock()
			d.log.Info().Msg("too many consecutive errors, falling back to software")
			return StatusFallbackSoftware
		}

		errCount := d.consecutiveErrors
		d.mu.Unlock()
		d.log.Info().Int(lErrors, errCount).Msg("pending frames overflow, queue cleared")
		return StatusError
	}

	d.stats.FramesAdmitted++
	queued := d.queue.Len()
	d.mu.Unlock()

	// Fire-and-forget: at most one wake needs to be pending, the drain
	// empties the whole queue anyway.
	select {
	case d.wakeC <- struct{}{}:
	default:
	}

	d.log.Debug().Uint32(lTimestamp, frame.Timestamp).Int(lQueued, queued).
		Msg("frame queued")

	return StatusOk
}

// Suspend pauses the hardware pipeline. Pending frames are discarded; the
// pipeline keeps its session but may tear down decode context, so Resume
// re-requests a keyframe.
func (d *Decoder) Suspend() {
	d.mu.Lock()
	if d.released || !d.hwAvailable || d.state == StateSuspended {
		d.mu.Unlock()
		return
	}
	d.queue.Clear()
	d.state = StateSuspended
	d.mu.Unlock()

	d.log.Info().Msg("suspend requested")

	select {
	case d.ctrlC <- ctrlSuspend:
	case <-d.doneC:
	}
}

// Resume restarts a suspended pipeline. A keyframe is always re-requested:
// decode context may have been torn down while suspended.
func (d *Decoder) Resume() {
	d.mu.Lock()
	if d.released || !d.hwAvailable || d.state != StateSuspended {
		d.mu.Unlock()
		return
	}
	d.keyFrameRequired = true
	d.state = StateAwaitingKeyFrame
	d.mu.Unlock()

	d.log.Info().Msg("resume requested")

	select {
	case d.ctrlC <- ctrlResume:
	case <-d.doneC:
	}
}

// Release tears the bridge down. It is synchronous: by the time Release
// returns, the decode goroutine has exited, the pipeline is closed, and no
// callback will ever fire again. Safe to call more than once.
func (d *Decoder) Release() DecodeStatus {
	d.mu.Lock()
	if d.released {
		d.mu.Unlock()
		return StatusUninitialized
	}
	d.released = true
	d.state = StateReleased
	d.queue.Clear()
	d.history.Clear()
	d.consecutiveErrors = 0
	avail := d.hwAvailable
	d.mu.Unlock()

	close(d.stopC)
	<-d.doneC

	d.log.Info().Msg("released")

	if !avail {
		return StatusUninitialized
	}

	return StatusOk
}

// State returns the current lifecycle state.
func (d *Decoder) State() DecoderState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Stats returns a snapshot of the bridge metrics.
func (d *Decoder) Stats() DecoderStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// fallbackLocked marks the hardware path permanently unusable.
// Caller holds d.mu.
func (d *Decoder) fallbackLocked() {
	d.hwAvailable = false
	d.state = StateFallbackSoftware
	d.queue.Clear()
}
