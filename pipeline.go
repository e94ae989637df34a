package hwdecode

import "fmt"

// DecodePipeline is the asynchronous hardware decode pipeline consumed by
// the bridge. Implementations wrap whatever the platform provides (a media
// player service, V4L2 m2m device, vendor SDK...). All methods are invoked
// from the bridge's decode goroutine only; completion and output are
// reported through the PipelineListener, from any goroutine.
type DecodePipeline interface {
	// Initialize starts asynchronous pipeline setup for the given codec and
	// coded size. Completion is reported via PipelineListener.OnInitialized.
	Initialize(codec VideoCodec, width, height int) error

	// Feed hands one encoded frame to the pipeline. Fire-and-forget: the
	// decoded result (or an error) arrives later through the listener.
	Feed(data []byte, timestamp uint32, keyFrame bool, renderTimeMs int64) error

	// Suspend pauses the pipeline; decode context may be torn down.
	Suspend() error

	// Resume restarts a suspended pipeline. The bridge re-requests a
	// keyframe regardless of the outcome.
	Resume() error

	// Close finalizes the pipeline. No listener callback may fire after
	// Close returns.
	Close() error
}

// PipelineListener receives pipeline callbacks. The bridge installs its own
// listener; implementations may call it from any goroutine.
type PipelineListener interface {
	// OnInitialized reports the outcome of Initialize. A non-nil error is
	// permanent for this pipeline instance.
	OnInitialized(err error)

	// OnFrame delivers a decoded frame.
	OnFrame(frame *DecodedFrame)

	// OnSizeChanged reports a mid-stream coded size change.
	OnSizeChanged(width, height int)

	// OnSuspended reports that the pipeline suspended itself (e.g. the
	// platform reclaimed the decoder).
	OnSuspended()

	// OnResumed reports that a suspended pipeline is running again.
	OnResumed()

	// OnError reports a fatal runtime pipeline error.
	OnError(err error)

	// OnKeyFrameRequest asks the bridge to re-arm its keyframe requirement,
	// typically after the pipeline lost decode context.
	OnKeyFrameRequest()
}

// PipelineFactory constructs a pipeline for one codec session. It is called
// from the decode goroutine when the first valid keyframe is observed, and
// again after every codec switch. Returning an error marks the hardware
// path unusable for the session.
type PipelineFactory func(codec VideoCodec, listener PipelineListener) (DecodePipeline, error)

// pipelineEventKind tags events posted from pipeline callbacks onto the
// decode goroutine.
type pipelineEventKind int

const (
	eventInitialized pipelineEventKind = iota
	eventFrame
	eventSizeChanged
	eventSuspended
	eventResumed
	eventError
	eventKeyFrameRequest
)

func (k pipelineEventKind) String() string {
	switch k {
	case eventInitialized:
		return "initialized"
	case eventFrame:
		return "frame"
	case eventSizeChanged:
		return "size-changed"
	case eventSuspended:
		return "suspended"
	case eventResumed:
		return "resumed"
	case eventError:
		return "error"
	case eventKeyFrameRequest:
		return "key-frame-request"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// pipelineEvent is one tagged callback crossing from the pipeline's
// goroutine onto the decode goroutine.
type pipelineEvent struct {
	kind   pipelineEventKind
	err    error
	frame  *DecodedFrame
	width  int
	height int
}

// eventListener adapts PipelineListener calls into events on the decode
// goroutine's mailbox. Posting never blocks past teardown: once the decoder
// is released, events are dropped on the floor.
type eventListener struct {
	eventC chan<- pipelineEvent
	doneC  <-chan struct{}
}

func (l *eventListener) post(ev pipelineEvent) {
	select {
	case l.eventC <- ev:
	case <-l.doneC:
	}
}

func (l *eventListener) OnInitialized(err error) {
	l.post(pipelineEvent{kind: eventInitialized, err: err})
}

func (l *eventListener) OnFrame(frame *DecodedFrame) {
	l.post(pipelineEvent{kind: eventFrame, frame: frame})
}

func (l *eventListener) OnSizeChanged(width, height int) {
	l.post(pipelineEvent{kind: eventSizeChanged, width: width, height: height})
}

func (l *eventListener) OnSuspended() {
	l.post(pipelineEvent{kind: eventSuspended})
}

func (l *eventListener) OnResumed() {
	l.post(pipelineEvent{kind: eventResumed})
}

func (l *eventListener) OnError(err error) {
	l.post(pipelineEvent{kind: eventError, err: err})
}

func (l *eventListener) OnKeyFrameRequest() {
	l.post(pipelineEvent{kind: eventKeyFrameRequest})
}
